// Package orchestrator owns the research job lifecycle: validation, the
// async pipeline run, progress reporting and cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/ai"
	"github.com/flin-agency/keyword-research-tool/internal/cluster"
	"github.com/flin-agency/keyword-research-tool/internal/config"
	"github.com/flin-agency/keyword-research-tool/internal/jobstore"
	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/scraper"
	"github.com/flin-agency/keyword-research-tool/internal/seeds"
	"github.com/flin-agency/keyword-research-tool/internal/telemetry"
)

// Progress signposts and their step labels.
const (
	progressValidating = 5
	progressScanning   = 10
	progressExtracting = 30
	progressEnriching  = 50
	progressClustering = 70
	progressFinalizing = 90

	stepValidating = "validating"
	stepScanning   = "scanning"
	stepExtracting = "extracting"
	stepEnriching  = "enriching"
	stepClustering = "clustering"
	stepFinalizing = "finalizing"
)

const probeTimeout = 10 * time.Second

// Request is a validated-on-entry job submission.
type Request struct {
	URL      string
	Country  string
	Language string
	Options  research.Options
}

// Orchestrator validates submissions and runs the pipeline per job.
type Orchestrator struct {
	cfg      config.Config
	store    *jobstore.Store
	scraper  *scraper.Scraper
	seeds    *seeds.Generator
	metrics  research.MetricsProvider
	engine   *cluster.Engine
	enhancer research.Enhancer
	logger   *zap.Logger
	probe    *http.Client

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New constructs an Orchestrator.
func New(cfg config.Config, store *jobstore.Store, scr *scraper.Scraper, gen *seeds.Generator, metrics research.MetricsProvider, engine *cluster.Engine, enhancer research.Enhancer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		scraper:  scr,
		seeds:    gen,
		metrics:  metrics,
		engine:   engine,
		enhancer: enhancer,
		logger:   logger,
		probe:    &http.Client{Timeout: probeTimeout},
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Enhancer exposes the configured AI collaborator for health reporting.
func (o *Orchestrator) Enhancer() research.Enhancer { return o.enhancer }

// MetricsProvider exposes the metrics client for health reporting.
func (o *Orchestrator) MetricsProvider() research.MetricsProvider { return o.metrics }

// StartJob validates the request, stores a new processing job and launches
// the pipeline in its own goroutine.
func (o *Orchestrator) StartJob(req Request) (research.Job, error) {
	targetURL, err := normalizeURL(req.URL)
	if err != nil {
		return research.Job{}, err
	}

	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = research.DefaultCountryCode
	}
	if !research.ValidCountryCode(country) {
		return research.Job{}, fmt.Errorf("%w: unknown country code %q", research.ErrInvalidInput, req.Country)
	}

	requested := strings.ToLower(strings.TrimSpace(req.Language))

	now := time.Now().UTC()
	job := research.Job{
		ID:                uuid.NewString(),
		URL:               targetURL,
		Country:           country,
		RequestedLanguage: requested,
		ResolvedLanguage:  research.ResolveLanguage(requested, country),
		Options:           o.normalizeOptions(req.Options),
		Status:            research.JobStatusProcessing,
		Progress:          0,
		Step:              stepValidating,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.store.Create(&job)

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	go o.run(ctx, job)

	return job, nil
}

// Cancel stops a running job. Terminal jobs are left untouched.
func (o *Orchestrator) Cancel(id string) error {
	job, err := o.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	o.store.SetStatus(id, research.JobStatusCancelled, "")
	telemetry.ObserveJob(string(research.JobStatusCancelled))

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	delete(o.cancels, id)
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Delete cancels the job if it is still running and removes it from the
// store.
func (o *Orchestrator) Delete(id string) error {
	if err := o.Cancel(id); err != nil {
		return err
	}
	return o.store.Delete(id)
}

// Job returns a snapshot of the job.
func (o *Orchestrator) Job(id string) (research.Job, error) {
	return o.store.Get(id)
}

func (o *Orchestrator) normalizeOptions(opts research.Options) research.Options {
	defaults := research.DefaultOptions()
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.MaxPages > o.cfg.Scraper.MaxPages {
		opts.MaxPages = o.cfg.Scraper.MaxPages
	}
	if !research.ValidStrategy(opts.ScrapeStrategy) {
		opts.ScrapeStrategy = defaults.ScrapeStrategy
	}
	if !research.ValidAlgorithm(opts.Algorithm) {
		opts.Algorithm = defaults.Algorithm
	}
	if opts.MinClusterSize <= 0 {
		opts.MinClusterSize = defaults.MinClusterSize
	}
	return opts
}

// run executes the pipeline for one job. Fatal stage errors fail the job;
// AI trouble only produces warnings.
func (o *Orchestrator) run(ctx context.Context, job research.Job) {
	defer func() {
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
	}()
	telemetry.IncActiveJobs()
	defer telemetry.DecActiveJobs()

	logger := o.logger.With(zap.String("jobId", job.ID), zap.String("url", job.URL))
	logger.Info("research job started",
		zap.String("country", job.Country), zap.String("language", job.ResolvedLanguage))

	internal := research.InternalMetadata{StageDurationsMs: make(map[string]int64)}
	timed := func(stage string, start time.Time) {
		elapsed := time.Since(start)
		internal.StageDurationsMs[stage] = elapsed.Milliseconds()
		telemetry.ObserveStage(stage, elapsed)
	}

	o.store.UpdateProgress(job.ID, progressValidating, stepValidating)
	if err := o.probeURL(ctx, job.URL); err != nil {
		o.finish(logger, job.ID, stepScanning, err)
		return
	}

	o.store.UpdateProgress(job.ID, progressScanning, stepScanning)
	stageStart := time.Now()
	scrape, err := o.scraper.Scrape(ctx, job.URL, job.Options)
	timed(stepScanning, stageStart)
	if err != nil {
		o.finish(logger, job.ID, stepScanning, err)
		return
	}
	internal.PageCount = len(scrape.Pages)
	internal.ScrapeStrategy = scrape.Strategy
	telemetry.ObservePagesScraped(len(scrape.Pages))
	site := scraper.BuildSiteContext(job.URL, scrape)

	o.store.UpdateProgress(job.ID, progressExtracting, stepExtracting)
	stageStart = time.Now()
	var seedList []string
	seedSource := seeds.SourceFallback
	if job.Options.UseAI {
		seedList, seedSource = o.seeds.Generate(ctx, scrape, job.ResolvedLanguage, o.cfg.Keywords.Max)
	} else {
		seedList = o.seeds.Fallback(scrape, o.cfg.Keywords.Max)
	}
	timed(stepExtracting, stageStart)
	if len(seedList) == 0 {
		o.finish(logger, job.ID, stepExtracting, research.ErrNoSeeds)
		return
	}
	if job.Options.UseAI && o.enhancer.Enabled() && seedSource == seeds.SourceFallback {
		o.store.AddWarning(job.ID, "AI seed generation failed; deterministic fallback used")
	}
	internal.SeedCount = len(seedList)

	if ctx.Err() != nil {
		o.finish(logger, job.ID, stepExtracting, ctx.Err())
		return
	}

	o.store.UpdateProgress(job.ID, progressEnriching, stepEnriching)
	stageStart = time.Now()
	keywords, err := o.metrics.KeywordMetrics(ctx, seedList, job.Country, job.ResolvedLanguage)
	timed(stepEnriching, stageStart)
	if err != nil {
		o.finish(logger, job.ID, stepEnriching, err)
		return
	}
	internal.KeywordCount = len(keywords)
	telemetry.ObserveKeywords(len(keywords))

	o.store.UpdateProgress(job.ID, progressClustering, stepClustering)
	stageStart = time.Now()
	clusters, err := o.engine.Cluster(ctx, keywords, site, job.Options)
	timed(stepClustering, stageStart)
	if err != nil {
		o.finish(logger, job.ID, stepClustering, err)
		return
	}

	o.store.UpdateProgress(job.ID, progressFinalizing, stepFinalizing)
	stageStart = time.Now()
	clusters = o.enhance(ctx, job, clusters, site, keywords)
	timed(stepFinalizing, stageStart)

	if ctx.Err() != nil {
		o.finish(logger, job.ID, stepFinalizing, ctx.Err())
		return
	}

	totalVolume := 0
	totalKeywords := 0
	for _, c := range clusters {
		totalVolume += c.TotalSearchVolume
		totalKeywords += len(c.Keywords)
	}
	result := &research.Result{
		URL:               job.URL,
		Country:           job.Country,
		Language:          job.ResolvedLanguage,
		Clusters:          clusters,
		TotalKeywords:     totalKeywords,
		TotalSearchVolume: totalVolume,
		ScrapedPages:      len(scrape.Pages),
		GeneratedAt:       time.Now().UTC(),
	}

	o.store.SetInternal(job.ID, internal)
	o.store.SetData(job.ID, result)
	o.store.SetStatus(job.ID, research.JobStatusCompleted, "")
	telemetry.ObserveJob(string(research.JobStatusCompleted))
	logger.Info("research job completed",
		zap.Int("clusters", len(clusters)), zap.Int("keywords", totalKeywords))
}

// enhance applies the optional AI passes and guarantees every cluster ends up
// with a description and content strategy.
func (o *Orchestrator) enhance(ctx context.Context, job research.Job, clusters []research.Cluster, site research.SiteContext, keywords []research.Keyword) []research.Cluster {
	useAI := job.Options.UseAI && o.enhancer.Enabled()

	if useAI {
		if suggestions, err := o.enhancer.RegroupSuggestions(ctx, clusters, site, keywords, job.ResolvedLanguage); err != nil {
			o.store.AddWarning(job.ID, "AI regrouping failed")
			o.logger.Warn("ai regrouping failed", zap.String("jobId", job.ID), zap.Error(err))
		} else {
			cluster.ApplyRegroup(clusters, suggestions)
		}

		if report, err := o.enhancer.Scrutinize(ctx, clusters, keywords, site, job.ResolvedLanguage); err != nil {
			o.store.AddWarning(job.ID, "AI audit failed")
			o.logger.Warn("ai audit failed", zap.String("jobId", job.ID), zap.Error(err))
		} else {
			clusters = cluster.ApplyAudit(clusters, report)
		}

		for i := range clusters {
			enh, err := o.enhancer.EnhanceCluster(ctx, clusters[i], site, job.ResolvedLanguage)
			if err != nil || enh.Description == "" || enh.ContentStrategy == "" {
				if err != nil {
					o.store.AddWarning(job.ID, fmt.Sprintf("AI enhancement failed for cluster %q", clusters[i].PillarTopic))
				}
				enh = ai.Narrative(clusters[i], site)
			}
			if enh.PillarTopic != "" {
				clusters[i].PillarTopic = enh.PillarTopic
			}
			clusters[i].AIDescription = enh.Description
			clusters[i].AIContentStrategy = enh.ContentStrategy
		}
	} else {
		for i := range clusters {
			enh := ai.Narrative(clusters[i], site)
			clusters[i].AIDescription = enh.Description
			clusters[i].AIContentStrategy = enh.ContentStrategy
		}
	}

	// Membership may have shifted above; rescore relevance before value
	// scores are derived from it.
	clusters = cluster.EnsureUnique(clusters, job.Options.MinClusterSize)
	clusters = o.engine.ApplyRelevanceScores(clusters, site, job.Options.MinClusterSize)
	return o.engine.ScoreAndRank(clusters)
}

// finish marks the job failed, or leaves it cancelled when the context was
// cut by Cancel.
func (o *Orchestrator) finish(logger *zap.Logger, jobID, stage string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Info("research job cancelled", zap.String("stage", stage))
		return
	}
	o.store.SetStatus(jobID, research.JobStatusFailed, err.Error())
	telemetry.ObserveJob(string(research.JobStatusFailed))
	logger.Warn("research job failed", zap.String("stage", stage), zap.Error(err))
}

// probeURL checks reachability before committing to a full crawl. Any HTTP
// response counts; only transport failures are fatal.
func (o *Orchestrator) probeURL(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", research.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", o.cfg.Scraper.UserAgent)
	resp, err := o.probe.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", research.ErrUnreachable, err)
	}
	resp.Body.Close()
	return nil
}

// normalizeURL validates the target and defaults the scheme to https.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", research.ErrInvalidInput)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", research.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", research.ErrInvalidInput, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: url has no host", research.ErrInvalidInput)
	}
	return u.String(), nil
}

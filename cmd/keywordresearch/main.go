// Package main wires together the keyword research service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/ai"
	"github.com/flin-agency/keyword-research-tool/internal/api"
	"github.com/flin-agency/keyword-research-tool/internal/cluster"
	"github.com/flin-agency/keyword-research-tool/internal/config"
	"github.com/flin-agency/keyword-research-tool/internal/fetcher"
	"github.com/flin-agency/keyword-research-tool/internal/jobstore"
	"github.com/flin-agency/keyword-research-tool/internal/keywordmetrics"
	"github.com/flin-agency/keyword-research-tool/internal/logging"
	"github.com/flin-agency/keyword-research-tool/internal/orchestrator"
	"github.com/flin-agency/keyword-research-tool/internal/ratelimit"
	"github.com/flin-agency/keyword-research-tool/internal/scraper"
	"github.com/flin-agency/keyword-research-tool/internal/seeds"
	"github.com/flin-agency/keyword-research-tool/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetch := fetcher.New(fetcher.Config{
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: cfg.ScraperTimeout(),
		MaxParallelTabs:   cfg.Scraper.MaxParallel,
		DomainQPS:         cfg.Scraper.DomainQPS,
	}, logger.Named("fetcher"))

	aiClient := ai.New(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AITimeout(),
	}, logger.Named("ai"))

	metrics := keywordmetrics.New(keywordmetrics.Config{
		BaseURL:         cfg.MetricsService.URL,
		Timeout:         cfg.MetricsTimeout(),
		MinSearchVolume: cfg.Keywords.MinSearchVolume,
		MaxKeywords:     cfg.Keywords.Max,
	}, logger.Named("metrics"))

	store := jobstore.New(cfg.JobTTL(), logger.Named("jobstore"))
	scr := scraper.New(fetch, cfg.Scraper.Attempts, logger.Named("scraper"))
	gen := seeds.New(aiClient, logger.Named("seeds"))
	engine := cluster.NewEngine(logger.Named("cluster"))

	orch := orchestrator.New(cfg, store, scr, gen, metrics, engine, aiClient, logger.Named("orchestrator"))
	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimitWindow())
	apiServer := api.NewServer(cfg, orch, limiter, logger.Named("api"))

	go store.Sweep(ctx, cfg.SweepInterval())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := fetch.Close(shutdownCtx); err != nil {
		logger.Error("fetcher shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// Package keywordmetrics talks to the keyword-metrics sidecar that fronts
// the Google Ads API. Seeds go out in fixed-size batches; responses are
// normalized into research.Keyword values.
package keywordmetrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

const (
	batchSize       = 50
	keywordsPath    = "/api/keywords"
	healthPath      = "/health"
	defaultTimeout  = 120 * time.Second
	healthcheckTime = 5 * time.Second
)

// Config for the sidecar client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MinSearchVolume int
	MaxKeywords     int
}

// Client is the HTTP client for the metrics sidecar. Implements
// research.MetricsProvider.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	minSearchVolume int
	maxKeywords     int
	logger          *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		minSearchVolume: cfg.MinSearchVolume,
		maxKeywords:     cfg.MaxKeywords,
		logger:          logger,
	}
}

type metricsRequest struct {
	Keywords []string `json:"keywords"`
	Country  string   `json:"country"`
	Language string   `json:"language"`
}

type metricsKeyword struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"searchVolume"`
	Competition  string  `json:"competition"`
	CPC          float64 `json:"cpc"`
	CPCHigh      float64 `json:"cpcHigh"`
}

type metricsResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Keywords []metricsKeyword `json:"keywords"`
}

// KeywordMetrics resolves seeds into keyword metrics. Seeds are sent in
// batches; a batch failure fails the whole call. Results are deduplicated by
// canonical text, filtered by minimum volume, sorted by volume descending and
// capped at the configured maximum.
func (c *Client) KeywordMetrics(ctx context.Context, seeds []string, country, language string) ([]research.Keyword, error) {
	if len(seeds) == 0 {
		return nil, research.ErrNoSeeds
	}

	seen := make(map[string]struct{}, len(seeds))
	var keywords []research.Keyword

	for start := 0; start < len(seeds); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(seeds) {
			end = len(seeds)
		}
		batch, err := c.fetchBatch(ctx, seeds[start:end], country, language)
		if err != nil {
			return nil, err
		}
		for _, kw := range batch {
			canon := research.CanonicalText(kw.Keyword)
			if canon == "" {
				continue
			}
			if _, dup := seen[canon]; dup {
				continue
			}
			if kw.SearchVolume < c.minSearchVolume {
				continue
			}
			seen[canon] = struct{}{}
			keywords = append(keywords, research.Keyword{
				Text:         canon,
				SearchVolume: kw.SearchVolume,
				Competition:  normalizeCompetition(kw.Competition),
				CPCLow:       kw.CPC,
				CPCHigh:      kw.CPCHigh,
			})
		}
	}

	if len(keywords) == 0 {
		return nil, research.ErrNoMetrics
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		if keywords[i].SearchVolume != keywords[j].SearchVolume {
			return keywords[i].SearchVolume > keywords[j].SearchVolume
		}
		return keywords[i].Text < keywords[j].Text
	})
	if c.maxKeywords > 0 && len(keywords) > c.maxKeywords {
		keywords = keywords[:c.maxKeywords]
	}
	return keywords, nil
}

func (c *Client) fetchBatch(ctx context.Context, seeds []string, country, language string) ([]metricsKeyword, error) {
	body, err := json.Marshal(metricsRequest{Keywords: seeds, Country: country, Language: language})
	if err != nil {
		return nil, fmt.Errorf("marshal metrics request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+keywordsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build metrics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics service returned status %d", resp.StatusCode)
	}

	var decoded metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode metrics response: %w", err)
	}
	if !decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, fmt.Errorf("metrics service rejected batch: %s", msg)
	}

	c.logger.Debug("metrics batch resolved",
		zap.Int("seeds", len(seeds)), zap.Int("keywords", len(decoded.Keywords)))
	return decoded.Keywords, nil
}

// Healthy probes the sidecar health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTime)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func normalizeCompetition(raw string) research.Competition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return research.CompetitionLow
	case "medium":
		return research.CompetitionMedium
	case "high":
		return research.CompetitionHigh
	default:
		return research.CompetitionUnknown
	}
}

// Package fetcher retrieves raw HTML with a browser-first strategy ladder.
// The browser strategy renders JavaScript through headless Chrome; the HTTP
// strategy is a plain GET. With the auto strategy, browser attempts are
// exhausted before falling back to HTTP.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// Config controls fetch behavior for both strategies.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	MaxParallelTabs   int
	DomainQPS         float64
	RetryBaseDelay    time.Duration
}

// pageStrategy is one way to turn a URL into HTML.
type pageStrategy interface {
	Name() string
	Fetch(ctx context.Context, rawURL string) (research.FetchPage, error)
}

// Fetcher implements research.Fetcher over the two page strategies.
type Fetcher struct {
	browser        pageStrategy
	http           pageStrategy
	browserCloser  func(context.Context) error
	logger         *zap.Logger
	retryBaseDelay time.Duration
	domainQPS      float64
	domainLimiters sync.Map
}

// New constructs a Fetcher. Browser startup failure is not fatal: the
// strategy ladder degrades to HTTP-only and browser requests return the
// startup error.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	f := &Fetcher{
		http:           NewHTTPStrategy(cfg, logger.Named("http")),
		logger:         logger,
		retryBaseDelay: cfg.RetryBaseDelay,
		domainQPS:      cfg.DomainQPS,
	}
	browser, err := NewBrowserStrategy(cfg, logger.Named("browser"))
	if err != nil {
		logger.Warn("browser strategy unavailable", zap.Error(err))
	} else {
		f.browser = browser
		f.browserCloser = browser.Close
	}
	return f
}

// Close releases the headless browser, if one was started.
func (f *Fetcher) Close(ctx context.Context) error {
	if f.browserCloser == nil {
		return nil
	}
	return f.browserCloser(ctx)
}

// Fetch retrieves rawURL using the named strategy, retrying each strategy up
// to attempts times with a linearly growing delay.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, strategy string, attempts int) (research.FetchPage, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if err := f.waitDomainBudget(ctx, rawURL); err != nil {
		return research.FetchPage{}, err
	}

	switch strategy {
	case research.StrategyBrowser:
		return f.fetchWithRetries(ctx, f.browserOrErr(), rawURL, attempts)
	case research.StrategyHTTP:
		return f.fetchWithRetries(ctx, f.http, rawURL, attempts)
	case research.StrategyAuto, "":
		if f.browser != nil {
			page, err := f.fetchWithRetries(ctx, f.browser, rawURL, attempts)
			if err == nil {
				return page, nil
			}
			if ctx.Err() != nil {
				return research.FetchPage{}, ctx.Err()
			}
			f.logger.Debug("browser strategy exhausted, falling back to http",
				zap.String("url", rawURL), zap.Error(err))
		}
		return f.fetchWithRetries(ctx, f.http, rawURL, attempts)
	default:
		return research.FetchPage{}, fmt.Errorf("%w: unknown strategy %q", research.ErrInvalidInput, strategy)
	}
}

func (f *Fetcher) browserOrErr() pageStrategy {
	if f.browser != nil {
		return f.browser
	}
	return unavailableStrategy{}
}

func (f *Fetcher) fetchWithRetries(ctx context.Context, strat pageStrategy, rawURL string, attempts int) (research.FetchPage, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		page, err := strat.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return research.FetchPage{}, ctx.Err()
		}
		if attempt < attempts {
			if err := sleepCtx(ctx, f.retryBaseDelay*time.Duration(attempt)); err != nil {
				return research.FetchPage{}, err
			}
		}
	}
	return research.FetchPage{}, fmt.Errorf("%s fetch failed after %d attempts: %w", strat.Name(), attempts, lastErr)
}

// waitDomainBudget throttles outbound fetches per hostname so crawls stay
// polite even when many jobs target the same site.
func (f *Fetcher) waitDomainBudget(ctx context.Context, rawURL string) error {
	if f.domainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse fetch url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	val, _ := f.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("domain budget wait: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type unavailableStrategy struct{}

func (unavailableStrategy) Name() string { return research.StrategyBrowser }

func (unavailableStrategy) Fetch(context.Context, string) (research.FetchPage, error) {
	return research.FetchPage{}, ErrBrowserDisabled
}

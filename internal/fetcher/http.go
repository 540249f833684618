package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

const maxRedirects = 5

// HTTPStrategy fetches pages with a plain HTTP GET via the Colly collector.
// No JavaScript execution; used as the fallback when browser rendering fails
// or is disabled.
type HTTPStrategy struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewHTTPStrategy constructs a configured Colly-based strategy.
func NewHTTPStrategy(cfg Config, logger *zap.Logger) *HTTPStrategy {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.NavigationTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.NavigationTimeout)
	base.SetRedirectHandler(func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	return &HTTPStrategy{
		baseCollector: base,
		logger:        logger,
	}
}

// Name identifies the strategy in scrape results.
func (s *HTTPStrategy) Name() string { return research.StrategyHTTP }

// Fetch retrieves a page via a clone of the base collector.
func (s *HTTPStrategy) Fetch(ctx context.Context, rawURL string) (research.FetchPage, error) {
	collector := s.baseCollector.Clone()
	resultCh := make(chan httpResult, 1)
	var once sync.Once
	send := func(res httpResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Encoding", "gzip")
	})

	collector.OnResponse(func(r *colly.Response) {
		page := research.FetchPage{
			HTML:       string(r.Body),
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Strategy:   research.StrategyHTTP,
		}
		send(httpResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode > 0 {
			err = fmt.Errorf("http fetch %s: status %d: %w", rawURL, r.StatusCode, err)
		}
		send(httpResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return research.FetchPage{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return research.FetchPage{}, err
		}
		if res.err != nil {
			return research.FetchPage{}, res.err
		}
		if res.page.StatusCode >= http.StatusBadRequest {
			return research.FetchPage{}, fmt.Errorf("http fetch %s: status %d", rawURL, res.page.StatusCode)
		}
		return res.page, nil
	default:
		return research.FetchPage{}, errors.New("colly fetch produced no result")
	}
}

type httpResult struct {
	page research.FetchPage
	err  error
}

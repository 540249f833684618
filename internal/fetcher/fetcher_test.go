package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

type stubStrategy struct {
	name   string
	calls  int
	pages  []research.FetchPage
	errs   []error
	always error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(_ context.Context, _ string) (research.FetchPage, error) {
	idx := s.calls
	s.calls++
	if s.always != nil {
		return research.FetchPage{}, s.always
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return research.FetchPage{}, s.errs[idx]
	}
	if idx < len(s.pages) {
		return s.pages[idx], nil
	}
	return research.FetchPage{}, errors.New("no scripted result")
}

func newTestFetcher(browser, httpStrat pageStrategy) *Fetcher {
	return &Fetcher{
		browser:        browser,
		http:           httpStrat,
		logger:         zap.NewNop(),
		retryBaseDelay: time.Millisecond,
	}
}

func TestAutoFallsBackToHTTP(t *testing.T) {
	browser := &stubStrategy{name: research.StrategyBrowser, always: errors.New("browser crashed")}
	httpStrat := &stubStrategy{
		name:  research.StrategyHTTP,
		pages: []research.FetchPage{{HTML: "<html><body>ok</body></html>", Strategy: research.StrategyHTTP}},
	}
	f := newTestFetcher(browser, httpStrat)

	page, err := f.Fetch(context.Background(), "https://example.com", research.StrategyAuto, 3)
	require.NoError(t, err)
	assert.Equal(t, research.StrategyHTTP, page.Strategy)
	assert.Equal(t, 3, browser.calls, "browser should be retried before fallback")
	assert.Equal(t, 1, httpStrat.calls)
}

func TestExplicitStrategyDoesNotFallBack(t *testing.T) {
	browser := &stubStrategy{name: research.StrategyBrowser, always: errors.New("boom")}
	httpStrat := &stubStrategy{name: research.StrategyHTTP}
	f := newTestFetcher(browser, httpStrat)

	_, err := f.Fetch(context.Background(), "https://example.com", research.StrategyBrowser, 2)
	require.Error(t, err)
	assert.Equal(t, 2, browser.calls)
	assert.Zero(t, httpStrat.calls)
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	httpStrat := &stubStrategy{
		name:  research.StrategyHTTP,
		errs:  []error{errors.New("transient")},
		pages: []research.FetchPage{{}, {HTML: "<html/>", Strategy: research.StrategyHTTP}},
	}
	f := newTestFetcher(nil, httpStrat)

	page, err := f.Fetch(context.Background(), "https://example.com", research.StrategyHTTP, 2)
	require.NoError(t, err)
	assert.Equal(t, "<html/>", page.HTML)
	assert.Equal(t, 2, httpStrat.calls)
}

func TestUnknownStrategy(t *testing.T) {
	f := newTestFetcher(nil, &stubStrategy{name: research.StrategyHTTP})
	_, err := f.Fetch(context.Background(), "https://example.com", "carrier-pigeon", 1)
	assert.ErrorIs(t, err, research.ErrInvalidInput)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	httpStrat := &stubStrategy{name: research.StrategyHTTP, always: errors.New("down")}
	f := newTestFetcher(nil, httpStrat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "https://example.com", research.StrategyHTTP, 5)
	require.Error(t, err)
	assert.LessOrEqual(t, httpStrat.calls, 1)
}

func TestHTTPStrategyFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte("<html><head><title>Home</title></head><body>hello</body></html>"))
		case "/missing":
			http.NotFound(w, r)
		case "/redirect":
			http.Redirect(w, r, "/", http.StatusFound)
		}
	}))
	defer srv.Close()

	strat := NewHTTPStrategy(Config{
		UserAgent:         "test-agent",
		NavigationTimeout: 5 * time.Second,
	}, zap.NewNop())

	page, err := strat.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "hello")
	assert.Equal(t, research.StrategyHTTP, page.Strategy)

	_, err = strat.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err, "4xx must surface as an error")

	page, err = strat.Fetch(context.Background(), srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/", page.FinalURL)
}

func TestResponseMetaFirstRecordWins(t *testing.T) {
	m := &responseMeta{}
	m.record(301, "https://example.com/redirect")
	m.record(200, "https://example.com/final")

	status, url := m.snapshot("https://example.com")
	assert.Equal(t, 301, status)
	assert.Equal(t, "https://example.com/redirect", url)

	empty := &responseMeta{}
	status, url = empty.snapshot("https://example.com")
	assert.Zero(t, status)
	assert.Equal(t, "https://example.com", url)
}

func TestResponseMetaConcurrentAccess(t *testing.T) {
	m := &responseMeta{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(status int) {
			defer wg.Done()
			m.record(status, fmt.Sprintf("https://example.com/%d", status))
		}(200 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.snapshot("https://example.com")
		}()
	}
	wg.Wait()

	// Whichever writer won, the status/URL pair stays consistent.
	status, url := m.snapshot("https://example.com")
	assert.Equal(t, fmt.Sprintf("https://example.com/%d", status), url)
}

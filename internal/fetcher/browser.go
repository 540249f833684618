package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// ErrBrowserDisabled indicates the headless browser has been disabled via
// configuration.
var ErrBrowserDisabled = errors.New("browser strategy disabled")

// Static resources blocked during navigation; the extractor only needs DOM
// text, so images, fonts and styles are wasted bandwidth.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp", "*.ico",
	"*.css", "*.woff", "*.woff2", "*.ttf", "*.otf",
}

// BrowserStrategy renders pages with JavaScript enabled using headless
// Chrome via chromedp. One allocator and browser context are owned for the
// strategy's lifetime; each fetch runs in its own tab.
type BrowserStrategy struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	userAgent       string
}

// NewBrowserStrategy starts the headless browser.
func NewBrowserStrategy(cfg Config, logger *zap.Logger) (*BrowserStrategy, error) {
	if cfg.MaxParallelTabs <= 0 {
		return nil, ErrBrowserDisabled
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &BrowserStrategy{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.MaxParallelTabs),
		timeout:         cfg.NavigationTimeout,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Name identifies the strategy in scrape results.
func (s *BrowserStrategy) Name() string { return research.StrategyBrowser }

// Close tears down the chromedp allocator and browser contexts.
func (s *BrowserStrategy) Close(_ context.Context) error {
	if s == nil {
		return nil
	}
	s.browserCancel()
	s.allocatorCancel()
	return nil
}

// Fetch navigates to rawURL in a fresh tab and returns the rendered DOM.
func (s *BrowserStrategy) Fetch(ctx context.Context, rawURL string) (research.FetchPage, error) {
	if s == nil {
		return research.FetchPage{}, ErrBrowserDisabled
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return research.FetchPage{}, err
	}
	defer release()

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := &responseMeta{}
	s.recordResponse(tabCtx, meta)

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetBlockedURLs(blockedResourcePatterns),
		emulation.SetUserAgentOverride(s.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return research.FetchPage{}, fmt.Errorf("chromedp run: %w", err)
	}

	status, finalURL := meta.snapshot(rawURL)
	if status >= http.StatusBadRequest {
		return research.FetchPage{}, fmt.Errorf("browser fetch %s: status %d", rawURL, status)
	}

	return research.FetchPage{
		HTML:       html,
		FinalURL:   finalURL,
		StatusCode: status,
		Strategy:   research.StrategyBrowser,
	}, nil
}

func (s *BrowserStrategy) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser tab: %w", ctx.Err())
	}
}

// responseMeta captures the first document response seen during navigation.
// The CDP event callback runs on its own goroutine, so reads and writes go
// through the mutex.
type responseMeta struct {
	mu         sync.Mutex
	recorded   bool
	statusCode int
	url        string
}

// record keeps the first status/URL pair and ignores the rest.
func (m *responseMeta) record(status int, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recorded {
		return
	}
	m.recorded = true
	m.statusCode = status
	m.url = url
}

// snapshot returns the recorded status and URL, falling back to raw when no
// document response was seen.
func (m *responseMeta) snapshot(raw string) (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" {
		return m.statusCode, raw
	}
	return m.statusCode, m.url
}

func (s *BrowserStrategy) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.record(int(resp.Response.Status), resp.Response.URL)
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

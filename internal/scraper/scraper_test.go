package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

type fakeFetcher struct {
	pages map[string]research.FetchPage
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, _ string, _ int) (research.FetchPage, error) {
	f.calls = append(f.calls, rawURL)
	page, ok := f.pages[rawURL]
	if !ok {
		return research.FetchPage{}, errors.New("not scripted")
	}
	return page, nil
}

func (f *fakeFetcher) Close(context.Context) error { return nil }

func htmlPage(title string, links ...string) string {
	body := "<h1>" + title + "</h1><p>This paragraph has definitely more than ten words of meaningful content in it.</p>"
	for _, l := range links {
		body += `<a href="` + l + `">Link to another page</a>`
	}
	return "<html><head><title>" + title + "</title></head><body>" + body + "</body></html>"
}

func TestCanonicalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://Example.com/path/", "https://example.com/path"},
		{"https://example.com/path#section", "https://example.com/path"},
		{"https://example.com/", "https://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		got, err := Canonicalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestScrapeFollowsSameOriginLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{
		"https://example.com": {
			HTML:     htmlPage("Home", "/about", "https://other.example/away", "/about#team", "/contact"),
			FinalURL: "https://example.com",
			Strategy: research.StrategyBrowser,
		},
		"https://example.com/about": {
			HTML:     htmlPage("About"),
			FinalURL: "https://example.com/about",
			Strategy: research.StrategyBrowser,
		},
		"https://example.com/contact": {
			HTML:     htmlPage("Contact"),
			FinalURL: "https://example.com/contact",
			Strategy: research.StrategyBrowser,
		},
	}}
	s := New(fetcher, 1, zap.NewNop())

	opts := research.DefaultOptions()
	opts.MaxPages = 10
	result, err := s.Scrape(context.Background(), "https://example.com/", opts)
	require.NoError(t, err)

	require.Len(t, result.Pages, 3)
	assert.Equal(t, research.StrategyBrowser, result.Strategy)
	assert.Positive(t, result.TotalWords)
	// Cross-origin link was never fetched; the fragment duplicate collapsed.
	assert.NotContains(t, fetcher.calls, "https://other.example/away")
	assert.Len(t, fetcher.calls, 3)
}

func TestScrapeMaxPagesOne(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{
		"https://example.com": {
			HTML:     htmlPage("Home", "/about", "/contact"),
			FinalURL: "https://example.com",
			Strategy: research.StrategyHTTP,
		},
	}}
	s := New(fetcher, 1, zap.NewNop())

	opts := research.DefaultOptions()
	opts.MaxPages = 1
	result, err := s.Scrape(context.Background(), "https://example.com", opts)
	require.NoError(t, err)
	assert.Len(t, result.Pages, 1)
	assert.Len(t, fetcher.calls, 1)
}

func TestScrapeFollowLinksDisabled(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{
		"https://example.com": {
			HTML:     htmlPage("Home", "/about"),
			FinalURL: "https://example.com",
			Strategy: research.StrategyHTTP,
		},
	}}
	s := New(fetcher, 1, zap.NewNop())

	opts := research.DefaultOptions()
	opts.MaxPages = 5
	opts.FollowLinks = false
	result, err := s.Scrape(context.Background(), "https://example.com", opts)
	require.NoError(t, err)
	assert.Len(t, result.Pages, 1)
	assert.Len(t, fetcher.calls, 1)
}

func TestScrapeSkipsFailedPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{
		"https://example.com": {
			HTML:     htmlPage("Home", "/broken", "/about"),
			FinalURL: "https://example.com",
			Strategy: research.StrategyHTTP,
		},
		"https://example.com/about": {
			HTML:     htmlPage("About"),
			FinalURL: "https://example.com/about",
			Strategy: research.StrategyHTTP,
		},
	}}
	s := New(fetcher, 1, zap.NewNop())

	opts := research.DefaultOptions()
	opts.MaxPages = 10
	result, err := s.Scrape(context.Background(), "https://example.com", opts)
	require.NoError(t, err)
	assert.Len(t, result.Pages, 2)
}

func TestScrapeAllPagesFail(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{}}
	s := New(fetcher, 1, zap.NewNop())

	_, err := s.Scrape(context.Background(), "https://example.com", research.DefaultOptions())
	assert.ErrorIs(t, err, research.ErrAllScrapesFailed)
}

func TestScrapeCancelled(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]research.FetchPage{}}
	s := New(fetcher, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Scrape(ctx, "https://example.com", research.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSiteContext(t *testing.T) {
	scrape := &research.ScrapeResult{Pages: []research.PageContent{
		{Title: "Home", MetaDescription: "Desc", H1: []string{"Welcome"}, H2: []string{"Services"}},
		{Title: "About", H1: []string{"Who we are"}},
	}}
	site := BuildSiteContext("https://example.com", scrape)
	assert.Equal(t, "Home", site.Title)
	assert.Equal(t, "Desc", site.Description)
	assert.Equal(t, []string{"Home", "About"}, site.PageTitles)
	assert.Equal(t, []string{"Welcome", "Services", "Who we are"}, site.Focus)
}

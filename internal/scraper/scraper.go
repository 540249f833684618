// Package scraper crawls same-origin pages starting from a seed URL, driving
// the fetcher and extractor.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/extractor"
	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// Scraper walks a site breadth-first up to the page budget.
type Scraper struct {
	fetcher  research.Fetcher
	logger   *zap.Logger
	attempts int
}

// New constructs a Scraper.
func New(fetcher research.Fetcher, attempts int, logger *zap.Logger) *Scraper {
	if attempts <= 0 {
		attempts = 2
	}
	return &Scraper{
		fetcher:  fetcher,
		logger:   logger,
		attempts: attempts,
	}
}

// Canonicalize standardizes a URL for visited-set bookkeeping: fragment
// removed, host lowercased, trailing slash trimmed.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	canonical := u.String()
	return strings.TrimSuffix(canonical, "/"), nil
}

// Scrape crawls up to opts.MaxPages same-origin pages. Link expansion
// happens once, from the first successfully fetched page. It fails only when
// no page at all could be scraped.
func (s *Scraper) Scrape(ctx context.Context, startURL string, opts research.Options) (*research.ScrapeResult, error) {
	start, err := Canonicalize(startURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", research.ErrInvalidInput, err)
	}
	startHost := hostname(start)

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	visited := make(map[string]struct{})
	frontier := []string{start}
	var pages []research.PageContent
	strategyTag := ""
	expanded := false

	for len(visited) < maxPages && len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := frontier[0]
		frontier = frontier[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		fetched, err := s.fetcher.Fetch(ctx, current, opts.ScrapeStrategy, s.attempts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("page fetch failed", zap.String("url", current), zap.Error(err))
			continue
		}

		content, err := extractor.Extract(fetched.HTML, fetched.FinalURL)
		if err != nil || content.WordCount == 0 {
			s.logger.Debug("page yielded no content", zap.String("url", current))
			continue
		}

		pages = append(pages, content)
		if strategyTag == "" {
			strategyTag = fetched.Strategy
		}

		if !expanded && opts.FollowLinks {
			expanded = true
			links := s.expandLinks(fetched.HTML, current, startHost, visited, frontier, maxPages-1)
			frontier = append(frontier, links...)
			s.logger.Debug("frontier expanded",
				zap.String("url", current), zap.Int("links", len(links)))
		}
	}

	if len(pages) == 0 {
		return nil, research.ErrAllScrapesFailed
	}

	totalWords := 0
	for _, p := range pages {
		totalWords += p.WordCount
	}

	return &research.ScrapeResult{
		Pages:      pages,
		TotalWords: totalWords,
		Strategy:   strategyTag,
		ScrapedAt:  time.Now().UTC(),
	}, nil
}

// expandLinks resolves the page's anchors against its URL and keeps
// same-origin targets not already queued or visited, up to limit.
func (s *Scraper) expandLinks(html, pageURL, startHost string, visited map[string]struct{}, frontier []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	queued := make(map[string]struct{}, len(frontier))
	for _, u := range frontier {
		queued[u] = struct{}{}
	}

	var out []string
	for _, href := range extractor.Hrefs(html) {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if !strings.EqualFold(resolved.Hostname(), startHost) {
			continue
		}
		canonical, err := Canonicalize(resolved.String())
		if err != nil {
			continue
		}
		if _, ok := visited[canonical]; ok {
			continue
		}
		if _, ok := queued[canonical]; ok {
			continue
		}
		queued[canonical] = struct{}{}
		out = append(out, canonical)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// BuildSiteContext summarizes the scrape for relevance scoring and prompts.
func BuildSiteContext(startURL string, scrape *research.ScrapeResult) research.SiteContext {
	site := research.SiteContext{URL: startURL}
	if scrape == nil || len(scrape.Pages) == 0 {
		return site
	}
	site.Title = scrape.Pages[0].Title
	site.Description = scrape.Pages[0].MetaDescription
	for _, page := range scrape.Pages {
		if page.Title != "" {
			site.PageTitles = append(site.PageTitles, page.Title)
		}
		if page.MetaDescription != "" {
			site.MetaDescriptions = append(site.MetaDescriptions, page.MetaDescription)
		}
		site.Focus = append(site.Focus, page.H1...)
		site.Focus = append(site.Focus, page.H2...)
	}
	if len(site.Focus) > 30 {
		site.Focus = site.Focus[:30]
	}
	return site
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

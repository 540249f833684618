// Package seeds produces the seed keyword list fed into the metrics
// provider. The primary path asks the AI collaborator; a deterministic
// TF-IDF fallback covers AI failures and AI-disabled deployments.
package seeds

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/textkit"
)

// Seed sources reported back to the orchestrator.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

const (
	maxFallbackSeeds   = 150
	fallbackPageBudget = 5
	headingsPerPage    = 15
	minCandidateFreq   = 2
	multiWordBonus     = 1.2
	singleWordBonus    = 1.0
)

// Words too generic to be worth a metrics lookup.
var genericNavWords = map[string]struct{}{
	"click": {}, "page": {}, "here": {}, "more": {},
	"learn": {}, "read": {}, "view": {}, "see": {},
}

// Generator builds seed keywords from scraped content.
type Generator struct {
	enhancer research.Enhancer
	logger   *zap.Logger
}

// New constructs a Generator.
func New(enhancer research.Enhancer, logger *zap.Logger) *Generator {
	return &Generator{enhancer: enhancer, logger: logger}
}

// Generate returns up to maxKeywords seeds and the source that produced
// them. AI failures are logged and absorbed by the fallback.
func (g *Generator) Generate(ctx context.Context, scrape *research.ScrapeResult, language string, maxKeywords int) ([]string, string) {
	if g.enhancer != nil && g.enhancer.Enabled() {
		seeds, err := g.enhancer.GenerateSeedKeywords(ctx, scrape, language, maxKeywords)
		if err == nil && len(seeds) > 0 {
			return dedupeSeeds(seeds, maxKeywords), SourceAI
		}
		if err != nil {
			g.logger.Warn("ai seed generation failed, using fallback", zap.Error(err))
		}
	}
	return g.Fallback(scrape, maxKeywords), SourceFallback
}

// Fallback derives seeds from titles, descriptions and headings of the first
// few pages using frequency and TF-IDF scoring. Fully deterministic.
func (g *Generator) Fallback(scrape *research.ScrapeResult, maxKeywords int) []string {
	docs := fallbackDocuments(scrape)
	if len(docs) == 0 {
		return nil
	}

	model := textkit.NewTfIdf(docs)
	tokenScores := make(map[string]float64)
	for i := range docs {
		for _, term := range model.ListTerms(i) {
			if term.Score > tokenScores[term.Text] {
				tokenScores[term.Text] = term.Score
			}
		}
	}

	freq := make(map[string]int)
	for _, doc := range docs {
		tokens := textkit.Tokenize(doc)
		for _, tok := range tokens {
			if isCandidateToken(tok) {
				freq[tok]++
			}
		}
		for _, phrase := range candidatePhrases(tokens) {
			freq[phrase]++
		}
	}

	type scored struct {
		text  string
		score float64
	}
	var candidates []scored
	for text, count := range freq {
		if count < minCandidateFreq {
			continue
		}
		if _, generic := genericNavWords[text]; generic {
			continue
		}
		candidates = append(candidates, scored{text: text, score: candidateScore(text, count, tokenScores)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].text < candidates[j].text
	})

	limit := maxFallbackSeeds
	if maxKeywords > 0 && maxKeywords < limit {
		limit = maxKeywords
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.text
	}
	return out
}

func fallbackDocuments(scrape *research.ScrapeResult) []string {
	if scrape == nil {
		return nil
	}
	pages := scrape.Pages
	if len(pages) > fallbackPageBudget {
		pages = pages[:fallbackPageBudget]
	}
	var docs []string
	for _, page := range pages {
		var parts []string
		if page.Title != "" {
			parts = append(parts, page.Title)
		}
		if page.MetaDescription != "" {
			parts = append(parts, page.MetaDescription)
		}
		headings := 0
		for _, group := range [][]string{page.H1, page.H2, page.H3} {
			for _, h := range group {
				if headings >= headingsPerPage {
					break
				}
				parts = append(parts, h)
				headings++
			}
		}
		if len(parts) > 0 {
			docs = append(docs, strings.Join(parts, " "))
		}
	}
	return docs
}

func candidateScore(text string, count int, tokenScores map[string]float64) float64 {
	maxTfIdf := 0.0
	multiWord := false
	for _, tok := range textkit.StemTokens(text) {
		if s := tokenScores[tok]; s > maxTfIdf {
			maxTfIdf = s
		}
	}
	if strings.Contains(text, " ") {
		multiWord = true
	}
	bonus := singleWordBonus
	if multiWord {
		bonus = multiWordBonus
	}
	return 0.3*math.Log(float64(count)+1)/10 + 0.5*maxTfIdf + bonus
}

// isCandidateToken is a coarse noun/verb/adjective filter: long enough,
// carries a vowel, and is not navigation filler.
func isCandidateToken(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	if textkit.IsStopWord(tok) {
		return false
	}
	if !strings.ContainsAny(tok, "aeiouyäöü") {
		return false
	}
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

// candidatePhrases emits 2- and 3-word windows whose content-word share is
// at least one half.
func candidatePhrases(tokens []string) []string {
	var out []string
	for size := 2; size <= 3; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			window := tokens[i : i+size]
			content := 0
			for _, tok := range window {
				if isCandidateToken(tok) {
					content++
				}
			}
			if content*2 < size {
				continue
			}
			out = append(out, strings.Join(window, " "))
		}
	}
	return out
}

func dedupeSeeds(seeds []string, limit int) []string {
	seen := make(map[string]struct{}, len(seeds))
	var out []string
	for _, s := range seeds {
		canon := research.CanonicalText(s)
		if canon == "" {
			continue
		}
		if _, ok := seen[canon]; ok {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, canon)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

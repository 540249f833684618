package cluster

import (
	"math"
	"strings"

	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/textkit"
)

const (
	relevanceDropBelow     = 0.01
	substringBoost         = 0.9
	shortKeywordBoost      = 0.75
	shortKeywordMatchRatio = 0.6
	shortKeywordMaxTokens  = 3
	neutralRelevance       = 0.5
)

// ApplyRelevanceScores scores every keyword against the site context, drops
// irrelevant keywords and clusters, and sets each cluster's RelevanceScore.
// Without usable context every cluster gets a neutral score and nothing is
// dropped. Reapplying with the same context is idempotent.
func (e *Engine) ApplyRelevanceScores(clusters []research.Cluster, site research.SiteContext, minSize int) []research.Cluster {
	contextTokens := siteContextTokens(site)
	if len(contextTokens) == 0 {
		for i := range clusters {
			clusters[i].RelevanceScore = neutralRelevance
		}
		return clusters
	}
	contextSet := make(map[string]struct{}, len(contextTokens))
	for _, tok := range contextTokens {
		contextSet[tok] = struct{}{}
	}
	contextText := normalizedContextText(site)

	var out []research.Cluster
	for _, c := range clusters {
		var kept []research.Keyword
		scores := make(map[string]float64, len(c.Keywords))
		for _, kw := range c.Keywords {
			score, emptyTokens := keywordRelevance(kw.Text, contextTokens, contextSet, contextText)
			if score <= relevanceDropBelow && !emptyTokens {
				continue
			}
			scores[research.CanonicalText(kw.Text)] = score
			kept = append(kept, kw)
		}
		if len(kept) < minSize {
			continue
		}
		c.Keywords = kept
		c.Recompute()
		c.RelevanceScore = clusterRelevance(kept, scores)
		out = append(out, c)
	}

	// Context so far off every cluster dies: keep the unfiltered set rather
	// than failing the job.
	if len(out) == 0 && len(clusters) > 0 {
		for i := range clusters {
			clusters[i].RelevanceScore = neutralRelevance
		}
		return clusters
	}
	return out
}

// keywordRelevance blends the share of keyword tokens found in context with
// Jaccard overlap, plus substring and short-keyword boosts. The second return
// reports an empty post-stopword token set.
func keywordRelevance(text string, contextTokens []string, contextSet map[string]struct{}, contextText string) (float64, bool) {
	tokens := textkit.ContentTokens(text)
	if len(tokens) == 0 {
		return 0, true
	}

	matched := 0
	for _, tok := range tokens {
		if contextHit(tok, contextSet, contextTokens) {
			matched++
		}
	}
	matchRatio := float64(matched) / float64(len(tokens))
	score := 0.7*matchRatio + 0.3*textkit.JaccardTokens(tokens, contextTokens)

	if strings.Contains(contextText, research.CanonicalText(text)) && score < substringBoost {
		score = substringBoost
	}
	if matchRatio >= shortKeywordMatchRatio && len(tokens) <= shortKeywordMaxTokens && score < shortKeywordBoost {
		score = shortKeywordBoost
	}
	if score > 1 {
		score = 1
	}
	return score, false
}

// contextHit reports whether the keyword stem appears in the context, either
// verbatim or as a shared-root variant ("dental" next to "dentistry").
func contextHit(tok string, contextSet map[string]struct{}, contextTokens []string) bool {
	if _, ok := contextSet[tok]; ok {
		return true
	}
	for _, candidate := range contextTokens {
		if sharedRoot(tok, candidate) {
			return true
		}
	}
	return false
}

// sharedRoot reports whether two stems share a morphological root: a common
// prefix of at least four bytes covering two thirds of the shorter stem.
func sharedRoot(a, b string) bool {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	if n < 4 {
		return false
	}
	short := len(a)
	if len(b) < short {
		short = len(b)
	}
	return 3*n >= 2*short
}

// clusterRelevance weights keyword scores by search volume and blends the
// weighted average with the best single keyword.
func clusterRelevance(keywords []research.Keyword, scores map[string]float64) float64 {
	weightSum, weighted, best := 0.0, 0.0, 0.0
	for _, kw := range keywords {
		score := scores[research.CanonicalText(kw.Text)]
		weight := math.Log10(float64(kw.SearchVolume) + 10)
		if weight < 1 {
			weight = 1
		}
		weightSum += weight
		weighted += weight * score
		if score > best {
			best = score
		}
	}
	if weightSum == 0 {
		return 0
	}
	return 0.7*(weighted/weightSum) + 0.3*best
}

// siteContextTokens collects the stemmed content tokens of everything the
// scrape learned about the site.
func siteContextTokens(site research.SiteContext) []string {
	parts := contextParts(site)
	seen := make(map[string]struct{})
	var out []string
	for _, part := range parts {
		for _, tok := range textkit.ContentTokens(part) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

func normalizedContextText(site research.SiteContext) string {
	return strings.ToLower(strings.Join(contextParts(site), " "))
}

func contextParts(site research.SiteContext) []string {
	parts := []string{site.URL, site.Title, site.Description}
	parts = append(parts, site.PageTitles...)
	parts = append(parts, site.MetaDescriptions...)
	parts = append(parts, site.Focus...)
	return parts
}

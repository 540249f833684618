package textkit

import "strings"

// Similarity scores how close two keyword phrases are, in [0,1]. The base is
// Jaccard overlap on stemmed tokens; containment and shared head/tail tokens
// add fixed bonuses, capped at 1.
func Similarity(a, b string) float64 {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))
	if na == nb {
		return 1
	}

	tokensA := StemTokens(na)
	tokensB := StemTokens(nb)
	score := jaccard(tokensA, tokensB)

	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		score += 0.3
	}

	if len(tokensA) > 0 && len(tokensB) > 0 {
		if len(tokensA) > 1 && len(tokensB) > 1 && tokensA[len(tokensA)-1] == tokensB[len(tokensB)-1] {
			score += 0.2
		} else if tokensA[0] == tokensB[0] {
			score += 0.15
		}
	}

	if score > 1 {
		return 1
	}
	return score
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// JaccardTokens exposes the raw Jaccard overlap of two token sets; used by
// relevance scoring where the bonuses must not apply.
func JaccardTokens(a, b []string) float64 {
	return jaccard(a, b)
}

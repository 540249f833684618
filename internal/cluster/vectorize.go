package cluster

import (
	"math"
	"sort"

	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/textkit"
)

// vectorize builds one feature vector per keyword: TF-IDF weights over the
// stemmed vocabulary of the whole keyword set, with four dense features
// appended (volume, competition, word count, CPC).
func vectorize(keywords []research.Keyword) [][]float64 {
	docs := make([]string, len(keywords))
	for i, kw := range keywords {
		docs[i] = kw.Text
	}
	model := textkit.NewTfIdf(docs)

	vocab := make(map[string]int)
	for i := range docs {
		for _, term := range model.ListTerms(i) {
			if _, ok := vocab[term.Text]; !ok {
				vocab[term.Text] = 0
			}
		}
	}
	terms := make([]string, 0, len(vocab))
	for term := range vocab {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for i, term := range terms {
		vocab[term] = i
	}

	width := len(terms) + 4
	out := make([][]float64, len(keywords))
	for i, kw := range keywords {
		vec := make([]float64, width)
		for _, term := range model.ListTerms(i) {
			vec[vocab[term.Text]] = term.Score
		}
		dense := denseFeatures(kw)
		copy(vec[len(terms):], dense[:])
		out[i] = vec
	}
	return out
}

func denseFeatures(kw research.Keyword) [4]float64 {
	return [4]float64{
		math.Log(float64(kw.SearchVolume)+1) / 10,
		competitionFeature(kw.Competition),
		float64(len(textkit.Tokenize(kw.Text))) / 5,
		math.Log(kw.CPCLow+1) / 5,
	}
}

func competitionFeature(c research.Competition) float64 {
	switch c {
	case research.CompetitionLow:
		return 1
	case research.CompetitionHigh:
		return 0
	default:
		return 0.5
	}
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

package textkit

import (
	"math"
	"sort"
)

// Term is one (term, score) pair produced by the TF-IDF model.
type Term struct {
	Text  string
	Score float64
}

// TfIdf is a small TF-IDF model over a fixed document set. Terms are stemmed
// tokens; tf is termCount/docLen and idf is ln((N+1)/(df+1))+1.
type TfIdf struct {
	docs [][]string
	df   map[string]int
}

// NewTfIdf builds the model from raw documents.
func NewTfIdf(documents []string) *TfIdf {
	t := &TfIdf{df: make(map[string]int)}
	for _, doc := range documents {
		tokens := StemTokens(doc)
		t.docs = append(t.docs, tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			t.df[tok]++
		}
	}
	return t
}

// DocCount returns the number of documents in the model.
func (t *TfIdf) DocCount() int {
	return len(t.docs)
}

// Score returns the TF-IDF weight of term in the given document.
func (t *TfIdf) Score(term string, docIndex int) float64 {
	if docIndex < 0 || docIndex >= len(t.docs) {
		return 0
	}
	doc := t.docs[docIndex]
	if len(doc) == 0 {
		return 0
	}
	count := 0
	for _, tok := range doc {
		if tok == term {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	tf := float64(count) / float64(len(doc))
	return tf * t.idf(term)
}

// ListTerms returns every term of the document with its TF-IDF weight,
// sorted by weight descending (ties broken alphabetically).
func (t *TfIdf) ListTerms(docIndex int) []Term {
	if docIndex < 0 || docIndex >= len(t.docs) {
		return nil
	}
	doc := t.docs[docIndex]
	if len(doc) == 0 {
		return nil
	}
	counts := make(map[string]int, len(doc))
	for _, tok := range doc {
		counts[tok]++
	}
	terms := make([]Term, 0, len(counts))
	for tok, count := range counts {
		tf := float64(count) / float64(len(doc))
		terms = append(terms, Term{Text: tok, Score: tf * t.idf(tok)})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Text < terms[j].Text
	})
	return terms
}

func (t *TfIdf) idf(term string) float64 {
	n := float64(len(t.docs))
	df := float64(t.df[term])
	return math.Log((n+1)/(df+1)) + 1
}

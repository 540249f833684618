package textkit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"simple", "Web Development", []string{"web", "development"}},
		{"punctuation", "SEO-Services, Zürich!", []string{"seo", "services", "zürich"}},
		{"digits", "top 10 tools", []string{"top", "10", "tools"}},
		{"whitespace only", "   \t\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"companies", "company"},
		{"classes", "class"},
		{"dishes", "dish"},
		{"churches", "church"},
		{"boxes", "box"},
		{"marketing", "market"},
		{"running", "run"},
		{"cleaned", "clean"},
		{"planned", "plan"},
		{"services", "service"},
		{"seo", "seo"},
		{"the", "the"},
		{"class", "class"},
		{"optimization", "optimization"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Stem(tt.in))
		})
	}
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("click"))
	assert.True(t, IsStopWord("pages"))
	assert.False(t, IsStopWord("dentistry"))
	assert.False(t, IsStopWord("seo"))
}

func TestContentTokens(t *testing.T) {
	got := ContentTokens("learn more about our dental services")
	assert.Equal(t, []string{"dental", "service"}, got)
}

func TestSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"seo services", "web design", "", "a"} {
		assert.InDelta(t, 1.0, Similarity(s, s), 1e-9, "similarity(%q, %q)", s, s)
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"seo services", "seo optimization"},
		{"web development", "frontend development"},
		{"car insurance", "dental cleaning"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("similarity not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityBonuses(t *testing.T) {
	// Shared trailing token on multi-word phrases earns the suffix bonus.
	suffix := Similarity("web development", "frontend development")
	assert.Greater(t, suffix, 0.3)

	// Containment bonus.
	contained := Similarity("seo", "seo services")
	assert.GreaterOrEqual(t, contained, 0.3)

	// Unrelated phrases should stay near zero.
	assert.Less(t, Similarity("car insurance", "dental cleaning"), 0.2)
}

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"seo services zurich", "seo services"},
		{"seo services", "services seo seo services"},
		{"digital marketing", "content marketing"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestTfIdf(t *testing.T) {
	docs := []string{
		"dental cleaning and dental implants",
		"dental cleaning prices",
		"car insurance comparison",
	}
	model := NewTfIdf(docs)
	assert.Equal(t, 3, model.DocCount())

	terms := model.ListTerms(0)
	if assert.NotEmpty(t, terms) {
		// "dental" appears twice in doc 0, so it must outrank single terms
		// with the same document frequency.
		assert.Equal(t, "dental", terms[0].Text)
	}

	// A term unique to one document carries a higher idf than one shared by
	// two documents.
	unique := model.Score("implant", 0)
	shared := model.Score("dental", 1)
	assert.Greater(t, unique, 0.0)
	assert.Greater(t, shared, 0.0)

	// tf = count/len, idf = ln((N+1)/(df+1))+1.
	wantIdf := math.Log(4.0/3.0) + 1
	assert.InDelta(t, (2.0/5.0)*wantIdf, model.Score("dental", 0), 1e-9)
}

func TestTfIdfOutOfRange(t *testing.T) {
	model := NewTfIdf([]string{"one doc"})
	assert.Nil(t, model.ListTerms(5))
	assert.Zero(t, model.Score("doc", -1))
}

// Package textkit provides the deterministic text primitives used by the
// keyword pipeline: tokenization, light suffix stemming, stop words, TF-IDF
// and keyword-granularity similarity. Everything here is pure; no global
// state, no external NLP dependency.
package textkit

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the input and splits it into runs of Unicode letters
// and digits. Empty input yields an empty slice.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// Stem applies at most one suffix rule to the token. Tokens shorter than
// four runes are returned unchanged.
func Stem(token string) string {
	if len(token) < 4 {
		return token
	}
	switch {
	case strings.HasSuffix(token, "ies"):
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"),
		strings.HasSuffix(token, "shes"),
		strings.HasSuffix(token, "ches"),
		strings.HasSuffix(token, "xes"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "ing") && len(token) > 5 && hasVowel(token[:len(token)-3]):
		return reduceDoubledConsonant(token[:len(token)-3])
	case strings.HasSuffix(token, "ed") && len(token) > 4 && hasVowel(token[:len(token)-2]):
		return reduceDoubledConsonant(token[:len(token)-2])
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss"):
		return token[:len(token)-1]
	}
	return token
}

// StemTokens tokenizes text and stems each token.
func StemTokens(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = Stem(tok)
	}
	return out
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}

func reduceDoubledConsonant(s string) string {
	if len(s) < 2 {
		return s
	}
	last := s[len(s)-1]
	if s[len(s)-2] == last && !strings.ContainsRune("aeiou", rune(last)) {
		return s[:len(s)-1]
	}
	return s
}

// stopWords holds generic English and navigation terms plus their stems.
// Used to drop non-content tokens during relevance scoring.
var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "is", "are", "was", "were", "be", "been",
		"it", "this", "that", "these", "those", "you", "your", "we", "our",
		"they", "their", "as", "if", "will", "can", "all", "not", "no", "do",
		"does", "have", "has", "had", "how", "what", "when", "where", "why",
		"who", "also", "more", "most", "some", "any", "very", "just", "only",
		"about", "into", "over", "under", "out", "up", "per", "via",
		"home", "contact", "us", "page", "pages", "here", "click", "read",
		"learn", "view", "see", "get", "new",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
		stopWords[Stem(w)] = struct{}{}
	}
}

// IsStopWord reports whether the token (or its stem) is a stop word.
func IsStopWord(token string) bool {
	if _, ok := stopWords[token]; ok {
		return true
	}
	_, ok := stopWords[Stem(token)]
	return ok
}

// ContentTokens returns the stemmed tokens of text with stop words removed.
func ContentTokens(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		if IsStopWord(tok) {
			continue
		}
		out = append(out, Stem(tok))
	}
	return out
}

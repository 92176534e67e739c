package textutil

import (
	"strings"
	"unicode"
)

// stopwords is a fixed English stopword set of roughly one hundred common
// terms. It is intentionally static: tokenization must be deterministic
// and locale-independent.
var stopwords = buildStopwordSet([]string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "aren't", "as", "at", "be", "because", "been",
	"before", "being", "below", "between", "both", "but", "by", "can",
	"could", "did", "didn't", "do", "does", "doing", "don't", "down",
	"during", "each", "few", "for", "from", "further", "had", "has",
	"have", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "into", "is", "isn't", "it", "its", "itself",
	"just", "me", "more", "most", "my", "myself", "no", "nor", "not",
	"now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "ourselves", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs",
	"them", "themselves", "then", "there", "these", "they", "this",
	"those", "through", "to", "too", "under", "until", "up", "very",
	"was", "wasn't", "we", "were", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "would", "you",
	"your", "yours", "yourself", "yourselves",
})

func buildStopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokenize lowercases text, replaces every non-alphanumeric rune with a
// space, splits on whitespace, and drops tokens of length two or less or
// present in the fixed stopword set. The result is deterministic and
// carries no locale dependence.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TopNKeywords tokenizes text and returns the n most frequent tokens, ties
// broken by order of first appearance.
func TopNKeywords(text string, n int) []string {
	if n <= 0 {
		return nil
	}

	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, seen := counts[t]; !seen {
			order = append(order, t)
		}
		counts[t]++
	}

	// Stable sort by descending count, preserving first-appearance order
	// among ties (order is already in first-appearance sequence).
	ranked := make([]string, len(order))
	copy(ranked, order)
	for i := 1; i < len(ranked); i++ {
		j := i
		for j > 0 && counts[ranked[j-1]] < counts[ranked[j]] {
			ranked[j-1], ranked[j] = ranked[j], ranked[j-1]
			j--
		}
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

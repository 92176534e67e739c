// Package tfidf implements the per-call TF-IDF cosine similarity used by
// the clusterer's phase-2 refinement: no global IDF state is kept, the
// corpus is always the candidate set plus the query, recomputed fresh on
// every call.
package tfidf

import (
	"math"
	"strings"

	"github.com/signaldesk/signaldesk/internal/textutil"
)

const (
	platformBonusPerShare = 0.2
	platformBonusCap      = 0.4
	searchTextTopTerms    = 10
)

// TermFrequencies returns each token's count divided by the document's max
// token count, in [0,1].
func TermFrequencies(tokens []string) map[string]float64 {
	counts := make(map[string]int, len(tokens))
	maxCount := 0
	for _, t := range tokens {
		counts[t]++
		if counts[t] > maxCount {
			maxCount = counts[t]
		}
	}
	if maxCount == 0 {
		return map[string]float64{}
	}
	tf := make(map[string]float64, len(counts))
	for t, c := range counts {
		tf[t] = float64(c) / float64(maxCount)
	}
	return tf
}

// documentFrequencies counts, for each term, how many of docsTokens contain it.
func documentFrequencies(docsTokens [][]string) map[string]int {
	df := make(map[string]int)
	for _, tokens := range docsTokens {
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	return df
}

// idf computes ln(N/docFreq) + 1, falling back to ln(10) for a term with
// no observed document frequency in the current corpus.
func idf(term string, df map[string]int, n int) float64 {
	count, ok := df[term]
	if !ok || count == 0 || n == 0 {
		return math.Log(10)
	}
	return math.Log(float64(n)/float64(count)) + 1
}

// Vector builds the per-term TF×IDF vector for one document's term
// frequencies against a corpus document-frequency table of size n.
func Vector(tf map[string]float64, df map[string]int, n int) map[string]float64 {
	vec := make(map[string]float64, len(tf))
	for term, tfVal := range tf {
		vec[term] = tfVal * idf(term, df, n)
	}
	return vec
}

// Cosine returns the cosine similarity between two sparse vectors,
// returning 0 when either vector's norm is zero.
func Cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, va := range a {
		normA += va * va
		if vb, ok := b[term]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// PlatformOverlapBonus rewards shared recognized platforms between a
// candidate and the query: 0.2 per shared platform, capped at 0.4.
func PlatformOverlapBonus(a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, p := range b {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := set[p]; ok {
			shared++
		}
	}
	bonus := platformBonusPerShare * float64(shared)
	if bonus > platformBonusCap {
		return platformBonusCap
	}
	return bonus
}

// BuildSearchText composes the compact per-cluster string used for trigram
// indexing and cosine similarity: the headline plus up to the top 10 TF
// tokens of the summary.
func BuildSearchText(headline, summary string) string {
	top := textutil.TopNKeywords(summary, searchTextTopTerms)
	parts := make([]string, 0, len(top)+1)
	if h := strings.TrimSpace(headline); h != "" {
		parts = append(parts, h)
	}
	parts = append(parts, top...)
	return strings.Join(parts, " ")
}

// Candidate is one cluster under consideration for phase-2 matching.
type Candidate struct {
	SearchText string
	Platforms  []string
}

// Match is the scored outcome of comparing the query against one candidate.
type Match struct {
	Index int
	Score float64
}

// BestCandidate computes, for each candidate, the TF-IDF cosine similarity
// between its search text and the query's, plus a platform-overlap bonus,
// and returns the highest-scoring candidate. The corpus for IDF purposes is
// exactly the candidate set plus the query — no global IDF state. Returns
// ok=false when candidates is empty.
func BestCandidate(querySearchText string, queryPlatforms []string, candidates []Candidate) (Match, bool) {
	if len(candidates) == 0 {
		return Match{}, false
	}

	queryTokens := textutil.Tokenize(querySearchText)
	docsTokens := make([][]string, 0, len(candidates)+1)
	docsTokens = append(docsTokens, queryTokens)
	for _, c := range candidates {
		docsTokens = append(docsTokens, textutil.Tokenize(c.SearchText))
	}

	n := len(docsTokens)
	df := documentFrequencies(docsTokens)
	queryVec := Vector(TermFrequencies(queryTokens), df, n)

	best := Match{Index: -1, Score: -1}
	for i, c := range candidates {
		candidateVec := Vector(TermFrequencies(docsTokens[i+1]), df, n)
		score := Cosine(queryVec, candidateVec) + PlatformOverlapBonus(queryPlatforms, c.Platforms)
		if score > best.Score {
			best = Match{Index: i, Score: score}
		}
	}

	return best, true
}

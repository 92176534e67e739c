package tfidf

import (
	"math"
	"testing"
)

func TestTermFrequenciesDividesByMaxCount(t *testing.T) {
	t.Parallel()

	tf := TermFrequencies([]string{"replika", "voice", "replika", "mode"})
	if tf["replika"] != 1.0 {
		t.Fatalf("expected max-count term to have TF 1.0, got %v", tf["replika"])
	}
	if tf["voice"] != 0.5 {
		t.Fatalf("expected TF 0.5 for single-occurrence term, got %v", tf["voice"])
	}
}

func TestTermFrequenciesEmptyInput(t *testing.T) {
	t.Parallel()

	if tf := TermFrequencies(nil); len(tf) != 0 {
		t.Fatalf("expected empty map for no tokens, got %v", tf)
	}
}

func TestIDFFallsBackToLnTenForUnknownTerm(t *testing.T) {
	t.Parallel()

	df := map[string]int{"replika": 3}
	if got := idf("nonexistent", df, 5); got != math.Log(10) {
		t.Fatalf("expected ln(10) fallback, got %v", got)
	}
}

func TestIDFKnownTermFormula(t *testing.T) {
	t.Parallel()

	df := map[string]int{"replika": 2}
	got := idf("replika", df, 10)
	want := math.Log(10.0/2.0) + 1
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("idf mismatch: got %v want %v", got, want)
	}
}

func TestCosineReturnsZeroWhenEitherNormIsZero(t *testing.T) {
	t.Parallel()

	a := map[string]float64{"x": 1}
	empty := map[string]float64{}
	if got := Cosine(a, empty); got != 0 {
		t.Fatalf("expected 0 for zero-norm vector, got %v", got)
	}
	if got := Cosine(empty, empty); got != 0 {
		t.Fatalf("expected 0 for two zero vectors, got %v", got)
	}
}

func TestCosineIdenticalVectorsReturnsOne(t *testing.T) {
	t.Parallel()

	v := map[string]float64{"a": 2, "b": 3}
	got := Cosine(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected cosine of identical vectors to be 1, got %v", got)
	}
}

func TestPlatformOverlapBonusCapsAtPointFour(t *testing.T) {
	t.Parallel()

	shared := []string{"replika", "character-ai", "chai", "kindroid"}
	got := PlatformOverlapBonus(shared, shared)
	if got != platformBonusCap {
		t.Fatalf("expected bonus capped at %v, got %v", platformBonusCap, got)
	}
}

func TestPlatformOverlapBonusNoSharedPlatforms(t *testing.T) {
	t.Parallel()

	if got := PlatformOverlapBonus([]string{"replika"}, []string{"chai"}); got != 0 {
		t.Fatalf("expected 0 bonus for disjoint sets, got %v", got)
	}
}

func TestPlatformOverlapBonusOneSharedPlatform(t *testing.T) {
	t.Parallel()

	got := PlatformOverlapBonus([]string{"replika", "chai"}, []string{"replika"})
	if math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("expected bonus 0.2 for one shared platform, got %v", got)
	}
}

func TestBuildSearchTextIncludesHeadlineAndTopKeywords(t *testing.T) {
	t.Parallel()

	text := BuildSearchText("Replika launches voice mode",
		"Replika today announced a new voice mode for its companion app. Replika users can now talk instead of type.")
	if text == "" {
		t.Fatalf("expected non-empty search text")
	}
	if got := text[:len("Replika launches voice mode")]; got != "Replika launches voice mode" {
		t.Fatalf("expected search text to start with the headline, got %q", text)
	}
}

func TestBestCandidatePrefersLexicallyCloserCandidate(t *testing.T) {
	t.Parallel()

	query := "replika launches voice mode for companion app"
	candidates := []Candidate{
		{SearchText: "kindroid adds new avatar customization options", Platforms: []string{"kindroid"}},
		{SearchText: "replika launches voice mode companion feature", Platforms: []string{"replika"}},
	}

	match, ok := BestCandidate(query, []string{"replika"}, candidates)
	if !ok {
		t.Fatalf("expected a match")
	}
	if match.Index != 1 {
		t.Fatalf("expected candidate 1 (closer text + shared platform) to win, got index %d score %v", match.Index, match.Score)
	}
}

func TestBestCandidateNoCandidatesReturnsNotOK(t *testing.T) {
	t.Parallel()

	_, ok := BestCandidate("anything", nil, nil)
	if ok {
		t.Fatalf("expected ok=false for empty candidate set")
	}
}

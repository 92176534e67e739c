package textutil

import (
	"reflect"
	"testing"
)

func TestTokenizeDropsShortTokensAndStopwords(t *testing.T) {
	t.Parallel()

	got := Tokenize("The Replika app is now offering a new companion feature, and it is great.")
	want := []string{"replika", "app", "now", "offering", "new", "companion", "feature", "great"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize mismatch\nwant: %v\ngot:  %v", want, got)
	}
}

func TestTokenizeIsDeterministicAcrossPunctuationVariants(t *testing.T) {
	t.Parallel()

	a := Tokenize("Character.AI raises $150 million in new funding!")
	b := Tokenize("character ai raises 150 million in new funding")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected punctuation-insensitive tokenization\na: %v\nb: %v", a, b)
	}
}

func TestTopNKeywordsRanksByFrequencyThenFirstAppearance(t *testing.T) {
	t.Parallel()

	text := "companion companion platform feature companion platform safety"
	got := TopNKeywords(text, 2)
	want := []string{"companion", "platform"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TopNKeywords mismatch\nwant: %v\ngot:  %v", want, got)
	}
}

func TestTopNKeywordsCapsAtAvailableTokens(t *testing.T) {
	t.Parallel()

	got := TopNKeywords("single unique tokens here", 10)
	if len(got) != 4 {
		t.Fatalf("expected all 4 tokens returned, got %v", got)
	}
}

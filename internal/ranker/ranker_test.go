package ranker

import (
	"math"
	"testing"
	"time"
)

func TestCategoryComponentWeightsHighRiskCategoriesAboveDefault(t *testing.T) {
	t.Parallel()

	if got := categoryComponent([]string{"PRODUCT_UPDATE"}); got != 1.0 {
		t.Fatalf("expected default weight 1.0, got %v", got)
	}
	if got := categoryComponent([]string{"PRODUCT_UPDATE", "SAFETY_YOUTH_RISK"}); got != 1.5 {
		t.Fatalf("expected high-risk weight 1.5, got %v", got)
	}
	if got := categoryComponent([]string{"REGULATORY_LEGAL"}); got != 1.5 {
		t.Fatalf("expected REGULATORY_LEGAL weight 1.5, got %v", got)
	}
	if got := categoryComponent(nil); got != 1.0 {
		t.Fatalf("expected default weight 1.0 for no categories, got %v", got)
	}
}

func TestRecencyComponentDecaysExponentially(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	if got := recencyComponent(now, 24); math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("expected recency ~1.0 at zero elapsed hours, got %v", got)
	}

	past := now.Add(-24 * time.Hour)
	got := recencyComponent(past, 24)
	want := math.Exp(-1)
	if math.Abs(got-want) > 1e-3 {
		t.Fatalf("expected recency ~%v after one decay period, got %v", want, got)
	}
}

func TestSourceDiversityComponentCapsAtMaxDomains(t *testing.T) {
	t.Parallel()

	signals := []clusterSignalRow{
		{SourceDomain: "a.com"}, {SourceDomain: "b.com"}, {SourceDomain: "c.com"},
		{SourceDomain: "d.com"}, {SourceDomain: "e.com"}, {SourceDomain: "f.com"},
		{SourceDomain: "g.com"},
	}
	if got := sourceDiversityComponent(signals, 6); got != 6 {
		t.Fatalf("expected diversity capped at 6, got %v", got)
	}
}

func TestSourceDiversityComponentCountsDistinctDomains(t *testing.T) {
	t.Parallel()

	signals := []clusterSignalRow{
		{SourceDomain: "a.com"}, {SourceDomain: "a.com"}, {SourceDomain: "b.com"},
	}
	if got := sourceDiversityComponent(signals, 6); got != 2 {
		t.Fatalf("expected 2 distinct domains, got %v", got)
	}
}

func TestVelocityComponentCountsOnlyRecentSignals(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	signals := []clusterSignalRow{
		{CreatedAt: now.Add(-5 * time.Minute)},
		{CreatedAt: now.Add(-90 * time.Minute)},
	}
	got := velocityComponent(signals)
	want := math.Log(1 + 1)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected ln(2) from one recent signal, got %v want %v", got, want)
	}
}

package engine

import (
	"math"
	"testing"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/config"
)

func testPolicyConfig() config.CalibrationConfig {
	return config.CalibrationConfig{
		ConfidenceThreshold: 0.45,
		ConfidenceMargin:    0.12,
		TopK:                3,
	}
}

func TestDecideConfidentScenario(t *testing.T) {
	dist := []float64{0.9, 0.05, 0.02, 0.01, 0.01, 0.01}
	d := Decide(dist, categories, testPolicyConfig())

	if d.State != StateConfident {
		t.Fatalf("expected confident, got %s", d.State)
	}
	if d.Label != "bacterial_leaf_blight" {
		t.Fatalf("unexpected label %q", d.Label)
	}
	if math.Abs(d.Confidence-0.9) > 1e-9 {
		t.Fatalf("unexpected confidence %f", d.Confidence)
	}
	if math.Abs(d.Margin-0.85) > 1e-9 {
		t.Fatalf("unexpected margin %f", d.Margin)
	}
}

func TestDecideUncertainOnUniformScores(t *testing.T) {
	dist := []float64{0.18, 0.17, 0.17, 0.16, 0.16, 0.16}
	d := Decide(dist, categories, testPolicyConfig())

	if d.State != StateUncertain {
		t.Fatalf("expected uncertain, got %s", d.State)
	}
	if d.Label != Uncertain {
		t.Fatalf("expected sentinel label, got %q", d.Label)
	}
	// The underlying top category stays visible for transparency.
	if d.TopLabel != "bacterial_leaf_blight" {
		t.Fatalf("expected underlying top category, got %q", d.TopLabel)
	}
	if len(d.Alternatives) == 0 || d.Alternatives[0].Label != "bacterial_leaf_blight" {
		t.Fatalf("expected top category at rank 1 of alternatives, got %+v", d.Alternatives)
	}
}

func TestDecideBoundaryIsInclusive(t *testing.T) {
	// Top exactly at threshold, margin exactly at margin.
	dist := []float64{0.45, 0.33, 0.12, 0.05, 0.03, 0.02}
	d := Decide(dist, categories, testPolicyConfig())
	if d.State != StateConfident {
		t.Fatalf("boundary values should be confident, got %s", d.State)
	}

	// One epsilon below the threshold.
	below := []float64{0.45 - 1e-6, 0.33, 0.12, 0.05, 0.03, 0.02 + 1e-6}
	d = Decide(below, categories, testPolicyConfig())
	if d.State != StateUncertain {
		t.Fatalf("below-threshold top should be uncertain, got %s", d.State)
	}

	// Threshold satisfied but margin one epsilon short.
	narrow := []float64{0.46, 0.46 - 0.12 + 1e-6, 0.1 - 2e-6, 0.04, 0.03, 0.03}
	d = Decide(narrow, categories, testPolicyConfig())
	if d.State != StateUncertain {
		t.Fatalf("below-margin gap should be uncertain, got %s", d.State)
	}
}

func TestDecideAlternativesExcludePrimary(t *testing.T) {
	dist := []float64{0.7, 0.15, 0.08, 0.04, 0.02, 0.01}
	d := Decide(dist, categories, testPolicyConfig())

	if len(d.Alternatives) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(d.Alternatives))
	}
	for _, alt := range d.Alternatives {
		if alt.Label == d.Label {
			t.Fatalf("primary label leaked into alternatives: %+v", d.Alternatives)
		}
	}
	if d.Alternatives[0].Label != "brown_spot" || d.Alternatives[1].Label != "healthy" {
		t.Fatalf("alternatives not ranked by confidence: %+v", d.Alternatives)
	}
	if d.Alternatives[0].Confidence < d.Alternatives[1].Confidence {
		t.Fatal("alternatives out of order")
	}
}

func TestDecideEntropyTracksUncertainty(t *testing.T) {
	peaked := Decide([]float64{0.95, 0.01, 0.01, 0.01, 0.01, 0.01}, categories, testPolicyConfig())
	flat := Decide([]float64{0.18, 0.17, 0.17, 0.16, 0.16, 0.16}, categories, testPolicyConfig())

	if peaked.Entropy >= flat.Entropy {
		t.Fatalf("expected peaked entropy %f < flat entropy %f", peaked.Entropy, flat.Entropy)
	}
	uniform := Decide([]float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}, categories, testPolicyConfig())
	if math.Abs(uniform.Entropy-math.Log(6)) > 1e-9 {
		t.Fatalf("uniform entropy %f, want ln(6)=%f", uniform.Entropy, math.Log(6))
	}
}

func TestDecideDeterministicTieBreak(t *testing.T) {
	dist := []float64{0.3, 0.3, 0.1, 0.1, 0.1, 0.1}
	a := Decide(dist, categories, testPolicyConfig())
	b := Decide(dist, categories, testPolicyConfig())
	if a.TopLabel != b.TopLabel || a.TopLabel != "bacterial_leaf_blight" {
		t.Fatalf("tie break not deterministic by category order: %q vs %q", a.TopLabel, b.TopLabel)
	}
}

package engine

import (
	"math"
	"testing"
)

func assertDistribution(t *testing.T, dist []float64) {
	t.Helper()
	var sum float64
	for i, p := range dist {
		if p < 0 || p > 1 {
			t.Fatalf("value %d out of range: %f", i, p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("distribution sums to %f, want 1.0", sum)
	}
}

func TestCalibrateSumsToOne(t *testing.T) {
	cases := [][]float64{
		{0.9, 0.05, 0.02, 0.01, 0.01, 0.01},
		{0.18, 0.17, 0.17, 0.16, 0.16, 0.16},
		{1, 0, 0, 0, 0, 0},
		{0.5, 0.5},
	}
	for _, raw := range cases {
		for _, temp := range []float64{0.5, 1.0, 1.15, 2.0} {
			assertDistribution(t, Calibrate(raw, temp))
		}
	}
}

func TestCalibrateTemperatureOneIsIdentity(t *testing.T) {
	raw := []float64{0.9, 0.05, 0.02, 0.01, 0.01, 0.01}
	out := Calibrate(raw, 1.0)
	for i := range raw {
		if math.Abs(out[i]-raw[i]) > 1e-9 {
			t.Fatalf("index %d: got %f, want %f", i, out[i], raw[i])
		}
	}
}

func TestCalibrateHigherTemperatureFlattens(t *testing.T) {
	raw := []float64{0.9, 0.05, 0.02, 0.01, 0.01, 0.01}

	prev := maxOf(Calibrate(raw, 1.0))
	for _, temp := range []float64{1.25, 1.5, 2.0, 4.0} {
		cur := maxOf(Calibrate(raw, temp))
		if cur >= prev {
			t.Fatalf("temperature %f: max %f did not decrease from %f", temp, cur, prev)
		}
		prev = cur
	}
}

func TestCalibrateLowerTemperatureSharpens(t *testing.T) {
	raw := []float64{0.6, 0.2, 0.1, 0.05, 0.03, 0.02}
	if maxOf(Calibrate(raw, 0.5)) <= maxOf(Calibrate(raw, 1.0)) {
		t.Fatal("temperature below 1 should sharpen the distribution")
	}
}

func TestCalibrateZeroVarianceYieldsUniform(t *testing.T) {
	for _, raw := range [][]float64{
		{0, 0, 0, 0, 0, 0},
		{0.25, 0.25, 0.25, 0.25},
	} {
		out := Calibrate(raw, 1.15)
		assertDistribution(t, out)
		want := 1.0 / float64(len(raw))
		for i, p := range out {
			if math.Abs(p-want) > 1e-9 {
				t.Fatalf("index %d: got %f, want uniform %f", i, p, want)
			}
		}
	}
}

func TestCalibrateGuardsInvalidInputs(t *testing.T) {
	out := Calibrate([]float64{-0.5, math.NaN(), 0.5}, 1.0)
	assertDistribution(t, out)
	if out[2] != 1.0 {
		t.Fatalf("expected all mass on the only valid score, got %v", out)
	}

	if got := Calibrate(nil, 1.0); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}

	// Non-positive temperature falls back to identity scaling.
	out = Calibrate([]float64{0.7, 0.3}, 0)
	if math.Abs(out[0]-0.7) > 1e-9 {
		t.Fatalf("expected identity for temperature 0, got %v", out)
	}
}

func maxOf(dist []float64) float64 {
	m := dist[0]
	for _, v := range dist[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

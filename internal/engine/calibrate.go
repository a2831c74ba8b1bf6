package engine

import "math"

// Calibrate applies temperature scaling to probability-like raw scores:
// each score is raised to 1/temperature and the vector renormalized.
// Temperature above 1 flattens the distribution (tempers overconfidence),
// below 1 sharpens it, and exactly 1 reproduces the normalized input.
// Ranking is preserved for any positive temperature.
//
// The result always holds values in [0,1] summing to 1: a degenerate input
// (all zeros, or a denominator that underflows) yields the uniform
// distribution rather than NaN.
func Calibrate(raw []float64, temperature float64) []float64 {
	if len(raw) == 0 {
		return nil
	}
	if temperature <= 0 {
		temperature = 1
	}

	exp := 1.0 / temperature
	out := make([]float64, len(raw))
	var sum float64
	for i, p := range raw {
		if p < 0 || math.IsNaN(p) {
			p = 0
		}
		v := math.Pow(p, exp)
		out[i] = v
		sum += v
	}

	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		uniform := 1.0 / float64(len(out))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	for i := range out {
		out[i] /= sum
	}
	return out
}

package engine

import (
	"fmt"
	"math"
)

// Infer runs one forward pass over the preprocessed tensor and converts the
// model's logits into probability-like raw scores via a numerically-stable
// softmax. The scores are ordered like the category set and sum to 1. Any
// runtime fault from the session surfaces as ErrInference; the engine never
// retries it.
func Infer(s Session, tensor []float32, size int) ([]float64, error) {
	logits, err := s.Run(tensor, InputShape(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(logits) != len(categories) {
		return nil, fmt.Errorf("%w: got %d scores for %d categories", ErrInference, len(logits), len(categories))
	}
	for _, v := range logits {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite score in model output", ErrInference)
		}
	}
	return softmax(logits), nil
}

// softmax maps logits to a probability distribution, shifting by the max
// logit so large values cannot overflow.
func softmax(logits []float32) []float64 {
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v) - maxLogit)
		out[i] = e
		sum += e
	}
	// sum >= 1 always holds here since the max logit contributes exp(0).
	for i := range out {
		out[i] /= sum
	}
	return out
}

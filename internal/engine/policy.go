package engine

import (
	"math"
	"sort"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/config"
)

// DecisionState classifies how much trust the policy places in the top
// prediction.
type DecisionState string

const (
	StateConfident DecisionState = "confident"
	StateUncertain DecisionState = "uncertain"
)

// Alternative is one ranked label/confidence pair.
type Alternative struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Decision is the outcome of applying the accept/reject policy to a
// calibrated distribution. Immutable once produced.
type Decision struct {
	// Label is the reported label: the top category when confident,
	// otherwise the "uncertain" sentinel.
	Label string
	// TopIndex and TopLabel identify the underlying top category even when
	// the decision is uncertain, for transparency.
	TopIndex int
	TopLabel string
	// Confidence is the calibrated top probability.
	Confidence float64
	// Margin is the gap between the top two calibrated probabilities.
	Margin float64
	// Entropy is the Shannon entropy of the calibrated distribution,
	// carried as an uncertainty diagnostic rather than a hard gate.
	Entropy float64
	State   DecisionState
	// Alternatives are the top-k ranked categories, excluding the reported
	// label when distinct.
	Alternatives []Alternative
}

// Decide applies the accept/reject policy to a calibrated distribution.
// The prediction is confident only when the top confidence reaches the
// configured threshold AND the top-1/top-2 margin reaches the configured
// margin; both comparisons are inclusive. The two gates catch different
// failure modes: the margin rejects a model torn between two classes, the
// threshold rejects a model weakly confident about everything.
func Decide(calibrated []float64, labels []string, cfg config.CalibrationConfig) Decision {
	ranked := rankIndices(calibrated)

	top := ranked[0]
	topConf := calibrated[top]
	margin := topConf
	if len(ranked) > 1 {
		margin = topConf - calibrated[ranked[1]]
	}

	d := Decision{
		TopIndex:   top,
		TopLabel:   labels[top],
		Confidence: topConf,
		Margin:     margin,
		Entropy:    shannonEntropy(calibrated),
	}

	if topConf >= cfg.ConfidenceThreshold && margin >= cfg.ConfidenceMargin {
		d.State = StateConfident
		d.Label = labels[top]
	} else {
		d.State = StateUncertain
		d.Label = Uncertain
	}

	k := cfg.TopK
	if k <= 0 {
		k = 3
	}
	for _, idx := range ranked {
		if len(d.Alternatives) == k {
			break
		}
		if labels[idx] == d.Label {
			continue
		}
		d.Alternatives = append(d.Alternatives, Alternative{
			Label:      labels[idx],
			Confidence: calibrated[idx],
		})
	}
	return d
}

// rankIndices orders category indices by descending confidence, breaking
// ties by category order for determinism.
func rankIndices(dist []float64) []int {
	idx := make([]int, len(dist))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dist[idx[a]] > dist[idx[b]]
	})
	return idx
}

// shannonEntropy computes -sum(p*ln p) over the distribution, treating zero
// probabilities as contributing nothing.
func shannonEntropy(dist []float64) float64 {
	var h float64
	for _, p := range dist {
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	return h
}

package engine

import (
	"sync"
	"time"
)

// PerformanceSample is one latency/confidence observation from an inference
// call.
type PerformanceSample struct {
	Latency    time.Duration
	Confidence float64
	ObservedAt time.Time
}

// WindowStats summarizes the current contents of the rolling window.
type WindowStats struct {
	Samples        int     `json:"samples"`
	MeanLatencyMS  float64 `json:"meanLatencyMs"`
	MeanConfidence float64 `json:"meanConfidence"`
}

// PerformanceWindow is a fixed-capacity ring buffer of samples. Appends from
// concurrent requests are serialized under a mutex; eviction of the oldest
// sample happens inside the same critical section, so aggregate statistics
// never observe a torn update.
type PerformanceWindow struct {
	mu      sync.Mutex
	samples []PerformanceSample
	next    int
	full    bool
}

// NewPerformanceWindow creates a window holding up to capacity samples.
func NewPerformanceWindow(capacity int) *PerformanceWindow {
	if capacity <= 0 {
		capacity = 128
	}
	return &PerformanceWindow{samples: make([]PerformanceSample, capacity)}
}

// Append records a sample, evicting the oldest once the window is full.
func (w *PerformanceWindow) Append(s PerformanceSample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = s
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Stats computes aggregate statistics over the samples currently held.
func (w *PerformanceWindow) Stats() WindowStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.next
	if w.full {
		n = len(w.samples)
	}
	if n == 0 {
		return WindowStats{}
	}

	var latency time.Duration
	var confidence float64
	for i := 0; i < n; i++ {
		latency += w.samples[i].Latency
		confidence += w.samples[i].Confidence
	}
	return WindowStats{
		Samples:        n,
		MeanLatencyMS:  float64(latency.Microseconds()) / float64(n) / 1000.0,
		MeanConfidence: confidence / float64(n),
	}
}

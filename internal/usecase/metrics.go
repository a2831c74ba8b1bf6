package usecase

import (
	"sync/atomic"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/engine"
)

// MetricsSummary represents aggregated classification insights since process
// start, combined with the rolling performance window.
type MetricsSummary struct {
	TotalRequests     int64              `json:"total_requests"`
	ConfidentRequests int64              `json:"confident_requests"`
	ConfidentRate     float64            `json:"confident_rate"`
	Window            engine.WindowStats `json:"window"`
}

// MetricsSummary aggregates in-process counters and window statistics.
func (uc *ClassificationUseCase) MetricsSummary() MetricsSummary {
	total := atomic.LoadInt64(&uc.totalRequests)
	confident := atomic.LoadInt64(&uc.confidentHits)

	summary := MetricsSummary{
		TotalRequests:     total,
		ConfidentRequests: confident,
		Window:            uc.engine.WindowStats(),
	}
	if total > 0 {
		summary.ConfidentRate = float64(confident) / float64(total)
	}
	return summary
}

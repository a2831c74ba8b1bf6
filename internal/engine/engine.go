package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/config"
)

// Engine orchestrates the preprocess → infer → calibrate → decide →
// similarity pipeline. It owns the two process-wide resources: the model
// handle and the rolling performance window. Everything else is
// request-scoped and flows through without shared state.
type Engine struct {
	cfg    config.CalibrationConfig
	labels []string
	model  *ModelHandle
	window *PerformanceWindow
	logger *zap.Logger
}

// Result is the caller-facing outcome of one classification.
type Result struct {
	Label         string        `json:"label"`
	Confidence    float64       `json:"confidence"`
	RawConfidence float64       `json:"rawConfidence"`
	DecisionState DecisionState `json:"decisionState"`
	Alternatives  []Alternative `json:"alternatives"`
	SimilarTo     []string      `json:"similarTo"`
}

// Diagnostic is the operator-facing breakdown of one classification. It
// exposes the full internal state of the pipeline without persisting
// anything.
type Diagnostic struct {
	Result     Result         `json:"result"`
	RawScores  []float64      `json:"rawScores"`
	Calibrated []float64      `json:"calibrated"`
	Margin     float64        `json:"margin"`
	Entropy    float64        `json:"entropy"`
	LatencyMS  float64        `json:"latencyMs"`
	Config     ConfigSnapshot `json:"config"`
}

// ConfigSnapshot is the read-only view of the engine configuration exposed
// through the introspection surface. The model path stays internal.
type ConfigSnapshot struct {
	Temperature         float64  `json:"temperature"`
	ConfidenceThreshold float64  `json:"confidenceThreshold"`
	ConfidenceMargin    float64  `json:"confidenceMargin"`
	ImageSize           int      `json:"imageSize"`
	TopK                int      `json:"topK"`
	Categories          []string `json:"categories"`
}

// BatchItem is the per-image outcome of a batched diagnostic run. Exactly
// one of Diagnostic and Error is set.
type BatchItem struct {
	Index      int         `json:"index"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// BatchSummary aggregates a batched diagnostic run.
type BatchSummary struct {
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	SuccessRate float64     `json:"successRate"`
	Window      WindowStats `json:"window"`
}

// BatchReport bundles per-item results with the run summary.
type BatchReport struct {
	Items   []BatchItem  `json:"items"`
	Summary BatchSummary `json:"summary"`
}

// New creates an Engine backed by the ONNX classifier at the configured
// model path. The model is not touched until the first classification.
func New(cfg config.CalibrationConfig, logger *zap.Logger) *Engine {
	return NewWithLoader(cfg, NewONNXLoader(cfg.ModelPath, NumCategories()), logger)
}

// NewWithLoader creates an Engine with a custom session loader. Tests use
// this to run the pipeline without ONNX Runtime.
func NewWithLoader(cfg config.CalibrationConfig, load LoaderFunc, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		labels: Categories(),
		model:  NewModelHandle(load),
		window: NewPerformanceWindow(cfg.WindowSize),
		logger: logger.Named("engine"),
	}
}

// Classify runs the full pipeline on raw image bytes and assembles the
// caller-facing result.
func (e *Engine) Classify(ctx context.Context, imageBytes []byte) (Result, error) {
	d, err := e.run(ctx, imageBytes)
	if err != nil {
		return Result{}, err
	}
	return d.Result, nil
}

// Diagnose runs the pipeline once and returns the full internal breakdown.
func (e *Engine) Diagnose(ctx context.Context, imageBytes []byte) (Diagnostic, error) {
	d, err := e.run(ctx, imageBytes)
	if err != nil {
		return Diagnostic{}, err
	}
	return d, nil
}

// DiagnoseBatch runs the pipeline over multiple images. Individual failures
// are captured per item and never abort sibling items.
func (e *Engine) DiagnoseBatch(ctx context.Context, images [][]byte) BatchReport {
	report := BatchReport{Items: make([]BatchItem, 0, len(images))}
	for i, img := range images {
		item := BatchItem{Index: i}
		d, err := e.run(ctx, img)
		if err != nil {
			item.Error = err.Error()
			report.Summary.Failed++
		} else {
			item.Diagnostic = &d
			report.Summary.Succeeded++
		}
		report.Items = append(report.Items, item)
	}
	if total := len(images); total > 0 {
		report.Summary.SuccessRate = float64(report.Summary.Succeeded) / float64(total)
	}
	report.Summary.Window = e.window.Stats()
	return report
}

// Snapshot returns the current configuration and category list.
func (e *Engine) Snapshot() ConfigSnapshot {
	return ConfigSnapshot{
		Temperature:         e.cfg.Temperature,
		ConfidenceThreshold: e.cfg.ConfidenceThreshold,
		ConfidenceMargin:    e.cfg.ConfidenceMargin,
		ImageSize:           e.cfg.ImageSize,
		TopK:                e.cfg.TopK,
		Categories:          Categories(),
	}
}

// WindowStats returns aggregate statistics over the rolling performance
// window.
func (e *Engine) WindowStats() WindowStats {
	return e.window.Stats()
}

// ResetModel drops the loaded session so the next classification reloads
// the weights from disk.
func (e *Engine) ResetModel() {
	e.model.Reset()
	e.logger.Info("model handle reset")
}

// run executes the pipeline for one image. The forward pass itself is
// atomic with respect to cancellation; the context is only consulted at the
// call boundary before the expensive work starts.
func (e *Engine) run(ctx context.Context, imageBytes []byte) (Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return Diagnostic{}, err
	}

	tensor, err := Preprocess(imageBytes, e.cfg.ImageSize)
	if err != nil {
		return Diagnostic{}, err
	}

	session, err := e.model.Get()
	if err != nil {
		e.logger.Error("model load failed", zap.Error(err))
		return Diagnostic{}, err
	}

	start := time.Now()
	raw, err := Infer(session, tensor, e.cfg.ImageSize)
	latency := time.Since(start)
	if err != nil {
		e.logger.Error("inference failed", zap.Error(err))
		return Diagnostic{}, err
	}

	calibrated := Calibrate(raw, e.cfg.Temperature)
	decision := Decide(calibrated, e.labels, e.cfg)

	e.window.Append(PerformanceSample{
		Latency:    latency,
		Confidence: decision.Confidence,
		ObservedAt: time.Now().UTC(),
	})

	result := Result{
		Label:         decision.Label,
		Confidence:    decision.Confidence,
		RawConfidence: raw[decision.TopIndex],
		DecisionState: decision.State,
		Alternatives:  decision.Alternatives,
		SimilarTo:     SimilarTo(decision.Label),
	}

	e.logger.Debug("classified image",
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("margin", decision.Margin),
		zap.Duration("latency", latency),
	)

	return Diagnostic{
		Result:     result,
		RawScores:  raw,
		Calibrated: calibrated,
		Margin:     decision.Margin,
		Entropy:    decision.Entropy,
		LatencyMS:  float64(latency.Microseconds()) / 1000.0,
		Config:     e.Snapshot(),
	}, nil
}

package engine

import "errors"

// Sentinel errors surfaced by the classification pipeline. Callers match
// them with errors.Is; the messages carry no filesystem paths or other
// process internals.
var (
	// ErrInvalidImage means the input bytes could not be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrModelUnavailable means the classifier weights could not be loaded.
	// The model handle stays retryable, so a later call may succeed once the
	// underlying resource is fixed.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInference means the forward pass failed at runtime (shape or
	// numeric fault). The engine never retries it on its own.
	ErrInference = errors.New("inference failed")
)

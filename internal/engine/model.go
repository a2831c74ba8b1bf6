package engine

import (
	"fmt"
	"sync"
	"time"
)

// Session is the minimal classifier surface the pipeline needs: one forward
// pass over a flat input tensor. A Session is safe for concurrent Run calls
// once constructed.
type Session interface {
	Run(tensor []float32, shape []int64) ([]float32, error)
	Close() error
}

// LoaderFunc constructs a Session. Loading is expensive (seconds), so the
// ModelHandle guarantees it runs at most once per successful load.
type LoaderFunc func() (Session, error)

// ModelHandle owns the lazily-loaded classifier session shared by all
// requests. The first caller triggers the load; concurrent first callers
// block on the mutex and observe the single resulting session. A failed load
// leaves the handle empty, so the next call attempts a fresh load rather
// than caching the failure.
type ModelHandle struct {
	mu       sync.Mutex
	load     LoaderFunc
	session  Session
	loadedAt time.Time
}

// NewModelHandle creates a handle around the given loader.
func NewModelHandle(load LoaderFunc) *ModelHandle {
	return &ModelHandle{load: load}
}

// Get returns the shared session, loading it on first use.
func (h *ModelHandle) Get() (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session != nil {
		return h.session, nil
	}

	s, err := h.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	h.session = s
	h.loadedAt = time.Now().UTC()
	return s, nil
}

// LoadedAt reports when the current session was loaded, if one exists.
func (h *ModelHandle) LoadedAt() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return time.Time{}, false
	}
	return h.loadedAt, true
}

// Reset drops the current session so the next Get reloads from scratch.
// Used by tests and by operators after swapping the weight file.
func (h *ModelHandle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		h.session.Close() //nolint:errcheck
		h.session = nil
		h.loadedAt = time.Time{}
	}
}

package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type stubSession struct {
	logits []float32
	runErr error
	closed int32
}

func (s *stubSession) Run(tensor []float32, shape []int64) ([]float32, error) {
	if s.runErr != nil {
		return nil, s.runErr
	}
	out := make([]float32, len(s.logits))
	copy(out, s.logits)
	return out, nil
}

func (s *stubSession) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

func TestModelHandleLoadsExactlyOnceUnderConcurrency(t *testing.T) {
	var loads int32
	session := &stubSession{}
	handle := NewModelHandle(func() (Session, error) {
		atomic.AddInt32(&loads, 1)
		return session, nil
	})

	const n = 32
	results := make([]Session, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := handle.Get()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Fatalf("expected exactly one load, got %d", got)
	}
	for i, s := range results {
		if s != session {
			t.Fatalf("caller %d received a different session", i)
		}
	}
}

func TestModelHandleRetriesAfterFailedLoad(t *testing.T) {
	var loads int32
	session := &stubSession{}
	handle := NewModelHandle(func() (Session, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			return nil, errors.New("weight file missing")
		}
		return session, nil
	})

	if _, err := handle.Get(); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	// The failure must not poison the handle: the next call reloads.
	s, err := handle.Get()
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if s != session {
		t.Fatal("retry returned an unexpected session")
	}
	if loads != 2 {
		t.Fatalf("expected two load attempts, got %d", loads)
	}
}

func TestModelHandleResetForcesReload(t *testing.T) {
	var loads int32
	first := &stubSession{}
	second := &stubSession{}
	handle := NewModelHandle(func() (Session, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			return first, nil
		}
		return second, nil
	})

	if _, err := handle.Get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := handle.LoadedAt(); !ok {
		t.Fatal("expected load timestamp after Get")
	}

	handle.Reset()
	if atomic.LoadInt32(&first.closed) != 1 {
		t.Fatal("expected Reset to close the old session")
	}
	if _, ok := handle.LoadedAt(); ok {
		t.Fatal("expected no load timestamp after Reset")
	}

	s, err := handle.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != second {
		t.Fatal("expected a fresh session after Reset")
	}
}

package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/engine"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/logging"
)

// Classifier is the slice of the decision engine the use case drives.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (engine.Result, error)
	Diagnose(ctx context.Context, imageBytes []byte) (engine.Diagnostic, error)
	DiagnoseBatch(ctx context.Context, images [][]byte) engine.BatchReport
	Snapshot() engine.ConfigSnapshot
	WindowStats() engine.WindowStats
}

// Classification is one completed scan: the engine result plus request
// bookkeeping.
type Classification struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Result    engine.Result `json:"result"`
	SHA1Hash  string        `json:"sha1_hash"`
	Duplicate bool          `json:"duplicate"`
	CreatedAt time.Time     `json:"created_at"`
}

// ErrResultNotFound is returned when a request ID has no cached outcome.
var ErrResultNotFound = errors.New("result not found")

// ClassificationUseCase orchestrates the engine, caching, and request
// identity for the scan flow. Results live in the cache only; durable scan
// history is somebody else's job.
type ClassificationUseCase struct {
	engine         Classifier
	cache          Cache
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	totalRequests int64
	confidentHits int64
}

// NewClassificationUseCase constructs a new use case instance.
func NewClassificationUseCase(eng Classifier, cache Cache, logger *zap.Logger) *ClassificationUseCase {
	return &ClassificationUseCase{
		engine:         eng,
		cache:          cache,
		logger:         logger.Named("classification_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Classify runs one scan. Identical re-uploads (matched by image hash)
// short-circuit to the cached verdict without touching the model.
func (uc *ClassificationUseCase) Classify(ctx context.Context, userID string, imageBytes []byte) (Classification, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.classify", requestID)

	hash := sha1.Sum(imageBytes)
	hashHex := hex.EncodeToString(hash[:])

	if cached, ok := uc.lookupByHash(ctx, requestID, hashHex); ok {
		atomic.AddInt64(&uc.totalRequests, 1)
		if cached.Result.DecisionState == engine.StateConfident {
			atomic.AddInt64(&uc.confidentHits, 1)
		}
		cached.RequestID = requestID
		cached.UserID = userID
		cached.Duplicate = true
		opLogger.Info("duplicate image, served cached verdict", zap.String("sha1", hashHex))
		uc.store(ctx, requestID, cached)
		return cached, nil
	}

	result, err := uc.engine.Classify(ctx, imageBytes)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.engine_classify", requestID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return Classification{}, wrapped
	}

	atomic.AddInt64(&uc.totalRequests, 1)
	if result.DecisionState == engine.StateConfident {
		atomic.AddInt64(&uc.confidentHits, 1)
	}

	c := Classification{
		RequestID: requestID,
		UserID:    userID,
		Result:    result,
		SHA1Hash:  hashHex,
		CreatedAt: time.Now().UTC(),
	}
	uc.store(ctx, requestID, c)
	return c, nil
}

// GetResult retrieves a cached classification outcome by request ID.
func (uc *ClassificationUseCase) GetResult(ctx context.Context, requestID string) (Classification, error) {
	var payload Classification
	value, err := uc.withCacheGet(ctx, requestID, "cache.get.result", resultKey(requestID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Classification{}, ErrResultNotFound
		}
		return Classification{}, err
	}
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		return Classification{}, ErrResultNotFound
	}
	return payload, nil
}

// Diagnose proxies a one-shot diagnostic run. Nothing is cached.
func (uc *ClassificationUseCase) Diagnose(ctx context.Context, imageBytes []byte) (engine.Diagnostic, error) {
	return uc.engine.Diagnose(ctx, imageBytes)
}

// DiagnoseBatch proxies a batched diagnostic run. Nothing is cached.
func (uc *ClassificationUseCase) DiagnoseBatch(ctx context.Context, images [][]byte) engine.BatchReport {
	return uc.engine.DiagnoseBatch(ctx, images)
}

// ConfigSnapshot exposes the engine configuration for operators.
func (uc *ClassificationUseCase) ConfigSnapshot() engine.ConfigSnapshot {
	return uc.engine.Snapshot()
}

// store writes the classification under both the request-ID key and the
// image-hash key. Cache writes are advisory: a failure is logged and the
// verdict still returned.
func (uc *ClassificationUseCase) store(ctx context.Context, requestID string, c Classification) {
	serialized, err := json.Marshal(c)
	if err != nil {
		logging.WithOperation(uc.logger, "usecase.store", requestID).Warn("failed to serialize result", zap.Error(err))
		return
	}

	if err := uc.withCacheRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, resultKey(requestID), string(serialized), 30*time.Minute)
	}); err != nil {
		logging.WithOperation(uc.logger, "usecase.store", requestID).Warn("failed to cache result", zap.Error(err))
	}

	if err := uc.withCacheRetry(ctx, requestID, "cache.set.hash", func() error {
		return uc.cache.Set(ctx, hashKey(c.SHA1Hash), string(serialized), 30*time.Minute)
	}); err != nil {
		logging.WithOperation(uc.logger, "usecase.store", requestID).Warn("failed to cache hash entry", zap.Error(err))
	}
}

func (uc *ClassificationUseCase) lookupByHash(ctx context.Context, requestID, hashHex string) (Classification, bool) {
	value, err := uc.withCacheGet(ctx, requestID, "cache.get.hash", hashKey(hashHex))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.WithOperation(uc.logger, "usecase.classify", requestID).Warn("failed to read hash cache", zap.Error(err))
		}
		return Classification{}, false
	}
	var payload Classification
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		logging.WithOperation(uc.logger, "usecase.classify", requestID).Warn("failed to decode hash cache entry", zap.Error(err))
		return Classification{}, false
	}
	return payload, true
}

func resultKey(requestID string) string { return fmt.Sprintf("scan:result:%s", requestID) }
func hashKey(hashHex string) string     { return fmt.Sprintf("scan:hash:%s", hashHex) }

func (uc *ClassificationUseCase) withCacheRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("cache operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient cache error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ClassificationUseCase) withCacheGet(ctx context.Context, requestID, operation, key string) (string, error) {
	var result string
	err := uc.withCacheRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.Nil) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}

package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/auth"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/engine"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/usecase"
)

// MaxUploadSize bounds a single image upload.
const MaxUploadSize = 10 << 20

// MaxBatchImages bounds one diagnostic batch request.
const MaxBatchImages = 16

// Service is the slice of the classification use case the HTTP layer needs.
type Service interface {
	Classify(ctx context.Context, userID string, imageBytes []byte) (usecase.Classification, error)
	GetResult(ctx context.Context, requestID string) (usecase.Classification, error)
	Diagnose(ctx context.Context, imageBytes []byte) (engine.Diagnostic, error)
	DiagnoseBatch(ctx context.Context, images [][]byte) engine.BatchReport
	ConfigSnapshot() engine.ConfigSnapshot
	MetricsSummary() usecase.MetricsSummary
}

// RegisterRoutes wires the HTTP handlers to the Gin router. The scan flow
// and the operator diagnostics both sit behind the auth middleware.
func RegisterRoutes(router *gin.Engine, svc Service, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/", authMiddleware)

	authed.POST("/classify", func(c *gin.Context) {
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		data, ok := readImageUpload(c, "image")
		if !ok {
			return
		}

		classification, err := svc.Classify(c.Request.Context(), userID, data)
		if err != nil {
			writeEngineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":    classification.RequestID,
			"label":         classification.Result.Label,
			"confidence":    classification.Result.Confidence,
			"rawConfidence": classification.Result.RawConfidence,
			"decisionState": classification.Result.DecisionState,
			"alternatives":  classification.Result.Alternatives,
			"similarTo":     classification.Result.SimilarTo,
			"duplicate":     classification.Duplicate,
		})
	})

	authed.GET("/result/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		classification, err := svc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			if errors.Is(err, usecase.ErrResultNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
			return
		}
		c.JSON(http.StatusOK, classification)
	})

	authed.GET("/diagnostics/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.ConfigSnapshot())
	})

	authed.POST("/diagnostics/classify", func(c *gin.Context) {
		data, ok := readImageUpload(c, "image")
		if !ok {
			return
		}

		diag, err := svc.Diagnose(c.Request.Context(), data)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, diag)
	})

	authed.POST("/diagnostics/batch", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
			return
		}
		files := form.File["images"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
			return
		}
		if len(files) > MaxBatchImages {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many images in batch"})
			return
		}

		images := make([][]byte, 0, len(files))
		for _, fh := range files {
			data, err := readFileHeader(fh)
			if err != nil {
				// Unreadable parts still occupy a batch slot; the engine
				// reports them as per-item failures.
				images = append(images, nil)
				continue
			}
			images = append(images, data)
		}

		c.JSON(http.StatusOK, svc.DiagnoseBatch(c.Request.Context(), images))
	})

	authed.GET("/metrics/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.MetricsSummary())
	})
}

// readImageUpload pulls one image file out of the multipart form, enforcing
// the size and content-type gates. On failure it writes the response itself
// and returns ok=false.
func readImageUpload(c *gin.Context, field string) ([]byte, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " file is required"})
		return nil, false
	}

	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		return nil, false
	}

	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported content type"})
		return nil, false
	}

	data, err := readFileHeader(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return nil, false
	}
	return data, true
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
}

// writeEngineError maps engine failures onto HTTP statuses without leaking
// internals.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be decoded"})
	case errors.Is(err, engine.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "classifier temporarily unavailable"})
	case errors.Is(err, engine.ErrInference):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
	}
}

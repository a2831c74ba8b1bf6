package config

import (
	"os"
	"strconv"
)

// Config holds all RiceGuard settings, loaded once at startup. It is passed
// by value into the engine and never mutated during a process run; changing
// any of these requires a restart.
type Config struct {
	Engine CalibrationConfig
	Server ServerConfig
}

// CalibrationConfig carries the tunable parameters of the decision engine.
type CalibrationConfig struct {
	// ModelPath points at the ONNX weight file.
	ModelPath string
	// Temperature rescales calibrated confidence. Values above 1 flatten
	// the distribution, values below 1 sharpen it. Tuned empirically.
	Temperature float64
	// ConfidenceThreshold is the minimum calibrated top confidence for a
	// confident decision.
	ConfidenceThreshold float64
	// ConfidenceMargin is the minimum gap between the top two calibrated
	// confidences for a confident decision.
	ConfidenceMargin float64
	// ImageSize is the square input side length the classifier expects.
	ImageSize int
	// TopK is the number of ranked alternatives reported per decision.
	TopK int
	// WindowSize bounds the rolling performance-sample window.
	WindowSize int
}

// ServerConfig holds serving-shell settings.
type ServerConfig struct {
	Addr        string
	RedisAddr   string
	JWTSecret   string
	JWTAudience string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Engine: CalibrationConfig{
			ModelPath:           getenv("RICEGUARD_MODEL_PATH", "models/riceguard.onnx"),
			Temperature:         getenvFloat("RICEGUARD_TEMPERATURE", 1.15),
			ConfidenceThreshold: getenvFloat("RICEGUARD_CONFIDENCE_THRESHOLD", 0.45),
			ConfidenceMargin:    getenvFloat("RICEGUARD_CONFIDENCE_MARGIN", 0.12),
			ImageSize:           getenvInt("RICEGUARD_IMAGE_SIZE", 224),
			TopK:                getenvInt("RICEGUARD_TOP_K", 3),
			WindowSize:          getenvInt("RICEGUARD_WINDOW_SIZE", 128),
		},
		Server: ServerConfig{
			Addr:        getenv("RICEGUARD_ADDR", ":8080"),
			RedisAddr:   os.Getenv("REDIS_ADDR"),
			JWTSecret:   getenv("JWT_SECRET", "dev-secret"),
			JWTAudience: os.Getenv("JWT_AUDIENCE"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

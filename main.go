package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PooKYZZZ/riceguard-new-sub000/internal/auth"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/config"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/engine"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/handlers"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/logging"
	"github.com/PooKYZZZ/riceguard-new-sub000/internal/usecase"
)

func main() {
	godotenv.Load() //nolint:errcheck

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()

	// The model loads lazily on the first classification, so the server
	// comes up even while the weight file is still being provisioned.
	eng := engine.New(cfg.Engine, logger)

	cache := initCache(cfg.Server, logger)
	uc := usecase.NewClassificationUseCase(eng, cache, logger)

	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize

	authMiddleware := auth.JWTMiddleware(cfg.Server.JWTSecret, cfg.Server.JWTAudience)
	handlers.RegisterRoutes(r, uc, authMiddleware)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	logger.Info("riceguard API listening",
		zap.String("addr", cfg.Server.Addr),
		zap.Float64("temperature", cfg.Engine.Temperature),
		zap.Float64("threshold", cfg.Engine.ConfidenceThreshold),
		zap.Float64("margin", cfg.Engine.ConfidenceMargin),
	)
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initCache(cfg config.ServerConfig, logger *zap.Logger) usecase.Cache {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, duplicate detection disabled")
		return usecase.NewNoopCache()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	return usecase.NewRedisCache(client)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}

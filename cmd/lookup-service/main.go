package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/fccs-lookup-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/fccs-lookup-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fccs-lookup-service/internal/adapter/kafka"
	"github.com/couchcryptid/fccs-lookup-service/internal/config"
	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
	"github.com/couchcryptid/fccs-lookup-service/internal/pipeline"
	"github.com/couchcryptid/fccs-lookup-service/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	zonal, err := source.Open(cfg.GridSpec(), metrics, logger)
	if err != nil {
		logger.Error("failed to open grid source", "error", err)
		os.Exit(1)
	}

	refiner, err := domain.NewRefiner(zonal, cfg.Options, logger, domain.WithSamplingObserver(metrics.SamplingObserver()))
	if err != nil {
		logger.Error("failed to create refiner", "error", err)
		os.Exit(1)
	}

	// Composition cache: Redis when configured, otherwise in-process unless
	// CACHE_SIZE is 0.
	var looker domain.Looker = refiner
	var redisStore *cache.RedisStore
	switch {
	case cfg.RedisAddr != "":
		redisStore, err = cache.NewRedisStore(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		looker = cache.NewCachedLooker(refiner, redisStore, cfg.Options, metrics, logger)
		logger.Info("redis composition cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	case cfg.CacheSize > 0:
		looker = cache.NewCachedLooker(refiner, cache.NewMemoryStore(cfg.CacheSize), cfg.Options, metrics, logger)
		logger.Info("in-memory composition cache enabled", "cache_size", cfg.CacheSize)
	default:
		logger.Info("composition cache disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(looker, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, looker, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start lookup pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"timetracker/internal/auth"
	"timetracker/internal/backend"
	"timetracker/internal/cache"
	"timetracker/internal/cli"
	apphttp "timetracker/internal/http"
	"timetracker/internal/log"
	"timetracker/internal/middleware/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	for _, c := range result.Caches {
		caches.Register(c)
	}
	caches.Start(context.Background(), time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, apphttp.Options{
		Logger:       logger,
		Auth:         auth.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthJWTIssuer},
		LoginURL:     cfg.AuthLoginURL,
		StoreTimeout: cfg.StoreTimeout,
		RateLimit:    ratelimit.DefaultConfig(),
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting timetracker server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// Package main provides the LaTeX Render API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/luisedmundo354/latex-render-api/internal/compile"
	"github.com/luisedmundo354/latex-render-api/internal/config"
	"github.com/luisedmundo354/latex-render-api/internal/observability"
	"github.com/luisedmundo354/latex-render-api/internal/storage"
)

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "latex-render-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("storage_configured", cfg.Storage.Configured()).
		Msg("Starting LaTeX Render API")

	// The object store is optional at startup so /health stays useful on a
	// half-configured box; presign and compile report the gap per request.
	var store *storage.Client
	if cfg.Storage.Configured() {
		store, err = storage.New(context.Background(), logger.WithComponent("storage"), storage.Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			Bucket:       cfg.Storage.Bucket,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create storage client")
		}
	} else {
		logger.Warn().Msg("Object storage not configured; presign and compile will fail")
	}

	compiler := compile.New(logger.WithComponent("compile"), compile.Config{
		DriverTimeout:   cfg.Compile.DriverTimeout,
		PassTimeout:     cfg.Compile.PassTimeout,
		BibTimeout:      cfg.Compile.BibTimeout,
		LogTailBytes:    cfg.Compile.LogTailBytes,
		MaxArchiveBytes: cfg.Compile.MaxArchiveBytes,
	})

	router := NewRouter(logger, cfg, store, compiler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

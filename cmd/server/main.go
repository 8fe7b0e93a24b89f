package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/shoeshelf/internal/auth"
	"github.com/mmynk/shoeshelf/internal/config"
	"github.com/mmynk/shoeshelf/internal/enrichment"
	"github.com/mmynk/shoeshelf/internal/server"
	"github.com/mmynk/shoeshelf/internal/storage/sqlite"
	"github.com/mmynk/shoeshelf/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := config.Load(getEnv("SHOESHELF_CONFIG", ""))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := server.New(server.Deps{
		Store:     store,
		JWT:       auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Describer: newDescriber(cfg, logger),
		Enrich:    cfg.Enrich,
		Registry:  registry,
		Logger:    logger,
	})

	// h2c serves HTTP/2 without TLS for Connect clients.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Connect server starting", "address", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}

func newDescriber(cfg config.Config, logger *slog.Logger) enrichment.Describer {
	if cfg.OpenAI.APIKey == "" {
		logger.Info("No OpenAI key configured, using catalog describer")
		return enrichment.CatalogDescriber{}
	}
	logger.Info("Using OpenAI describer", "model", cfg.OpenAI.Model)
	return enrichment.NewOpenAIDescriber(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.Model,
		&http.Client{Timeout: cfg.RequestTimeout},
	)
}

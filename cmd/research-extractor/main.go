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

	"github.com/joho/godotenv"

	"github.com/MalithGihan/research-extractor/internal/config"
	"github.com/MalithGihan/research-extractor/internal/extract"
	"github.com/MalithGihan/research-extractor/internal/schema"
	"github.com/MalithGihan/research-extractor/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.LogLevel)

	if err := schema.Compile(); err != nil {
		logger.Error("research data schema does not compile", "error", err)
		os.Exit(1)
	}

	client, err := extract.New(extract.Options{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.ExtractTimeout,
		Config:       extract.Config{ExtractionMode: cfg.ExtractMode},
		Logger:       logger,
	})
	if err != nil {
		logger.Error("extraction client", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(client, logger, cfg.MaxUploadBytes).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("research-extractor listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func setupLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

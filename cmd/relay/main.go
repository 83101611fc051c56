package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/slack-thread-relay/internal/api/slack"
	"github.com/tjfontaine/slack-thread-relay/internal/config"
	"github.com/tjfontaine/slack-thread-relay/internal/react"
	"github.com/tjfontaine/slack-thread-relay/internal/server"
	"github.com/tjfontaine/slack-thread-relay/internal/socket"
	"github.com/tjfontaine/slack-thread-relay/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("slack-thread-relay", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	api := slack.NewClient(cfg.Slack.AppToken, cfg.Slack.BotToken,
		slack.WithBaseURL(cfg.Slack.BaseURL),
		slack.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	sequencer := react.NewSequencer(api, logger)
	supervisor := socket.New(api, sequencer, socket.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	if cfg.Server.Port > 0 {
		ops := server.New(cfg.Server.Port, logger, supervisor.Status)
		go func() {
			if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := ops.Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown", slog.String("error", err.Error()))
			}
		}()
	}

	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relay terminated", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("relay stopped")
}

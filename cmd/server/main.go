// Command server starts the CV scoring HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ept-cri/cv-scoring-service/internal/adapter/ai/mistral"
	"github.com/ept-cri/cv-scoring-service/internal/adapter/callback"
	httpserver "github.com/ept-cri/cv-scoring-service/internal/adapter/httpserver"
	"github.com/ept-cri/cv-scoring-service/internal/adapter/observability"
	"github.com/ept-cri/cv-scoring-service/internal/adapter/storage"
	"github.com/ept-cri/cv-scoring-service/internal/app"
	"github.com/ept-cri/cv-scoring-service/internal/config"
	"github.com/ept-cri/cv-scoring-service/internal/usecase"
)

func main() {
	// Best-effort .env load for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// The provider credential is the only fatal configuration error.
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Provider client and side-effect stores, constructed once and shared
	// read-only across requests.
	provider := mistral.New(cfg)
	store := storage.New(cfg.SaveDir)
	dispatcher := callback.New(cfg.CallbackTimeout)

	// Pipeline stages
	parseSvc := usecase.NewParseService(provider, store)
	scoreSvc := usecase.NewScoreService(provider, cfg.ChatModel)
	processSvc := usecase.NewProcessService(parseSvc, scoreSvc, dispatcher)
	slog.Info("pipeline services initialized",
		slog.String("ocr_model", cfg.OCRModel),
		slog.String("chat_model", cfg.ChatModel),
		slog.String("save_dir", cfg.SaveDir))

	srv := httpserver.NewServer(cfg, parseSvc, scoreSvc, processSvc)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

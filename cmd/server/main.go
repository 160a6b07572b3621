package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/robfig/cron/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/spendlens/backend/internal/analytics"
	"github.com/spendlens/backend/internal/assistant"
	"github.com/spendlens/backend/internal/auth"
	"github.com/spendlens/backend/internal/config"
	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/receipt"
	"github.com/spendlens/backend/internal/server"
	"github.com/spendlens/backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Env == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var st store.Store
	if cfg.UseMemoryStore {
		logger.Info("using in-memory expense store")
		st = store.NewMemoryStore()
	} else {
		client, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("create firestore client: %w", err)
		}
		defer client.Close()
		st = store.NewFirestoreStore(client)
	}

	var authn func(http.Handler) http.Handler
	if cfg.SkipAuth || cfg.UseMemoryStore {
		authn = auth.LocalDevMiddleware(logger)
	} else {
		verifier, err := auth.NewFirebaseVerifier(ctx)
		if err != nil {
			return fmt.Errorf("initialize firebase auth: %w", err)
		}
		authn = auth.Middleware(verifier, logger)
	}

	gateway := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, logger)

	contexts := assistant.NewContextStore()
	classifier := assistant.NewIntentClassifier(gateway, logger)
	normalizer := assistant.NewCategoryNormalizer(gateway, logger)
	extractor := assistant.NewExpenseExtractor(gateway, normalizer, logger)
	interpreter := assistant.NewQueryInterpreter(gateway, normalizer, st, logger)
	orchestrator := assistant.NewOrchestrator(classifier, extractor, interpreter, gateway, st, contexts, logger)

	analyticsService := analytics.NewService(st, logger)

	// No OCR backend is wired yet; receipts with a PDF text layer still
	// parse, image uploads report that OCR is unavailable.
	receipts := receipt.NewService(nil, nil, normalizer, logger)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 10m", func() {
		if removed := contexts.Sweep(); removed > 0 {
			logger.Debug("swept expired conversation contexts", "removed", removed)
		}
	}); err != nil {
		return fmt.Errorf("schedule context sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.New(orchestrator, analyticsService, receipts, st, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(srv.Handler(authn, cfg.AllowedOrigins), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Package main is the entrypoint for the Ana analysis API server.
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

	"github.com/anahq/ana/internal/api"
	"github.com/anahq/ana/internal/api/handler"
	mw "github.com/anahq/ana/internal/api/middleware"
	"github.com/anahq/ana/internal/cache"
	"github.com/anahq/ana/internal/config"
	"github.com/anahq/ana/internal/review"
	"github.com/anahq/ana/internal/store"
	"github.com/anahq/ana/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "webhook_endpoint", cfg.Webhook.Endpoint)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create webhook client
	var signer webhook.Signer
	if cfg.IsProduction() {
		signer = webhook.NewHMACSigner(cfg.Webhook.Secret)
	} else {
		signer = webhook.NewDevSigner(cfg.Webhook.Secret)
	}

	headers := map[string]string{}
	if cfg.Webhook.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Webhook.Token
	}
	todClient, err := webhook.NewClient(cfg.Webhook.Endpoint, signer, webhook.Config{
		Timeout: cfg.Webhook.Timeout,
		Retries: cfg.Webhook.Retries,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("create webhook client: %w", err)
	}
	slog.Info("webhook client initialized", "endpoint", todClient.Endpoint())

	// 6. Create store and analyzers
	pgStore := store.NewPostgresStore(pool)
	reviewAnalyzer := review.NewAnalyzer(cfg.Review.BotLogin)

	// 7. Build router with dependencies
	analyze := handler.NewAnalyze(pgStore, redisCache, todClient, reviewAnalyzer)
	runs := handler.NewRuns(pgStore)
	health := handler.NewHealth(pgStore, redisCache)
	webhookStatus := handler.NewWebhookStatus(todClient)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.APITokenHash),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:        health.Check,
		AnalyzeLogsHandler:   analyze.Logs,
		AnalyzeVercelHandler: analyze.Vercel,
		AnalyzeReviewHandler: analyze.Review,
		ListRunsHandler:      runs.List,
		GetRunHandler:        runs.Get,
		WebhookStatusHandler: webhookStatus.Status,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/nyashahama/learnhub-payments/internal/api"
	"github.com/nyashahama/learnhub-payments/internal/cache"
	"github.com/nyashahama/learnhub-payments/internal/config"
	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/directory"
	"github.com/nyashahama/learnhub-payments/internal/email"
	"github.com/nyashahama/learnhub-payments/internal/payments"
	"github.com/nyashahama/learnhub-payments/internal/probe"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)
	if cfg.StripeWebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set: webhook signatures are NOT verified")
	}

	// Root context cancelled by OS signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, queries, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	defer queries.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	// ── Catalog ───────────────────────────────────────────────────────────────
	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// ── Stripe ────────────────────────────────────────────────────────────────
	gateway := stripeinternal.NewClient(stripeinternal.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})

	// ── Email (Resend) ────────────────────────────────────────────────────────
	var mailer email.Sender
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, cfg.BaseURL)
	} else {
		mailer = email.NewNopSender(logger)
		logger.Info("email: RESEND_API_KEY not set, logging emails instead")
	}

	// ── Status cache (optional) ───────────────────────────────────────────────
	deps := map[string]probe.Pinger{"postgres": st}
	var statusCache cache.StatusCache = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.Open(ctx, cfg.RedisURL, cfg.StatusCacheTTL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		statusCache = rc
		deps["redis"] = rc
		logger.Info("status cache enabled", "ttl", cfg.StatusCacheTTL)
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := payments.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ── Payments ──────────────────────────────────────────────────────────────
	intents := payments.NewIntentCreator(gateway, st, catalog, metrics, payments.IntentConfig{
		DefaultReturnURL:  cfg.DefaultReturnURL,
		DefaultFailureURL: cfg.DefaultFailureURL,
		MaxAttempts:       cfg.GatewayCreateAttempts,
	}, logger)

	reconciler := payments.NewReconciler(
		gateway,
		st,
		directory.NewPostgres(queries),
		catalog,
		mailer,
		metrics,
		payments.ReconcilerConfig{OpsEmail: cfg.OpsEmail},
		logger,
	)

	checker := probe.NewChecker(deps, 2*time.Second, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Intents:    intents,
		Reconciler: reconciler,
		Verifier:   gateway,
		Ledger:     st,
		Cache:      statusCache,
		Health:     checker,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, api.Config{
		Env:                     cfg.Env,
		AllowedOrigin:           cfg.AllowedOrigin,
		PreferenceRatePerMinute: cfg.PreferenceRateLimit,
		PreferenceRateBurst:     cfg.PreferenceRateBurst,
	}, logger)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	probe.Register(grpcSrv, checker)

	// ── Listener (HTTP and gRPC share the port) ───────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.Any())

	serverErr := make(chan error, 3)
	go func() {
		if err := grpcSrv.Serve(grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := srv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("server listening", "addr", lis.Addr().String())
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests up to 20 seconds to finish. A webhook cut off
	// here is simply redelivered.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	grpcSrv.GracefulStop()
	mux.Close()

	logger.Info("shutdown complete")
	return nil
}

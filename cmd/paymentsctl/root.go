package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyashahama/learnhub-payments/internal/config"
	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/directory"
	"github.com/nyashahama/learnhub-payments/internal/email"
	"github.com/nyashahama/learnhub-payments/internal/payments"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paymentsctl",
		Short: "Operate the LearnHub payments service",
		Long: `paymentsctl applies schema migrations and settles payments that the
webhook path recorded without granting an entitlement.

Configuration is read from the same environment (and .env file) as the API
server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newUnresolvedCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newReconcileCmd())
	return root
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// app is the subset of the server's wiring the reconciliation commands need.
// There is no HTTP, cache or metrics here.
type app struct {
	pool       *sql.DB
	queries    *db.Queries
	store      *store.Store
	reconciler *payments.Reconciler
}

func openApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	pool, queries, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	st := store.New(pool, queries)

	var mailer email.Sender = email.NewNopSender(logger)
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, cfg.BaseURL)
	}

	gateway := stripeinternal.NewClient(stripeinternal.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})

	rec := payments.NewReconciler(
		gateway,
		st,
		directory.NewPostgres(queries),
		catalog,
		mailer,
		nil, // no metrics registry in a one-shot process
		payments.ReconcilerConfig{OpsEmail: cfg.OpsEmail},
		logger,
	)
	return &app{pool: pool, queries: queries, store: st, reconciler: rec}, nil
}

func (a *app) Close() {
	_ = a.queries.Close()
	_ = a.pool.Close()
}

// withApp opens the app for the duration of fn. Logs go to stderr so stdout
// stays parseable.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

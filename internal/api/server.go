// Package api implements the HTTP layer for the payments service. Handlers are
// methods on *Server. Each handler file is responsible for one route group and
// only touches the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/nyashahama/learnhub-payments/internal/cache"
	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/payments"
	"github.com/nyashahama/learnhub-payments/internal/probe"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AllowedOrigin is echoed in CORS responses in production. Outside
	// production the request origin is echoed back.
	AllowedOrigin string

	// PreferenceRatePerMinute and PreferenceRateBurst bound create-preference
	// calls per client IP. Zero disables the limit.
	PreferenceRatePerMinute int
	PreferenceRateBurst     int
}

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// IntentCreator starts checkouts. *payments.IntentCreator satisfies it.
type IntentCreator interface {
	CreateIntent(ctx context.Context, spec payments.PaymentIntentSpec) (payments.RedirectTarget, error)
}

// Reconciler processes webhook deliveries. *payments.Reconciler satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, env payments.Envelope) (payments.Result, error)
}

// WebhookVerifier checks the gateway signature on a raw webhook body.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) error
}

// LedgerReader resolves a status lookup. *store.Store satisfies it.
type LedgerReader interface {
	Lookup(ctx context.Context, id string) (db.PaymentLedger, error)
}

// HealthChecker reports dependency reachability. *probe.Checker satisfies it.
type HealthChecker interface {
	Run(ctx context.Context) probe.Report
}

// Deps groups the collaborators NewServer wires into handlers. Cache, Health
// and Metrics are optional.
type Deps struct {
	Intents    IntentCreator
	Reconciler Reconciler
	Verifier   WebhookVerifier
	Ledger     LedgerReader
	Cache      cache.StatusCache
	Health     HealthChecker

	// Metrics serves /metrics when set, usually promhttp.HandlerFor(reg, …).
	Metrics http.Handler
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	intents    IntentCreator
	reconciler Reconciler
	verifier   WebhookVerifier
	ledger     LedgerReader
	cache      cache.StatusCache
	health     HealthChecker
	metrics    http.Handler

	validate *validator.Validate
	limiter  *rateLimiter

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	s := &Server{
		intents:    deps.Intents,
		reconciler: deps.Reconciler,
		verifier:   deps.Verifier,
		ledger:     deps.Ledger,
		cache:      deps.Cache,
		health:     deps.Health,
		metrics:    deps.Metrics,
		validate:   newValidator(),
		limiter:    newRateLimiter(cfg.PreferenceRatePerMinute, cfg.PreferenceRateBurst),
		cfg:        cfg,
		logger:     logger,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Operational ───────────────────────────────────────────────────────────
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// ── Payments ──────────────────────────────────────────────────────────────
	r.Route("/payments", func(r chi.Router) {
		// Checkout creation is the only unauthenticated write, so it is the
		// only rate-limited route.
		r.With(s.rateLimitMiddleware).Post("/create-preference", s.handleCreatePreference)

		// Gateway webhook: signature verification inside the handler.
		r.Post("/webhook", s.handleWebhook)

		r.Get("/status/{id}", s.handleGetStatus)
	})

	return r
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	rep := s.health.Run(r.Context())
	if !rep.Healthy {
		respond(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"failed": rep.Failed,
		})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

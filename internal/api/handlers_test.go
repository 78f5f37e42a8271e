package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/learnhub-payments/internal/api"
	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/payments"
	"github.com/nyashahama/learnhub-payments/internal/probe"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubIntents records the last spec and returns a canned target or error.
type stubIntents struct {
	mu     sync.Mutex
	specs  []payments.PaymentIntentSpec
	target payments.RedirectTarget
	err    error
}

func (s *stubIntents) CreateIntent(_ context.Context, spec payments.PaymentIntentSpec) (payments.RedirectTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, spec)
	return s.target, s.err
}

// stubReconciler records every envelope it is handed.
type stubReconciler struct {
	envs []payments.Envelope
	res  payments.Result
	err  error
}

func (s *stubReconciler) Reconcile(_ context.Context, env payments.Envelope) (payments.Result, error) {
	s.envs = append(s.envs, env)
	res := s.res
	res.PaymentID = env.PaymentID
	return res, s.err
}

type stubVerifier struct {
	err error
}

func (v *stubVerifier) VerifyWebhook(_ []byte, _ string) error { return v.err }

// stubLedger serves Lookup from a map keyed by every lookup key.
type stubLedger struct {
	rows    map[string]db.PaymentLedger
	err     error
	lookups int
}

func (l *stubLedger) add(row db.PaymentLedger) {
	l.rows[row.ID.String()] = row
	l.rows[row.ExternalReference] = row
	if row.ExternalPaymentID.Valid {
		l.rows[row.ExternalPaymentID.String] = row
	}
}

func (l *stubLedger) Lookup(_ context.Context, id string) (db.PaymentLedger, error) {
	l.lookups++
	if l.err != nil {
		return db.PaymentLedger{}, l.err
	}
	row, ok := l.rows[id]
	if !ok {
		return db.PaymentLedger{}, store.ErrNotFound
	}
	return row, nil
}

// memCache is an in-memory cache.StatusCache.
type memCache struct {
	entries map[string][]byte
}

func (c *memCache) Get(_ context.Context, id string) ([]byte, bool, error) {
	b, ok := c.entries[id]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, ids []string, body []byte) error {
	for _, id := range ids {
		if id != "" {
			c.entries[id] = body
		}
	}
	return nil
}

type stubHealth struct {
	rep probe.Report
}

func (h *stubHealth) Run(context.Context) probe.Report { return h.rep }

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	intents    *stubIntents
	reconciler *stubReconciler
	verifier   *stubVerifier
	ledger     *stubLedger
	cache      *memCache
	health     *stubHealth
	handler    http.Handler
}

func newTestServer(t *testing.T, cfgOverrides ...func(*api.Config)) *testDeps {
	t.Helper()

	d := &testDeps{
		intents: &stubIntents{target: payments.RedirectTarget{
			LedgerID:          uuid.New(),
			IntentID:          "cs_test_1",
			RedirectURL:       "https://checkout.stripe.test/c/cs_test_1",
			ExternalReference: "premium_1700000000000",
		}},
		reconciler: &stubReconciler{res: payments.Result{Outcome: payments.OutcomeApplied}},
		verifier:   &stubVerifier{},
		ledger:     &stubLedger{rows: map[string]db.PaymentLedger{}},
		cache:      &memCache{entries: map[string][]byte{}},
		health:     &stubHealth{rep: probe.Report{Healthy: true}},
	}

	cfg := api.Config{Env: "development"}
	for _, fn := range cfgOverrides {
		fn(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d.handler = api.NewServer(api.Deps{
		Intents:    d.intents,
		Reconciler: d.reconciler,
		Verifier:   d.verifier,
		Ledger:     d.ledger,
		Cache:      d.cache,
		Health:     d.health,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		}),
	}, cfg, logger)
	return d
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestHealthz_DependencyDown(t *testing.T) {
	deps := newTestServer(t)
	deps.health.rep = probe.Report{Failed: map[string]string{"postgres": "connection refused"}}

	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "postgres")
}

func TestMetricsRoute(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "# metrics")
}

// ─── POST /payments/create-preference ─────────────────────────────────────────

func TestCreatePreference_ReturnsCheckout(t *testing.T) {
	deps := newTestServer(t)
	user := uuid.New()

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference", map[string]any{
		"planTier":   "premium",
		"courseName": " Go for Teams ",
		"payerInfo":  map[string]string{"name": "Ada", "email": "a@b.com"},
		"returnUrl":  "https://learnhub.test/thanks",
		"userId":     user.String(),
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		ID                string `json:"id"`
		InitPoint         string `json:"init_point"`
		ExternalReference string `json:"external_reference"`
	}
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "cs_test_1", resp.ID)
	assert.Equal(t, "https://checkout.stripe.test/c/cs_test_1", resp.InitPoint)
	assert.Equal(t, "premium_1700000000000", resp.ExternalReference)

	require.Len(t, deps.intents.specs, 1)
	spec := deps.intents.specs[0]
	assert.Equal(t, "premium", spec.PlanTier)
	assert.Equal(t, "Go for Teams", spec.CourseContext)
	assert.Equal(t, "Ada", spec.PayerName)
	assert.Equal(t, "a@b.com", spec.PayerEmail)
	assert.Equal(t, "https://learnhub.test/thanks", spec.ReturnURL)
	assert.Equal(t, uuid.NullUUID{UUID: user, Valid: true}, spec.UserID)
}

func TestCreatePreference_OnlyPlanTierRequired(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference",
		map[string]string{"planTier": "enterprise"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.False(t, deps.intents.specs[0].UserID.Valid)
}

func TestCreatePreference_InvalidPlan(t *testing.T) {
	deps := newTestServer(t)
	deps.intents.err = fmt.Errorf("%w: gold", payments.ErrInvalidPlan)

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference",
		map[string]string{"planTier": "gold"}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "InvalidPlan", resp["code"])
}

func TestCreatePreference_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		contain string
	}{
		{"missing plan", map[string]string{}, "planTier: required"},
		{"bad email", map[string]any{"planTier": "premium", "payerInfo": map[string]string{"email": "nope"}}, "payerInfo.email: email"},
		{"bad return url", map[string]string{"planTier": "premium", "returnUrl": "not a url"}, "returnUrl: url"},
		{"bad user id", map[string]string{"planTier": "premium", "userId": "42"}, "userId: uuid"},
		{"unknown field", map[string]string{"planTier": "premium", "price": "1"}, "unknown field"},
		{"malformed json", `{"planTier":`, "invalid request body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestServer(t)
			rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.contain)
			assert.Empty(t, deps.intents.specs)
		})
	}
}

func TestCreatePreference_GatewayFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unavailable", fmt.Errorf("%w: 503", payments.ErrGatewayUnavailable), "GatewayUnavailable"},
		{"rejected", fmt.Errorf("%w: bad key", payments.ErrGatewayRejected), "GatewayRejected"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestServer(t)
			deps.intents.err = tc.err

			rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference",
				map[string]string{"planTier": "premium"}, nil)
			require.Equal(t, http.StatusInternalServerError, rr.Code)
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			assert.Equal(t, tc.code, resp["code"])
		})
	}
}

func TestCreatePreference_InternalErrorHidesDetails(t *testing.T) {
	deps := newTestServer(t)
	deps.intents.err = errors.New("pq: relation payment_ledger does not exist")

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference",
		map[string]string{"planTier": "premium"}, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "payment_ledger")
}

func TestCreatePreference_RateLimitedPerIP(t *testing.T) {
	deps := newTestServer(t, func(c *api.Config) {
		c.PreferenceRatePerMinute = 1
		c.PreferenceRateBurst = 2
	})
	body := map[string]string{"planTier": "premium"}

	for i := 0; i < 2; i++ {
		rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference", body,
			map[string]string{"X-Real-IP": "203.0.113.7"})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference", body,
		map[string]string{"X-Real-IP": "203.0.113.7"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Another client still has its own budget.
	rr = doRequest(t, deps.handler, http.MethodPost, "/payments/create-preference", body,
		map[string]string{"X-Real-IP": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Other routes are not limited.
	rr = doRequest(t, deps.handler, http.MethodPost, "/payments/webhook", `{}`,
		map[string]string{"X-Real-IP": "203.0.113.7"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

// ─── POST /payments/webhook ───────────────────────────────────────────────────

func TestWebhook_AcknowledgesWithOutcome(t *testing.T) {
	deps := newTestServer(t)

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook",
		`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`,
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	assert.Equal(t, "applied", resp["outcome"])

	require.Len(t, deps.reconciler.envs, 1)
	assert.Equal(t, "pi_1", deps.reconciler.envs[0].PaymentID)
	assert.Equal(t, "payment_intent.succeeded", deps.reconciler.envs[0].Topic)
}

func TestWebhook_QueryStringShape(t *testing.T) {
	deps := newTestServer(t)

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook?topic=payment&id=PAY123", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, deps.reconciler.envs, 1)
	assert.Equal(t, "PAY123", deps.reconciler.envs[0].PaymentID)
	assert.Equal(t, "payment", deps.reconciler.envs[0].Topic)
}

func TestWebhook_InvalidSignatureIsRejected(t *testing.T) {
	deps := newTestServer(t)
	deps.verifier.err = stripeinternal.ErrInvalidSignature

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook", `{"topic":"payment","id":"1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, deps.reconciler.envs, "forged deliveries never reach the reconciler")
}

func TestWebhook_ReconcileErrorRequestsRedelivery(t *testing.T) {
	deps := newTestServer(t)
	deps.reconciler.err = fmt.Errorf("%w: timeout", payments.ErrGatewayUnavailable)

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook", `{"topic":"payment","data":{"id":"PAY123"}}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "timeout")
}

func TestWebhook_MalformedBodyIsAcknowledged(t *testing.T) {
	deps := newTestServer(t)
	deps.reconciler.res = payments.Result{Outcome: payments.OutcomeIrrelevant}

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook", `{not json`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, deps.reconciler.envs, 1)
	assert.Empty(t, deps.reconciler.envs[0].PaymentID)
}

func TestWebhook_OversizedBody(t *testing.T) {
	deps := newTestServer(t)
	big := `{"topic":"payment","pad":"` + strings.Repeat("x", 70000) + `"}`

	rr := doRequest(t, deps.handler, http.MethodPost, "/payments/webhook", big, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, deps.reconciler.envs)
}

// ─── GET /payments/status/{id} ────────────────────────────────────────────────

func ledgerRow(status db.LedgerStatus) db.PaymentLedger {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return db.PaymentLedger{
		ID:                uuid.New(),
		ExternalReference: "premium_1700000000000",
		ExternalPaymentID: nullString("PAY123"),
		PlanTier:          db.PlanTierPremium,
		AmountCents:       2900,
		Currency:          "usd",
		Status:            status,
		PayerEmail:        nullString("a@b.com"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestStatus_NotFound(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/payments/status/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatus_LookupByAnyKey(t *testing.T) {
	deps := newTestServer(t)
	row := ledgerRow(db.LedgerStatusPending)
	deps.ledger.add(row)

	for _, key := range []string{row.ID.String(), "PAY123", "premium_1700000000000"} {
		rr := doRequest(t, deps.handler, http.MethodGet, "/payments/status/"+key, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code, key)

		var resp map[string]any
		decodeJSON(t, rr, &resp)
		assert.Equal(t, row.ID.String(), resp["id"])
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, "premium", resp["plan_tier"])
		assert.NotContains(t, resp, "payer_email")
	}
	assert.Empty(t, deps.cache.entries, "pending rows are not cached")
}

func TestStatus_ApprovedIsServedFromCache(t *testing.T) {
	deps := newTestServer(t)
	row := ledgerRow(db.LedgerStatusApproved)
	deps.ledger.add(row)

	first := doRequest(t, deps.handler, http.MethodGet, "/payments/status/PAY123", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, deps.ledger.lookups)
	assert.Contains(t, deps.cache.entries, row.ID.String())
	assert.Contains(t, deps.cache.entries, "premium_1700000000000")

	second := doRequest(t, deps.handler, http.MethodGet, "/payments/status/"+row.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, deps.ledger.lookups, "second read is a cache hit")
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestStatus_FlaggedRowsAreNotCached(t *testing.T) {
	deps := newTestServer(t)
	row := ledgerRow(db.LedgerStatusApproved)
	row.NeedsReview = true
	deps.ledger.add(row)

	rr := doRequest(t, deps.handler, http.MethodGet, "/payments/status/PAY123", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, deps.cache.entries)
}

func TestStatus_StoreError(t *testing.T) {
	deps := newTestServer(t)
	deps.ledger.err = errors.New("connection reset")

	rr := doRequest(t, deps.handler, http.MethodGet, "/payments/status/PAY123", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_Preflight(t *testing.T) {
	deps := newTestServer(t, func(c *api.Config) {
		c.Env = "production"
		c.AllowedOrigin = "https://learnhub.test"
	})
	rr := doRequest(t, deps.handler, http.MethodOptions, "/payments/create-preference", nil,
		map[string]string{"Origin": "https://evil.test"})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://learnhub.test", rr.Header().Get("Access-Control-Allow-Origin"))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

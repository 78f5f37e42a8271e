package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

var fixedNow = time.UnixMilli(1700000000000).UTC()

func newTestCreator(t *testing.T, gw *fakeGateway, ledger *fakeLedger) (*IntentCreator, *Metrics) {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := NewIntentCreator(gw, ledger, testCatalog(), m, IntentConfig{
		DefaultReturnURL:  "https://learnhub.test/paid",
		DefaultFailureURL: "https://learnhub.test/cancelled",
	}, discardLogger())
	c.now = func() time.Time { return fixedNow }
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c, m
}

func TestCreateIntent_Success(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	c, m := newTestCreator(t, gw, ledger)
	user := uuid.New()

	target, err := c.CreateIntent(context.Background(), PaymentIntentSpec{
		PlanTier:      "Premium",
		CourseContext: "go-101",
		PayerEmail:    " a@b.com ",
		UserID:        uuid.NullUUID{UUID: user, Valid: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "premium_1700000000000", target.ExternalReference)
	assert.Equal(t, "cs_premium_1700000000000", target.IntentID)
	assert.Equal(t, "https://checkout.test/cs_premium_1700000000000", target.RedirectURL)

	row := ledger.get(target.LedgerID)
	assert.Equal(t, db.LedgerStatusPending, row.Status)
	assert.Equal(t, db.PlanTierPremium, row.PlanTier)
	assert.Equal(t, int64(2900), row.AmountCents)
	assert.Equal(t, "cs_premium_1700000000000", row.GatewayIntentID.String)

	require.Len(t, gw.creates, 1)
	sent := gw.creates[0]
	assert.Equal(t, "premium_1700000000000", sent.ExternalReference)
	assert.Equal(t, "usd", sent.Currency)
	assert.Equal(t, "https://learnhub.test/paid", sent.SuccessURL)
	assert.Equal(t, "https://learnhub.test/cancelled", sent.FailureURL)
	assert.Equal(t, "premium", sent.Metadata[stripeinternal.MetaPlanTier])
	assert.Equal(t, user.String(), sent.Metadata[stripeinternal.MetaUserID])
	assert.Equal(t, "a@b.com", sent.Metadata[stripeinternal.MetaPayerEmail])
	assert.Equal(t, "go-101", sent.Metadata[stripeinternal.MetaCourse])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.intents.WithLabelValues("created")))
}

func TestCreateIntent_InvalidPlan(t *testing.T) {
	for _, tier := range []string{"", "gold", "free"} {
		t.Run(tier, func(t *testing.T) {
			gw, ledger := newFakeGateway(), newFakeLedger()
			c, _ := newTestCreator(t, gw, ledger)

			_, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: tier})
			assert.ErrorIs(t, err, ErrInvalidPlan)
			assert.Empty(t, gw.creates)
			assert.Empty(t, ledger.rows)
		})
	}
}

func TestCreateIntent_RetriesTransientFailures(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	gw.createErrs = []error{
		fmt.Errorf("%w: 503", stripeinternal.ErrUnavailable),
		fmt.Errorf("%w: timeout", stripeinternal.ErrUnavailable),
		nil,
	}
	c, m := newTestCreator(t, gw, ledger)

	target, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: "enterprise"})
	require.NoError(t, err)

	assert.Len(t, gw.creates, 3)
	for _, p := range gw.creates {
		assert.Equal(t, target.ExternalReference, p.ExternalReference, "every attempt reuses the idempotency key")
	}
	assert.Equal(t, db.LedgerStatusPending, ledger.get(target.LedgerID).Status)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.gatewayAttempts))
}

func TestCreateIntent_GatewayStaysDown(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	down := fmt.Errorf("%w: 502", stripeinternal.ErrUnavailable)
	gw.createErrs = []error{down, down, down, down}
	c, m := newTestCreator(t, gw, ledger)

	_, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: "premium"})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Len(t, gw.creates, 3)

	require.Len(t, ledger.rows, 1)
	for _, row := range ledger.rows {
		assert.Equal(t, db.LedgerStatusRejected, row.Status, "no PENDING row without a gateway object")
		assert.False(t, row.GatewayIntentID.Valid)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.intents.WithLabelValues("gateway_error")))
}

func TestCreateIntent_PermanentRejectionIsNotRetried(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	gw.createErrs = []error{errors.New("stripe: invalid currency")}
	c, _ := newTestCreator(t, gw, ledger)

	_, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: "premium"})
	require.ErrorIs(t, err, ErrGatewayRejected)
	assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	assert.Len(t, gw.creates, 1)
}

func TestCreateIntent_ReferenceCollision(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	ledger.createErrs = []error{store.ErrDuplicateReference}
	c, _ := newTestCreator(t, gw, ledger)

	target, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: "premium"})
	require.NoError(t, err)
	assert.Equal(t, "premium_1700000000001", target.ExternalReference)
}

func TestCreateIntent_StoreFailure(t *testing.T) {
	gw, ledger := newFakeGateway(), newFakeLedger()
	ledger.createErrs = []error{errBoom}
	c, _ := newTestCreator(t, gw, ledger)

	_, err := c.CreateIntent(context.Background(), PaymentIntentSpec{PlanTier: "premium"})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, gw.creates, "gateway is never called without a ledger row")
}

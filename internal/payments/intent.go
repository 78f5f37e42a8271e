package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/plans"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

// PaymentIntentSpec is a request to start a checkout.
type PaymentIntentSpec struct {
	PlanTier      string
	CourseContext string
	PayerName     string
	PayerEmail    string
	ReturnURL     string
	FailureURL    string

	// UserID is set when the payer was authenticated when starting checkout.
	UserID uuid.NullUUID
}

// RedirectTarget tells the client where to complete payment.
type RedirectTarget struct {
	LedgerID          uuid.UUID
	IntentID          string
	RedirectURL       string
	ExternalReference string
}

// IntentConfig holds the intent creator's settings.
type IntentConfig struct {
	DefaultReturnURL  string
	DefaultFailureURL string

	// MaxAttempts bounds gateway create calls per intent. Defaults to 3.
	MaxAttempts int

	// InitialBackoff is the first retry delay; later delays grow
	// exponentially. Defaults to 200ms.
	InitialBackoff time.Duration
}

// IntentCreator writes the PENDING ledger row and creates the matching
// gateway checkout.
type IntentCreator struct {
	gateway Gateway
	store   IntentStore
	catalog *plans.Catalog
	metrics *Metrics
	cfg     IntentConfig
	logger  *slog.Logger

	now         func() time.Time
	newBackOff  func() backoff.BackOff
	maxRefTries int
}

// NewIntentCreator wires an IntentCreator.
func NewIntentCreator(gw Gateway, st IntentStore, catalog *plans.Catalog, metrics *Metrics, cfg IntentConfig, logger *slog.Logger) *IntentCreator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	c := &IntentCreator{
		gateway:     gw,
		store:       st,
		catalog:     catalog,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		maxRefTries: 3,
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.cfg.InitialBackoff
		b.MaxInterval = 2 * time.Second
		b.MaxElapsedTime = 0
		return b
	}
	return c
}

// CreateIntent validates the plan, persists a PENDING ledger row and creates
// the gateway checkout. If the gateway never accepts the request the row is
// marked REJECTED before the error is returned.
func (c *IntentCreator) CreateIntent(ctx context.Context, spec PaymentIntentSpec) (RedirectTarget, error) {
	plan, err := c.catalog.Lookup(spec.PlanTier)
	if err != nil {
		c.metrics.observeIntent("invalid_plan")
		return RedirectTarget{}, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	row, err := c.insertPending(ctx, plan, spec)
	if err != nil {
		c.metrics.observeIntent("store_error")
		return RedirectTarget{}, err
	}
	log := c.logger.With("ledger_id", row.ID, "external_reference", row.ExternalReference)

	ref, err := c.createWithRetry(ctx, stripeinternal.CreateIntentParams{
		ExternalReference: row.ExternalReference,
		Title:             plan.Title,
		AmountCents:       plan.AmountCents,
		Currency:          c.catalog.Currency(),
		PayerEmail:        spec.PayerEmail,
		SuccessURL:        firstNonEmpty(spec.ReturnURL, c.cfg.DefaultReturnURL),
		FailureURL:        firstNonEmpty(spec.FailureURL, c.cfg.DefaultFailureURL),
		Metadata:          intentMetadata(plan, spec),
	})
	if err != nil {
		// The row must not stay PENDING without a gateway object behind it.
		if markErr := c.store.MarkIntentRejected(context.WithoutCancel(ctx), row.ID, err.Error()); markErr != nil {
			log.Error("could not mark failed intent rejected", "error", markErr)
		}
		c.metrics.observeIntent("gateway_error")
		log.Warn("gateway create failed", "error", err)
		return RedirectTarget{}, err
	}

	if _, err := c.store.AttachGatewayIntent(ctx, row.ID, ref.ID); err != nil {
		// The checkout exists and the webhook can still adopt the row by
		// reference, so the payer is not blocked.
		log.Error("attach gateway intent failed", "intent_id", ref.ID, "error", err)
	}

	c.metrics.observeIntent("created")
	log.Info("checkout created", "intent_id", ref.ID, "plan_tier", plan.Tier)

	return RedirectTarget{
		LedgerID:          row.ID,
		IntentID:          ref.ID,
		RedirectURL:       ref.RedirectURL,
		ExternalReference: row.ExternalReference,
	}, nil
}

// insertPending writes the PENDING row, moving the reference timestamp
// forward on the rare collision.
func (c *IntentCreator) insertPending(ctx context.Context, plan plans.Plan, spec PaymentIntentSpec) (db.PaymentLedger, error) {
	at := c.now()
	for try := 0; ; try++ {
		row, err := c.store.CreatePending(ctx, store.CreatePendingParams{
			ExternalReference: plans.Reference(plan.Tier, at),
			UserID:            spec.UserID,
			Tier:              db.PlanTier(plan.Tier),
			AmountCents:       plan.AmountCents,
			Currency:          c.catalog.Currency(),
			PayerEmail:        strings.TrimSpace(spec.PayerEmail),
			CourseContext:     spec.CourseContext,
		})
		if errors.Is(err, store.ErrDuplicateReference) && try+1 < c.maxRefTries {
			at = at.Add(time.Millisecond)
			continue
		}
		if err != nil {
			return db.PaymentLedger{}, fmt.Errorf("payments: create pending row: %w", err)
		}
		return row, nil
	}
}

// createWithRetry calls the gateway until it succeeds, fails permanently or
// MaxAttempts is spent. The external reference is the idempotency key, so a
// retried call never creates a second checkout.
func (c *IntentCreator) createWithRetry(ctx context.Context, p stripeinternal.CreateIntentParams) (stripeinternal.IntentRef, error) {
	var ref stripeinternal.IntentRef
	op := func() error {
		c.metrics.observeGatewayAttempt()
		var err error
		ref, err = c.gateway.CreatePaymentIntent(ctx, p)
		if err != nil && !errors.Is(err, stripeinternal.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, stripeinternal.ErrUnavailable) {
			return stripeinternal.IntentRef{}, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		}
		if ctx.Err() != nil {
			return stripeinternal.IntentRef{}, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		}
		return stripeinternal.IntentRef{}, fmt.Errorf("%w: %w", ErrGatewayRejected, err)
	}
	return ref, nil
}

func intentMetadata(plan plans.Plan, spec PaymentIntentSpec) map[string]string {
	meta := map[string]string{
		stripeinternal.MetaPlanTier: string(plan.Tier),
	}
	if spec.UserID.Valid {
		meta[stripeinternal.MetaUserID] = spec.UserID.UUID.String()
	}
	if e := strings.TrimSpace(spec.PayerEmail); e != "" {
		meta[stripeinternal.MetaPayerEmail] = e
	}
	if spec.CourseContext != "" {
		meta[stripeinternal.MetaCourse] = spec.CourseContext
	}
	return meta
}

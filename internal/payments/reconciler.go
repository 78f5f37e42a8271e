package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/directory"
	"github.com/nyashahama/learnhub-payments/internal/email"
	"github.com/nyashahama/learnhub-payments/internal/plans"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

// maxSettleAttempts bounds how often one delivery locates its ledger row
// again after losing a conditional write. Running out asks for redelivery.
const maxSettleAttempts = 3

// ReconcilerConfig holds the reconciler's settings.
type ReconcilerConfig struct {
	// OpsEmail receives review alerts. Empty disables them.
	OpsEmail string

	// NotifyTimeout bounds each best-effort email and audit write. Defaults
	// to 5s.
	NotifyTimeout time.Duration
}

// Result describes what one Reconcile call did.
type Result struct {
	Outcome   Outcome
	PaymentID string

	LedgerID     uuid.UUID
	UserID       uuid.NullUUID
	Tier         plans.Tier
	ReviewReason string
}

// Reconciler turns webhook deliveries into ledger and entitlement changes.
// Every decision is based on a fresh gateway fetch; the delivery body is only
// a pointer. It keeps no state between calls, so any number of instances can
// run side by side.
type Reconciler struct {
	gateway   Gateway
	ledger    LedgerStore
	directory directory.Directory
	catalog   *plans.Catalog
	mailer    email.Sender
	metrics   *Metrics
	cfg       ReconcilerConfig
	logger    *slog.Logger

	now func() time.Time
}

// NewReconciler wires a Reconciler.
func NewReconciler(
	gw Gateway,
	ledger LedgerStore,
	dir directory.Directory,
	catalog *plans.Catalog,
	mailer email.Sender,
	metrics *Metrics,
	cfg ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	return &Reconciler{
		gateway:   gw,
		ledger:    ledger,
		directory: dir,
		catalog:   catalog,
		mailer:    mailer,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile processes one delivery. A nil error means "acknowledge"; any
// error means the gateway should redeliver. Duplicates, unresolved payers and
// irrelevant deliveries are outcomes, not errors.
func (r *Reconciler) Reconcile(ctx context.Context, env Envelope) (Result, error) {
	start := time.Now()
	res, err := r.reconcile(ctx, env)
	if res.PaymentID == "" {
		res.PaymentID = env.PaymentID
	}
	if err != nil {
		res.Outcome = OutcomeRetry
	}
	r.metrics.observeDelivery(res.Outcome, time.Since(start))
	r.audit(ctx, env, res, err)
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, env Envelope) (Result, error) {
	// ── Step 1: classify ─────────────────────────────────────────────────────
	if env.PaymentID == "" || !env.Relevant() {
		r.logger.Debug("webhook discarded", "topic", env.Topic, "payment_id", env.PaymentID)
		return Result{Outcome: OutcomeIrrelevant}, nil
	}
	log := r.logger.With("payment_id", env.PaymentID, "topic", env.Topic)

	// ── Step 2: authoritative refetch ────────────────────────────────────────
	rec, err := r.gateway.FetchPayment(ctx, env.PaymentID)
	if errors.Is(err, stripeinternal.ErrPaymentNotFound) {
		log.Warn("payment unknown to gateway, acknowledging")
		return Result{Outcome: OutcomeIrrelevant}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: fetch %s: %w", ErrGatewayUnavailable, env.PaymentID, err)
	}

	log = log.With("gateway_payment_id", rec.ID, "gateway_status", rec.RawStatus)

	if !rec.Approved() {
		r.recordNotApproved(ctx, rec, log)
		return Result{PaymentID: rec.ID, Outcome: OutcomeNotApproved}, nil
	}

	// After a lost CAS the row is located again: either this payment is now
	// approved (a duplicate) or the adopted row went to another payment and
	// a row is synthesized for this one.
	for attempt := 1; ; attempt++ {
		res, err := r.settle(ctx, rec, log)
		if !errors.Is(err, store.ErrLedgerWriteConflict) {
			return res, err
		}
		if attempt == maxSettleAttempts {
			return res, fmt.Errorf("payments: apply approval %s: %w", rec.ID, err)
		}
		log.Info("ledger row changed by a concurrent delivery, locating again", "attempt", attempt)
	}
}

// settle runs idempotency, correlation and apply for an approved payment. A
// lost CAS comes back as store.ErrLedgerWriteConflict.
func (r *Reconciler) settle(ctx context.Context, rec stripeinternal.PaymentRecord, log *slog.Logger) (Result, error) {
	res := Result{PaymentID: rec.ID}

	// ── Step 3: idempotency ──────────────────────────────────────────────────
	row, found, err := r.locate(ctx, rec)
	if err != nil {
		return res, err
	}
	if found {
		res.LedgerID = row.ID
		if row.Status == db.LedgerStatusApproved {
			log.Info("duplicate delivery", "ledger_id", row.ID)
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
	}
	approval := r.approvalFor(row, found, rec)
	res.Tier = plans.Tier(approval.Tier)

	// ── Step 4: correlation ──────────────────────────────────────────────────
	userID, err := r.correlate(ctx, row.UserID, rec.Metadata[stripeinternal.MetaUserID], rec.PayerEmail, log)
	if err != nil {
		return res, err
	}
	approval.UserID = userID
	if !userID.Valid && approval.ReviewReason == "" {
		approval.ReviewReason = ReasonUnresolvedUser
	}
	res.UserID = userID
	res.ReviewReason = approval.ReviewReason

	// ── Step 5: apply ────────────────────────────────────────────────────────
	applied, err := r.ledger.ApplyApproval(ctx, approval)
	if errors.Is(err, store.ErrLedgerWriteConflict) {
		return res, err
	}
	if err != nil {
		return res, fmt.Errorf("payments: apply approval %s: %w", rec.ID, err)
	}
	res.LedgerID = applied.Ledger.ID

	if applied.Superseded {
		res.Outcome = OutcomeApplied
		res.ReviewReason = ReasonSuperseded
		log.Warn("payment kept behind a higher active tier",
			"ledger_id", applied.Ledger.ID,
			"user_id", userID.UUID,
			"plan_tier", applied.Ledger.PlanTier,
			"effective_tier", applied.Entitlement.PlanTier,
		)
		r.alertReview(ctx, rec, ReasonSuperseded, log)
		return res, nil
	}

	if applied.Granted {
		res.Outcome = OutcomeApplied
		log.Info("entitlement applied",
			"ledger_id", applied.Ledger.ID,
			"user_id", userID.UUID,
			"plan_tier", applied.Ledger.PlanTier,
			"effective_tier", applied.Entitlement.PlanTier,
		)
		r.notifyUpgrade(ctx, rec, applied, log)
		return res, nil
	}

	res.Outcome = OutcomeNeedsReview
	if approval.ReviewReason == ReasonUnresolvedUser {
		res.Outcome = OutcomeUnresolvedUser
	}
	log.Warn("payment recorded without entitlement", "ledger_id", applied.Ledger.ID, "reason", approval.ReviewReason)
	r.alertReview(ctx, rec, approval.ReviewReason, log)
	return res, nil
}

// locate finds the ledger row for an approved payment: by payment id first,
// then an open row by the echoed reference. found is false when a row has to
// be synthesized.
func (r *Reconciler) locate(ctx context.Context, rec stripeinternal.PaymentRecord) (db.PaymentLedger, bool, error) {
	row, err := r.ledger.FindByPaymentID(ctx, rec.ID)
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return db.PaymentLedger{}, false, fmt.Errorf("payments: locate by payment id: %w", err)
	}

	if rec.ExternalReference == "" {
		return db.PaymentLedger{}, false, nil
	}
	row, err = r.ledger.FindOpenByReference(ctx, rec.ExternalReference)
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return db.PaymentLedger{}, false, fmt.Errorf("payments: locate by reference: %w", err)
	}
	return db.PaymentLedger{}, false, nil
}

// approvalFor builds the ledger write for an approved payment. Rows that
// already exist keep their tier and price; synthesized rows take the tier
// from metadata, the reference prefix or the amount, in that order.
func (r *Reconciler) approvalFor(row db.PaymentLedger, found bool, rec stripeinternal.PaymentRecord) store.ApplyApprovalParams {
	p := store.ApplyApprovalParams{
		ExternalPaymentID: rec.ID,
		PayerEmail:        rec.PayerEmail,
		Snapshot:          rec.Raw,
	}

	var expected int64
	if found {
		p.LedgerID = row.ID
		p.Tier = row.PlanTier
		expected = row.AmountCents
		if rec.Currency != "" && !strings.EqualFold(rec.Currency, row.Currency) {
			p.ReviewReason = ReasonAmountMismatch
		}
	} else {
		p.ExternalReference = synthesizedReference(rec)
		p.AmountCents = rec.AmountCents
		p.Currency = strings.ToLower(rec.Currency)
		tier, ok := r.tierFor(rec)
		if !ok {
			p.Tier = db.PlanTierFree
			p.ReviewReason = ReasonUnknownPlan
			return p
		}
		p.Tier = db.PlanTier(tier)
		if rec.Currency != "" && !strings.EqualFold(rec.Currency, r.catalog.Currency()) {
			p.ReviewReason = ReasonAmountMismatch
		}
	}

	plan, err := r.catalog.Lookup(string(p.Tier))
	if err == nil {
		if !found {
			expected = plan.AmountCents
		}
		if end, ok := plan.PeriodEnd(r.now()); ok {
			p.PeriodEnd = sql.NullTime{Time: end, Valid: true}
		}
	}
	if p.ReviewReason == "" && rec.AmountCents < expected {
		p.ReviewReason = ReasonAmountMismatch
	}
	return p
}

func (r *Reconciler) tierFor(rec stripeinternal.PaymentRecord) (plans.Tier, bool) {
	if t, ok := plans.ParseTier(rec.Metadata[stripeinternal.MetaPlanTier]); ok && t != plans.TierFree {
		return t, true
	}
	if t, ok := plans.TierFromReference(rec.ExternalReference); ok && t != plans.TierFree {
		return t, true
	}
	return r.catalog.TierForAmount(rec.AmountCents, rec.Currency)
}

// synthesizedReference keeps the echoed reference traceable while staying
// unique: the original reference may already belong to a settled row.
func synthesizedReference(rec stripeinternal.PaymentRecord) string {
	if rec.ExternalReference != "" {
		return rec.ExternalReference + "#" + rec.ID
	}
	return "gateway#" + rec.ID
}

// correlate resolves the payer to a user: the ledger's user, then the user
// id echoed in metadata, then the payer email. A zero NullUUID with a nil
// error means nobody matched.
func (r *Reconciler) correlate(ctx context.Context, ledgerUser uuid.NullUUID, metaUser, payerEmail string, log *slog.Logger) (uuid.NullUUID, error) {
	candidates := make([]uuid.UUID, 0, 2)
	if ledgerUser.Valid {
		candidates = append(candidates, ledgerUser.UUID)
	}
	if id, err := uuid.Parse(strings.TrimSpace(metaUser)); err == nil && (!ledgerUser.Valid || id != ledgerUser.UUID) {
		candidates = append(candidates, id)
	}

	for _, id := range candidates {
		uid, ok, err := r.directory.FindUserByID(ctx, id)
		if err != nil {
			return uuid.NullUUID{}, fmt.Errorf("payments: correlate by id: %w", err)
		}
		if ok {
			return uuid.NullUUID{UUID: uid, Valid: true}, nil
		}
		log.Warn("user on payment no longer exists", "user_id", id)
	}

	if payerEmail != "" {
		uid, ok, err := r.directory.FindUserByEmail(ctx, payerEmail)
		if err != nil {
			return uuid.NullUUID{}, fmt.Errorf("payments: correlate by email: %w", err)
		}
		if ok {
			return uuid.NullUUID{UUID: uid, Valid: true}, nil
		}
	}
	return uuid.NullUUID{}, nil
}

// recordNotApproved marks the matching PENDING row REJECTED when the gateway
// says the payment failed. It is informational: failures are logged and the
// delivery is still acknowledged.
func (r *Reconciler) recordNotApproved(ctx context.Context, rec stripeinternal.PaymentRecord, log *slog.Logger) {
	if rec.Status != stripeinternal.StatusRejected {
		log.Debug("payment not settled yet")
		return
	}

	row, found, err := r.locate(ctx, rec)
	if err != nil {
		log.Warn("could not look up rejected payment", "error", err)
		return
	}
	if !found || row.Status != db.LedgerStatusPending {
		return
	}

	moved, err := r.ledger.RecordRejection(ctx, store.RecordRejectionParams{
		LedgerID:          row.ID,
		ExternalPaymentID: rec.ID,
		Snapshot:          rec.Raw,
	})
	if err != nil {
		log.Warn("could not record rejection", "ledger_id", row.ID, "error", err)
		return
	}
	if moved {
		log.Info("ledger row rejected", "ledger_id", row.ID)
	}
}

// ─── NOTIFICATIONS ────────────────────────────────────────────────────────────

func (r *Reconciler) notifyUpgrade(ctx context.Context, rec stripeinternal.PaymentRecord, applied store.ApprovalResult, log *slog.Logger) {
	to := firstNonEmpty(rec.PayerEmail, applied.Ledger.PayerEmail.String)
	if to == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()

	title := string(applied.Ledger.PlanTier)
	if plan, err := r.catalog.Lookup(title); err == nil && plan.Title != "" {
		title = plan.Title
	}
	var periodEnd *time.Time
	if applied.Entitlement.PeriodEnd.Valid {
		end := applied.Entitlement.PeriodEnd.Time
		periodEnd = &end
	}

	err := r.mailer.SendUpgradeConfirmation(ctx, email.UpgradeParams{
		To:          to,
		PlanTitle:   title,
		AmountCents: rec.AmountCents,
		Currency:    rec.Currency,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		log.Error("upgrade email failed", "error", err)
	}
}

func (r *Reconciler) alertReview(ctx context.Context, rec stripeinternal.PaymentRecord, reason string, log *slog.Logger) {
	if r.cfg.OpsEmail == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()

	err := r.mailer.SendReviewAlert(ctx, email.ReviewAlertParams{
		To:          r.cfg.OpsEmail,
		PaymentID:   rec.ID,
		PayerEmail:  rec.PayerEmail,
		Reason:      reason,
		AmountCents: rec.AmountCents,
		Currency:    rec.Currency,
	})
	if err != nil {
		log.Error("review alert email failed", "error", err)
	}
}

// audit appends the delivery to the notification log. A failed write is
// logged and otherwise ignored.
func (r *Reconciler) audit(ctx context.Context, env Envelope, res Result, reconcileErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()

	err := r.ledger.RecordNotification(ctx, store.NotificationParams{
		PaymentID: res.PaymentID,
		Topic:     env.Topic,
		Outcome:   string(res.Outcome),
		Err:       reconcileErr,
		Payload:   env.Payload,
	})
	if err != nil {
		r.logger.Warn("webhook audit write failed", "payment_id", res.PaymentID, "error", err)
	}
}

package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/plans"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

// ResolveDeferred grants the entitlement for an approved payment that was
// recorded without one. With override set, that user is assigned; otherwise
// correlation is run again against the current user directory.
func (r *Reconciler) ResolveDeferred(ctx context.Context, paymentID string, override uuid.NullUUID) (Result, error) {
	row, err := r.ledger.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return Result{}, fmt.Errorf("payments: resolve %s: %w", paymentID, err)
	}
	res := Result{PaymentID: paymentID, LedgerID: row.ID, Tier: plans.Tier(row.PlanTier)}
	if row.Status != db.LedgerStatusApproved || !row.NeedsReview {
		return res, fmt.Errorf("payments: resolve %s: %w", paymentID, ErrNotAwaitingReview)
	}
	plan, err := r.catalog.Lookup(string(row.PlanTier))
	if err != nil {
		return res, fmt.Errorf("payments: resolve %s: %w: %w", paymentID, ErrInvalidPlan, err)
	}
	log := r.logger.With("payment_id", paymentID, "ledger_id", row.ID)

	userID := override
	if userID.Valid {
		uid, ok, err := r.directory.FindUserByID(ctx, userID.UUID)
		if err != nil {
			return res, fmt.Errorf("payments: resolve %s: %w", paymentID, err)
		}
		if !ok {
			return res, fmt.Errorf("payments: resolve %s: user %s: %w", paymentID, userID.UUID, ErrStillUnresolved)
		}
		userID = uuid.NullUUID{UUID: uid, Valid: true}
	} else {
		userID, err = r.correlate(ctx, row.UserID, "", row.PayerEmail.String, log)
		if err != nil {
			return res, err
		}
		if !userID.Valid {
			res.Outcome = OutcomeUnresolvedUser
			return res, fmt.Errorf("payments: resolve %s: %w", paymentID, ErrStillUnresolved)
		}
	}
	res.UserID = userID

	params := store.ResolveDeferredParams{LedgerID: row.ID, UserID: userID.UUID}
	if end, ok := plan.PeriodEnd(r.now()); ok {
		params.PeriodEnd = sql.NullTime{Time: end, Valid: true}
	}

	applied, err := r.ledger.ResolveDeferred(ctx, params)
	if errors.Is(err, store.ErrLedgerWriteConflict) {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("payments: resolve %s: %w", paymentID, err)
	}

	res.Outcome = OutcomeApplied
	if applied.Superseded {
		res.ReviewReason = ReasonSuperseded
		log.Warn("user still holds a higher active tier, payment stays flagged",
			"user_id", userID.UUID, "effective_tier", applied.Entitlement.PlanTier)
		return res, nil
	}
	log.Info("deferred entitlement applied", "user_id", userID.UUID, "effective_tier", applied.Entitlement.PlanTier)
	r.notifyUpgrade(ctx, stripeinternal.PaymentRecord{
		ID:          paymentID,
		AmountCents: row.AmountCents,
		Currency:    row.Currency,
	}, applied, log)
	return res, nil
}

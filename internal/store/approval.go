package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// ApplyApprovalParams is everything the reconciler has established about an
// approved payment once correlation is done.
type ApplyApprovalParams struct {
	// LedgerID is the row to approve. uuid.Nil means no row exists for this
	// payment and one is synthesized, already APPROVED, from the fields below.
	LedgerID uuid.UUID

	ExternalPaymentID string

	// ExternalReference is used only for synthesized rows.
	ExternalReference string
	Tier              db.PlanTier
	AmountCents       int64
	Currency          string

	UserID     uuid.NullUUID
	PayerEmail string
	PeriodEnd  sql.NullTime

	// ReviewReason flags the row for manual reconciliation. A flagged payment
	// is recorded but grants no entitlement.
	ReviewReason string

	Snapshot json.RawMessage
}

func (p ApplyApprovalParams) grantsEntitlement() bool {
	return p.UserID.Valid && p.ReviewReason == ""
}

// ApprovalResult reports what ApplyApproval wrote.
type ApprovalResult struct {
	Ledger db.PaymentLedger

	// Entitlement is the row after the upsert. Zero when Granted is false.
	Entitlement db.Entitlement
	Granted     bool

	// Superseded is set when the upsert kept a higher active tier. The
	// ledger row is then flagged with ReasonSuperseded.
	Superseded bool
}

// ResolveDeferredParams assigns a user to an approved payment that was
// recorded without one.
type ResolveDeferredParams struct {
	LedgerID  uuid.UUID
	UserID    uuid.UUID
	PeriodEnd sql.NullTime
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// ApplyApproval atomically:
//
//  1. Moves the ledger row to APPROVED with a conditional update (or inserts a
//     synthesized APPROVED row with ON CONFLICT DO NOTHING).
//  2. Upserts the user's entitlement without ever lowering an active tier.
//  3. Flags the ledger row with ReasonSuperseded when step 2 kept a higher
//     tier, so the paid tier stays visible to operators.
//
// If step 1 touches no row, another delivery already approved this payment
// and ErrLedgerWriteConflict is returned with nothing written. If step 2
// fails the ledger change rolls back too, so the next delivery retries both.
//
// Read committed is enough: both statements are single-row conditional writes
// and Postgres re-checks the WHERE clause after waiting on a locked row.
func (s *Store) ApplyApproval(ctx context.Context, p ApplyApprovalParams) (ApprovalResult, error) {
	var res ApprovalResult

	err := s.withTxIsolation(ctx, sql.LevelReadCommitted, func(ctx context.Context, q db.Querier) error {
		var (
			row db.PaymentLedger
			err error
		)
		if p.LedgerID != uuid.Nil {
			row, err = q.ApproveLedgerRow(ctx, db.ApproveLedgerRowParams{
				ID:                p.LedgerID,
				ExternalPaymentID: nullString(p.ExternalPaymentID),
				UserID:            p.UserID,
				PayerEmail:        nullString(p.PayerEmail),
				NeedsReview:       p.ReviewReason != "",
				ReviewReason:      nullString(p.ReviewReason),
				GatewaySnapshot:   rawMessage(p.Snapshot),
			})
		} else {
			row, err = q.InsertApprovedLedgerRow(ctx, db.InsertApprovedLedgerRowParams{
				ExternalReference: p.ExternalReference,
				ExternalPaymentID: nullString(p.ExternalPaymentID),
				UserID:            p.UserID,
				PlanTier:          p.Tier,
				AmountCents:       p.AmountCents,
				Currency:          p.Currency,
				PayerEmail:        nullString(p.PayerEmail),
				NeedsReview:       p.ReviewReason != "",
				ReviewReason:      nullString(p.ReviewReason),
				GatewaySnapshot:   rawMessage(p.Snapshot),
			})
		}
		switch {
		case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
			return ErrLedgerWriteConflict
		case err != nil:
			return fmt.Errorf("ApplyApproval: write ledger: %w", err)
		}
		res.Ledger = row

		if !p.grantsEntitlement() {
			return nil
		}

		ent, err := q.UpsertEntitlement(ctx, db.UpsertEntitlementParams{
			UserID:       p.UserID.UUID,
			PlanTier:     row.PlanTier,
			PeriodEnd:    p.PeriodEnd,
			LastLedgerID: uuid.NullUUID{UUID: row.ID, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("ApplyApproval: upsert entitlement: %w", err)
		}
		res.Entitlement = ent
		res.Granted = true
		return flagIfSuperseded(ctx, q, &res)
	})

	if errors.Is(err, ErrLedgerWriteConflict) {
		return ApprovalResult{}, ErrLedgerWriteConflict
	}
	if err != nil {
		return ApprovalResult{}, err
	}
	return res, nil
}

// ResolveDeferred clears the review flag on an approved row, assigns the user
// and grants the entitlement in one transaction. A row that is no longer
// flagged returns ErrLedgerWriteConflict. If the user still holds a higher
// active tier the row is flagged again with ReasonSuperseded.
func (s *Store) ResolveDeferred(ctx context.Context, p ResolveDeferredParams) (ApprovalResult, error) {
	var res ApprovalResult

	err := s.withTxIsolation(ctx, sql.LevelReadCommitted, func(ctx context.Context, q db.Querier) error {
		row, err := q.ClearLedgerReview(ctx, db.ClearLedgerReviewParams{
			ID:     p.LedgerID,
			UserID: uuid.NullUUID{UUID: p.UserID, Valid: true},
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLedgerWriteConflict
		}
		if err != nil {
			return fmt.Errorf("ResolveDeferred: clear review: %w", err)
		}
		res.Ledger = row

		ent, err := q.UpsertEntitlement(ctx, db.UpsertEntitlementParams{
			UserID:       p.UserID,
			PlanTier:     row.PlanTier,
			PeriodEnd:    p.PeriodEnd,
			LastLedgerID: uuid.NullUUID{UUID: row.ID, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("ResolveDeferred: upsert entitlement: %w", err)
		}
		res.Entitlement = ent
		res.Granted = true
		return flagIfSuperseded(ctx, q, &res)
	})

	if errors.Is(err, ErrLedgerWriteConflict) {
		return ApprovalResult{}, ErrLedgerWriteConflict
	}
	if err != nil {
		return ApprovalResult{}, err
	}
	return res, nil
}

// flagIfSuperseded marks the ledger row for review when the entitlement kept a
// tier other than the one paid for.
func flagIfSuperseded(ctx context.Context, q db.Querier, res *ApprovalResult) error {
	if res.Entitlement.PlanTier == res.Ledger.PlanTier {
		return nil
	}
	row, err := q.FlagLedgerReview(ctx, db.FlagLedgerReviewParams{
		ID:           res.Ledger.ID,
		ReviewReason: nullString(ReasonSuperseded),
	})
	if err != nil {
		return fmt.Errorf("flag superseded: %w", err)
	}
	res.Ledger = row
	res.Superseded = true
	return nil
}

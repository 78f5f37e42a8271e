package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreatePendingParams describes the ledger row written before the gateway is
// called.
type CreatePendingParams struct {
	ExternalReference string
	UserID            uuid.NullUUID
	Tier              db.PlanTier
	AmountCents       int64
	Currency          string
	PayerEmail        string
	CourseContext     string
}

// RecordRejectionParams binds a non-approved gateway payment to a PENDING row.
type RecordRejectionParams struct {
	LedgerID          uuid.UUID
	ExternalPaymentID string
	Snapshot          json.RawMessage
}

// NotificationParams is one webhook delivery for the audit log.
type NotificationParams struct {
	PaymentID string
	Topic     string
	Outcome   string
	Err       error
	Payload   []byte
}

// ─── INTENT SIDE ─────────────────────────────────────────────────────────────

// CreatePending inserts a PENDING ledger row. A reference collision returns
// ErrDuplicateReference so the caller can pick a new one.
func (s *Store) CreatePending(ctx context.Context, p CreatePendingParams) (db.PaymentLedger, error) {
	row, err := s.q.CreatePendingLedgerRow(ctx, db.CreatePendingLedgerRowParams{
		ExternalReference: p.ExternalReference,
		UserID:            p.UserID,
		PlanTier:          p.Tier,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		PayerEmail:        nullString(p.PayerEmail),
		CourseContext:     nullString(p.CourseContext),
	})
	if isUniqueViolation(err) {
		return db.PaymentLedger{}, fmt.Errorf("store: create pending %q: %w", p.ExternalReference, ErrDuplicateReference)
	}
	if err != nil {
		return db.PaymentLedger{}, fmt.Errorf("store: create pending %q: %w", p.ExternalReference, err)
	}
	return row, nil
}

// AttachGatewayIntent records the gateway object created for a pending row.
func (s *Store) AttachGatewayIntent(ctx context.Context, id uuid.UUID, intentID string) (db.PaymentLedger, error) {
	row, err := s.q.AttachGatewayIntent(ctx, db.AttachGatewayIntentParams{
		ID:              id,
		GatewayIntentID: nullString(intentID),
	})
	if err != nil {
		return db.PaymentLedger{}, notFound("attach gateway intent", err)
	}
	return row, nil
}

// MarkIntentRejected moves a PENDING row to REJECTED after the gateway refused
// to create a checkout for it. reason is kept on the row for operators.
func (s *Store) MarkIntentRejected(ctx context.Context, id uuid.UUID, reason string) error {
	n, err := s.q.MarkLedgerRejected(ctx, db.MarkLedgerRejectedParams{
		ID:           id,
		ReviewReason: nullString(reason),
	})
	if err != nil {
		return fmt.Errorf("store: mark intent rejected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: mark intent rejected %s: %w", id, ErrLedgerWriteConflict)
	}
	return nil
}

// ─── RECONCILER SIDE ─────────────────────────────────────────────────────────

// FindByPaymentID returns the row bound to an external payment id.
func (s *Store) FindByPaymentID(ctx context.Context, paymentID string) (db.PaymentLedger, error) {
	row, err := s.q.GetLedgerByExternalPaymentID(ctx, nullString(paymentID))
	if err != nil {
		return db.PaymentLedger{}, notFound("find by payment id", err)
	}
	return row, nil
}

// FindOpenByReference returns the non-approved row for ref that is not yet
// bound to any payment.
func (s *Store) FindOpenByReference(ctx context.Context, ref string) (db.PaymentLedger, error) {
	row, err := s.q.GetOpenLedgerByReference(ctx, ref)
	if err != nil {
		return db.PaymentLedger{}, notFound("find open by reference", err)
	}
	return row, nil
}

// RecordRejection marks a PENDING row REJECTED for a payment the gateway
// declined and binds the payment id to it. It reports whether a row moved;
// an already-settled row is left untouched.
func (s *Store) RecordRejection(ctx context.Context, p RecordRejectionParams) (bool, error) {
	n, err := s.q.RejectLedgerForPayment(ctx, db.RejectLedgerForPaymentParams{
		ID:                p.LedgerID,
		ExternalPaymentID: nullString(p.ExternalPaymentID),
		GatewaySnapshot:   rawMessage(p.Snapshot),
	})
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: record rejection: %w", err)
	}
	return n > 0, nil
}

// RecordNotification appends a delivery to the webhook audit log. Payloads
// that are not valid JSON are stored as NULL.
func (s *Store) RecordNotification(ctx context.Context, p NotificationParams) error {
	params := db.InsertWebhookNotificationParams{
		PaymentID: nullString(p.PaymentID),
		Topic:     p.Topic,
		Outcome:   p.Outcome,
		Payload:   rawMessage(p.Payload),
	}
	if p.Err != nil {
		params.Error = nullString(p.Err.Error())
	}
	if err := s.q.InsertWebhookNotification(ctx, params); err != nil {
		return fmt.Errorf("store: record notification: %w", err)
	}
	return nil
}

// ─── READS ───────────────────────────────────────────────────────────────────

// Lookup resolves id as a ledger uuid, an external payment id or an external
// reference, in that order.
func (s *Store) Lookup(ctx context.Context, id string) (db.PaymentLedger, error) {
	if parsed, err := uuid.Parse(id); err == nil {
		row, err := s.q.GetLedgerByID(ctx, parsed)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return db.PaymentLedger{}, fmt.Errorf("store: lookup by id: %w", err)
		}
	}

	row, err := s.q.GetLedgerByExternalPaymentID(ctx, nullString(id))
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return db.PaymentLedger{}, fmt.Errorf("store: lookup by payment id: %w", err)
	}

	row, err = s.q.GetLedgerByExternalReference(ctx, id)
	if err != nil {
		return db.PaymentLedger{}, notFound("lookup by reference", err)
	}
	return row, nil
}

// ListUnresolved returns approved rows flagged for review, oldest first.
func (s *Store) ListUnresolved(ctx context.Context, limit int32) ([]db.PaymentLedger, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.ListUnresolvedLedgerRows(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list unresolved: %w", err)
	}
	return rows, nil
}

func rawMessage(b []byte) pqtype.NullRawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: json.RawMessage(b), Valid: true}
}

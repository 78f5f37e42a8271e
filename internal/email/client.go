// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation plus a logging no-op.
package email

import (
	"context"
	"log/slog"
	"time"
)

// UpgradeParams holds the data for the "your plan is active" email.
type UpgradeParams struct {
	To          string
	PlanTitle   string
	AmountCents int64  // e.g. 2900 for 29.00
	Currency    string // e.g. "usd"

	// PeriodEnd is nil for plans that never expire.
	PeriodEnd *time.Time
}

// ReviewAlertParams describes a paid payment that could not be matched to a
// user and needs manual reconciliation.
type ReviewAlertParams struct {
	To          string
	PaymentID   string
	PayerEmail  string
	Reason      string
	AmountCents int64
	Currency    string
}

// Sender is the interface the reconciler uses to send email. Tests inject a
// stub that records calls without hitting the network.
type Sender interface {
	// SendUpgradeConfirmation tells the payer their entitlement is active.
	SendUpgradeConfirmation(ctx context.Context, p UpgradeParams) error

	// SendReviewAlert notifies operations about a payment recorded without
	// an entitlement.
	SendReviewAlert(ctx context.Context, p ReviewAlertParams) error
}

// nopSender logs instead of sending. Used when no Resend key is configured.
type nopSender struct {
	logger *slog.Logger
}

// NewNopSender returns a Sender that only logs what it would have sent.
func NewNopSender(logger *slog.Logger) Sender {
	return &nopSender{logger: logger}
}

func (n *nopSender) SendUpgradeConfirmation(_ context.Context, p UpgradeParams) error {
	n.logger.Debug("email disabled: upgrade confirmation", "to", p.To, "plan", p.PlanTitle)
	return nil
}

func (n *nopSender) SendReviewAlert(_ context.Context, p ReviewAlertParams) error {
	n.logger.Debug("email disabled: review alert", "payment_id", p.PaymentID, "reason", p.Reason)
	return nil
}

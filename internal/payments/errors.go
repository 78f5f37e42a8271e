package payments

import (
	"errors"

	"github.com/nyashahama/learnhub-payments/internal/store"
)

var (
	// ErrInvalidPlan is returned for an unknown or unpriced plan tier. It is a
	// client error.
	ErrInvalidPlan = errors.New("payments: invalid plan")

	// ErrGatewayUnavailable wraps transient gateway failures. On the webhook
	// path it means "ask the gateway to redeliver".
	ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

	// ErrGatewayRejected is returned when the gateway refuses a checkout
	// request outright. Retrying the same request will not help.
	ErrGatewayRejected = errors.New("payments: gateway rejected request")

	// ErrLedgerWriteConflict is the store sentinel for a lost conditional
	// write. The reconciler locates the row again; it only surfaces when
	// conflicts keep repeating.
	ErrLedgerWriteConflict = store.ErrLedgerWriteConflict

	// ErrNotAwaitingReview is returned by ResolveDeferred for a payment that
	// is not an approved row flagged for review.
	ErrNotAwaitingReview = errors.New("payments: payment is not awaiting review")

	// ErrStillUnresolved is returned by ResolveDeferred when correlation
	// still finds no user and no override was given.
	ErrStillUnresolved = errors.New("payments: payer still matches no user")
)

// Outcome is the terminal state of one webhook delivery.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeUnresolvedUser Outcome = "unresolved_user"
	OutcomeNeedsReview    Outcome = "needs_review"
	OutcomeIrrelevant     Outcome = "irrelevant"
	OutcomeNotApproved    Outcome = "not_approved"

	// OutcomeRetry is recorded when Reconcile returns an error and the
	// delivery must be repeated by the gateway.
	OutcomeRetry Outcome = "retry"
)

// Review reasons stored on flagged ledger rows.
const (
	ReasonUnresolvedUser = "unresolved_user"
	ReasonAmountMismatch = "amount_mismatch"
	ReasonUnknownPlan    = "unknown_plan"
	ReasonSuperseded     = store.ReasonSuperseded
)

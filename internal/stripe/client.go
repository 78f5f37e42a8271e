// Package stripe is the gateway client: it creates hosted checkout sessions,
// fetches the authoritative state of a payment and verifies webhook
// signatures. It holds no business logic and never retries; callers decide.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrUnavailable wraps transport failures, timeouts, 429s and 5xx
	// responses. The operation may succeed if repeated.
	ErrUnavailable = errors.New("stripe: gateway unavailable")

	// ErrPaymentNotFound is returned when the gateway has no payment with the
	// requested id. Repeating the call will not help.
	ErrPaymentNotFound = errors.New("stripe: payment not found")

	// ErrInvalidSignature is returned by VerifyWebhook for a missing, forged
	// or expired Stripe-Signature header.
	ErrInvalidSignature = errors.New("stripe: invalid webhook signature")
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CreateIntentParams holds the inputs for a hosted checkout.
type CreateIntentParams struct {
	// ExternalReference is echoed back on the payment and doubles as the
	// idempotency key, so repeated calls never create two gateway objects.
	ExternalReference string

	Title       string
	AmountCents int64
	Currency    string

	// PayerEmail pre-fills the checkout form. Optional.
	PayerEmail string

	SuccessURL string
	FailureURL string

	Metadata map[string]string
}

// IntentRef identifies the gateway object created for a checkout.
type IntentRef struct {
	ID          string
	RedirectURL string
}

// PaymentStatus is the gateway state collapsed to the three values the
// reconciler acts on.
type PaymentStatus string

const (
	StatusApproved PaymentStatus = "approved"
	StatusPending  PaymentStatus = "pending"
	StatusRejected PaymentStatus = "rejected"
)

// PaymentRecord is the authoritative view of a payment as reported by the
// gateway at fetch time.
type PaymentRecord struct {
	// ID is the canonical payment id (a PaymentIntent id), even when the fetch
	// was addressed by a checkout session id.
	ID        string
	Status    PaymentStatus
	RawStatus string

	AmountCents int64
	Currency    string
	PayerEmail  string

	ExternalReference string
	Metadata          map[string]string

	// Raw is the JSON body of the gateway response, kept for the ledger
	// snapshot. May be nil.
	Raw json.RawMessage
}

// Approved reports whether the payment has been captured.
func (p PaymentRecord) Approved() bool { return p.Status == StatusApproved }

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the payments package uses for all gateway calls.
// The concrete implementation wraps the official stripe-go SDK. Tests inject
// a stub.
type Client interface {
	// CreatePaymentIntent creates a hosted checkout and returns where to send
	// the payer.
	CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (IntentRef, error)

	// FetchPayment retrieves the current state of a payment. id may be a
	// PaymentIntent id or a checkout session id.
	FetchPayment(ctx context.Context, id string) (PaymentRecord, error)

	// VerifyWebhook validates the Stripe-Signature header against payload.
	VerifyWebhook(payload []byte, sigHeader string) error
}

// ─── METADATA KEYS ────────────────────────────────────────────────────────────

// Keys written into checkout metadata by the intent creator and read back by
// FetchPayment and the reconciler.
const (
	MetaExternalReference = "external_reference"
	MetaPlanTier          = "plan_tier"
	MetaUserID            = "user_id"
	MetaPayerEmail        = "payer_email"
	MetaCourse            = "course"
)

package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/store"
	stripeinternal "github.com/nyashahama/learnhub-payments/internal/stripe"
)

// Gateway is the part of the gateway client this package calls.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, p stripeinternal.CreateIntentParams) (stripeinternal.IntentRef, error)
	FetchPayment(ctx context.Context, id string) (stripeinternal.PaymentRecord, error)
}

// IntentStore is the ledger surface the intent creator writes to.
type IntentStore interface {
	CreatePending(ctx context.Context, p store.CreatePendingParams) (db.PaymentLedger, error)
	AttachGatewayIntent(ctx context.Context, id uuid.UUID, intentID string) (db.PaymentLedger, error)
	MarkIntentRejected(ctx context.Context, id uuid.UUID, reason string) error
}

// LedgerStore is the ledger and entitlement surface the reconciler uses.
// *store.Store satisfies it.
type LedgerStore interface {
	FindByPaymentID(ctx context.Context, paymentID string) (db.PaymentLedger, error)
	FindOpenByReference(ctx context.Context, ref string) (db.PaymentLedger, error)
	RecordRejection(ctx context.Context, p store.RecordRejectionParams) (bool, error)
	ApplyApproval(ctx context.Context, p store.ApplyApprovalParams) (store.ApprovalResult, error)
	ResolveDeferred(ctx context.Context, p store.ResolveDeferredParams) (store.ApprovalResult, error)
	RecordNotification(ctx context.Context, p store.NotificationParams) error
}

var (
	_ IntentStore = (*store.Store)(nil)
	_ LedgerStore = (*store.Store)(nil)
)

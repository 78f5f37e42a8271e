package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Config configures the SDK-backed client.
type Config struct {
	SecretKey string

	// WebhookSecret is the endpoint signing secret. Empty disables signature
	// verification, which config validation only allows outside production.
	WebhookSecret string

	// Timeout bounds every gateway HTTP call. Defaults to 5s.
	Timeout time.Duration

	// BackendURL overrides the Stripe API base URL. Used by tests.
	BackendURL string
}

// stripeClient is the concrete implementation of Client backed by the
// official stripe-go SDK. It uses per-resource clients bound to one backend
// instead of the package-level stripe.Key.
type stripeClient struct {
	sessions      *session.Client
	intents       *paymentintent.Client
	webhookSecret string
}

// NewClient returns a Client backed by the Stripe SDK.
func NewClient(cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &stripeClient{
		sessions:      &session.Client{B: backend, Key: cfg.SecretKey},
		intents:       &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreatePaymentIntent creates a hosted Checkout Session in payment mode. The
// external reference is set as client_reference_id and copied, with the rest
// of the metadata, onto the PaymentIntent the session creates.
func (c *stripeClient) CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (IntentRef, error) {
	meta := make(map[string]string, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	meta[MetaExternalReference] = p.ExternalReference

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(p.ExternalReference),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.FailureURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Title),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
		Metadata: meta,
	}
	if p.PayerEmail != "" {
		params.CustomerEmail = stripe.String(p.PayerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(p.ExternalReference)

	sess, err := c.sessions.New(params)
	if err != nil {
		return IntentRef{}, classify("create checkout session", err)
	}
	if sess.URL == "" {
		return IntentRef{}, fmt.Errorf("stripe: checkout session %s has no redirect url", sess.ID)
	}
	return IntentRef{ID: sess.ID, RedirectURL: sess.URL}, nil
}

// FetchPayment retrieves a PaymentIntent with its latest charge and customer
// expanded. A checkout session id is resolved to its PaymentIntent first.
func (c *stripeClient) FetchPayment(ctx context.Context, id string) (PaymentRecord, error) {
	if strings.HasPrefix(id, "cs_") {
		return c.fetchSession(ctx, id)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	params.AddExpand("customer")

	pi, err := c.intents.Get(id, params)
	if err != nil {
		return PaymentRecord{}, classify("get payment intent "+id, err)
	}
	return recordFromIntent(pi), nil
}

func (c *stripeClient) fetchSession(ctx context.Context, id string) (PaymentRecord, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := c.sessions.Get(id, params)
	if err != nil {
		return PaymentRecord{}, classify("get checkout session "+id, err)
	}

	// A session that has not been paid yet may have no PaymentIntent.
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return PaymentRecord{
			ID:                id,
			Status:            StatusPending,
			RawStatus:         string(sess.Status),
			AmountCents:       sess.AmountTotal,
			Currency:          string(sess.Currency),
			ExternalReference: sess.ClientReferenceID,
			Metadata:          sess.Metadata,
		}, nil
	}

	rec, err := c.FetchPayment(ctx, sess.PaymentIntent.ID)
	if err != nil {
		return PaymentRecord{}, err
	}
	if rec.ExternalReference == "" {
		rec.ExternalReference = sess.ClientReferenceID
	}
	if rec.PayerEmail == "" && sess.CustomerDetails != nil {
		rec.PayerEmail = sess.CustomerDetails.Email
	}
	return rec, nil
}

// VerifyWebhook validates the Stripe-Signature header within the SDK's default
// tolerance window. With no secret configured every payload is accepted.
func (c *stripeClient) VerifyWebhook(payload []byte, sigHeader string) error {
	if c.webhookSecret == "" {
		return nil
	}
	if err := webhook.ValidatePayload(payload, sigHeader, c.webhookSecret); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}

// ─── MAPPING ──────────────────────────────────────────────────────────────────

func recordFromIntent(pi *stripe.PaymentIntent) PaymentRecord {
	rec := PaymentRecord{
		ID:                pi.ID,
		Status:            mapStatus(pi),
		RawStatus:         string(pi.Status),
		AmountCents:       pi.Amount,
		Currency:          string(pi.Currency),
		PayerEmail:        payerEmail(pi),
		ExternalReference: pi.Metadata[MetaExternalReference],
		Metadata:          pi.Metadata,
	}
	if pi.Status == stripe.PaymentIntentStatusSucceeded && pi.AmountReceived > 0 {
		rec.AmountCents = pi.AmountReceived
	}
	if pi.LastResponse != nil && len(pi.LastResponse.RawJSON) > 0 {
		rec.Raw = append([]byte(nil), pi.LastResponse.RawJSON...)
	}
	return rec
}

// mapStatus collapses the PaymentIntent lifecycle. requires_payment_method is
// the initial state as well as the state after a declined attempt; only the
// latter counts as rejected.
func mapStatus(pi *stripe.PaymentIntent) PaymentStatus {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusApproved
	case stripe.PaymentIntentStatusCanceled:
		return StatusRejected
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return StatusRejected
		}
		return StatusPending
	default:
		return StatusPending
	}
}

// payerEmail prefers the address the payer gave the platform, then whatever
// the gateway collected.
func payerEmail(pi *stripe.PaymentIntent) string {
	if e := strings.TrimSpace(pi.Metadata[MetaPayerEmail]); e != "" {
		return e
	}
	if pi.ReceiptEmail != "" {
		return pi.ReceiptEmail
	}
	if pi.LatestCharge != nil && pi.LatestCharge.BillingDetails != nil && pi.LatestCharge.BillingDetails.Email != "" {
		return pi.LatestCharge.BillingDetails.Email
	}
	if pi.Customer != nil && pi.Customer.Email != "" {
		return pi.Customer.Email
	}
	return ""
}

// classify maps SDK errors onto the package sentinels. Anything that is not a
// definitive client error is treated as transient.
func classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch code := se.HTTPStatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("stripe: %s: %w: %w", op, ErrPaymentNotFound, err)
		case code == http.StatusBadRequest, code == http.StatusPaymentRequired, code == http.StatusConflict:
			return fmt.Errorf("stripe: %s: %w", op, err)
		}
	}
	return fmt.Errorf("stripe: %s: %w: %w", op, ErrUnavailable, err)
}

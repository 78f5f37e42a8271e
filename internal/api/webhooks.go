package api

import (
	"io"
	"net/http"

	"github.com/nyashahama/learnhub-payments/internal/payments"
)

// ─── POST /payments/webhook ───────────────────────────────────────────────────

type webhookResponse struct {
	Outcome payments.Outcome `json:"outcome"`
}

// handleWebhook is the entry point for every gateway notification.
//
// Deliveries are at-least-once, out of order and possibly forged, so the body
// is only used as a pointer: the reconciler refetches the payment and every
// write it makes is conditional. The handler has exactly two outcomes once
// the signature passes: 200 (done, do not resend) or 500 (resend later).
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// The signature covers the exact bytes sent, so read them before anything
	// else touches the body.
	r.Body = http.MaxBytesReader(w, r.Body, 65536) // 64 KB
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the signature ───────────────────────────────────────────────
	if err := s.verifier.VerifyWebhook(payload, r.Header.Get("Stripe-Signature")); err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	// ── 3. Reconcile ──────────────────────────────────────────────────────────
	env := payments.ParseEnvelope(payload, r.URL.Query())
	res, err := s.reconciler.Reconcile(r.Context(), env)
	if err != nil {
		s.logger.Error("webhook: reconcile failed, requesting redelivery",
			"payment_id", env.PaymentID,
			"topic", env.Topic,
			"error", err,
			logField(r),
		)
		respondErr(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	s.logger.Debug("webhook: acknowledged",
		"payment_id", res.PaymentID,
		"outcome", res.Outcome,
		logField(r),
	)
	respond(w, http.StatusOK, webhookResponse{Outcome: res.Outcome})
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/learnhub-payments/internal/db"
	"github.com/nyashahama/learnhub-payments/internal/store"
)

// ─── GET /payments/status/{id} ────────────────────────────────────────────────

// statusResponse is the public projection of a ledger row. Payer identity
// (email, user id) is never exposed.
type statusResponse struct {
	ID                string    `json:"id"`
	ExternalReference string    `json:"external_reference"`
	ExternalPaymentID string    `json:"external_payment_id,omitempty"`
	Status            string    `json:"status"`
	PlanTier          string    `json:"plan_tier"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	NeedsReview       bool      `json:"needs_review"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newStatusResponse(row db.PaymentLedger) statusResponse {
	return statusResponse{
		ID:                row.ID.String(),
		ExternalReference: row.ExternalReference,
		ExternalPaymentID: row.ExternalPaymentID.String,
		Status:            string(row.Status),
		PlanTier:          string(row.PlanTier),
		AmountCents:       row.AmountCents,
		Currency:          row.Currency,
		NeedsReview:       row.NeedsReview,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

// handleGetStatus returns a ledger row by ledger id, gateway payment id or
// external reference. Settled rows (approved, no review pending) never change
// again and are served from the cache after the first read.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" || len(id) > 200 {
		respondErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	// ── Fast path: cached settled projection ─────────────────────────────────
	if body, ok, err := s.cache.Get(r.Context(), id); err != nil {
		s.logger.Warn("status: cache read failed", "error", err, logField(r))
	} else if ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	row, err := s.ledger.Lookup(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("lookup %s: %w", id, err))
		return
	}

	body, err := json.Marshal(newStatusResponse(row))
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("encode status: %w", err))
		return
	}
	body = append(body, '\n')

	if row.Status == db.LedgerStatusApproved && !row.NeedsReview {
		keys := []string{row.ID.String(), row.ExternalReference, row.ExternalPaymentID.String}
		if err := s.cache.Set(r.Context(), keys, body); err != nil {
			s.logger.Warn("status: cache write failed", "error", err, logField(r))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

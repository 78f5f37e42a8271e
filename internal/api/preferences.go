package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nyashahama/learnhub-payments/internal/payments"
)

// ─── POST /payments/create-preference ─────────────────────────────────────────

type payerInfo struct {
	Name  string `json:"name" validate:"max=200"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type createPreferenceRequest struct {
	PlanTier   string     `json:"planTier" validate:"required,max=32"`
	CourseName string     `json:"courseName" validate:"max=200"`
	PayerInfo  *payerInfo `json:"payerInfo"`
	ReturnURL  string     `json:"returnUrl" validate:"omitempty,url,max=2048"`
	FailureURL string     `json:"failureUrl" validate:"omitempty,url,max=2048"`

	// UserID is set by clients that know the signed-in learner. It speeds up
	// correlation but is re-checked against the user directory on approval.
	UserID string `json:"userId" validate:"omitempty,uuid"`
}

type createPreferenceResponse struct {
	// ID is the gateway checkout id.
	ID string `json:"id"`
	// InitPoint is the hosted checkout URL the browser redirects to.
	InitPoint         string `json:"init_point"`
	ExternalReference string `json:"external_reference"`
}

// handleCreatePreference writes a PENDING ledger row and creates the hosted
// checkout for it. Only the plan tier is required; the price always comes
// from the server-side catalog.
func (s *Server) handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	var req createPreferenceRequest
	if !s.decode(w, r, &req) {
		return
	}

	spec := payments.PaymentIntentSpec{
		PlanTier:      req.PlanTier,
		CourseContext: strings.TrimSpace(req.CourseName),
		ReturnURL:     req.ReturnURL,
		FailureURL:    req.FailureURL,
	}
	if req.PayerInfo != nil {
		spec.PayerName = strings.TrimSpace(req.PayerInfo.Name)
		spec.PayerEmail = strings.TrimSpace(req.PayerInfo.Email)
	}
	if req.UserID != "" {
		// Validated as a uuid above.
		spec.UserID = uuid.NullUUID{UUID: uuid.MustParse(req.UserID), Valid: true}
	}

	target, err := s.intents.CreateIntent(r.Context(), spec)
	switch {
	case errors.Is(err, payments.ErrInvalidPlan):
		respondErrCode(w, http.StatusBadRequest, "InvalidPlan", "unknown or unpurchasable plan tier")
		return
	case errors.Is(err, payments.ErrGatewayUnavailable):
		s.logger.Error("create preference: gateway unavailable", "error", err, logField(r))
		respondErrCode(w, http.StatusInternalServerError, "GatewayUnavailable", "payment gateway unavailable, try again")
		return
	case errors.Is(err, payments.ErrGatewayRejected):
		s.logger.Error("create preference: gateway rejected request", "error", err, logField(r))
		respondErrCode(w, http.StatusInternalServerError, "GatewayRejected", "payment gateway rejected the checkout")
		return
	case err != nil:
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, createPreferenceResponse{
		ID:                target.IntentID,
		InitPoint:         target.RedirectURL,
		ExternalReference: target.ExternalReference,
	})
}

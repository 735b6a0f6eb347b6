package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/surveypesa/backend/internal/contextkeys"
	"github.com/surveypesa/backend/internal/service"
)

// ReferralHandler serves the affiliate endpoints.
type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

// Stats handles GET /api/affiliate. The first read generates and persists
// the user's referral code.
func (h *ReferralHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, stats)
}

// Verify handles GET /referral-codes/{code}. Public: the registration page
// checks a code before the account exists.
func (h *ReferralHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	owner, err := h.svc.VerifyReferralCode(r.Context(), code)
	if err != nil {
		Error(w, err)
		return
	}
	if owner == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"valid": false})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"valid":        true,
		"referrerName": owner.Name,
	})
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/surveypesa/backend/internal/contextkeys"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/service"
)

// WithdrawalHandler serves withdrawal requests and the operator payout
// queue.
type WithdrawalHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalHandler(svc *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

// Request handles POST /api/withdrawals.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.WithdrawRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	request, err := h.svc.Request(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, request)
}

// History handles GET /api/withdrawals.
func (h *WithdrawalHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	requests, err := h.svc.History(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, requests)
}

// ListPending handles GET /api/admin/withdrawals/pending.
func (h *WithdrawalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.ListPending(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, queue)
}

// ListAll handles GET /api/admin/withdrawals.
func (h *WithdrawalHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, queue)
}

// Approve handles POST /api/admin/withdrawals/{requestID}/approve.
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value(contextkeys.UserID).(string)
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Approve(r.Context(), adminID, requestID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, request)
}

// Reject handles POST /api/admin/withdrawals/{requestID}/reject.
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value(contextkeys.UserID).(string)
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Reject(r.Context(), adminID, requestID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, request)
}

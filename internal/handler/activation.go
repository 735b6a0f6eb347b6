package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/surveypesa/backend/internal/contextkeys"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/service"
)

// ActivationHandler serves activation submission and the operator review
// queue.
type ActivationHandler struct {
	svc *service.ActivationService
}

func NewActivationHandler(svc *service.ActivationService) *ActivationHandler {
	return &ActivationHandler{svc: svc}
}

// Submit handles POST /api/activations.
func (h *ActivationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.SubmitActivationRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	request, err := h.svc.Submit(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, request)
}

// History handles GET /api/activations.
func (h *ActivationHandler) History(w http.ResponseWriter, r *http.Request) {
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

// ListPending handles GET /api/admin/activations/pending.
func (h *ActivationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.ListPending(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, queue)
}

// ListAll handles GET /api/admin/activations.
func (h *ActivationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, queue)
}

// Approve handles POST /api/admin/activations/{userID}/{requestID}/approve.
func (h *ActivationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value(contextkeys.UserID).(string)
	userID := chi.URLParam(r, "userID")
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Approve(r.Context(), adminID, userID, requestID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, request)
}

// Reject handles POST /api/admin/activations/{userID}/{requestID}/reject.
func (h *ActivationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, _ := r.Context().Value(contextkeys.UserID).(string)
	userID := chi.URLParam(r, "userID")
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Reject(r.Context(), adminID, userID, requestID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, request)
}

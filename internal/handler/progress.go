package handler

import (
	"net/http"

	"github.com/surveypesa/backend/internal/contextkeys"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/service"
)

// ProgressHandler serves plan selection and survey progress endpoints.
type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// SelectPlan handles POST /api/plans/select.
func (h *ProgressHandler) SelectPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.SelectPlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	progress, err := h.svc.SelectPlan(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, progress)
}

// CompleteSurvey handles POST /api/surveys/complete.
func (h *ProgressHandler) CompleteSurvey(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.SurveyCompletionRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	progress, err := h.svc.RecordSurveyCompletion(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, progress)
}

// GetProgress handles GET /api/progress.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	progress, err := h.svc.GetProgress(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, progress)
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/repository"
)

// eventRecorder captures notifications for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Notify(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func seedUser(t *testing.T, store repository.Store, id string) *domain.User {
	t.Helper()
	u := domain.NewUser(id, "Test "+id, id+"@example.com", "0712345678", "hash", "user")
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

// completePlan drives a user through the full survey batch via the progress
// service, so completion credit applies exactly as in production.
func completePlan(t *testing.T, svc *ProgressService, userID string, plan domain.Plan) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.SelectPlan(ctx, userID, &domain.SelectPlanRequest{Plan: string(plan)}); err != nil {
		t.Fatalf("select plan: %v", err)
	}
	for i := 0; i < domain.TotalSurveys; i++ {
		if _, err := svc.RecordSurveyCompletion(ctx, userID, &domain.SurveyCompletionRequest{Plan: string(plan)}); err != nil {
			t.Fatalf("survey %d: %v", i+1, err)
		}
	}
}

// activatePlan submits and approves an activation request.
func activatePlan(t *testing.T, svc *ActivationService, userID string, plan domain.Plan) {
	t.Helper()
	ctx := context.Background()
	req, err := svc.Submit(ctx, userID, &domain.SubmitActivationRequest{Plan: string(plan), PaymentRef: "MPESA001"})
	if err != nil {
		t.Fatalf("submit activation: %v", err)
	}
	if _, err := svc.Approve(ctx, "admin", userID, req.ID); err != nil {
		t.Fatalf("approve activation: %v", err)
	}
}

func wantAppError(t *testing.T, err error, code int) *domain.AppError {
	t.Helper()
	appErr, ok := domain.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError with code %d, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %d, got %d (%s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

package service

import (
	"context"
	"testing"

	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/repository"
)

func newActivationEnv(t *testing.T) (*repository.MemoryStore, *ProgressService, *ActivationService, *eventRecorder) {
	t.Helper()
	store := repository.NewMemoryStore()
	rec := &eventRecorder{}
	referral := NewReferralService(store, rec)
	progress := NewProgressService(store, rec)
	activation := NewActivationService(store, referral, rec)
	return store, progress, activation, rec
}

func TestSubmitRequiresCompletedSurveys(t *testing.T) {
	store, progress, activation, _ := newActivationEnv(t)
	seedUser(t, store, "u1")
	ctx := context.Background()

	// No plan selected at all.
	_, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	wantAppError(t, err, 409)

	// Selected but not finished.
	if _, err := progress.SelectPlan(ctx, "u1", &domain.SelectPlanRequest{Plan: "REGULAR"}); err != nil {
		t.Fatalf("SelectPlan: %v", err)
	}
	_, err = activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	wantAppError(t, err, 409)
}

func TestSubmitAtMostOnePending(t *testing.T) {
	store, progress, activation, _ := newActivationEnv(t)
	seedUser(t, store, "u1")
	ctx := context.Background()

	completePlan(t, progress, "u1", domain.PlanRegular)

	first, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Amount != 100 || first.Status != domain.ActivationSubmitted {
		t.Fatalf("unexpected request: %+v", first)
	}

	_, err = activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA002"})
	wantAppError(t, err, 409)

	// A rejection clears the way for a fresh submission.
	if _, err := activation.Reject(ctx, "admin", "u1", first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA003"}); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestApproveActivatesPlan(t *testing.T) {
	store, progress, activation, rec := newActivationEnv(t)
	seedUser(t, store, "u1")
	ctx := context.Background()

	completePlan(t, progress, "u1", domain.PlanRegular)
	req, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, err := activation.Approve(ctx, "admin", "u1", req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out.Status != domain.ActivationApproved || out.ProcessedAt == nil {
		t.Fatalf("unexpected request after approval: %+v", out)
	}

	u, _ := store.GetUser(ctx, "u1")
	if !u.Plans[domain.PlanRegular].Activated {
		t.Error("plan not activated after approval")
	}
	if !u.Activated() {
		t.Error("user not activated after approval")
	}
	// The fee was paid out of band; approval must not touch the balance.
	if u.TotalEarned != 1500 {
		t.Errorf("balance changed by approval: got %d, want 1500", u.TotalEarned)
	}
	if got := rec.count(domain.EventActivationApproved); got != 1 {
		t.Errorf("activation_approved events: got %d, want 1", got)
	}

	// A processed request cannot be processed again.
	_, err = activation.Approve(ctx, "admin", "u1", req.ID)
	wantAppError(t, err, 409)
	_, err = activation.Reject(ctx, "admin", "u1", req.ID)
	wantAppError(t, err, 409)
}

func TestApproveUnknownRequest(t *testing.T) {
	store, _, activation, _ := newActivationEnv(t)
	seedUser(t, store, "u1")

	_, err := activation.Approve(context.Background(), "admin", "u1", "nope")
	wantAppError(t, err, 404)
}

func TestApproveAwardsCommissionOnce(t *testing.T) {
	store, progress, activation, rec := newActivationEnv(t)
	seedUser(t, store, "ref")
	ctx := context.Background()

	referred := domain.NewUser("u1", "Referred", "u1@example.com", "0712345678", "hash", "user")
	refID := "ref"
	referred.ReferredBy = &refID
	if err := store.CreateUser(ctx, referred); err != nil {
		t.Fatalf("create referred user: %v", err)
	}

	completePlan(t, progress, "u1", domain.PlanRegular)
	req, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := activation.Approve(ctx, "admin", "u1", req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	u, _ := store.GetUser(ctx, "ref")
	if u.ReferralCommissionEarned != domain.CommissionAmount {
		t.Errorf("commission earned: got %d, want %d", u.ReferralCommissionEarned, domain.CommissionAmount)
	}
	if u.TotalEarned != domain.CommissionAmount {
		t.Errorf("referrer balance: got %d, want %d", u.TotalEarned, domain.CommissionAmount)
	}
	if got := rec.count(domain.EventCommissionCredited); got != 1 {
		t.Errorf("commission_credited events: got %d, want 1", got)
	}

	// Activating a second plan for the same referred user must not pay again.
	completePlan(t, progress, "u1", domain.PlanVIP)
	req2, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "VIP", PaymentRef: "MPESA002"})
	if err != nil {
		t.Fatalf("submit VIP: %v", err)
	}
	if _, err := activation.Approve(ctx, "admin", "u1", req2.ID); err != nil {
		t.Fatalf("approve VIP: %v", err)
	}

	u, _ = store.GetUser(ctx, "ref")
	if u.ReferralCommissionEarned != domain.CommissionAmount {
		t.Errorf("commission paid twice: %d", u.ReferralCommissionEarned)
	}
}

func TestActivationQueues(t *testing.T) {
	store, progress, activation, _ := newActivationEnv(t)
	seedUser(t, store, "u1")
	seedUser(t, store, "u2")
	ctx := context.Background()

	completePlan(t, progress, "u1", domain.PlanRegular)
	completePlan(t, progress, "u2", domain.PlanVIP)

	r1, err := activation.Submit(ctx, "u1", &domain.SubmitActivationRequest{Plan: "REGULAR", PaymentRef: "MPESA001"})
	if err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	if _, err := activation.Submit(ctx, "u2", &domain.SubmitActivationRequest{Plan: "VIP", PaymentRef: "MPESA002"}); err != nil {
		t.Fatalf("submit u2: %v", err)
	}

	pending, err := activation.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending queue: got %d entries, want 2", len(pending))
	}
	// Oldest first for FIFO review.
	if pending[0].UserID != "u1" {
		t.Errorf("queue head: got %s, want u1", pending[0].UserID)
	}
	if pending[0].UserEmail == "" || pending[0].UserPhone == "" {
		t.Error("queue entry missing denormalized contact details")
	}

	if _, err := activation.Approve(ctx, "admin", "u1", r1.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending, _ = activation.ListPending(ctx)
	if len(pending) != 1 || pending[0].UserID != "u2" {
		t.Errorf("pending queue after approval: %+v", pending)
	}

	all, err := activation.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all-view: got %d entries, want 2", len(all))
	}

	history, err := activation.History(ctx, "u1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Status != domain.ActivationApproved {
		t.Errorf("history: %+v", history)
	}
}

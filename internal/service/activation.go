package service

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/notify"
	"github.com/surveypesa/backend/internal/repository"
)

// ActivationService runs the activation request state machine:
// SUBMITTED → APPROVED | REJECTED, one request per (user, plan) in flight.
type ActivationService struct {
	store    repository.Store
	referral *ReferralService
	notifier notify.Notifier
	validate *validator.Validate
}

func NewActivationService(store repository.Store, referral *ReferralService, notifier notify.Notifier) *ActivationService {
	return &ActivationService{
		store:    store,
		referral: referral,
		notifier: notifier,
		validate: validator.New(),
	}
}

// Submit records a claimed out-of-band activation payment for review. The
// platform never holds these funds; it only stores the payment reference for
// an operator to verify.
func (s *ActivationService) Submit(ctx context.Context, userID string, req *domain.SubmitActivationRequest) (*domain.ActivationRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid activation request")
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		return nil, domain.ErrValidation("unknown plan")
	}

	var out domain.ActivationRequest
	err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		p, ok := u.Plans[plan]
		if !ok || !p.Completed {
			return domain.ErrConflict("surveys not complete")
		}
		if p.Activated {
			return domain.ErrConflict("already activated")
		}
		if u.PendingActivation(plan) != nil {
			return domain.ErrConflict("already submitted and pending")
		}

		a := &domain.ActivationRequest{
			ID:         uuid.New().String(),
			Plan:       plan,
			PaymentRef: req.PaymentRef,
			Amount:     plan.ActivationFee(),
			Status:     domain.ActivationSubmitted,
			CreatedAt:  time.Now(),
		}
		u.Activations[a.ID] = a
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventActivationSubmitted,
		Payload:   map[string]string{"plan": string(plan), "requestId": out.ID},
		CreatedAt: time.Now(),
	})
	return &out, nil
}

// Approve commits the SUBMITTED → APPROVED transition and activates the
// plan. Preconditions are re-validated under the lock because state may have
// changed since submission. When the user was referred, the referrer's
// commission is awarded afterwards in its own lock scope: a failure there is
// logged, never rolled back into the activation, and a retry is safe because
// the commission engine is idempotent.
func (s *ActivationService) Approve(ctx context.Context, adminID, userID, requestID string) (*domain.ActivationRequest, error) {
	var out domain.ActivationRequest
	var referred bool
	err := s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		a, ok := u.Activations[requestID]
		if !ok {
			return domain.ErrNotFound("activation request not found")
		}
		if a.Status != domain.ActivationSubmitted {
			return domain.ErrConflict("request already processed")
		}
		p, ok := u.Plans[a.Plan]
		if !ok || !p.Completed {
			return domain.ErrConflict("surveys not complete")
		}
		if p.Activated {
			return domain.ErrConflict("already activated")
		}

		now := time.Now()
		a.Status = domain.ActivationApproved
		a.ProcessedAt = &now
		p.Activated = true
		p.ActivatedAt = &now
		referred = u.ReferredBy != nil
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventActivationApproved,
		Payload:   map[string]string{"plan": string(out.Plan), "requestId": out.ID, "adminId": adminID},
		CreatedAt: time.Now(),
	})

	if referred {
		if _, err := s.referral.Award(ctx, userID); err != nil {
			log.Printf("commission award failed for referred user %s: %v", userID, err)
		}
	}
	return &out, nil
}

// Reject commits SUBMITTED → REJECTED. No balance effect: the claimed fee was
// paid out-of-band and the ledger never held it.
func (s *ActivationService) Reject(ctx context.Context, adminID, userID, requestID string) (*domain.ActivationRequest, error) {
	var out domain.ActivationRequest
	err := s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		a, ok := u.Activations[requestID]
		if !ok {
			return domain.ErrNotFound("activation request not found")
		}
		if a.Status != domain.ActivationSubmitted {
			return domain.ErrConflict("request already processed")
		}

		now := time.Now()
		a.Status = domain.ActivationRejected
		a.ProcessedAt = &now
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventActivationRejected,
		Payload:   map[string]string{"plan": string(out.Plan), "requestId": out.ID, "adminId": adminID},
		CreatedAt: time.Now(),
	})
	return &out, nil
}

// ListPending returns the operator queue, oldest first.
func (s *ActivationService) ListPending(ctx context.Context) ([]*domain.PendingActivation, error) {
	return s.store.ListPendingActivations(ctx)
}

// ListAll returns every activation request, newest first.
func (s *ActivationService) ListAll(ctx context.Context) ([]*domain.PendingActivation, error) {
	return s.store.ListAllActivations(ctx)
}

// History returns one user's own activation requests, newest first.
func (s *ActivationService) History(ctx context.Context, userID string) ([]*domain.ActivationRequest, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load user", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	out := make([]*domain.ActivationRequest, 0, len(u.Activations))
	for _, a := range u.Activations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

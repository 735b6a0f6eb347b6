package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/notify"
	"github.com/surveypesa/backend/internal/repository"
)

// ProgressService is the plan progress tracker: survey increments and the
// one-time completion credit.
type ProgressService struct {
	store    repository.Store
	notifier notify.Notifier
	validate *validator.Validate
}

func NewProgressService(store repository.Store, notifier notify.Notifier) *ProgressService {
	return &ProgressService{
		store:    store,
		notifier: notifier,
		validate: validator.New(),
	}
}

// SelectPlan creates the progress entry for a plan if absent. Re-selecting an
// existing plan is a no-op.
func (s *ProgressService) SelectPlan(ctx context.Context, userID string, req *domain.SelectPlanRequest) (*domain.PlanProgress, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid plan selection")
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		return nil, domain.ErrValidation("unknown plan")
	}

	var out domain.PlanProgress
	err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		if _, ok := u.Plans[plan]; !ok {
			u.Plans[plan] = &domain.PlanProgress{Plan: plan}
		}
		out = *u.Plans[plan]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordSurveyCompletion increments the survey counter for a plan. Crossing
// the threshold flips Completed and credits the plan's total earning in the
// same transaction, exactly once; calling again after completion is a no-op
// that returns the current state.
func (s *ProgressService) RecordSurveyCompletion(ctx context.Context, userID string, req *domain.SurveyCompletionRequest) (*domain.PlanProgress, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid survey completion")
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		return nil, domain.ErrValidation("unknown plan")
	}

	var out domain.PlanProgress
	var completedNow bool
	err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		p, ok := u.Plans[plan]
		if !ok {
			return domain.ErrNotFound("plan not selected")
		}
		if p.Completed {
			out = *p
			return nil
		}

		p.SurveysCompleted++
		if p.SurveysCompleted >= domain.TotalSurveys {
			p.SurveysCompleted = domain.TotalSurveys
			p.Completed = true
			u.TotalEarned += plan.TotalEarning()
			completedNow = true
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		s.notifier.Notify(domain.Event{
			UserID:    userID,
			Kind:      domain.EventPlanCompleted,
			Payload:   map[string]string{"plan": string(plan)},
			CreatedAt: time.Now(),
		})
	}
	return &out, nil
}

// GetProgress returns the all-plan view plus the active-plan pointer.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (*domain.ProgressResponse, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load user", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	plans := make([]*domain.PlanProgress, 0, len(u.Plans))
	for _, code := range domain.Plans() {
		if p, ok := u.Plans[code]; ok {
			plans = append(plans, p)
		}
	}

	return &domain.ProgressResponse{
		Plans:                 plans,
		TotalSurveysCompleted: u.TotalSurveysCompleted(),
		ActivePlan:            u.ActivePlan(),
		TotalEarned:           u.TotalEarned,
		Activated:             u.Activated(),
	}, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/notify"
	"github.com/surveypesa/backend/internal/repository"
)

// WithdrawalService runs the withdrawal state machine:
// PROCESSING → APPROVED | REJECTED. Funds are reserved at request time — the
// balance is decremented inside the same transaction that inserts the
// request, which is what stops two concurrent requests from both passing the
// balance check.
type WithdrawalService struct {
	store    repository.Store
	notifier notify.Notifier
	validate *validator.Validate
}

func NewWithdrawalService(store repository.Store, notifier notify.Notifier) *WithdrawalService {
	return &WithdrawalService{
		store:    store,
		notifier: notifier,
		validate: validator.New(),
	}
}

// Request creates a PROCESSING withdrawal for the user.
func (s *WithdrawalService) Request(ctx context.Context, userID string, req *domain.WithdrawRequest) (*domain.WithdrawalRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid withdrawal request")
	}
	if req.Amount < domain.MinWithdraw {
		return nil, domain.ErrValidation(fmt.Sprintf("minimum withdrawal is %d", domain.MinWithdraw))
	}
	if req.Amount > domain.MaxWithdraw {
		return nil, domain.ErrValidation(fmt.Sprintf("maximum withdrawal is %d", domain.MaxWithdraw))
	}
	wType := domain.WithdrawalType(req.Type)

	var out domain.WithdrawalRequest
	err := s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		if !u.Activated() {
			return domain.ErrConflict("account not activated")
		}

		switch wType {
		case domain.WithdrawalWelcomeBonus:
			if u.WelcomeBonusWithdrawn {
				return domain.ErrConflict("welcome bonus already withdrawn")
			}
			// Single-in-flight and the daily cap hold across both types.
			if u.ProcessingWithdrawal() != nil {
				return domain.ErrConflict("a withdrawal is already processing")
			}
			if u.WithdrawalsOn(time.Now()) >= domain.DailyWithdrawLimit {
				return domain.ErrRateLimit("daily withdrawal limit reached")
			}
			if req.Amount > u.WelcomeBonus {
				return domain.ErrConflict("amount exceeds welcome bonus")
			}
			w := &domain.WithdrawalRequest{
				ID:        uuid.New().String(),
				Phone:     req.Phone,
				Amount:    req.Amount,
				Fee:       0,
				NetAmount: req.Amount,
				Type:      domain.WithdrawalWelcomeBonus,
				Status:    domain.WithdrawalProcessing,
				CreatedAt: time.Now(),
			}
			u.Withdrawals[w.ID] = w
			u.WelcomeBonusWithdrawn = true
			out = *w
			return nil

		case domain.WithdrawalNormal:
			if u.TotalSurveysCompleted() < domain.TotalSurveys {
				return domain.ErrConflict("surveys not complete")
			}
			if u.ProcessingWithdrawal() != nil {
				return domain.ErrConflict("a withdrawal is already processing")
			}
			if u.WithdrawalsOn(time.Now()) >= domain.DailyWithdrawLimit {
				return domain.ErrRateLimit("daily withdrawal limit reached")
			}
			plan, ok := u.BestActivatedPlan()
			if !ok {
				return domain.ErrConflict("account not activated")
			}
			fee := plan.WithdrawFee()
			if req.Amount <= fee {
				return domain.ErrValidation("amount does not cover the withdrawal fee")
			}
			if req.Amount > u.TotalEarned {
				return domain.ErrConflict("insufficient balance")
			}

			w := &domain.WithdrawalRequest{
				ID:        uuid.New().String(),
				Phone:     req.Phone,
				Amount:    req.Amount,
				Fee:       fee,
				NetAmount: req.Amount - fee,
				Type:      domain.WithdrawalNormal,
				Status:    domain.WithdrawalProcessing,
				CreatedAt: time.Now(),
			}
			u.Withdrawals[w.ID] = w
			// Reserve now: the request and the deduction commit together.
			u.TotalEarned -= req.Amount
			out = *w
			return nil
		}
		return domain.ErrValidation("unknown withdrawal type")
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventWithdrawalRequested,
		Payload:   map[string]string{"requestId": out.ID, "type": string(out.Type)},
		CreatedAt: time.Now(),
	})
	return &out, nil
}

// Approve commits PROCESSING → APPROVED. The funds were reserved when the
// request was created, so approval touches no balance.
func (s *WithdrawalService) Approve(ctx context.Context, adminID, requestID string) (*domain.WithdrawalRequest, error) {
	userID, err := s.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var out domain.WithdrawalRequest
	err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		w, ok := u.Withdrawals[requestID]
		if !ok {
			return domain.ErrNotFound("withdrawal request not found")
		}
		if w.Status != domain.WithdrawalProcessing {
			return domain.ErrConflict("request already processed")
		}
		now := time.Now()
		w.Status = domain.WithdrawalApproved
		w.ProcessedAt = &now
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventWithdrawalApproved,
		Payload:   map[string]string{"requestId": out.ID, "adminId": adminID},
		CreatedAt: time.Now(),
	})
	return &out, nil
}

// Reject commits PROCESSING → REJECTED and restores the reservation: the
// amount returns to the earned balance (or the welcome bonus becomes
// available again). A rejected request must leave the balance exactly as it
// was before the request existed.
func (s *WithdrawalService) Reject(ctx context.Context, adminID, requestID string) (*domain.WithdrawalRequest, error) {
	userID, err := s.findOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var out domain.WithdrawalRequest
	err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
		w, ok := u.Withdrawals[requestID]
		if !ok {
			return domain.ErrNotFound("withdrawal request not found")
		}
		if w.Status != domain.WithdrawalProcessing {
			return domain.ErrConflict("request already processed")
		}
		now := time.Now()
		w.Status = domain.WithdrawalRejected
		w.ProcessedAt = &now

		switch w.Type {
		case domain.WithdrawalNormal:
			u.TotalEarned += w.Amount
		case domain.WithdrawalWelcomeBonus:
			u.WelcomeBonusWithdrawn = false
		}
		out = *w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		UserID:    userID,
		Kind:      domain.EventWithdrawalRejected,
		Payload:   map[string]string{"requestId": out.ID, "adminId": adminID},
		CreatedAt: time.Now(),
	})
	return &out, nil
}

// findOwner resolves a withdrawal request id to its user via the flattened
// projection. The disposition itself re-validates everything under the
// owner's lock, so this unlocked read cannot introduce a race.
func (s *WithdrawalService) findOwner(ctx context.Context, requestID string) (string, error) {
	all, err := s.store.ListAllWithdrawals(ctx)
	if err != nil {
		return "", domain.ErrInternal("failed to list withdrawals", err)
	}
	for _, e := range all {
		if e.Request.ID == requestID {
			return e.UserID, nil
		}
	}
	return "", domain.ErrNotFound("withdrawal request not found")
}

// ListPending returns the operator payout queue, newest first.
func (s *WithdrawalService) ListPending(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.store.ListPendingWithdrawals(ctx)
}

// ListAll returns every withdrawal request, newest first.
func (s *WithdrawalService) ListAll(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.store.ListAllWithdrawals(ctx)
}

// History returns one user's own withdrawal requests, newest first.
func (s *WithdrawalService) History(ctx context.Context, userID string) ([]*domain.WithdrawalRequest, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load user", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	out := make([]*domain.WithdrawalRequest, 0, len(u.Withdrawals))
	for _, w := range u.Withdrawals {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

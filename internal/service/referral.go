package service

import (
	"context"
	"time"

	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/notify"
	"github.com/surveypesa/backend/internal/repository"
	"github.com/surveypesa/backend/pkg/refcode"
)

// ReferralService is the commission engine plus the read/utility side of the
// affiliate program.
type ReferralService struct {
	store    repository.Store
	notifier notify.Notifier
}

func NewReferralService(store repository.Store, notifier notify.Notifier) *ReferralService {
	return &ReferralService{store: store, notifier: notifier}
}

// Award credits the referrer of referredUserID with the fixed commission.
// The stored commission record, keyed by referred user id, is the sole
// idempotency guard: the existence check and the credit happen inside the
// same lock scope on the referrer's aggregate, so N concurrent calls credit
// exactly once. Returns whether a commission was credited by this call.
func (s *ReferralService) Award(ctx context.Context, referredUserID string) (bool, error) {
	referred, err := s.store.GetUser(ctx, referredUserID)
	if err != nil {
		return false, domain.ErrInternal("failed to load referred user", err)
	}
	if referred == nil {
		return false, domain.ErrNotFound("referred user not found")
	}
	if referred.ReferredBy == nil {
		return false, nil
	}
	referrerID := *referred.ReferredBy

	credited := false
	err = s.store.WithUserLock(ctx, referrerID, func(u *domain.User) error {
		if _, exists := u.Commissions[referredUserID]; exists {
			return nil // already awarded
		}
		u.Commissions[referredUserID] = &domain.ReferralCommission{
			ReferredUserID: referredUserID,
			Amount:         domain.CommissionAmount,
			Status:         "CREDITED",
			CreatedAt:      time.Now(),
		}
		u.ReferralCommissionEarned += domain.CommissionAmount
		u.TotalEarned += domain.CommissionAmount
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if credited {
		s.notifier.Notify(domain.Event{
			UserID:    referrerID,
			Kind:      domain.EventCommissionCredited,
			Payload:   map[string]string{"referredUserId": referredUserID},
			CreatedAt: time.Now(),
		})
	}
	return credited, nil
}

// VerifyReferralCode resolves a referral code to its owner. Returns
// (nil, nil) for an unknown but well-formed code.
func (s *ReferralService) VerifyReferralCode(ctx context.Context, code string) (*domain.User, error) {
	if !refcode.Valid(code) {
		return nil, domain.ErrValidation("malformed referral code")
	}
	u, err := s.store.FindUserByReferralCode(ctx, code)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up referral code", err)
	}
	return u, nil
}

// Stats returns the affiliate view for a user, generating and persisting the
// referral code on first read.
func (s *ReferralService) Stats(ctx context.Context, userID string) (*domain.AffiliateStats, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load user", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	if u.ReferralCode == nil {
		code, err := refcode.New()
		if err != nil {
			return nil, domain.ErrInternal("failed to generate referral code", err)
		}
		err = s.store.WithUserLock(ctx, userID, func(u *domain.User) error {
			// Another request may have generated one since our read.
			if u.ReferralCode == nil {
				u.ReferralCode = &code
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if u, err = s.store.GetUser(ctx, userID); err != nil || u == nil {
			return nil, domain.ErrInternal("failed to reload user", err)
		}
	}

	commissions := make([]*domain.ReferralCommission, 0, len(u.Commissions))
	for _, c := range u.Commissions {
		commissions = append(commissions, c)
	}

	return &domain.AffiliateStats{
		ReferralCode:     *u.ReferralCode,
		CommissionEarned: u.ReferralCommissionEarned,
		Commissions:      commissions,
	}, nil
}

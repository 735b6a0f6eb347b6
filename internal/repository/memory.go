package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/surveypesa/backend/internal/domain"
)

// MemoryStore is an in-process Store driver used by tests and local
// development. It gives the same contract as the Postgres driver: one writer
// per user aggregate at a time, and rollback when the mutation fn fails.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	locks map[string]*sync.Mutex // one lock per user aggregate
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*domain.User),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return domain.ErrConflict("email already registered")
		}
	}
	s.users[u.ID] = u.Clone()
	s.locks[u.ID] = &sync.Mutex{}
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return u.Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByReferralCode(_ context.Context, code string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// WithUserLock serializes mutations per user. fn receives a deep copy of the
// aggregate; the copy replaces the stored one only when fn returns nil, so a
// failed mutation leaves no partial state behind.
func (s *MemoryStore) WithUserLock(_ context.Context, userID string, fn func(u *domain.User) error) error {
	s.mu.RLock()
	lock, ok := s.locks[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound("user not found")
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound("user not found")
	}

	snapshot := current.Clone()
	if err := fn(snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	s.users[userID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListPendingActivations(_ context.Context) ([]*domain.PendingActivation, error) {
	return s.listActivations(true)
}

func (s *MemoryStore) ListAllActivations(_ context.Context) ([]*domain.PendingActivation, error) {
	return s.listActivations(false)
}

func (s *MemoryStore) listActivations(pendingOnly bool) ([]*domain.PendingActivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PendingActivation, 0)
	for _, u := range s.users {
		for _, req := range u.Activations {
			if pendingOnly && req.Status != domain.ActivationSubmitted {
				continue
			}
			out = append(out, &domain.PendingActivation{
				UserID:    u.ID,
				UserName:  u.Name,
				UserEmail: u.Email,
				UserPhone: u.Phone,
				Request:   *req,
			})
		}
	}
	// Pending queue is oldest-first for FIFO review; the all-view is newest
	// first.
	sort.Slice(out, func(i, j int) bool {
		if pendingOnly {
			return out[i].Request.CreatedAt.Before(out[j].Request.CreatedAt)
		}
		return out[i].Request.CreatedAt.After(out[j].Request.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListPendingWithdrawals(_ context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.listWithdrawals(true)
}

func (s *MemoryStore) ListAllWithdrawals(_ context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.listWithdrawals(false)
}

func (s *MemoryStore) listWithdrawals(pendingOnly bool) ([]*domain.PendingWithdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PendingWithdrawal, 0)
	for _, u := range s.users {
		for _, req := range u.Withdrawals {
			if pendingOnly && req.Status != domain.WithdrawalProcessing {
				continue
			}
			out = append(out, &domain.PendingWithdrawal{
				UserID:    u.ID,
				UserName:  u.Name,
				UserEmail: u.Email,
				UserPhone: u.Phone,
				Request:   *req,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Request.CreatedAt.After(out[j].Request.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

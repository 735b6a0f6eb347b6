package repository

import (
	"context"

	"github.com/surveypesa/backend/internal/domain"
)

// Store is the persistence boundary of the rewards ledger. Every state
// transition on a user aggregate goes through WithUserLock; the read methods
// serve dashboards and operator queues without taking the write lock.
//
// Two drivers implement it: Postgres (production) and an in-process memory
// store (tests, local development).
type Store interface {
	// CreateUser inserts a new aggregate. The email must be unused.
	CreateUser(ctx context.Context, u *domain.User) error

	// GetUser loads a full aggregate. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// FindUserByEmail returns (nil, nil) when absent.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByReferralCode returns (nil, nil) when absent.
	FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error)

	// ListUsers returns all aggregates, newest first.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// WithUserLock acquires an exclusive lock on exactly one user aggregate,
	// hands fn a consistent snapshot, and commits the mutated aggregate when
	// fn returns nil. Any error from fn aborts the whole mutation; no partial
	// state is ever visible. Calls for the same user id are fully serialized;
	// different users proceed independently.
	WithUserLock(ctx context.Context, userID string, fn func(u *domain.User) error) error

	// Operator queue projections, flattened across all users.
	ListPendingActivations(ctx context.Context) ([]*domain.PendingActivation, error)
	ListAllActivations(ctx context.Context) ([]*domain.PendingActivation, error)
	ListPendingWithdrawals(ctx context.Context) ([]*domain.PendingWithdrawal, error)
	ListAllWithdrawals(ctx context.Context) ([]*domain.PendingWithdrawal, error)

	Ping(ctx context.Context) error
	Close() error
}

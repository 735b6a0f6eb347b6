package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/surveypesa/backend/internal/domain"
)

// PostgresStore is the production Store driver. WithUserLock maps the
// per-user lock onto a row lock: the user row is read with FOR UPDATE inside
// a transaction, so two concurrent mutations of the same aggregate serialize
// at the database and the loser re-reads committed state.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the aggregate
// loader works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, password_hash, role, total_earned,
			welcome_bonus, welcome_bonus_withdrawn, referred_by, referral_code,
			referral_commission_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.TotalEarned,
		u.WelcomeBonus, u.WelcomeBonusWithdrawn, u.ReferredBy, u.ReferralCode,
		u.ReferralCommissionEarned, u.CreatedAt,
	)
	if err != nil {
		// The pre-insert email check in the auth service races with
		// concurrent registration; the unique index is the real guard.
		if uniqueViolation(err) {
			return domain.ErrConflict("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.loadUser(ctx, s.db, id, false)
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return s.loadUser(ctx, s.db, id, false)
}

func (s *PostgresStore) FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE referral_code = $1`, code).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by referral code: %w", err)
	}
	return s.loadUser(ctx, s.db, id, false)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.loadUser(ctx, s.db, id, false)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// WithUserLock runs fn against a consistent snapshot of the aggregate inside
// one transaction. The mutated aggregate is written back and committed only
// when fn returns nil; any error aborts the transaction entirely.
func (s *PostgresStore) WithUserLock(ctx context.Context, userID string, fn func(u *domain.User) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	u, err := s.loadUser(ctx, tx, userID, true)
	if err != nil {
		return domain.ErrInternal("failed to load user", err)
	}
	if u == nil {
		return domain.ErrNotFound("user not found")
	}

	if err := fn(u); err != nil {
		return err
	}

	if err := s.saveUser(ctx, tx, u); err != nil {
		return domain.ErrInternal("failed to save user", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("failed to commit transaction", err)
	}
	return nil
}

// loadUser reads the user row (with FOR UPDATE when locking) and then the
// owned collections. Returns (nil, nil) when the user does not exist.
func (s *PostgresStore) loadUser(ctx context.Context, q querier, id string, forUpdate bool) (*domain.User, error) {
	query := `
		SELECT id, name, email, phone, password_hash, role, total_earned,
			welcome_bonus, welcome_bonus_withdrawn, referred_by, referral_code,
			referral_commission_earned, created_at
		FROM users WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var u domain.User
	err := q.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.TotalEarned,
		&u.WelcomeBonus, &u.WelcomeBonusWithdrawn, &u.ReferredBy, &u.ReferralCode,
		&u.ReferralCommissionEarned, &u.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	u.Plans = make(map[domain.Plan]*domain.PlanProgress)
	u.Activations = make(map[string]*domain.ActivationRequest)
	u.Withdrawals = make(map[string]*domain.WithdrawalRequest)
	u.Commissions = make(map[string]*domain.ReferralCommission)

	rows, err := q.Query(ctx, `
		SELECT plan, surveys_completed, completed, activated, activated_at
		FROM plan_progress WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan progress: %w", err)
	}
	for rows.Next() {
		var p domain.PlanProgress
		if err := rows.Scan(&p.Plan, &p.SurveysCompleted, &p.Completed, &p.Activated, &p.ActivatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan plan progress: %w", err)
		}
		u.Plans[p.Plan] = &p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT id, plan, payment_ref, amount, status, created_at, processed_at
		FROM activation_requests WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load activation requests: %w", err)
	}
	for rows.Next() {
		var a domain.ActivationRequest
		if err := rows.Scan(&a.ID, &a.Plan, &a.PaymentRef, &a.Amount, &a.Status, &a.CreatedAt, &a.ProcessedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan activation request: %w", err)
		}
		u.Activations[a.ID] = &a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT id, phone, amount, fee, net_amount, type, status, created_at, processed_at
		FROM withdrawal_requests WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawal requests: %w", err)
	}
	for rows.Next() {
		var w domain.WithdrawalRequest
		if err := rows.Scan(&w.ID, &w.Phone, &w.Amount, &w.Fee, &w.NetAmount, &w.Type, &w.Status, &w.CreatedAt, &w.ProcessedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		u.Withdrawals[w.ID] = &w
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `
		SELECT referred_user_id, amount, status, created_at
		FROM referral_commissions WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral commissions: %w", err)
	}
	for rows.Next() {
		var c domain.ReferralCommission
		if err := rows.Scan(&c.ReferredUserID, &c.Amount, &c.Status, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan referral commission: %w", err)
		}
		u.Commissions[c.ReferredUserID] = &c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &u, nil
}

// saveUser writes the aggregate back inside the locking transaction. Owned
// entities are upserted by their stable ids; commissions are insert-only and
// rely on the primary key as the idempotency guard.
func (s *PostgresStore) saveUser(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET total_earned = $2, welcome_bonus_withdrawn = $3,
			referral_code = $4, referral_commission_earned = $5
		WHERE id = $1`,
		u.ID, u.TotalEarned, u.WelcomeBonusWithdrawn, u.ReferralCode, u.ReferralCommissionEarned,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	for _, p := range u.Plans {
		_, err := tx.Exec(ctx, `
			INSERT INTO plan_progress (user_id, plan, surveys_completed, completed, activated, activated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, plan) DO UPDATE SET
				surveys_completed = EXCLUDED.surveys_completed,
				completed = EXCLUDED.completed,
				activated = EXCLUDED.activated,
				activated_at = EXCLUDED.activated_at`,
			u.ID, p.Plan, p.SurveysCompleted, p.Completed, p.Activated, p.ActivatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert plan progress: %w", err)
		}
	}

	for _, a := range u.Activations {
		_, err := tx.Exec(ctx, `
			INSERT INTO activation_requests (id, user_id, plan, payment_ref, amount, status, created_at, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				processed_at = EXCLUDED.processed_at`,
			a.ID, u.ID, a.Plan, a.PaymentRef, a.Amount, a.Status, a.CreatedAt, a.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert activation request: %w", err)
		}
	}

	for _, w := range u.Withdrawals {
		_, err := tx.Exec(ctx, `
			INSERT INTO withdrawal_requests (id, user_id, phone, amount, fee, net_amount, type, status, created_at, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				processed_at = EXCLUDED.processed_at`,
			w.ID, u.ID, w.Phone, w.Amount, w.Fee, w.NetAmount, w.Type, w.Status, w.CreatedAt, w.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert withdrawal request: %w", err)
		}
	}

	for _, c := range u.Commissions {
		_, err := tx.Exec(ctx, `
			INSERT INTO referral_commissions (user_id, referred_user_id, amount, status, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, referred_user_id) DO NOTHING`,
			u.ID, c.ReferredUserID, c.Amount, c.Status, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert referral commission: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) ListPendingActivations(ctx context.Context) ([]*domain.PendingActivation, error) {
	// Oldest first: the operator queue is handled FIFO.
	return s.queryActivations(ctx, `
		SELECT a.id, a.plan, a.payment_ref, a.amount, a.status, a.created_at, a.processed_at,
			u.id, u.name, u.email, u.phone
		FROM activation_requests a
		JOIN users u ON u.id = a.user_id
		WHERE a.status = 'SUBMITTED'
		ORDER BY a.created_at ASC`)
}

func (s *PostgresStore) ListAllActivations(ctx context.Context) ([]*domain.PendingActivation, error) {
	return s.queryActivations(ctx, `
		SELECT a.id, a.plan, a.payment_ref, a.amount, a.status, a.created_at, a.processed_at,
			u.id, u.name, u.email, u.phone
		FROM activation_requests a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC`)
}

func (s *PostgresStore) queryActivations(ctx context.Context, query string) ([]*domain.PendingActivation, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list activation requests: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PendingActivation, 0)
	for rows.Next() {
		var e domain.PendingActivation
		if err := rows.Scan(
			&e.Request.ID, &e.Request.Plan, &e.Request.PaymentRef, &e.Request.Amount,
			&e.Request.Status, &e.Request.CreatedAt, &e.Request.ProcessedAt,
			&e.UserID, &e.UserName, &e.UserEmail, &e.UserPhone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activation queue entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPendingWithdrawals(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.queryWithdrawals(ctx, `
		SELECT w.id, w.phone, w.amount, w.fee, w.net_amount, w.type, w.status, w.created_at, w.processed_at,
			u.id, u.name, u.email, u.phone
		FROM withdrawal_requests w
		JOIN users u ON u.id = w.user_id
		WHERE w.status = 'PROCESSING'
		ORDER BY w.created_at DESC`)
}

func (s *PostgresStore) ListAllWithdrawals(ctx context.Context) ([]*domain.PendingWithdrawal, error) {
	return s.queryWithdrawals(ctx, `
		SELECT w.id, w.phone, w.amount, w.fee, w.net_amount, w.type, w.status, w.created_at, w.processed_at,
			u.id, u.name, u.email, u.phone
		FROM withdrawal_requests w
		JOIN users u ON u.id = w.user_id
		ORDER BY w.created_at DESC`)
}

func (s *PostgresStore) queryWithdrawals(ctx context.Context, query string) ([]*domain.PendingWithdrawal, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PendingWithdrawal, 0)
	for rows.Next() {
		var e domain.PendingWithdrawal
		if err := rows.Scan(
			&e.Request.ID, &e.Request.Phone, &e.Request.Amount, &e.Request.Fee,
			&e.Request.NetAmount, &e.Request.Type, &e.Request.Status,
			&e.Request.CreatedAt, &e.Request.ProcessedAt,
			&e.UserID, &e.UserName, &e.UserEmail, &e.UserPhone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal queue entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

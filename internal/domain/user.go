package domain

import "time"

// ActivationStatus is the state of an activation request.
type ActivationStatus string

const (
	ActivationSubmitted ActivationStatus = "SUBMITTED"
	ActivationApproved  ActivationStatus = "APPROVED"
	ActivationRejected  ActivationStatus = "REJECTED"
)

// WithdrawalStatus is the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalApproved   WithdrawalStatus = "APPROVED"
	WithdrawalRejected   WithdrawalStatus = "REJECTED"
)

// WithdrawalType distinguishes earned-balance withdrawals from the one-shot
// welcome bonus.
type WithdrawalType string

const (
	WithdrawalNormal       WithdrawalType = "normal"
	WithdrawalWelcomeBonus WithdrawalType = "welcome_bonus"
)

// PlanProgress tracks one user's survey batch for one plan. SurveysCompleted
// only ever increases, and Completed/Activated only ever flip false→true.
type PlanProgress struct {
	Plan             Plan       `json:"plan"`
	SurveysCompleted int        `json:"surveysCompleted"`
	Completed        bool       `json:"completed"`
	Activated        bool       `json:"activated"`
	ActivatedAt      *time.Time `json:"activatedAt,omitempty"`
}

// ActivationRequest records a claimed out-of-band activation payment awaiting
// operator review.
type ActivationRequest struct {
	ID          string           `json:"id"`
	Plan        Plan             `json:"plan"`
	PaymentRef  string           `json:"paymentRef"`
	Amount      int64            `json:"amount"`
	Status      ActivationStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`
}

// WithdrawalRequest records a payout instruction. Funds are reserved (deducted
// from TotalEarned) the moment the request is created, not at approval.
type WithdrawalRequest struct {
	ID          string           `json:"id"`
	Phone       string           `json:"phone"`
	Amount      int64            `json:"amount"`
	Fee         int64            `json:"fee"`
	NetAmount   int64            `json:"netAmount"`
	Type        WithdrawalType   `json:"type"`
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`
}

// ReferralCommission is the idempotency guard against double commission: at
// most one record per distinct referred user, ever.
type ReferralCommission struct {
	ReferredUserID string    `json:"referredUserId"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"` // always CREDITED
	CreatedAt      time.Time `json:"createdAt"`
}

// User is the root aggregate. Owned sub-entities live in keyed collections so
// every lookup and mutation is by stable id under the user's lock.
type User struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Email                    string `json:"email"`
	Phone                    string `json:"phone"`
	PasswordHash             string `json:"-"`
	Role                     string `json:"role"`
	TotalEarned              int64  `json:"totalEarned"`
	WelcomeBonus             int64  `json:"welcomeBonus"`
	WelcomeBonusWithdrawn    bool   `json:"welcomeBonusWithdrawn"`
	ReferredBy               *string `json:"referredBy,omitempty"`
	ReferralCode             *string `json:"referralCode,omitempty"`
	ReferralCommissionEarned int64   `json:"referralCommissionEarned"`

	Plans       map[Plan]*PlanProgress         `json:"plans"`
	Activations map[string]*ActivationRequest  `json:"-"`
	Withdrawals map[string]*WithdrawalRequest  `json:"-"`
	Commissions map[string]*ReferralCommission `json:"-"` // keyed by referred user id

	CreatedAt time.Time `json:"createdAt"`
}

// NewUser returns a user aggregate with empty collections and the fixed
// welcome bonus granted.
func NewUser(id, name, email, phone, passwordHash, role string) *User {
	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         role,
		WelcomeBonus: WelcomeBonus,
		Plans:        make(map[Plan]*PlanProgress),
		Activations:  make(map[string]*ActivationRequest),
		Withdrawals:  make(map[string]*WithdrawalRequest),
		Commissions:  make(map[string]*ReferralCommission),
		CreatedAt:    time.Now(),
	}
}

// Activated reports whether any plan has been activated. The global flag is
// derived from the per-plan flags rather than stored, so the two can never
// drift apart.
func (u *User) Activated() bool {
	for _, p := range u.Plans {
		if p.Activated {
			return true
		}
	}
	return false
}

// TotalSurveysCompleted sums survey counts across all plans.
func (u *User) TotalSurveysCompleted() int {
	total := 0
	for _, p := range u.Plans {
		total += p.SurveysCompleted
	}
	return total
}

// ActivePlan returns the first plan (in tier order) that is completed but not
// yet activated, or nil if there is none.
func (u *User) ActivePlan() *PlanProgress {
	for _, code := range Plans() {
		if p, ok := u.Plans[code]; ok && p.Completed && !p.Activated {
			return p
		}
	}
	return nil
}

// BestActivatedPlan returns the highest activated tier, used to pick the
// withdrawal fee. Returns false if no plan is activated.
func (u *User) BestActivatedPlan() (Plan, bool) {
	plans := Plans()
	for i := len(plans) - 1; i >= 0; i-- {
		if p, ok := u.Plans[plans[i]]; ok && p.Activated {
			return plans[i], true
		}
	}
	return "", false
}

// PendingActivation returns the SUBMITTED request for a plan, if any.
func (u *User) PendingActivation(plan Plan) *ActivationRequest {
	for _, req := range u.Activations {
		if req.Plan == plan && req.Status == ActivationSubmitted {
			return req
		}
	}
	return nil
}

// ProcessingWithdrawal returns the in-flight withdrawal, if any. The ledger
// allows at most one.
func (u *User) ProcessingWithdrawal() *WithdrawalRequest {
	for _, req := range u.Withdrawals {
		if req.Status == WithdrawalProcessing {
			return req
		}
	}
	return nil
}

// WithdrawalsOn counts withdrawal requests created on the same calendar day
// as t, in t's location. Rejected requests are excluded: a rejection undoes
// the request entirely, daily slot included.
func (u *User) WithdrawalsOn(t time.Time) int {
	y, m, d := t.Date()
	n := 0
	for _, req := range u.Withdrawals {
		if req.Status == WithdrawalRejected {
			continue
		}
		ry, rm, rd := req.CreatedAt.In(t.Location()).Date()
		if ry == y && rm == m && rd == d {
			n++
		}
	}
	return n
}

// Clone deep-copies the aggregate. The memory store mutates a clone and only
// swaps it in on commit, which gives fn-failure rollback semantics.
func (u *User) Clone() *User {
	c := *u
	c.Plans = make(map[Plan]*PlanProgress, len(u.Plans))
	for k, v := range u.Plans {
		p := *v
		c.Plans[k] = &p
	}
	c.Activations = make(map[string]*ActivationRequest, len(u.Activations))
	for k, v := range u.Activations {
		a := *v
		c.Activations[k] = &a
	}
	c.Withdrawals = make(map[string]*WithdrawalRequest, len(u.Withdrawals))
	for k, v := range u.Withdrawals {
		w := *v
		c.Withdrawals[k] = &w
	}
	c.Commissions = make(map[string]*ReferralCommission, len(u.Commissions))
	for k, v := range u.Commissions {
		r := *v
		c.Commissions[k] = &r
	}
	return &c
}

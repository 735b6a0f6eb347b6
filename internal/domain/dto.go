package domain

import "time"

// Auth

// RegisterRequest is the validated input for creating an account. The
// referral code is optional and only links ReferredBy when it resolves.
type RegisterRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=10,max=15"`
	Password     string `json:"password" validate:"required,min=6"`
	ReferralCode string `json:"referralCode" validate:"omitempty,len=8"`
}

// LoginRequest is the validated input for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginResponse is the API response after successful login.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// LoginUser is the user info returned after login.
type LoginUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTClaims holds the verified identity the core trusts.
type JWTClaims struct {
	Sub  string
	Role string
}

// Plan progress

// SelectPlanRequest is the input for selecting a survey track.
type SelectPlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=REGULAR VIP VVIP"`
}

// SurveyCompletionRequest is the input for recording one survey completion.
type SurveyCompletionRequest struct {
	Plan string `json:"plan" validate:"required,oneof=REGULAR VIP VVIP"`
}

// ProgressResponse is the aggregate view across all plans.
type ProgressResponse struct {
	Plans                 []*PlanProgress `json:"plans"`
	TotalSurveysCompleted int             `json:"totalSurveysCompleted"`
	ActivePlan            *PlanProgress   `json:"activePlan,omitempty"`
	TotalEarned           int64           `json:"totalEarned"`
	Activated             bool            `json:"activated"`
}

// Activation

// SubmitActivationRequest is the input for claiming an activation payment.
type SubmitActivationRequest struct {
	Plan       string `json:"plan" validate:"required,oneof=REGULAR VIP VVIP"`
	PaymentRef string `json:"paymentRef" validate:"required,min=4,max=64"`
}

// Withdrawal

// WithdrawRequest is the input for requesting a payout.
type WithdrawRequest struct {
	Phone  string `json:"phone" validate:"required,min=10,max=15"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Type   string `json:"type" validate:"required,oneof=normal welcome_bonus"`
}

// Admin queues

// PendingActivation is one entry in the operator activation queue, with
// enough denormalized identity for manual review.
type PendingActivation struct {
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName"`
	UserEmail string            `json:"userEmail"`
	UserPhone string            `json:"userPhone"`
	Request   ActivationRequest `json:"request"`
}

// PendingWithdrawal is one entry in the operator withdrawal queue.
type PendingWithdrawal struct {
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName"`
	UserEmail string            `json:"userEmail"`
	UserPhone string            `json:"userPhone"`
	Request   WithdrawalRequest `json:"request"`
}

// Referral

// AffiliateStats is the affiliate dashboard view for one user.
type AffiliateStats struct {
	ReferralCode     string                `json:"referralCode"`
	CommissionEarned int64                 `json:"commissionEarned"`
	Commissions      []*ReferralCommission `json:"commissions"`
}

// UserResponse is the admin-facing user listing entry.
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
	TotalEarned int64     `json:"totalEarned"`
	Activated   bool      `json:"activated"`
	CreatedAt   time.Time `json:"createdAt"`
}

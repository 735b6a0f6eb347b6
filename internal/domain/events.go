package domain

import "time"

// EventKind identifies a notification event.
type EventKind string

const (
	EventPlanCompleted       EventKind = "plan_completed"
	EventActivationSubmitted EventKind = "activation_submitted"
	EventActivationApproved  EventKind = "activation_approved"
	EventActivationRejected  EventKind = "activation_rejected"
	EventWithdrawalRequested EventKind = "withdrawal_requested"
	EventWithdrawalApproved  EventKind = "withdrawal_approved"
	EventWithdrawalRejected  EventKind = "withdrawal_rejected"
	EventCommissionCredited  EventKind = "commission_credited"
)

// Event is the fire-and-forget payload handed to the notification
// collaborator. Delivery failure never affects a ledger transaction.
type Event struct {
	UserID    string            `json:"userId"`
	Kind      EventKind         `json:"kind"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

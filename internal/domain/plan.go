package domain

import "fmt"

// Plan is one of the fixed survey tracks. The set is closed: every lookup
// below is an exhaustive switch, so a mistyped or newly added plan code is a
// compile-time concern rather than a runtime one.
type Plan string

const (
	PlanRegular Plan = "REGULAR"
	PlanVIP     Plan = "VIP"
	PlanVVIP    Plan = "VVIP"
)

// Plans returns all plan codes in ascending tier order.
func Plans() []Plan {
	return []Plan{PlanRegular, PlanVIP, PlanVVIP}
}

// ParsePlan validates a raw plan code.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanRegular, PlanVIP, PlanVVIP:
		return Plan(s), nil
	}
	return "", fmt.Errorf("unknown plan %q", s)
}

// Fixed configuration. All amounts are integer shillings — no floating point
// anywhere in the ledger.
const (
	TotalSurveys       = 10
	MinWithdraw        = 200
	MaxWithdraw        = 500000
	DailyWithdrawLimit = 1
	CommissionAmount   = 50
	WelcomeBonus       = 200
)

// TotalEarning returns the amount credited when a plan's survey batch is
// completed.
func (p Plan) TotalEarning() int64 {
	switch p {
	case PlanRegular:
		return 1500
	case PlanVIP:
		return 2000
	case PlanVVIP:
		return 3000
	}
	panic(fmt.Sprintf("domain: unknown plan %q", string(p)))
}

// ActivationFee returns the one-time fee an operator verifies before a plan's
// earnings can be withdrawn.
func (p Plan) ActivationFee() int64 {
	switch p {
	case PlanRegular:
		return 100
	case PlanVIP:
		return 150
	case PlanVVIP:
		return 200
	}
	panic(fmt.Sprintf("domain: unknown plan %q", string(p)))
}

// WithdrawFee returns the per-withdrawal fee for a plan. The top tier pays
// none.
func (p Plan) WithdrawFee() int64 {
	switch p {
	case PlanRegular:
		return 10
	case PlanVIP:
		return 5
	case PlanVVIP:
		return 0
	}
	panic(fmt.Sprintf("domain: unknown plan %q", string(p)))
}

package domain

import (
	"testing"
	"time"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		input   string
		want    Plan
		wantErr bool
	}{
		{"REGULAR", PlanRegular, false},
		{"VIP", PlanVIP, false},
		{"VVIP", PlanVVIP, false},
		{"regular", "", true},
		{"GOLD", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlan(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePlan(%q): expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePlan(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePlan(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlanTiers(t *testing.T) {
	tests := []struct {
		plan          Plan
		totalEarning  int64
		activationFee int64
		withdrawFee   int64
	}{
		{PlanRegular, 1500, 100, 10},
		{PlanVIP, 2000, 150, 5},
		{PlanVVIP, 3000, 200, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			if got := tt.plan.TotalEarning(); got != tt.totalEarning {
				t.Errorf("TotalEarning: got %d, want %d", got, tt.totalEarning)
			}
			if got := tt.plan.ActivationFee(); got != tt.activationFee {
				t.Errorf("ActivationFee: got %d, want %d", got, tt.activationFee)
			}
			if got := tt.plan.WithdrawFee(); got != tt.withdrawFee {
				t.Errorf("WithdrawFee: got %d, want %d", got, tt.withdrawFee)
			}
		})
	}
}

func TestPlansOrderedByTier(t *testing.T) {
	plans := Plans()
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}
	for i := 1; i < len(plans); i++ {
		if plans[i-1].TotalEarning() >= plans[i].TotalEarning() {
			t.Errorf("plans not in ascending tier order: %q before %q", plans[i-1], plans[i])
		}
	}
}

// The welcome bonus must itself be withdrawable, so it cannot sit below the
// minimum withdrawal amount.
func TestWelcomeBonusWithdrawable(t *testing.T) {
	if WelcomeBonus < MinWithdraw {
		t.Errorf("welcome bonus %d is below the minimum withdrawal %d", WelcomeBonus, MinWithdraw)
	}
}

func TestUserDerivedState(t *testing.T) {
	u := NewUser("u1", "Alice", "alice@example.com", "0712345678", "hash", "user")
	if u.WelcomeBonus != WelcomeBonus {
		t.Errorf("WelcomeBonus: got %d, want %d", u.WelcomeBonus, WelcomeBonus)
	}
	if u.Activated() {
		t.Error("new user should not be activated")
	}

	u.Plans[PlanRegular] = &PlanProgress{Plan: PlanRegular, SurveysCompleted: 10, Completed: true}
	u.Plans[PlanVIP] = &PlanProgress{Plan: PlanVIP, SurveysCompleted: 4}

	if got := u.TotalSurveysCompleted(); got != 14 {
		t.Errorf("TotalSurveysCompleted: got %d, want 14", got)
	}
	if ap := u.ActivePlan(); ap == nil || ap.Plan != PlanRegular {
		t.Errorf("ActivePlan: got %v, want REGULAR", ap)
	}
	if _, ok := u.BestActivatedPlan(); ok {
		t.Error("BestActivatedPlan: expected none before activation")
	}

	u.Plans[PlanRegular].Activated = true
	if !u.Activated() {
		t.Error("user with an activated plan should be activated")
	}
	if u.ActivePlan() != nil {
		t.Error("ActivePlan: expected nil once the completed plan is activated")
	}
	if plan, ok := u.BestActivatedPlan(); !ok || plan != PlanRegular {
		t.Errorf("BestActivatedPlan: got %q, want REGULAR", plan)
	}

	u.Plans[PlanVIP].Completed = true
	u.Plans[PlanVIP].Activated = true
	if plan, _ := u.BestActivatedPlan(); plan != PlanVIP {
		t.Errorf("BestActivatedPlan: got %q, want VIP", plan)
	}
}

func TestWithdrawalsOnCountsByDayAndStatus(t *testing.T) {
	u := NewUser("u1", "Alice", "alice@example.com", "0712345678", "hash", "user")
	now := time.Now()

	u.Withdrawals["w1"] = &WithdrawalRequest{ID: "w1", Status: WithdrawalApproved, CreatedAt: now}
	u.Withdrawals["w2"] = &WithdrawalRequest{ID: "w2", Status: WithdrawalRejected, CreatedAt: now}
	u.Withdrawals["w3"] = &WithdrawalRequest{ID: "w3", Status: WithdrawalProcessing, CreatedAt: now.AddDate(0, 0, -1)}

	// Same day, not rejected: only w1 counts.
	if got := u.WithdrawalsOn(now); got != 1 {
		t.Errorf("WithdrawalsOn(today): got %d, want 1", got)
	}
	if got := u.WithdrawalsOn(now.AddDate(0, 0, -1)); got != 1 {
		t.Errorf("WithdrawalsOn(yesterday): got %d, want 1", got)
	}
}

func TestUserCloneIsDeep(t *testing.T) {
	u := NewUser("u1", "Alice", "alice@example.com", "0712345678", "hash", "user")
	u.Plans[PlanRegular] = &PlanProgress{Plan: PlanRegular, SurveysCompleted: 3}

	c := u.Clone()
	c.Plans[PlanRegular].SurveysCompleted = 9
	c.TotalEarned = 500

	if u.Plans[PlanRegular].SurveysCompleted != 3 {
		t.Error("clone mutation leaked into the original plan progress")
	}
	if u.TotalEarned != 0 {
		t.Error("clone mutation leaked into the original balance")
	}
}

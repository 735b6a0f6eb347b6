package service

import (
	"context"
	"sync"
	"testing"

	"github.com/surveypesa/backend/internal/domain"
	"github.com/surveypesa/backend/internal/repository"
	"github.com/surveypesa/backend/pkg/refcode"
)

func seedReferredUser(t *testing.T, store repository.Store, id, referrerID string) {
	t.Helper()
	u := domain.NewUser(id, "Referred "+id, id+"@example.com", "0712345678", "hash", "user")
	u.ReferredBy = &referrerID
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed referred user %s: %v", id, err)
	}
}

func TestAwardCreditsReferrer(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := &eventRecorder{}
	svc := NewReferralService(store, rec)
	seedUser(t, store, "ref")
	seedReferredUser(t, store, "u1", "ref")
	ctx := context.Background()

	credited, err := svc.Award(ctx, "u1")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if !credited {
		t.Fatal("first award should credit")
	}

	u, _ := store.GetUser(ctx, "ref")
	if u.TotalEarned != domain.CommissionAmount || u.ReferralCommissionEarned != domain.CommissionAmount {
		t.Errorf("referrer balances: earned %d commission %d, want %d each",
			u.TotalEarned, u.ReferralCommissionEarned, domain.CommissionAmount)
	}
	c, ok := u.Commissions["u1"]
	if !ok || c.Amount != domain.CommissionAmount || c.Status != "CREDITED" {
		t.Errorf("commission record: %+v", c)
	}

	// Second call is a recorded no-op.
	credited, err = svc.Award(ctx, "u1")
	if err != nil {
		t.Fatalf("second Award: %v", err)
	}
	if credited {
		t.Error("second award credited again")
	}
	u, _ = store.GetUser(ctx, "ref")
	if u.TotalEarned != domain.CommissionAmount {
		t.Errorf("balance after repeat: got %d, want %d", u.TotalEarned, domain.CommissionAmount)
	}
	if got := rec.count(domain.EventCommissionCredited); got != 1 {
		t.Errorf("commission_credited events: got %d, want 1", got)
	}
}

func TestAwardNoReferrer(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, &eventRecorder{})
	seedUser(t, store, "u1")

	credited, err := svc.Award(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if credited {
		t.Error("award credited for a user with no referrer")
	}
}

// N concurrent awards for the same referred user credit exactly once: the
// existence check and the credit share one lock scope on the referrer.
func TestAwardConcurrentIdempotency(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, &eventRecorder{})
	seedUser(t, store, "ref")
	seedReferredUser(t, store, "u1", "ref")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	creditedCount := make([]bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			credited, err := svc.Award(ctx, "u1")
			if err != nil {
				t.Errorf("Award: %v", err)
				return
			}
			creditedCount[i] = credited
		}(i)
	}
	wg.Wait()

	credits := 0
	for _, c := range creditedCount {
		if c {
			credits++
		}
	}
	if credits != 1 {
		t.Errorf("concurrent awards credited %d times, want 1", credits)
	}

	u, _ := store.GetUser(ctx, "ref")
	if u.TotalEarned != domain.CommissionAmount {
		t.Errorf("balance after race: got %d, want %d", u.TotalEarned, domain.CommissionAmount)
	}
	if len(u.Commissions) != 1 {
		t.Errorf("commission records after race: got %d, want 1", len(u.Commissions))
	}
}

func TestStatsGeneratesCodeOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, &eventRecorder{})
	seedUser(t, store, "u1")
	ctx := context.Background()

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !refcode.Valid(stats.ReferralCode) {
		t.Fatalf("generated code %q is not well formed", stats.ReferralCode)
	}

	again, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats again: %v", err)
	}
	if again.ReferralCode != stats.ReferralCode {
		t.Errorf("code changed between reads: %q then %q", stats.ReferralCode, again.ReferralCode)
	}
}

func TestVerifyReferralCode(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReferralService(store, &eventRecorder{})
	seedUser(t, store, "u1")
	ctx := context.Background()

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	owner, err := svc.VerifyReferralCode(ctx, stats.ReferralCode)
	if err != nil {
		t.Fatalf("VerifyReferralCode: %v", err)
	}
	if owner == nil || owner.ID != "u1" {
		t.Errorf("owner: got %+v, want u1", owner)
	}

	// Well formed but unknown.
	unknown, err := svc.VerifyReferralCode(ctx, "ZZZZZZZZ")
	if err != nil {
		t.Fatalf("unknown code: %v", err)
	}
	if unknown != nil {
		t.Errorf("unknown code resolved to %+v", unknown)
	}

	// Malformed.
	_, err = svc.VerifyReferralCode(ctx, "short")
	wantAppError(t, err, 422)
}

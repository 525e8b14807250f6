package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// ─────────────────────────────────────────────────────────────
// SaveGate tests — clock-driven, no real waiting
// ─────────────────────────────────────────────────────────────

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func gateWithClock(cfg service.SaveGateConfig, clock *fakeClock) *service.SaveGate {
	cfg.Now = clock.Now
	return service.NewSaveGate(cfg)
}

func TestSaveGate_CooldownRejectsSecondCommit(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 100,
		PerHour:   1000,
		Cooldown:  20 * time.Second,
		Enforce:   true,
	}, clock)

	calls := 0
	commit := func() error { calls++; return nil }

	if err := gate.TryCommit(commit); err != nil {
		t.Fatalf("first commit rejected: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	clock.Advance(5 * time.Second)

	err := gate.TryCommit(commit)
	var cooling *service.CoolingError
	if !errors.As(err, &cooling) {
		t.Fatalf("expected CoolingError, got %v", err)
	}
	if cooling.RemainingSeconds != 15 {
		t.Errorf("expected 15 seconds remaining, got %d", cooling.RemainingSeconds)
	}
	if calls != 1 {
		t.Errorf("rejected commit must not run the action, calls = %d", calls)
	}
}

func TestSaveGate_CooldownExpires(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 100,
		PerHour:   1000,
		Cooldown:  20 * time.Second,
		Enforce:   true,
	}, clock)

	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("first commit rejected: %v", err)
	}
	clock.Advance(20 * time.Second)
	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("commit after cooldown rejected: %v", err)
	}
}

func TestSaveGate_MinuteQuota(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 3,
		PerHour:   100,
		Enforce:   true,
	}, clock)

	calls := 0
	commit := func() error { calls++; return nil }

	for i := 0; i < 3; i++ {
		if err := gate.TryCommit(commit); err != nil {
			t.Fatalf("commit %d rejected: %v", i+1, err)
		}
		clock.Advance(time.Second)
	}

	err := gate.TryCommit(commit)
	var limited *service.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.Window != service.WindowMinute {
		t.Errorf("expected minute window, got %s", limited.Window)
	}
	if calls != 3 {
		t.Errorf("rejected commit must not run the action, calls = %d", calls)
	}

	// Retrying while limited stays rejected and does not extend the window.
	if err := gate.TryCommit(commit); !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError on retry, got %v", err)
	}

	clock.Advance(61 * time.Second)
	if err := gate.TryCommit(commit); err != nil {
		t.Fatalf("commit after window slid rejected: %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestSaveGate_HourQuota(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 100,
		PerHour:   2,
		Enforce:   true,
	}, clock)

	for i := 0; i < 2; i++ {
		if err := gate.TryCommit(func() error { return nil }); err != nil {
			t.Fatalf("commit %d rejected: %v", i+1, err)
		}
		clock.Advance(2 * time.Minute)
	}

	err := gate.TryCommit(func() error { return nil })
	var limited *service.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.Window != service.WindowHour {
		t.Errorf("expected hour window, got %s", limited.Window)
	}
}

func TestSaveGate_DisabledAlwaysAdmits(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 1,
		PerHour:   1,
		Cooldown:  time.Hour,
		Enforce:   false,
	}, clock)

	for i := 0; i < 10; i++ {
		if err := gate.TryCommit(func() error { return nil }); err != nil {
			t.Fatalf("disabled gate rejected commit %d: %v", i+1, err)
		}
	}
	if st := gate.State(); st.Phase != service.GateIdle {
		t.Errorf("disabled gate must report idle, got %s", st.Phase)
	}
}

func TestSaveGate_FailedCommitSkipsCooldown(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 10,
		PerHour:   100,
		Cooldown:  20 * time.Second,
		Enforce:   true,
	}, clock)

	boom := errors.New("remote boom")
	if err := gate.TryCommit(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected commit error passed through, got %v", err)
	}

	// No cooldown after a failed commit; the retry is admitted at once.
	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("retry after failed commit rejected: %v", err)
	}
}

func TestSaveGate_State(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 2,
		PerHour:   100,
		Cooldown:  10 * time.Second,
		Enforce:   true,
	}, clock)

	if st := gate.State(); st.Phase != service.GateIdle {
		t.Fatalf("expected idle, got %s", st.Phase)
	}

	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("commit rejected: %v", err)
	}
	st := gate.State()
	if st.Phase != service.GateCooling {
		t.Fatalf("expected cooling, got %s", st.Phase)
	}
	if st.RemainingSeconds != 10 {
		t.Errorf("expected 10 seconds remaining, got %d", st.RemainingSeconds)
	}
	if st.MinuteUsed != 1 || st.HourUsed != 1 {
		t.Errorf("expected 1/1 window use, got %d/%d", st.MinuteUsed, st.HourUsed)
	}

	clock.Advance(10 * time.Second)
	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("second commit rejected: %v", err)
	}
	clock.Advance(10 * time.Second)

	// Third attempt pushes past the minute quota.
	if err := gate.TryCommit(func() error { return nil }); err == nil {
		t.Fatal("expected rate limit rejection")
	}
	st = gate.State()
	if st.Phase != service.GateRateLimited {
		t.Fatalf("expected rate_limited, got %s", st.Phase)
	}
	if st.Window != service.WindowMinute {
		t.Errorf("expected minute window, got %s", st.Window)
	}
	if st.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %d", st.RetryAfter)
	}
}

func TestSaveGate_SetEnforce(t *testing.T) {
	clock := newFakeClock()
	gate := gateWithClock(service.SaveGateConfig{
		PerMinute: 100,
		PerHour:   1000,
		Cooldown:  time.Minute,
		Enforce:   true,
	}, clock)

	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("commit rejected: %v", err)
	}
	if err := gate.TryCommit(func() error { return nil }); err == nil {
		t.Fatal("expected cooldown rejection")
	}

	gate.SetEnforce(false)
	if err := gate.TryCommit(func() error { return nil }); err != nil {
		t.Fatalf("commit with enforcement off rejected: %v", err)
	}

	gate.SetEnforce(true)
	if err := gate.TryCommit(func() error { return nil }); err == nil {
		t.Fatal("expected cooldown rejection after re-enabling")
	}
}

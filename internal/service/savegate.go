package service

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────
// SaveGate — rate limit on remote commits
// ─────────────────────────────────────────────────────────────

// RateWindow names which rolling quota window a commit exhausted.
type RateWindow string

const (
	WindowMinute RateWindow = "minute"
	WindowHour   RateWindow = "hour"
)

// GatePhase is the externally visible state of the gate.
type GatePhase string

const (
	GateIdle        GatePhase = "idle"
	GateCooling     GatePhase = "cooling"
	GateRateLimited GatePhase = "rate_limited"
)

// CoolingError rejects a commit attempted during the post-commit cooldown.
type CoolingError struct {
	RemainingSeconds int
}

func (e *CoolingError) Error() string {
	return fmt.Sprintf("cooling down: retry in %ds", e.RemainingSeconds)
}

// RateLimitedError rejects a commit once a rolling window's quota is spent.
type RateLimitedError struct {
	Window     RateWindow
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s quota spent, retry in %s", e.Window, e.RetryAfter.Round(time.Second))
}

// SaveGateConfig sets the commit quotas and cooldown.
type SaveGateConfig struct {
	PerMinute int
	PerHour   int
	Cooldown  time.Duration

	// Enforce toggles the gate globally. When false every commit is
	// admitted and the gate always reports idle.
	Enforce bool

	// Now overrides the gate's clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultSaveGateConfig returns the stock limits.
func DefaultSaveGateConfig() SaveGateConfig {
	return SaveGateConfig{
		PerMinute: 10,
		PerHour:   120,
		Cooldown:  20 * time.Second,
		Enforce:   true,
	}
}

// SaveGate is a state machine over {idle, cooling, rate_limited} guarding
// how often the reconciler may write to the remote store. Every admitted
// attempt stamps both rolling windows; a successful commit starts the
// cooldown. Attempts made while not idle are rejected locally and never
// reach the remote store.
type SaveGate struct {
	mu            sync.Mutex
	cfg           SaveGateConfig
	attempts      []time.Time // ascending, pruned to the hour window
	cooldownUntil time.Time
}

// NewSaveGate creates a SaveGate.
func NewSaveGate(cfg SaveGateConfig) *SaveGate {
	return &SaveGate{cfg: cfg}
}

// SetEnforce toggles enforcement at runtime.
func (g *SaveGate) SetEnforce(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg.Enforce = on
}

// TryCommit admits or rejects one commit attempt. When admitted it runs fn
// (the remote write); fn returning nil starts the cooldown. A rejection
// returns *CoolingError or *RateLimitedError without calling fn.
func (g *SaveGate) TryCommit(fn func() error) error {
	if err := g.admit(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	g.mu.Lock()
	g.cooldownUntil = g.now().Add(g.cfg.Cooldown)
	g.mu.Unlock()
	return nil
}

// GateState is a point-in-time view of the gate for the UI.
type GateState struct {
	Phase            GatePhase  `json:"phase"`
	RemainingSeconds int        `json:"remainingSeconds,omitempty"`
	Window           RateWindow `json:"window,omitempty"`
	RetryAfter       int        `json:"retryAfterSeconds,omitempty"`
	MinuteUsed       int        `json:"minuteUsed"`
	HourUsed         int        `json:"hourUsed"`
}

// State reports the gate's current phase without consuming an attempt.
func (g *SaveGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cfg.Enforce {
		return GateState{Phase: GateIdle}
	}
	now := g.now()
	g.prune(now)

	st := GateState{
		Phase:      GateIdle,
		MinuteUsed: countSince(g.attempts, now.Add(-time.Minute)),
		HourUsed:   len(g.attempts),
	}
	if now.Before(g.cooldownUntil) {
		st.Phase = GateCooling
		st.RemainingSeconds = ceilSeconds(g.cooldownUntil.Sub(now))
		return st
	}
	var limited *RateLimitedError
	if errors.As(g.overQuota(now), &limited) {
		st.Phase = GateRateLimited
		st.Window = limited.Window
		st.RetryAfter = ceilSeconds(limited.RetryAfter)
	}
	return st
}

func (g *SaveGate) admit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cfg.Enforce {
		return nil
	}
	now := g.now()
	if now.Before(g.cooldownUntil) {
		return &CoolingError{RemainingSeconds: ceilSeconds(g.cooldownUntil.Sub(now))}
	}
	g.prune(now)

	// Attempts made while already over quota do not stamp the windows,
	// otherwise retries would extend the limit forever.
	if err := g.overQuota(now); err != nil {
		return err
	}

	// Stamp the attempt, then check the quota it may have pushed past.
	g.attempts = append(g.attempts, now)
	return g.overQuota(now)
}

// overQuota reports which window, if any, the stamped attempts exceed.
func (g *SaveGate) overQuota(now time.Time) error {
	if n := countSince(g.attempts, now.Add(-time.Minute)); n > g.cfg.PerMinute {
		return &RateLimitedError{Window: WindowMinute, RetryAfter: retryAfter(g.attempts, now, time.Minute)}
	}
	if len(g.attempts) > g.cfg.PerHour {
		return &RateLimitedError{Window: WindowHour, RetryAfter: retryAfter(g.attempts, now, time.Hour)}
	}
	return nil
}

// prune drops attempts older than the hour window.
func (g *SaveGate) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(g.attempts) && !g.attempts[i].After(cutoff) {
		i++
	}
	g.attempts = g.attempts[i:]
}

func (g *SaveGate) now() time.Time {
	if g.cfg.Now != nil {
		return g.cfg.Now()
	}
	return time.Now()
}

// countSince counts attempts newer than cutoff. Attempts are ascending,
// so walk backwards from the most recent.
func countSince(attempts []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(attempts) - 1; i >= 0 && attempts[i].After(cutoff); i-- {
		n++
	}
	return n
}

// retryAfter returns how long until the oldest in-window attempt ages out.
func retryAfter(attempts []time.Time, now time.Time, window time.Duration) time.Duration {
	cutoff := now.Add(-window)
	for _, t := range attempts {
		if t.After(cutoff) {
			return t.Add(window).Sub(now)
		}
	}
	return 0
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

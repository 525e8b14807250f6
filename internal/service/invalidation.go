package service

import (
	"context"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Invalidator — read-cache invalidation signal
// ─────────────────────────────────────────────────────────────

// Invalidator receives the query keys whose cached reads went stale after
// a recorded change, a successful sync, or a revert. Implementations fan
// the signal out to the read cache; failures are logged there, not
// returned, so cache trouble never fails a write.
type Invalidator interface {
	MarkStale(ctx context.Context, keys []string)
}

// Query key builders. The UI keys its read caches by these same strings.

func BinderListKey(ownerID string) string { return "binders:owner:" + ownerID }

func CardListKey(binderID string) string { return "binder:" + binderID + ":cards" }

func PreferencesKey(binderID string) string { return "binder:" + binderID + ":prefs" }

func UserTotalsKey(ownerID string) string { return "totals:owner:" + ownerID }

// StaleKeysFor lists every query key touched by a write to the binder:
// the owner's binder list and totals, plus the binder's card list and
// preferences.
func StaleKeysFor(b *domain.Binder) []string {
	return []string{
		BinderListKey(b.OwnerID),
		CardListKey(b.ID),
		PreferencesKey(b.ID),
		UserTotalsKey(b.OwnerID),
	}
}

// NopInvalidator drops the signal. Used when no cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) MarkStale(context.Context, []string) {}

// MockInvalidator records every call for test assertions.
type MockInvalidator struct {
	Calls [][]string
}

func (m *MockInvalidator) MarkStale(_ context.Context, keys []string) {
	m.Calls = append(m.Calls, keys)
}

// Seen reports whether any call included the key.
func (m *MockInvalidator) Seen(key string) bool {
	for _, call := range m.Calls {
		for _, k := range call {
			if k == key {
				return true
			}
		}
	}
	return false
}

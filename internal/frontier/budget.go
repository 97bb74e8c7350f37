package frontier

import (
	"strings"
	"sync"
)

// WildcardHost is the budget-map key applying to any host with no
// explicit entry of its own.
const WildcardHost = "*"

// BudgetTracker enforces a ceiling on pages admitted per host (or
// globally via the "*" wildcard). Used counts increment at enqueue time
// so the engine cannot overshoot even under heavy concurrency. The
// engine checks robots.txt and host scope before Submit, so no counted
// URL is dropped after enqueue and the engine never calls Release.
type BudgetTracker struct {
	mu     sync.Mutex
	limits map[string]int
	used   map[string]int
}

// NewBudgetTracker builds a tracker from a host->limit map. A limit of 0
// for a host means unlimited for that host; a missing host falls back to
// the "*" entry if present.
func NewBudgetTracker(limits map[string]int) *BudgetTracker {
	cp := make(map[string]int, len(limits))
	for k, v := range limits {
		cp[strings.ToLower(k)] = v
	}
	return &BudgetTracker{
		limits: cp,
		used:   make(map[string]int),
	}
}

// TryAdmit increments host's used counter and reports whether the
// increment stayed within budget. On false, the counter is left
// unchanged (the caller must not enqueue).
func (b *BudgetTracker) TryAdmit(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(host)
	limit, ok := b.limits[key]
	if !ok {
		limit, ok = b.limits[WildcardHost]
	}
	if !ok || limit <= 0 {
		b.used[key]++
		return true
	}

	if b.used[key] >= limit {
		return false
	}
	b.used[key]++
	return true
}

// Release gives back one admitted slot for host; the used count never
// drops below zero.
func (b *BudgetTracker) Release(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(host)
	if b.used[key] > 0 {
		b.used[key]--
	}
}

// Used returns the current used count for host, for observability.
func (b *BudgetTracker) Used(host string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used[strings.ToLower(host)]
}

package session

import (
	"sync"
	"time"
)

// Debouncer collapses repeated calls within a cooldown window into one:
// the first call runs; calls that land inside the cooldown after it are
// skipped. Ported from cryptotrader.common.Debounced, which guarded
// fetch_balances against being hammered by every ticker update.
type Debouncer struct {
	cooldown time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewDebouncer builds a Debouncer with the given cooldown window.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	return &Debouncer{cooldown: cooldown}
}

// Allow reports whether the caller should proceed now. It updates the
// internal timestamp only when it returns true.
func (d *Debouncer) Allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if now.Sub(d.last) < d.cooldown {
		return false
	}
	d.last = now
	return true
}

// Reset clears the cooldown, so the next Allow call always succeeds.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = time.Time{}
}

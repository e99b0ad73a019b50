// Package gate decides, per HID query, whether the host may see real input.
//
// The decision combines the two focus signals held in focus.State with the
// one-shot suppression held in a Latch. The Latch is also where the menu
// trimmer records that its single mutation has happened: the patched flag and
// the suppression arm flip together, under one lock, and only there.
package gate

import (
	"sync"
	"time"
)

// Latch holds the process-lifetime flags shared by the gate and the menu
// trimmer. The zero value is ready to use.
type Latch struct {
	mu        sync.Mutex
	patched   bool
	armed     bool
	consumed  bool
	patchedAt time.Time
}

// CompletePatch records the menu trim and arms suppression in one step. It
// returns false, changing nothing, when the trim was already recorded.
func (l *Latch) CompletePatch() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.patched {
		return false
	}
	l.patched = true
	l.patchedAt = time.Now()
	if !l.consumed {
		l.armed = true
	}
	return true
}

// consumeEdge disarms suppression. It reports whether this call did so.
func (l *Latch) consumeEdge() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.armed {
		return false
	}
	l.armed = false
	l.consumed = true
	return true
}

// Patched reports whether the menu trim has happened.
func (l *Latch) Patched() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.patched
}

// Armed reports whether suppression is waiting for an edge query.
func (l *Latch) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.armed
}

// Consumed reports whether suppression has fired.
func (l *Latch) Consumed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consumed
}

// PatchedAt returns when the trim was recorded (zero if not yet).
func (l *Latch) PatchedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.patchedAt
}

// Package focus decides whether the human operator is looking at the host.
//
// Two independent signals are reconciled:
//
//   - the OS foreground owner, resolved by the Oracle from the topmost window's
//     owning process id and compared with the host's own pid;
//   - the engine's own focus flag, sampled by the EngineTracker once per tick.
//
// Both write into a shared State that the input gate reads at decision time.
// Platform-specific ForegroundSource implementations live in source_*.go.
package focus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrNoForeground is returned when no window currently has focus.
	ErrNoForeground = errors.New("focus: no foreground window")

	// ErrUnavailable is returned when the platform cannot answer the query.
	ErrUnavailable = errors.New("focus: foreground query not available on this platform")
)

// Window identifies the foreground window.
type Window struct {
	// Handle is the platform window handle or id ("0x3a00007" on X11).
	Handle string

	// PID is the process id that owns the window. Zero when unknown.
	PID int
}

// ForegroundSource resolves the current foreground window.
type ForegroundSource interface {
	// Foreground returns the foreground window and its owner pid. It returns
	// ErrNoForeground when no window is active.
	Foreground(ctx context.Context) (Window, error)

	// Title returns the window title. Diagnostic only; errors yield "".
	Title(ctx context.Context, w Window) string

	// Available reports whether the source can work here, with a description.
	Available() (bool, string)
}

// State is the process-wide focus state written by the refreshers and read by
// the gate. The zero value reports not-focused on both signals.
type State struct {
	osForeground  atomic.Bool
	engineFocused atomic.Bool
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	OSForeground  bool
	EngineFocused bool
}

// Attentive reports whether both signals agree the host has focus.
func (s Snapshot) Attentive() bool {
	return s.OSForeground && s.EngineFocused
}

func (s *State) OSForeground() bool      { return s.osForeground.Load() }
func (s *State) SetOSForeground(v bool)  { s.osForeground.Store(v) }
func (s *State) EngineFocused() bool     { return s.engineFocused.Load() }
func (s *State) SetEngineFocused(v bool) { s.engineFocused.Store(v) }

// Snapshot returns both signals.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		OSForeground:  s.osForeground.Load(),
		EngineFocused: s.engineFocused.Load(),
	}
}

// Signal names the focus source of a Transition.
type Signal string

const (
	SignalOS     Signal = "os"
	SignalEngine Signal = "engine"
)

// Transition describes a change of one focus signal.
type Transition struct {
	Signal    Signal
	Focused   bool
	Initial   bool
	PID       int
	Title     string
	Timestamp time.Time
}

// Observer receives focus transitions. It runs on the refreshing goroutine
// and must not block.
type Observer func(Transition)

package focus

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultQueryTimeout bounds a single foreground query on platforms that shell
// out to a helper binary.
const DefaultQueryTimeout = 250 * time.Millisecond

// Oracle determines whether the host process owns the OS foreground window.
type Oracle struct {
	source   ForegroundSource
	state    *State
	pid      int
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer

	mu   sync.Mutex
	init bool
	last bool
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithPID overrides the host pid (defaults to os.Getpid()).
func WithPID(pid int) OracleOption {
	return func(o *Oracle) { o.pid = pid }
}

// WithQueryTimeout sets the per-query timeout.
func WithQueryTimeout(d time.Duration) OracleOption {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OracleOption {
	return func(o *Oracle) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers a transition observer.
func WithObserver(fn Observer) OracleOption {
	return func(o *Oracle) { o.observer = fn }
}

// NewOracle creates an Oracle that writes into state.
func NewOracle(source ForegroundSource, state *State, opts ...OracleOption) *Oracle {
	o := &Oracle{
		source:  source,
		state:   state,
		pid:     os.Getpid(),
		timeout: DefaultQueryTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "focus_oracle")
	return o
}

// PID returns the pid the oracle compares against.
func (o *Oracle) PID() int { return o.pid }

// Refresh queries the foreground owner, stores the result in the shared state
// and returns it. Any query failure counts as not foreground.
func (o *Oracle) Refresh() bool {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	active := false
	w, err := o.source.Foreground(ctx)
	switch {
	case err == nil:
		active = w.PID != 0 && w.PID == o.pid
	case errors.Is(err, ErrNoForeground):
	default:
		o.logger.Debug("foreground query failed", "error", err)
	}

	o.state.SetOSForeground(active)
	o.noteTransition(ctx, active, w, err)
	return active
}

// noteTransition logs and publishes value changes only.
func (o *Oracle) noteTransition(ctx context.Context, active bool, w Window, queryErr error) {
	o.mu.Lock()
	initial := !o.init
	changed := initial || o.last != active
	o.init = true
	o.last = active
	o.mu.Unlock()

	if !changed {
		return
	}

	tr := Transition{
		Signal:    SignalOS,
		Focused:   active,
		Initial:   initial,
		PID:       w.PID,
		Timestamp: time.Now(),
	}

	switch {
	case errors.Is(queryErr, ErrNoForeground):
		o.logger.Info("os foreground changed", "os_active", false, "reason", "no foreground window")
	case queryErr != nil:
		o.logger.Info("os foreground changed", "os_active", false, "reason", "query failed", "error", queryErr)
	default:
		tr.Title = o.source.Title(ctx, w)
		o.logger.Info("os foreground changed",
			"os_active", active,
			"fg_pid", w.PID,
			"our_pid", o.pid,
			"fg_title", tr.Title,
		)
	}

	if o.observer != nil {
		o.observer(tr)
	}
}

// Available reports whether the underlying source works on this platform.
func (o *Oracle) Available() (bool, string) {
	return o.source.Available()
}

// EngineTracker samples the engine-reported focus flag.
type EngineTracker struct {
	read     func() bool
	state    *State
	logger   *slog.Logger
	observer Observer

	mu   sync.Mutex
	init bool
	last bool
}

// NewEngineTracker creates a tracker that reads the engine flag through read.
func NewEngineTracker(read func() bool, state *State, logger *slog.Logger, observer Observer) *EngineTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineTracker{
		read:     read,
		state:    state,
		logger:   logger.With("component", "engine_focus"),
		observer: observer,
	}
}

// Refresh reads the engine flag, stores it and returns it.
func (t *EngineTracker) Refresh() bool {
	focused := t.read()
	t.state.SetEngineFocused(focused)

	t.mu.Lock()
	initial := !t.init
	changed := initial || t.last != focused
	t.init = true
	t.last = focused
	t.mu.Unlock()

	if changed {
		if initial {
			t.logger.Info("engine focus initial", "engine_focused", focused)
		} else {
			t.logger.Info("engine focus changed", "engine_focused", focused)
		}
		if t.observer != nil {
			t.observer(Transition{
				Signal:    SignalEngine,
				Focused:   focused,
				Initial:   initial,
				Timestamp: time.Now(),
			})
		}
	}
	return focused
}

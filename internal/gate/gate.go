package gate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"focusgate/internal/focus"
)

// Query describes one intercepted HID query.
type Query struct {
	// Name is the query entry point, e.g. "KeyJustPressed".
	Name string

	// Arg is the rendered argument (key, button index or name), for logs.
	Arg string

	// Edge marks rising-edge queries ("just pressed", "any key just
	// pressed"). Held, released and axis queries are not edges.
	Edge bool
}

// Reason explains a Verdict.
type Reason int

const (
	ReasonPass Reason = iota
	ReasonSuppressed
	ReasonUnfocused
)

func (r Reason) String() string {
	switch r {
	case ReasonPass:
		return "pass"
	case ReasonSuppressed:
		return "suppressed"
	case ReasonUnfocused:
		return "unfocused"
	default:
		return "unknown"
	}
}

// Verdict is the gate's answer for one query.
type Verdict struct {
	Block  bool
	Reason Reason
}

// Flusher clears buffered or held HID state in the underlying input system.
// Flush must be safe to call repeatedly.
type Flusher interface {
	Flush() error
}

// FlushFunc adapts a function to Flusher.
type FlushFunc func() error

func (f FlushFunc) Flush() error { return f() }

// Gate is the block/pass predicate consulted by every intercepted query.
// It is safe for concurrent use.
type Gate struct {
	state   *focus.State
	latch   *Latch
	flusher Flusher
	live    func() bool
	logger  *slog.Logger

	onSuppress func(Query)

	// noFlush turns the flusher off without replacing it.
	noFlush atomic.Bool

	// quiet is set after the first logged block of an unfocused stretch so
	// the per-frame query storm logs at debug.
	quiet atomic.Bool

	passed      atomic.Uint64
	blocked     atomic.Uint64
	suppressed  atomic.Uint64
	flushes     atomic.Uint64
	flushErrors atomic.Uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithFlusher sets the HID flusher used when blocking for lack of focus.
func WithFlusher(f Flusher) Option {
	return func(g *Gate) { g.flusher = f }
}

// WithLiveRefresh makes every decision re-query the OS foreground through fn
// (usually focus.Oracle.Refresh) instead of using the last tick's value.
func WithLiveRefresh(fn func() bool) Option {
	return func(g *Gate) { g.live = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSuppressHook registers a callback run once, when suppression fires.
func WithSuppressHook(fn func(Query)) Option {
	return func(g *Gate) { g.onSuppress = fn }
}

// New creates a Gate reading focus from state and suppression from latch.
func New(state *focus.State, latch *Latch, opts ...Option) *Gate {
	g := &Gate{
		state:  state,
		latch:  latch,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "input_gate")
	return g
}

// Decide evaluates q. The order is fixed: one-shot suppression first, then
// focus, then pass.
func (g *Gate) Decide(q Query) Verdict {
	if g.live != nil {
		g.live()
	}
	snap := g.state.Snapshot()

	if q.Edge && snap.OSForeground && g.latch.consumeEdge() {
		g.suppressed.Add(1)
		g.logger.Info("edge query consumed after menu trim", "query", q.Name, "arg", q.Arg)
		if g.onSuppress != nil {
			g.onSuppress(q)
		}
		return Verdict{Block: true, Reason: ReasonSuppressed}
	}

	if !snap.OSForeground || !snap.EngineFocused {
		g.flush()
		g.blocked.Add(1)
		level := slog.LevelDebug
		if g.quiet.CompareAndSwap(false, true) {
			level = slog.LevelInfo
		}
		g.logger.Log(context.Background(), level, "query blocked",
			"query", q.Name,
			"arg", q.Arg,
			"engine_focused", snap.EngineFocused,
			"os_active", snap.OSForeground,
		)
		return Verdict{Block: true, Reason: ReasonUnfocused}
	}

	g.quiet.Store(false)
	g.passed.Add(1)
	g.logger.Debug("query passed", "query", q.Name, "arg", q.Arg)
	return Verdict{Reason: ReasonPass}
}

// SetFlushOnBlock turns the flush on unfocused blocks on or off. It has no
// effect on a Gate built without a Flusher.
func (g *Gate) SetFlushOnBlock(on bool) { g.noFlush.Store(!on) }

func (g *Gate) flush() {
	if g.flusher == nil || g.noFlush.Load() {
		return
	}
	g.flushes.Add(1)
	if err := g.flusher.Flush(); err != nil {
		g.flushErrors.Add(1)
		g.logger.Warn("hid flush failed", "error", err)
	}
}

// Latch returns the shared latch.
func (g *Gate) Latch() *Latch { return g.latch }

// Stats is a snapshot of gate counters.
type Stats struct {
	Passed      uint64
	Blocked     uint64
	Suppressed  uint64
	Flushes     uint64
	FlushErrors uint64
}

// Stats returns the current counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Passed:      g.passed.Load(),
		Blocked:     g.blocked.Load(),
		Suppressed:  g.suppressed.Load(),
		Flushes:     g.flushes.Load(),
		FlushErrors: g.flushErrors.Load(),
	}
}

// Package journal provides the SQLite diagnostics journal for focusgate.
//
// The journal records focus transitions, menu trims, suppressions and
// periodic gate counters so `focusgatectl` can inspect a run after the fact.
// Nothing in it is read back to influence gate behaviour.
package journal

// Session is one runtime lifetime.
type Session struct {
	ID        int64
	StartedNs int64
	EndedNs   *int64
	PID       int
	Version   string
}

// FocusEvent is a recorded focus transition.
type FocusEvent struct {
	ID          int64
	SessionID   int64
	TimestampNs int64
	Signal      string
	Focused     bool
	Initial     bool
	PID         int
	Title       string
}

// MenuTrim is a recorded scan that walked the tree.
type MenuTrim struct {
	ID          int64
	SessionID   int64
	TimestampNs int64
	Reason      string
	Outcome     string
	Controls    int
	Labels      int
	Continue    int
	Discard     int
	Disabled    int
	Trimmer     string
	Error       string
}

// Suppression is the recorded one-shot edge suppression.
type Suppression struct {
	ID          int64
	SessionID   int64
	TimestampNs int64
	Query       string
	Arg         string
}

// StatsSnapshot is a periodic copy of the gate counters.
type StatsSnapshot struct {
	ID          int64
	SessionID   int64
	TimestampNs int64
	Passed      uint64
	Blocked     uint64
	Suppressed  uint64
	Flushes     uint64
	FlushErrors uint64

	// Metrics is the metrics snapshot at the same instant, keyed by name.
	Metrics map[string]any
}

// EntryKind names the table an Entry came from.
type EntryKind string

const (
	KindFocus       EntryKind = "focus"
	KindTrim        EntryKind = "trim"
	KindSuppression EntryKind = "suppression"
	KindStats       EntryKind = "stats"
	KindSession     EntryKind = "session"
)

// Entry is one line of the merged timeline returned by Tail.
type Entry struct {
	Kind        EntryKind
	SessionID   int64
	TimestampNs int64
	Detail      string
}

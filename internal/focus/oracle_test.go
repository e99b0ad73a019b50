package focus

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestOracleComparesPID(t *testing.T) {
	var state State
	src := NewStaticSource(4242)
	o := NewOracle(src, &state, WithPID(4242))

	assert.True(t, o.Refresh())
	assert.True(t, state.OSForeground())

	src.SetPID(1)
	assert.False(t, o.Refresh())
	assert.False(t, state.OSForeground())
}

func TestOracleFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no foreground window", ErrNoForeground},
		{"unavailable", ErrUnavailable},
		{"arbitrary error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state State
			state.SetOSForeground(true)
			src := NewStaticSource(7)
			src.Fail(tt.err)
			o := NewOracle(src, &state, WithPID(7))

			assert.False(t, o.Refresh())
			assert.False(t, state.OSForeground())
		})
	}
}

func TestOraclePIDZeroIsNotForeground(t *testing.T) {
	var state State
	src := NewStaticSource(0)
	o := NewOracle(src, &state, WithPID(0))
	assert.False(t, o.Refresh())
}

func TestOracleLogsOnlyTransitions(t *testing.T) {
	logger, buf := newTestLogger()
	var seen []Transition
	var state State
	src := NewStaticSource(10)
	o := NewOracle(src, &state, WithPID(10), WithLogger(logger), WithObserver(func(tr Transition) {
		seen = append(seen, tr)
	}))

	for i := 0; i < 5; i++ {
		o.Refresh()
	}
	src.SetPID(11)
	for i := 0; i < 5; i++ {
		o.Refresh()
	}
	src.Fail(ErrNoForeground)
	o.Refresh()
	o.Refresh()

	// initial(true) -> false (other pid); the error keeps it false.
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Initial)
	assert.True(t, seen[0].Focused)
	assert.Equal(t, SignalOS, seen[0].Signal)
	assert.False(t, seen[1].Focused)
	assert.Equal(t, 11, seen[1].PID)

	assert.Equal(t, 2, strings.Count(buf.String(), "os foreground changed"))
	assert.Equal(t, 12, src.Calls())
}

func TestEngineTracker(t *testing.T) {
	logger, buf := newTestLogger()
	var state State
	focused := true
	var seen []Transition
	tr := NewEngineTracker(func() bool { return focused }, &state, logger, func(t Transition) {
		seen = append(seen, t)
	})

	assert.True(t, tr.Refresh())
	assert.True(t, tr.Refresh())
	assert.True(t, state.EngineFocused())

	focused = false
	assert.False(t, tr.Refresh())
	assert.False(t, state.EngineFocused())

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Initial)
	assert.Equal(t, SignalEngine, seen[1].Signal)
	assert.Contains(t, buf.String(), "engine focus initial")
	assert.Equal(t, 1, strings.Count(buf.String(), "engine focus changed"))
}

func TestSnapshotAttentive(t *testing.T) {
	var state State
	assert.False(t, state.Snapshot().Attentive(), "zero state is fail-closed")

	state.SetOSForeground(true)
	assert.False(t, state.Snapshot().Attentive())

	state.SetEngineFocused(true)
	assert.True(t, state.Snapshot().Attentive())
}

func TestNewSourceStatic(t *testing.T) {
	var state State
	o := NewOracle(NewSource(SourceConfig{Backend: BackendStatic}), &state)
	assert.True(t, o.Refresh())
	ok, _ := o.Available()
	assert.True(t, ok)
}

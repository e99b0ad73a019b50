package focus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// slowSource answers like a helper-process backend: every query takes delay.
type slowSource struct {
	*StaticSource
	delay time.Duration
}

func (s slowSource) Foreground(ctx context.Context) (Window, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return Window{}, ctx.Err()
	}
	return s.StaticSource.Foreground(ctx)
}

type panicSource struct{ *StaticSource }

func (panicSource) Foreground(context.Context) (Window, error) {
	panic("display connection lost")
}

func TestPollerKeepsRefreshOffTheSlowPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, _ := newTestLogger()
	static := NewStaticSource(4242)
	static.Set(Window{Handle: "0x3a00007", PID: 4242}, "Game")
	p := NewPoller(slowSource{static, 150 * time.Millisecond}, 20*time.Millisecond, time.Second, logger)

	var state State
	o := NewOracle(p, &state, WithPID(4242), WithLogger(logger))
	assert.False(t, o.Refresh(), "a poller that is not running fails closed")

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	assert.ErrorIs(t, p.Start(context.Background()), ErrPollerRunning)

	start := time.Now()
	for i := 0; i < 100; i++ {
		assert.True(t, o.Refresh())
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "refresh reads the cached answer")
	assert.Equal(t, "Game", p.Title(context.Background(), Window{Handle: "0x3a00007", PID: 4242}))

	static.SetPID(1)
	assert.Eventually(t, func() bool { return !o.Refresh() }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, state.OSForeground())

	p.Stop()
	_, err := p.Foreground(context.Background())
	assert.ErrorIs(t, err, ErrNoForeground)
}

func TestPollerRecoversSourcePanic(t *testing.T) {
	logger, _ := newTestLogger()
	p := NewPoller(panicSource{NewStaticSource(1)}, 0, 0, logger)

	assert.NotPanics(t, func() { p.poll(context.Background()) })
	_, err := p.Foreground(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Empty(t, p.Title(context.Background(), Window{}))
}

func TestPollerAvailableNamesInterval(t *testing.T) {
	p := NewPoller(NewStaticSource(1), 50*time.Millisecond, 0, nil)
	ok, desc := p.Available()
	assert.True(t, ok)
	assert.Contains(t, desc, "polled every 50ms")
}

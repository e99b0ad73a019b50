//go:build linux

package focus

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActiveWindow(t *testing.T) {
	id, err := parseActiveWindow("_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007\n")
	require.NoError(t, err)
	assert.Equal(t, "0x3a00007", id)

	_, err = parseActiveWindow("_NET_ACTIVE_WINDOW(WINDOW): window id # 0x0\n")
	assert.ErrorIs(t, err, ErrNoForeground)

	_, err = parseActiveWindow("garbage")
	assert.Error(t, err)
}

func TestParseXpropPID(t *testing.T) {
	pid, err := parseXpropPID("_NET_WM_PID(CARDINAL) = 12345\n")
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	_, err = parseXpropPID("_NET_WM_PID:  not found.\n")
	assert.Error(t, err)
}

func TestParseXpropTitle(t *testing.T) {
	out := "_NET_WM_NAME(UTF8_STRING) = \"My Game\"\nWM_NAME(STRING) = \"fallback\"\n"
	assert.Equal(t, "My Game", parseXpropTitle(out))
	assert.Equal(t, "", parseXpropTitle("WM_CLASS(STRING) = \"a\", \"b\""))
}

func TestParseWindowList(t *testing.T) {
	raw := `[{"id":11,"pid":100,"focus":false},{"id":22,"pid":200,"focus":true}]`
	w, err := parseWindowList(raw)
	require.NoError(t, err)
	assert.Equal(t, Window{Handle: "22", PID: 200}, w)

	_, err = parseWindowList(`[{"id":11,"pid":100,"focus":false}]`)
	assert.ErrorIs(t, err, ErrNoForeground)

	_, err = parseWindowList(`not json`)
	assert.Error(t, err)
}

func TestLinuxSourceUnknownDisplay(t *testing.T) {
	src := NewPlatformSource(SourceConfig{Backend: "none"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err := src.Foreground(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	ok, _ := src.Available()
	assert.False(t, ok)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-4))
	// Above the kernel's pid_max ceiling (4194304).
	assert.False(t, processAlive(1<<30))
}

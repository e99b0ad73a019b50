//go:build linux

package focus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ============================================================================
// Linux foreground detection
// ============================================================================
//
// X11: xdotool when installed, otherwise xprop on _NET_ACTIVE_WINDOW and
// _NET_WM_PID. Wayland: the GNOME "window-calls" extension over D-Bus (see
// source_wayland_linux.go). Anything else is reported unavailable, which the
// Oracle treats as not foreground.
//
// ============================================================================

type linuxSource struct {
	display string
	wayland *waylandSource
}

// NewPlatformSource returns the Linux foreground source for the detected (or
// configured) display server.
func NewPlatformSource(cfg SourceConfig) ForegroundSource {
	display := cfg.Backend
	if display == "" || display == BackendAuto {
		display = detectDisplay()
	}
	return &linuxSource{
		display: display,
		wayland: newWaylandSource(),
	}
}

// detectDisplay determines the display server type.
func detectDisplay() string {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		// XWayland clients are still reachable through X11 tooling.
		if os.Getenv("DISPLAY") != "" {
			return BackendX11
		}
		return BackendWayland
	}
	if os.Getenv("DISPLAY") != "" {
		return BackendX11
	}
	return "unknown"
}

func (s *linuxSource) Foreground(ctx context.Context) (Window, error) {
	w, err := s.activeWindow(ctx)
	if err != nil {
		return Window{}, err
	}
	// Window managers can keep a window mapped briefly after its owner died.
	if !processAlive(w.PID) {
		return Window{}, fmt.Errorf("%w: window %s names exited pid %d", ErrNoForeground, w.Handle, w.PID)
	}
	return w, nil
}

// processAlive reports whether pid names a running process. EPERM means it
// exists but belongs to another user.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (s *linuxSource) activeWindow(ctx context.Context) (Window, error) {
	switch s.display {
	case BackendX11:
		if _, err := exec.LookPath("xdotool"); err == nil {
			return x11ForegroundXdotool(ctx)
		}
		return x11ForegroundXprop(ctx)
	case BackendWayland:
		return s.wayland.Foreground(ctx)
	default:
		return Window{}, fmt.Errorf("%w: display server %q", ErrUnavailable, s.display)
	}
}

func (s *linuxSource) Title(ctx context.Context, w Window) string {
	switch s.display {
	case BackendX11:
		out, err := exec.CommandContext(ctx, "xprop", "-id", w.Handle, "_NET_WM_NAME", "WM_NAME").Output()
		if err != nil {
			return ""
		}
		return parseXpropTitle(string(out))
	case BackendWayland:
		return s.wayland.Title(ctx, w)
	default:
		return ""
	}
}

func (s *linuxSource) Available() (bool, string) {
	switch s.display {
	case BackendX11:
		if _, err := exec.LookPath("xdotool"); err == nil {
			return true, "X11 foreground tracking available (xdotool)"
		}
		if _, err := exec.LookPath("xprop"); err == nil {
			return true, "X11 foreground tracking available (xprop)"
		}
		return false, "X11 detected but xdotool/xprop not found. Install: sudo apt install xdotool"
	case BackendWayland:
		return s.wayland.Available()
	default:
		return false, "Unknown display server. Foreground tracking requires X11 or GNOME on Wayland."
	}
}

// x11ForegroundXdotool resolves the active window with xdotool.
func x11ForegroundXdotool(ctx context.Context) (Window, error) {
	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow").Output()
	if err != nil {
		// xdotool exits non-zero when nothing has focus.
		return Window{}, ErrNoForeground
	}
	id := strings.TrimSpace(string(out))
	if id == "" || id == "0" {
		return Window{}, ErrNoForeground
	}

	out, err = exec.CommandContext(ctx, "xdotool", "getwindowpid", id).Output()
	if err != nil {
		return Window{}, fmt.Errorf("xdotool getwindowpid: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return Window{}, fmt.Errorf("parse pid: %w", err)
	}
	return Window{Handle: id, PID: pid}, nil
}

// x11ForegroundXprop resolves the active window with xprop.
func x11ForegroundXprop(ctx context.Context) (Window, error) {
	out, err := exec.CommandContext(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		return Window{}, fmt.Errorf("xprop -root: %w", err)
	}
	id, err := parseActiveWindow(string(out))
	if err != nil {
		return Window{}, err
	}

	out, err = exec.CommandContext(ctx, "xprop", "-id", id, "_NET_WM_PID").Output()
	if err != nil {
		return Window{}, fmt.Errorf("xprop -id: %w", err)
	}
	pid, err := parseXpropPID(string(out))
	if err != nil {
		return Window{}, err
	}
	return Window{Handle: id, PID: pid}, nil
}

// parseActiveWindow parses "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007".
func parseActiveWindow(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) < 5 {
		return "", errors.New("failed to parse xprop output")
	}
	id := fields[len(fields)-1]
	if v, err := strconv.ParseUint(id, 0, 64); err != nil {
		return "", fmt.Errorf("parse window id %q: %w", id, err)
	} else if v == 0 {
		return "", ErrNoForeground
	}
	return id, nil
}

// parseXpropPID parses "_NET_WM_PID(CARDINAL) = 12345".
func parseXpropPID(out string) (int, error) {
	idx := strings.Index(out, "= ")
	if idx == -1 {
		return 0, errors.New("window has no _NET_WM_PID")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out[idx+2:]))
	if err != nil {
		return 0, fmt.Errorf("parse pid: %w", err)
	}
	return pid, nil
}

// parseXpropTitle returns the first quoted value of _NET_WM_NAME or WM_NAME.
func parseXpropTitle(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "_NET_WM_NAME") && !strings.HasPrefix(line, "WM_NAME") {
			continue
		}
		start := strings.Index(line, "= \"")
		end := strings.LastIndex(line, "\"")
		if start != -1 && end > start+3 {
			return line[start+3 : end]
		}
	}
	return ""
}

//go:build linux

package focus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/godbus/dbus/v5"
)

// GNOME Shell does not expose window ownership to ordinary clients on
// Wayland. The "window-calls" shell extension publishes it on the session bus.
const (
	windowCallsDest  = "org.gnome.Shell"
	windowCallsPath  = dbus.ObjectPath("/org/gnome/Shell/Extensions/Windows")
	windowCallsIface = "org.gnome.Shell.Extensions.Windows"
)

type waylandSource struct {
	connect func() (*dbus.Conn, error)
}

func newWaylandSource() *waylandSource {
	return &waylandSource{connect: dbus.SessionBus}
}

// windowCallsEntry is one element of the List() JSON array.
type windowCallsEntry struct {
	ID    uint64 `json:"id"`
	PID   int    `json:"pid"`
	Focus bool   `json:"focus"`
}

func (s *waylandSource) object() (dbus.BusObject, error) {
	conn, err := s.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrUnavailable, err)
	}
	return conn.Object(windowCallsDest, windowCallsPath), nil
}

func (s *waylandSource) Foreground(ctx context.Context) (Window, error) {
	obj, err := s.object()
	if err != nil {
		return Window{}, err
	}

	var raw string
	if err := obj.CallWithContext(ctx, windowCallsIface+".List", 0).Store(&raw); err != nil {
		return Window{}, fmt.Errorf("window-calls List: %w", err)
	}
	return parseWindowList(raw)
}

func (s *waylandSource) Title(ctx context.Context, w Window) string {
	id, err := strconv.ParseUint(w.Handle, 10, 32)
	if err != nil {
		return ""
	}
	obj, err := s.object()
	if err != nil {
		return ""
	}
	var title string
	if err := obj.CallWithContext(ctx, windowCallsIface+".GetTitle", 0, uint32(id)).Store(&title); err != nil {
		return ""
	}
	return title
}

func (s *waylandSource) Available() (bool, string) {
	obj, err := s.object()
	if err != nil {
		return false, err.Error()
	}
	var raw string
	if err := obj.Call(windowCallsIface+".List", 0).Store(&raw); err != nil {
		return false, "Wayland detected but the GNOME window-calls extension is not reachable: " + err.Error()
	}
	return true, "Wayland foreground tracking available (GNOME window-calls)"
}

// parseWindowList picks the focused window out of a window-calls List() reply.
func parseWindowList(raw string) (Window, error) {
	var entries []windowCallsEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return Window{}, fmt.Errorf("decode window list: %w", err)
	}
	for _, e := range entries {
		if e.Focus {
			return Window{Handle: strconv.FormatUint(e.ID, 10), PID: e.PID}, nil
		}
	}
	return Window{}, ErrNoForeground
}

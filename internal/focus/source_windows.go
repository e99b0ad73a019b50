//go:build windows

package focus

import (
	"context"
	"fmt"
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
)

// windowsSource resolves the foreground window through user32.
type windowsSource struct{}

// NewPlatformSource returns the Win32 foreground source.
func NewPlatformSource(SourceConfig) ForegroundSource {
	return windowsSource{}
}

func (windowsSource) Foreground(ctx context.Context) (Window, error) {
	if err := user32.Load(); err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return Window{}, ErrNoForeground
	}

	var pid uint32
	tid, _, callErr := procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return Window{}, fmt.Errorf("GetWindowThreadProcessId: %v", callErr)
	}

	return Window{
		Handle: "0x" + strconv.FormatUint(uint64(hwnd), 16),
		PID:    int(pid),
	}, nil
}

func (windowsSource) Title(ctx context.Context, w Window) string {
	hwnd, err := strconv.ParseUint(w.Handle, 0, 64)
	if err != nil || hwnd == 0 {
		return ""
	}

	length, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if length == 0 {
		return ""
	}

	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), length+1)
	return windows.UTF16ToString(buf)
}

func (windowsSource) Available() (bool, string) {
	if err := user32.Load(); err != nil {
		return false, "user32.dll not loadable: " + err.Error()
	}
	return true, "Windows foreground tracking available via Win32 API"
}

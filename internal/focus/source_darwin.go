//go:build darwin

package focus

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// darwinSource asks System Events for the frontmost process.
type darwinSource struct{}

// NewPlatformSource returns the macOS foreground source.
func NewPlatformSource(SourceConfig) ForegroundSource {
	return darwinSource{}
}

const frontmostScript = `tell application "System Events" to get unix id of first process whose frontmost is true`

func (darwinSource) Foreground(ctx context.Context) (Window, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e", frontmostScript).Output()
	if err != nil {
		return Window{}, fmt.Errorf("osascript: %w", err)
	}
	s := strings.TrimSpace(string(out))
	if s == "" {
		return Window{}, ErrNoForeground
	}
	pid, err := strconv.Atoi(s)
	if err != nil {
		return Window{}, fmt.Errorf("parse pid %q: %w", s, err)
	}
	return Window{Handle: s, PID: pid}, nil
}

func (darwinSource) Title(ctx context.Context, w Window) string {
	script := fmt.Sprintf(`tell application "System Events" to get name of first process whose unix id is %d`, w.PID)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (darwinSource) Available() (bool, string) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return false, "osascript not found"
	}
	return true, "macOS foreground tracking available (System Events; requires Automation permission)"
}

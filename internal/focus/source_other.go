//go:build !darwin && !linux && !windows

package focus

import (
	"context"
	"runtime"
)

// otherSource answers every query with ErrUnavailable, so the oracle fails
// closed on unsupported platforms.
type otherSource struct{}

// NewPlatformSource returns an unavailable source.
func NewPlatformSource(SourceConfig) ForegroundSource {
	return otherSource{}
}

func (otherSource) Foreground(ctx context.Context) (Window, error) {
	return Window{}, ErrUnavailable
}

func (otherSource) Title(ctx context.Context, w Window) string { return "" }

func (otherSource) Available() (bool, string) {
	return false, "foreground tracking not available on " + runtime.GOOS
}

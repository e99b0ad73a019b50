package focus

import (
	"os"
	"time"
)

// Backend names accepted in SourceConfig.
const (
	BackendAuto    = "auto"
	BackendX11     = "x11"
	BackendWayland = "wayland"
	BackendStatic  = "static"
)

// SourceConfig selects and tunes the foreground source.
type SourceConfig struct {
	// Backend is "auto", "x11", "wayland" or "static". "static" always
	// reports the host as foreground and exists for headless runs.
	Backend string

	// Timeout bounds helper-process and D-Bus calls.
	Timeout time.Duration
}

// DefaultSourceConfig returns the default source configuration.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Backend: BackendAuto,
		Timeout: DefaultQueryTimeout,
	}
}

// NewSource builds the foreground source selected by cfg.
func NewSource(cfg SourceConfig) ForegroundSource {
	if cfg.Backend == BackendStatic {
		return NewStaticSource(os.Getpid())
	}
	return NewPlatformSource(cfg)
}

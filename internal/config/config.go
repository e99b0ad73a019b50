// Package config handles configuration loading, validation, and management for focusgate.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete gate configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Focus configuration for the OS foreground query.
	Focus FocusConfig `toml:"focus" json:"focus" yaml:"focus"`

	// Gate configuration for the input gate.
	Gate GateConfig `toml:"gate" json:"gate" yaml:"gate"`

	// Menu configuration for the title-menu trim.
	Menu MenuConfig `toml:"menu" json:"menu" yaml:"menu"`

	// Bindings maps logical buttons and axes to physical inputs.
	Bindings BindingsConfig `toml:"bindings" json:"bindings" yaml:"bindings"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Journal configuration for the diagnostics database.
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// FocusConfig holds OS foreground query configuration.
type FocusConfig struct {
	// Backend selects the foreground source: "auto", "x11", "wayland" or
	// "static". Windows and macOS always use their native source under "auto".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// QueryTimeoutMs bounds one foreground query.
	QueryTimeoutMs int `toml:"query_timeout_ms" json:"query_timeout_ms" yaml:"query_timeout_ms"`

	// PollIntervalMs is how often a background goroutine queries the OS
	// foreground. Ticks read the last answer. Zero queries synchronously on
	// every tick.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// LiveRefresh re-queries the OS on every gated input query instead of
	// using the value from the last tick.
	LiveRefresh bool `toml:"live_refresh" json:"live_refresh" yaml:"live_refresh"`
}

// GateConfig holds input gate configuration.
type GateConfig struct {
	// FlushOnBlock clears held input in the host while input is blocked.
	FlushOnBlock bool `toml:"flush_on_block" json:"flush_on_block" yaml:"flush_on_block"`
}

// MenuConfig holds title-menu trim configuration.
type MenuConfig struct {
	// Enabled turns the trim on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// ScanIntervalMs is the minimum spacing of periodic scans.
	ScanIntervalMs int `toml:"scan_interval_ms" json:"scan_interval_ms" yaml:"scan_interval_ms"`

	// ContinueText and DiscardText are matched against label text;
	// ContinueIDs and DiscardIDs against node names.
	ContinueText []string `toml:"continue_text" json:"continue_text" yaml:"continue_text"`
	ContinueIDs  []string `toml:"continue_ids" json:"continue_ids" yaml:"continue_ids"`
	DiscardText  []string `toml:"discard_text" json:"discard_text" yaml:"discard_text"`
	DiscardIDs   []string `toml:"discard_ids" json:"discard_ids" yaml:"discard_ids"`

	// Trimmers names registered fallback trimmers, tried in order.
	Trimmers []string `toml:"trimmers" json:"trimmers" yaml:"trimmers"`
}

// ButtonBinding maps one logical button to keys and mouse buttons.
type ButtonBinding struct {
	Keys         []string `toml:"keys" json:"keys" yaml:"keys"`
	MouseButtons []int    `toml:"mouse_buttons" json:"mouse_buttons" yaml:"mouse_buttons"`
}

// AxisBinding maps one logical axis to a negative and a positive key set.
type AxisBinding struct {
	Negative []string `toml:"negative" json:"negative" yaml:"negative"`
	Positive []string `toml:"positive" json:"positive" yaml:"positive"`

	// Sensitivity is the per-second approach rate of the smoothed value.
	Sensitivity float64 `toml:"sensitivity" json:"sensitivity" yaml:"sensitivity"`
}

// BindingsConfig holds logical input bindings.
type BindingsConfig struct {
	Buttons map[string]ButtonBinding `toml:"buttons" json:"buttons" yaml:"buttons"`
	Axes    map[string]AxisBinding   `toml:"axes" json:"axes" yaml:"axes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: stdout, stderr, file, both or discard.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum size of a log file before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// RedactTitles hides foreground window titles in logs.
	RedactTitles bool `toml:"redact_titles" json:"redact_titles" yaml:"redact_titles"`

	// AuditPath is the audit trail file. Empty disables the audit trail.
	AuditPath string `toml:"audit_path" json:"audit_path" yaml:"audit_path"`
}

// JournalConfig holds diagnostics journal configuration.
type JournalConfig struct {
	// Enabled turns the journal on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file, or ":memory:".
	Path string `toml:"path" json:"path" yaml:"path"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled turns collection on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SnapshotIntervalSec is how often gate counters are written to the
	// journal. 0 disables snapshots.
	SnapshotIntervalSec int `toml:"snapshot_interval_sec" json:"snapshot_interval_sec" yaml:"snapshot_interval_sec"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := Dir()

	return &Config{
		Version: Version,
		Focus: FocusConfig{
			Backend:        "auto",
			QueryTimeoutMs: 250,
			PollIntervalMs: 100,
		},
		Gate: GateConfig{
			FlushOnBlock: true,
		},
		Menu: MenuConfig{
			Enabled:        true,
			ScanIntervalMs: 1000,
			ContinueText:   []string{"Continue", "CONTINUE", "ゲームを続ける", "続きから", "コンティニュー"},
			ContinueIDs:    []string{"Continue", "ContinueGame", "ContinueButton"},
			DiscardText:    []string{"New Game", "NEW GAME", "新規ゲーム", "新しいゲーム", "ニューゲーム"},
			DiscardIDs:     []string{"NewGame", "New_Game", "NewGameButton"},
		},
		Bindings: BindingsConfig{
			Buttons: map[string]ButtonBinding{
				"Submit": {Keys: []string{"Enter", "Space"}, MouseButtons: []int{0}},
				"Cancel": {Keys: []string{"Escape", "Backspace"}},
				"Jump":   {Keys: []string{"Space"}},
			},
			Axes: map[string]AxisBinding{
				"Horizontal": {Negative: []string{"A", "ArrowLeft"}, Positive: []string{"D", "ArrowRight"}, Sensitivity: 3},
				"Vertical":   {Negative: []string{"S", "ArrowDown"}, Positive: []string{"W", "ArrowUp"}, Sensitivity: 3},
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "focusgate.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "journal.db"),
		},
		Metrics: MetricsConfig{
			Enabled:             true,
			SnapshotIntervalSec: 60,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if v := os.Getenv("FOCUSGATE_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Dir returns the base data directory. FOCUSGATE_DATA_DIR overrides it.
func Dir() string {
	if envDir := os.Getenv("FOCUSGATE_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with FOCUSGATE_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FOCUSGATE_FOCUS_BACKEND"); v != "" {
		c.Focus.Backend = v
	}
	if v := os.Getenv("FOCUSGATE_LIVE_REFRESH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Focus.LiveRefresh = b
		}
	}
	if v := os.Getenv("FOCUSGATE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Focus.PollIntervalMs = n
		}
	}
	if v := os.Getenv("FOCUSGATE_SCAN_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Menu.ScanIntervalMs = n
		}
	}
	if v := os.Getenv("FOCUSGATE_MENU_TRIMMERS"); v != "" {
		c.Menu.Trimmers = splitList(v)
	}
	if v := os.Getenv("FOCUSGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FOCUSGATE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("FOCUSGATE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("FOCUSGATE_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.Menu.ContinueText = append([]string(nil), c.Menu.ContinueText...)
	clone.Menu.ContinueIDs = append([]string(nil), c.Menu.ContinueIDs...)
	clone.Menu.DiscardText = append([]string(nil), c.Menu.DiscardText...)
	clone.Menu.DiscardIDs = append([]string(nil), c.Menu.DiscardIDs...)
	clone.Menu.Trimmers = append([]string(nil), c.Menu.Trimmers...)

	if c.Bindings.Buttons != nil {
		clone.Bindings.Buttons = make(map[string]ButtonBinding, len(c.Bindings.Buttons))
		for k, v := range c.Bindings.Buttons {
			v.Keys = append([]string(nil), v.Keys...)
			v.MouseButtons = append([]int(nil), v.MouseButtons...)
			clone.Bindings.Buttons[k] = v
		}
	}
	if c.Bindings.Axes != nil {
		clone.Bindings.Axes = make(map[string]AxisBinding, len(c.Bindings.Axes))
		for k, v := range c.Bindings.Axes {
			v.Negative = append([]string(nil), v.Negative...)
			v.Positive = append([]string(nil), v.Positive...)
			clone.Bindings.Axes[k] = v
		}
	}
	return &clone
}

// ScanInterval returns the periodic scan spacing.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Menu.ScanIntervalMs) * time.Millisecond
}

// QueryTimeout returns the foreground query timeout.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Focus.QueryTimeoutMs) * time.Millisecond
}

// PollInterval returns the OS foreground poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Focus.PollIntervalMs) * time.Millisecond
}

// SnapshotInterval returns the metrics snapshot interval.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.Metrics.SnapshotIntervalSec) * time.Second
}

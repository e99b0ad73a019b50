// Package logging provides structured logging with slog for focusgate.
//
// Features:
//   - JSON and text output formats
//   - Log levels (debug, info, warn, error), changeable at runtime
//   - Window title redaction
//   - Log rotation support
//   - Platform-specific default paths
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// Config holds the logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output is one of "stdout", "stderr", "file", "both" (stderr and file)
	// or "discard".
	Output   string
	FilePath string

	// Rotation: size in megabytes, age in days.
	MaxSize    int64
	MaxAge     int
	MaxBackups int
	Compress   bool

	AddSource bool

	// RedactTitles replaces foreground window titles with a placeholder.
	// Titles of other applications can leak what the user is doing.
	RedactTitles bool

	// Component is attached to every record as "app".
	Component string
}

// DefaultConfig logs text at info to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   filepath.Join(StateDir(), "focusgate.log"),
		MaxSize:    20,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
		Component:  "focusgate",
	}
}

// StateDir returns the platform-specific directory for logs and crash dumps.
func StateDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "focusgate")
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = os.Getenv("APPDATA")
		}
		return filepath.Join(base, "focusgate", "logs")
	}
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "focusgate")
	}
	return filepath.Join(home, ".local", "state", "focusgate")
}

// Logger is a slog.Logger whose level can change at runtime and which owns
// its log file, if any.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar

	mu   sync.Mutex
	file *FileRotator
}

// New builds a Logger from cfg; nil means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	w, file, err := openSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}
	l := &Logger{level: new(slog.LevelVar), file: file}
	l.level.Set(cfg.Level)
	l.Logger = slog.New(NewHandler(w, cfg, l.level))
	return l, nil
}

func openSink(cfg *Config) (io.Writer, *FileRotator, error) {
	out := strings.ToLower(cfg.Output)
	switch out {
	case "stdout":
		return os.Stdout, nil, nil
	case "discard":
		return io.Discard, nil, nil
	case "file", "both":
		file, err := NewFileRotator(cfg)
		if err != nil {
			return nil, nil, err
		}
		if out == "both" {
			return io.MultiWriter(os.Stderr, file), file, nil
		}
		return file, file, nil
	}
	return os.Stderr, nil, nil
}

// NewHandler builds the slog handler for cfg writing to w. A nil level pins
// the handler at cfg.Level.
func NewHandler(w io.Writer, cfg *Config, level slog.Leveler) slog.Handler {
	if level == nil {
		level = cfg.Level
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if cfg.RedactTitles {
		opts.ReplaceAttr = redactTitles
	}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("app", cfg.Component)})
	}
	return h
}

// redactTitles blanks "title" and any "*_title" attribute.
func redactTitles(_ []string, a slog.Attr) slog.Attr {
	k := strings.ToLower(a.Key)
	if k == "title" || strings.HasSuffix(k, "_title") {
		a.Value = slog.StringValue("[REDACTED]")
	}
	return a
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level Level) { l.level.Set(level) }

func (l *Logger) Level() Level { return l.level.Level() }

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *slog.Logger {
	return l.Logger.With("component", name)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Sync flushes the log file, if any.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

var defaultLogger atomic.Pointer[Logger]

// Default returns the process-wide logger, creating a stderr logger on
// first use.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l, err := New(DefaultConfig())
	if err != nil {
		l = &Logger{Logger: slog.Default(), level: new(slog.LevelVar)}
	}
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	return defaultLogger.Load()
}

// SetDefault installs l as the process-wide logger and as slog's default.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l.Logger)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	if strings.EqualFold(s, "warning") {
		return LevelWarn, nil
	}
	var l slog.Level
	if s == "" || l.UnmarshalText([]byte(s)) != nil {
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
	return l, nil
}

// LevelString is the lower-case name ParseLevel accepts.
func LevelString(level Level) string {
	return strings.ToLower(level.String())
}

// ParseFormat accepts "text" (or empty) and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format: %q", s)
}

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"
)

type AuditEventType string

const (
	AuditEventStartup      AuditEventType = "startup"
	AuditEventShutdown     AuditEventType = "shutdown"
	AuditEventFocusChange  AuditEventType = "focus_change"
	AuditEventMenuTrim     AuditEventType = "menu_trim"
	AuditEventSuppression  AuditEventType = "suppression"
	AuditEventConfigChange AuditEventType = "config_change"
	AuditEventError        AuditEventType = "error"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`
	Component string         `json:"component,omitempty"`
	PID       int            `json:"pid,omitempty"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Result    string         `json:"result"` // "success" or "failure"
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AuditLoggerConfig configures an AuditLogger. An empty FilePath discards
// the trail. Component and PID are stamped on events that leave them unset.
type AuditLoggerConfig struct {
	FilePath   string
	MaxSize    int64 // megabytes
	MaxBackups int
	Component  string
	PID        int
}

// AuditLogger writes the JSON-lines trail of gate decisions that matter:
// focus transitions, the menu trim and the suppressed edge. A nil
// *AuditLogger accepts and drops every event.
type AuditLogger struct {
	defaults AuditLoggerConfig

	mu   sync.Mutex
	w    io.Writer
	file *FileRotator
}

// NewAuditLogger writes the trail to a rotated file.
func NewAuditLogger(cfg *AuditLoggerConfig) (*AuditLogger, error) {
	if cfg == nil || cfg.FilePath == "" {
		return NewAuditWriter(io.Discard, cfg), nil
	}
	file, err := NewFileRotator(&Config{FilePath: cfg.FilePath, MaxSize: cfg.MaxSize, MaxBackups: cfg.MaxBackups})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a := NewAuditWriter(file, cfg)
	a.file = file
	return a, nil
}

// NewAuditWriter writes the trail to w.
func NewAuditWriter(w io.Writer, cfg *AuditLoggerConfig) *AuditLogger {
	a := &AuditLogger{w: w}
	if cfg != nil {
		a.defaults = *cfg
	}
	return a
}

// Log stamps the defaults on ev and appends it as one JSON line.
func (a *AuditLogger) Log(ev AuditEvent) error {
	if a == nil {
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Component == "" {
		ev.Component = a.defaults.Component
	}
	if ev.PID == 0 {
		ev.PID = a.defaults.PID
	}
	if ev.Result == "" {
		ev.Result = "success"
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

func (a *AuditLogger) emit(kind AuditEventType, action, resource string, details map[string]any) error {
	return a.Log(AuditEvent{EventType: kind, Action: action, Resource: resource, Details: details})
}

// extend copies details and adds key. The caller's map is left alone.
func extend(details map[string]any, key string, value any) map[string]any {
	out := maps.Clone(details)
	if out == nil {
		out = make(map[string]any, 1)
	}
	out[key] = value
	return out
}

func (a *AuditLogger) LogStartup(version string, details map[string]any) error {
	return a.emit(AuditEventStartup, "gate_started", "", extend(details, "version", version))
}

func (a *AuditLogger) LogShutdown(reason string, details map[string]any) error {
	return a.emit(AuditEventShutdown, "gate_stopped", "", extend(details, "reason", reason))
}

// LogFocusChange records a transition of the "os" or "engine" signal.
func (a *AuditLogger) LogFocusChange(signal string, focused, initial bool, foregroundPID int) error {
	return a.emit(AuditEventFocusChange, "focus_"+signal, signal, map[string]any{
		"focused":        focused,
		"initial":        initial,
		"foreground_pid": foregroundPID,
	})
}

// LogMenuTrim records the one-time menu trim.
func (a *AuditLogger) LogMenuTrim(reason string, disabled int, trimmer string) error {
	details := map[string]any{"reason": reason, "disabled": disabled}
	if trimmer != "" {
		details["trimmer"] = trimmer
	}
	return a.emit(AuditEventMenuTrim, "menu_item_disabled", "", details)
}

// LogSuppression records the edge query swallowed after the trim.
func (a *AuditLogger) LogSuppression(query, arg string) error {
	return a.emit(AuditEventSuppression, "edge_consumed", query, map[string]any{"arg": arg})
}

// LogConfigChange records a hot-reloaded setting.
func (a *AuditLogger) LogConfigChange(setting, from, to string) error {
	return a.emit(AuditEventConfigChange, "config_changed", setting, map[string]any{
		"old_value": from,
		"new_value": to,
	})
}

func (a *AuditLogger) LogError(operation string, err error) error {
	return a.Log(AuditEvent{EventType: AuditEventError, Action: operation, Result: "failure", Error: err.Error()})
}

// Close closes the audit file, if any.
func (a *AuditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

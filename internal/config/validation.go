package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig matches (via errors.Is) any validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError is one problem with one field. Warnings describe a
// configuration that loads but probably does not do what was meant.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning reports whether the issue is non-fatal.
func (e *ValidationError) IsWarning() bool { return e.Warning }

// ValidationErrors is every issue found in one configuration.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig when there are real errors.
func (e ValidationErrors) Unwrap() error {
	if e.HasErrors() {
		return ErrInvalidConfig
	}
	return nil
}

func (e ValidationErrors) filter(warning bool) ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if v.Warning == warning {
			out = append(out, v)
		}
	}
	return out
}

// Warnings returns only the non-fatal issues.
func (e ValidationErrors) Warnings() ValidationErrors { return e.filter(true) }

// Errors returns only the fatal issues.
func (e ValidationErrors) Errors() ValidationErrors { return e.filter(false) }

func (e ValidationErrors) HasErrors() bool {
	for _, v := range e {
		if !v.Warning {
			return true
		}
	}
	return false
}

// issues collects findings while walking a Config.
type issues struct{ list ValidationErrors }

func (is *issues) fail(field, format string, args ...any) {
	is.list = append(is.list, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (is *issues) warn(field, format string, args ...any) {
	is.list = append(is.list, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Warning: true})
}

func (is *issues) add(e *ValidationError) { is.list = append(is.list, *e) }

func (is *issues) oneOf(field, value string, valid ...string) {
	for _, v := range valid {
		if value == v {
			return
		}
	}
	is.fail(field, "invalid value %q (valid: %s)", value, strings.Join(valid, ", "))
}

func (is *issues) notNegative(field string, v int) {
	if v < 0 {
		is.fail(field, "cannot be negative")
	}
}

// RequiredFieldError reports a missing field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}

// RangeError reports a value outside [min, max].
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("value must be between %v and %v", min, max)}
}

// ValidateConfig returns the issues of c as ValidationErrors when any of
// them is fatal. Warnings alone pass.
func ValidateConfig(c *Config) error {
	if errs := Check(c); errs.HasErrors() {
		return errs
	}
	return nil
}

// Check returns every issue in c, warnings included.
func Check(c *Config) ValidationErrors {
	var is issues
	if c.Version < 1 || c.Version > Version {
		is.fail("version", "unsupported version %d (current: %d)", c.Version, Version)
	}
	is.focus(&c.Focus)
	is.menu(&c.Menu)
	is.bindings(&c.Bindings)
	is.logging(&c.Logging)
	if c.Journal.Enabled && c.Journal.Path == "" {
		is.add(RequiredFieldError("journal.path"))
	}
	is.notNegative("metrics.snapshot_interval_sec", c.Metrics.SnapshotIntervalSec)
	return is.list
}

func (is *issues) focus(f *FocusConfig) {
	is.oneOf("focus.backend", f.Backend, "auto", "x11", "wayland", "static")
	if f.QueryTimeoutMs < 10 || f.QueryTimeoutMs > 5000 {
		is.add(RangeError("focus.query_timeout_ms", 10, 5000))
	}
	if f.PollIntervalMs < 0 || f.PollIntervalMs > 5000 {
		is.add(RangeError("focus.poll_interval_ms", 0, 5000))
	}
	if f.PollIntervalMs == 0 && f.Backend != "static" {
		is.warn("focus.poll_interval_ms", "0 runs the foreground query on the frame loop on every tick")
	}
	if f.LiveRefresh && f.PollIntervalMs == 0 && f.QueryTimeoutMs > 500 {
		is.warn("focus.live_refresh", "live refresh with a query timeout above 500ms can stall input queries")
	}
}

func (is *issues) menu(m *MenuConfig) {
	is.notNegative("menu.scan_interval_ms", m.ScanIntervalMs)
	if m.Enabled {
		if countNonBlank(m.ContinueText)+countNonBlank(m.ContinueIDs) == 0 {
			is.warn("menu.continue_text", "no continue terms: the menu trim can never match")
		}
		if countNonBlank(m.DiscardText)+countNonBlank(m.DiscardIDs) == 0 {
			is.warn("menu.discard_text", "no discard terms: the menu trim can never match")
		}
	}

	seen := make(map[string]bool, len(m.Trimmers))
	for i, name := range m.Trimmers {
		field := fmt.Sprintf("menu.trimmers[%d]", i)
		switch {
		case strings.TrimSpace(name) == "":
			is.fail(field, "trimmer name is empty")
		case seen[name]:
			is.fail(field, "duplicate trimmer %q", name)
		}
		seen[name] = true
	}
}

func (is *issues) bindings(b *BindingsConfig) {
	for name, btn := range b.Buttons {
		field := "bindings.buttons." + name
		if strings.TrimSpace(name) == "" {
			is.add(RequiredFieldError("bindings.buttons.<name>"))
			continue
		}
		if len(btn.Keys) == 0 && len(btn.MouseButtons) == 0 {
			is.fail(field, "binding has no keys or mouse buttons")
		}
		for _, mb := range btn.MouseButtons {
			if mb < 0 || mb > 4 {
				is.add(RangeError(field+".mouse_buttons", 0, 4))
			}
		}
	}
	for name, axis := range b.Axes {
		field := "bindings.axes." + name
		if len(axis.Negative) == 0 && len(axis.Positive) == 0 {
			is.warn(field, "axis has no keys")
		}
		if axis.Sensitivity < 0 {
			is.fail(field+".sensitivity", "sensitivity cannot be negative")
		}
	}
}

func (is *issues) logging(l *LoggingConfig) {
	is.oneOf("logging.level", l.Level, "debug", "info", "warn", "error")
	is.oneOf("logging.format", l.Format, "text", "json")
	is.oneOf("logging.output", l.Output, "stdout", "stderr", "file", "both", "discard")
	if (l.Output == "file" || l.Output == "both") && l.FilePath == "" {
		is.fail("logging.file_path", "file path is required when output is %q", l.Output)
	}
	if l.MaxSizeMB < 1 {
		is.fail("logging.max_size_mb", "max size must be at least 1 MB")
	}
	is.notNegative("logging.max_backups", l.MaxBackups)
	is.notNegative("logging.max_age_days", l.MaxAgeDays)
}

func countNonBlank(terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			n++
		}
	}
	return n
}

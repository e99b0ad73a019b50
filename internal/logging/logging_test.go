package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("LevelString(%v) does not round trip: %q", level, LevelString(level))
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if !strings.HasSuffix(cfg.FilePath, "focusgate.log") {
		t.Errorf("unexpected default log path %s", cfg.FilePath)
	}
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(tmpDir, "gate.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	child := logger.WithComponent("input_gate")
	child.Debug("hidden")
	logger.SetLevel(LevelDebug)
	child.Debug("visible")
	logger.Sync()

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("debug line logged before SetLevel")
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "component=input_gate") {
		t.Errorf("expected component debug line, got %q", out)
	}
	if logger.Level() != LevelDebug {
		t.Errorf("Level() = %v", logger.Level())
	}
}

func TestRedactTitles(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: LevelInfo, Format: FormatJSON, RedactTitles: true}
	logger := slog.New(NewHandler(&buf, cfg, nil))

	logger.Info("os foreground changed", "title", "Secret Chat", "window_title", "Mail", "pid", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["title"] != "[REDACTED]" || rec["window_title"] != "[REDACTED]" {
		t.Errorf("titles not redacted: %v", rec)
	}
	if rec["pid"] != float64(42) {
		t.Errorf("pid should pass through, got %v", rec["pid"])
	}
}

func TestFileRotatorRotatesBySize(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	rotator, err := NewFileRotator(&Config{
		FilePath:   logPath,
		MaxSize:    1, // 1 MB
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}

	line := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 3; i++ {
		if _, err := rotator.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rotator.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files := rotator.Files()
	if len(files) != 3 {
		t.Errorf("expected current file plus 2 rotated, got %v", files)
	}
}

func TestFileRotatorRotatesByDay(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "day.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 10})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	rotator.now = func() time.Time { return day }
	rotator.opened = day

	rotator.Write([]byte("before midnight\n"))
	day = day.Add(2 * time.Minute)
	rotator.Write([]byte("after midnight\n"))
	rotator.Close()

	data, _ := os.ReadFile(logPath)
	if string(data) != "after midnight\n" {
		t.Errorf("current file = %q", data)
	}
	if len(rotator.Files()) != 2 {
		t.Errorf("expected one rotated file, got %v", rotator.Files())
	}
}

func TestAuditLogger(t *testing.T) {
	tmpDir := t.TempDir()
	auditPath := filepath.Join(tmpDir, "audit.log")

	audit, err := NewAuditLogger(&AuditLoggerConfig{
		FilePath:  auditPath,
		MaxSize:   10,
		Component: "focusgate",
		PID:       4242,
	})
	if err != nil {
		t.Fatalf("failed to create audit logger: %v", err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(audit.LogStartup("1.0.0", nil))
	must(audit.LogFocusChange("os", false, false, 99))
	must(audit.LogMenuTrim("load", 1, ""))
	must(audit.LogSuppression("KeyJustPressed", "Space"))
	must(audit.LogError("flush", errors.New("device gone")))
	must(audit.LogShutdown("exit", nil))
	must(audit.Close())

	f, err := os.Open(auditPath)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}

	want := []AuditEventType{
		AuditEventStartup, AuditEventFocusChange, AuditEventMenuTrim,
		AuditEventSuppression, AuditEventError, AuditEventShutdown,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.EventType != want[i] {
			t.Errorf("event %d: type %s, want %s", i, ev.EventType, want[i])
		}
		if ev.PID != 4242 || ev.Component != "focusgate" {
			t.Errorf("event %d: defaults not stamped: %+v", i, ev)
		}
	}
	if events[4].Result != "failure" || events[4].Error != "device gone" {
		t.Errorf("error event = %+v", events[4])
	}
}

func TestAuditLoggerNilIsNoop(t *testing.T) {
	var audit *AuditLogger
	if err := audit.LogMenuTrim("load", 1, ""); err != nil {
		t.Errorf("nil audit logger returned %v", err)
	}
}

func TestCrashHandlerRecover(t *testing.T) {
	tmpDir := t.TempDir()
	var seen []CrashReport
	h := NewCrashHandler(&CrashHandlerConfig{
		CrashDir:  tmpDir,
		Component: "host_tick",
		Logger:    Nop(),
		OnCrash:   func(r CrashReport) { seen = append(seen, r) },
	})

	ok := h.Recover(map[string]any{"tick": 7}, func() { panic("scene unloaded") })
	if ok {
		t.Error("Recover reported success for a panicking func")
	}
	if !h.Recover(nil, func() {}) {
		t.Error("Recover reported failure for a clean func")
	}

	if h.Count() != 1 || len(seen) != 1 {
		t.Fatalf("expected one crash, got count=%d seen=%d", h.Count(), len(seen))
	}
	if seen[0].PanicValue != "scene unloaded" {
		t.Errorf("panic value = %q", seen[0].PanicValue)
	}

	reports, err := h.CrashReports()
	if err != nil {
		t.Fatalf("CrashReports: %v", err)
	}
	if len(reports) != 1 || reports[0].Context["tick"] != float64(7) {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

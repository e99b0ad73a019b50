package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// CrashReport describes a recovered panic.
type CrashReport struct {
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	PanicValue   string         `json:"panic_value"`
	StackTrace   string         `json:"stack_trace"`
	Component    string         `json:"component,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// CrashHandlerConfig configures a CrashHandler. An empty CrashDir disables
// dump files; a nil Logger means slog.Default.
type CrashHandlerConfig struct {
	CrashDir  string
	Version   string
	Component string
	Logger    *slog.Logger

	// OnCrash runs after the crash has been logged and dumped.
	OnCrash func(CrashReport)
}

// CrashHandler turns panics in host callbacks into crash dumps and a log line
// instead of taking the host process down.
type CrashHandler struct {
	cfg CrashHandlerConfig

	mu    sync.Mutex
	count int
}

// DefaultCrashDir is where the demo host writes crash dumps.
func DefaultCrashDir() string {
	return filepath.Join(StateDir(), "crashes")
}

func NewCrashHandler(cfg *CrashHandlerConfig) *CrashHandler {
	h := &CrashHandler{}
	if cfg != nil {
		h.cfg = *cfg
	}
	if h.cfg.Logger == nil {
		h.cfg.Logger = slog.Default()
	}
	return h
}

// Recover runs fn, recovering any panic. It reports whether fn returned
// normally; info is attached to the crash report.
func (h *CrashHandler) Recover(info map[string]any, fn func()) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			h.HandlePanic(v, info)
			ok = false
		}
	}()
	fn()
	return true
}

// HandlePanic logs and dumps an already recovered panic value.
func (h *CrashHandler) HandlePanic(v any, info map[string]any) {
	rep := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.cfg.Version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprint(v),
		StackTrace:   string(debug.Stack()),
		Component:    h.cfg.Component,
		Context:      info,
	}

	h.mu.Lock()
	h.count++
	path, err := h.dump(rep, h.count)
	h.mu.Unlock()

	h.cfg.Logger.Error("recovered panic", "panic", rep.PanicValue, "dump", path, "dump_error", err)
	if h.cfg.OnCrash != nil {
		h.cfg.OnCrash(rep)
	}
}

// Count returns the number of panics handled.
func (h *CrashHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *CrashHandler) dump(rep CrashReport, seq int) (string, error) {
	if h.cfg.CrashDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(h.cfg.CrashDir, 0750); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	name := fmt.Sprintf("crash-%s-%s-%d.json", rep.Component, rep.Timestamp.Format("20060102-150405"), seq)
	path := filepath.Join(h.cfg.CrashDir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// CrashReports reads back the dumps in the crash directory, skipping files
// that do not parse.
func (h *CrashHandler) CrashReports() ([]CrashReport, error) {
	if h.cfg.CrashDir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(h.cfg.CrashDir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	var reports []CrashReport
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		var rep CrashReport
		if json.Unmarshal(data, &rep) == nil {
			reports = append(reports, rep)
		}
	}
	return reports, nil
}

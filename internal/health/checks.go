package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"focusgate/internal/config"
	"focusgate/internal/focus"
)

type details = map[string]interface{}

func healthy(msg string, d details) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: msg, Details: d}
}

func degraded(msg string, d details) CheckResult {
	return CheckResult{Status: StatusDegraded, Message: msg, Details: d}
}

func unhealthy(msg string, err error, d details) CheckResult {
	res := CheckResult{Status: StatusUnhealthy, Message: msg, Details: d}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// FocusBackendCheck reports whether the OS foreground query works here. A
// query that succeeds but finds no active window is degraded, not unhealthy.
func FocusBackendCheck(src focus.ForegroundSource, pid int) Check {
	return func(ctx context.Context) CheckResult {
		ok, desc := src.Available()
		d := details{"backend": desc, "pid": pid}
		if !ok {
			return unhealthy("foreground query unavailable; input stays blocked", nil, d)
		}

		w, err := src.Foreground(ctx)
		if errors.Is(err, focus.ErrNoForeground) {
			return degraded("no foreground window", d)
		}
		if err != nil {
			return unhealthy("foreground query failed", err, d)
		}
		d["foreground_pid"] = w.PID
		d["window"] = w.Handle
		d["is_self"] = w.PID == pid
		return healthy("foreground query ok", d)
	}
}

// ConfigCheck validates the config file at path against the schema and the
// semantic rules. A missing file means defaults and is healthy; warnings
// degrade.
func ConfigCheck(path string) Check {
	return func(ctx context.Context) CheckResult {
		d := details{"path": path}
		if path == "" {
			return healthy("no config file, using defaults", d)
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return healthy("config file absent, using defaults", d)
		}
		if err := config.ValidateFile(path); err != nil {
			return unhealthy("config does not match schema", err, d)
		}
		cfg, err := config.NewLoader(path).Load()
		if err != nil {
			return unhealthy("config invalid", err, d)
		}
		if warnings := config.Check(cfg).Warnings(); len(warnings) > 0 {
			d["warnings"] = warnings.Error()
			return degraded(fmt.Sprintf("config has %d warning(s)", len(warnings)), d)
		}
		return healthy("config ok", d)
	}
}

// JournalCheck wraps the journal's ping.
func JournalCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return unhealthy("journal not writable", err, nil)
		}
		return healthy("journal ok", nil)
	}
}

// WritableDirCheck creates and removes a probe file in dir.
func WritableDirCheck(dir string) Check {
	return func(ctx context.Context) CheckResult {
		d := details{"path": dir}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return unhealthy("cannot create directory", err, d)
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return unhealthy("directory not writable", err, d)
		}
		f.Close()
		os.Remove(f.Name())
		return healthy("directory writable", d)
	}
}

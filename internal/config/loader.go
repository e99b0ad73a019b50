package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce collapses bursts of editor writes into one reload.
const reloadDebounce = 100 * time.Millisecond

type codec struct {
	decode func(data []byte, cfg *Config) error
	encode func(cfg *Config) ([]byte, error)
}

var codecs = map[string]codec{
	"toml": {
		decode: func(data []byte, cfg *Config) error {
			_, err := toml.Decode(string(data), cfg)
			return err
		},
		encode: func(cfg *Config) ([]byte, error) {
			var buf bytes.Buffer
			err := toml.NewEncoder(&buf).Encode(cfg)
			return buf.Bytes(), err
		},
	},
	"json": {
		decode: func(data []byte, cfg *Config) error { return json.Unmarshal(data, cfg) },
		encode: func(cfg *Config) ([]byte, error) {
			data, err := json.MarshalIndent(cfg, "", "  ")
			return append(data, '\n'), err
		},
	},
	"yaml": {
		decode: func(data []byte, cfg *Config) error { return yaml.Unmarshal(data, cfg) },
		encode: func(cfg *Config) ([]byte, error) { return yaml.Marshal(cfg) },
	},
}

// detectOrder is tried in turn when the format is unknown.
var detectOrder = []string{"toml", "json", "yaml"}

func normalizeFormat(format string) string {
	if format == "yml" {
		return "yaml"
	}
	return format
}

// formatOf returns the format implied by the file extension, or "".
func formatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if _, ok := codecs[normalizeFormat(ext)]; ok {
		return normalizeFormat(ext)
	}
	return ""
}

// Decode parses data in format over cfg. An empty format tries TOML, JSON
// and YAML in that order; cfg is only changed by the attempt that succeeds.
func Decode(data []byte, format string, cfg *Config) error {
	format = normalizeFormat(format)
	if c, ok := codecs[format]; ok {
		if err := c.decode(data, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", strings.ToUpper(format), err)
		}
		return nil
	}
	for _, f := range detectOrder {
		trial := cfg.Clone()
		if codecs[f].decode(data, trial) == nil {
			*cfg = *trial
			return nil
		}
	}
	return errors.New("parse config: not valid TOML, JSON or YAML")
}

// Encode renders cfg in format; anything unrecognized is TOML.
func Encode(cfg *Config, format string) ([]byte, error) {
	format = normalizeFormat(format)
	c, ok := codecs[format]
	if !ok {
		format, c = "toml", codecs["toml"]
	}
	data, err := c.encode(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", strings.ToUpper(format), err)
	}
	return data, nil
}

// SaveConfig writes cfg to path in the format implied by its extension.
func SaveConfig(cfg *Config, path string) error {
	data, err := Encode(cfg, formatOf(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadFromEnv returns the defaults with environment overrides applied.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	return cfg
}

// loadConfigFromFile decodes path over the defaults. A missing file yields
// the defaults unchanged.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, formatOf(path), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readAndValidate(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Loader owns the current configuration of one file and, once Watch is
// called, reloads it when the file changes.
type Loader struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	cbMu      sync.Mutex
	callbacks []func(old, new *Config)

	errs    chan error
	ctx     context.Context
	stop    context.CancelFunc
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewLoader(path string) *Loader {
	ctx, stop := context.WithCancel(context.Background())
	return &Loader{path: path, errs: make(chan error, 1), ctx: ctx, stop: stop}
}

func (l *Loader) Path() string { return l.path }

// Load reads, overrides and validates the file, and makes the result
// current.
func (l *Loader) Load() (*Config, error) {
	cfg, err := readAndValidate(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration, nil before Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnChange registers cb to run with the old and new configuration after
// every successful reload.
func (l *Loader) OnChange(cb func(old, new *Config)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.callbacks = append(l.callbacks, cb)
}

// Errors delivers reload and watcher errors. Only the oldest unread error is
// kept.
func (l *Loader) Errors() <-chan error { return l.errs }

func (l *Loader) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

// Reload rereads the file now. An invalid file leaves the current
// configuration in place and is reported on Errors.
func (l *Loader) Reload() {
	next, err := readAndValidate(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	prev := l.cfg
	l.cfg = next
	l.mu.Unlock()

	l.cbMu.Lock()
	cbs := append([]func(old, new *Config){}, l.callbacks...)
	l.cbMu.Unlock()
	for _, cb := range cbs {
		cb(prev, next)
	}
}

// Watch reloads the file whenever it is written, created or renamed into
// place. The containing directory is watched because editors save by
// rename.
func (l *Loader) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	l.watcher = w
	l.done = make(chan struct{})
	go l.watch()
	return nil
}

func (l *Loader) watch() {
	defer close(l.done)

	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	name := filepath.Base(l.path)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-debounce.C:
			l.Reload()
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce.Reset(reloadDebounce)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

// Close stops watching. A reload in progress finishes first.
func (l *Loader) Close() error {
	l.stop()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	return err
}

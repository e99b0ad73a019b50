// Package host wires the focus gate into a running host.
//
// A host calls Runtime.Tick once per frame and Runtime.TreeLoaded whenever a
// new UI tree becomes active, and reads all input through Runtime.Input. The
// Runtime owns the one Latch and focus.State of the process and hands them to
// every component, so a test can build as many isolated runtimes as it likes.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"focusgate/internal/config"
	"focusgate/internal/focus"
	"focusgate/internal/gate"
	"focusgate/internal/input"
	"focusgate/internal/journal"
	"focusgate/internal/logging"
	"focusgate/internal/menu"
	"focusgate/internal/metrics"
	"focusgate/internal/uitree"
)

var (
	// ErrAlreadyRunning is returned by Start on a running Runtime.
	ErrAlreadyRunning = errors.New("host: runtime already running")

	// ErrNoEngineFocus is returned by New without an engine focus reader.
	ErrNoEngineFocus = errors.New("host: engine focus reader is required")
)

// Deps are the collaborators a Runtime is built from. Only EngineFocused and
// Input are required; everything else falls back to what the config asks for.
type Deps struct {
	// EngineFocused reads the engine's own focus flag.
	EngineFocused func() bool

	// Input is the host's real HID query surface.
	Input input.Source

	// Flusher clears held input when the gate blocks for lack of focus.
	Flusher gate.Flusher

	// Source answers OS foreground queries. Nil builds one from cfg.Focus.
	Source focus.ForegroundSource

	// Logger is the root logger. Nil builds one from cfg.Logging.
	Logger *logging.Logger

	// Audit receives the audit trail. Nil opens cfg.Logging.AuditPath.
	Audit *logging.AuditLogger

	// Journal receives diagnostics. Nil opens cfg.Journal.Path when enabled.
	Journal *journal.Journal

	// Metrics receives counters. Nil creates a private registry when
	// cfg.Metrics is enabled.
	Metrics *metrics.GateMetrics

	// Clock replaces time.Now for scan rate limiting.
	Clock func() time.Time

	// PID overrides the host pid compared against the foreground owner.
	PID int

	// Version is recorded in the journal session and crash dumps.
	Version string

	// CrashDir receives crash dumps of panicking ticks. Empty disables dumps.
	CrashDir string
}

// Runtime is the per-process focus gate.
type Runtime struct {
	state   focus.State
	latch   gate.Latch
	oracle  *focus.Oracle
	poller  *focus.Poller
	engine  *focus.EngineTracker
	gate    *gate.Gate
	input   *input.Gated
	scanner *menu.Scanner
	crash   *logging.CrashHandler

	logger  *logging.Logger
	log     *slog.Logger
	audit   *logging.AuditLogger
	journal *journal.Journal
	metrics *metrics.GateMetrics
	now     func() time.Time
	pid     int
	version string

	// scanFailing is set while consecutive scan passes fail.
	scanFailing atomic.Bool

	// owned lists what New opened and Close must release.
	owned []func() error

	cfgMu sync.Mutex
	cfg   *config.Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Runtime from cfg and deps. A nil cfg means defaults.
func New(cfg *config.Config, deps Deps) (*Runtime, error) {
	if deps.EngineFocused == nil {
		return nil, ErrNoEngineFocus
	}
	if deps.Input == nil {
		return nil, errors.New("host: input source is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg = cfg.Clone()

	r := &Runtime{
		logger:  deps.Logger,
		audit:   deps.Audit,
		journal: deps.Journal,
		metrics: deps.Metrics,
		now:     deps.Clock,
		pid:     deps.PID,
		version: deps.Version,
		cfg:     cfg,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.pid == 0 {
		r.pid = os.Getpid()
	}
	if r.version == "" {
		r.version = "dev"
	}

	if err := r.openOwned(cfg); err != nil {
		r.closeOwned()
		return nil, err
	}
	r.log = r.logger.WithComponent("host")

	src := deps.Source
	if src == nil {
		src = focus.NewSource(SourceConfig(cfg))
		if cfg.Focus.Backend != focus.BackendStatic && cfg.PollInterval() > 0 {
			r.poller = focus.NewPoller(src, cfg.PollInterval(), cfg.QueryTimeout(), r.logger.Logger)
			src = r.poller
		}
	}
	r.oracle = focus.NewOracle(src, &r.state,
		focus.WithPID(r.pid),
		focus.WithQueryTimeout(cfg.QueryTimeout()),
		focus.WithLogger(r.logger.Logger),
		focus.WithObserver(r.onFocus),
	)
	r.engine = focus.NewEngineTracker(deps.EngineFocused, &r.state, r.logger.Logger, r.onFocus)

	gateOpts := []gate.Option{
		gate.WithLogger(r.logger.Logger),
		gate.WithSuppressHook(r.onSuppress),
	}
	if deps.Flusher != nil {
		gateOpts = append(gateOpts, gate.WithFlusher(deps.Flusher))
	}
	if cfg.Focus.LiveRefresh {
		gateOpts = append(gateOpts, gate.WithLiveRefresh(r.oracle.Refresh))
	}
	r.gate = gate.New(&r.state, &r.latch, gateOpts...)
	r.gate.SetFlushOnBlock(cfg.Gate.FlushOnBlock)
	r.input = input.NewGated(deps.Input, r.gate)

	if cfg.Menu.Enabled {
		r.scanner = menu.NewScanner(&r.latch,
			menu.WithInterval(cfg.ScanInterval()),
			menu.WithClock(r.now),
			menu.WithVocabulary(Vocabulary(cfg.Menu)),
			menu.WithScanLogger(r.logger.Logger),
			menu.WithTrimmers(menu.ResolveTrimmers(cfg.Menu.Trimmers, r.log)...),
			menu.WithPatchHook(r.onPatch),
		)
	}

	r.crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  deps.CrashDir,
		Version:   r.version,
		Component: "host",
		Logger:    r.log,
		OnCrash:   r.onCrash,
	})
	return r, nil
}

// openOwned fills in the logger, audit trail, journal and metrics the caller
// did not supply.
func (r *Runtime) openOwned(cfg *config.Config) error {
	if r.logger == nil {
		lc, err := LoggingConfig(cfg.Logging)
		if err != nil {
			return err
		}
		l, err := logging.New(lc)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		r.logger = l
		r.owned = append(r.owned, l.Close)
	}

	if r.audit == nil && cfg.Logging.AuditPath != "" {
		a, err := logging.NewAuditLogger(&logging.AuditLoggerConfig{
			FilePath:   cfg.Logging.AuditPath,
			MaxSize:    int64(cfg.Logging.MaxSizeMB),
			MaxBackups: cfg.Logging.MaxBackups,
			Component:  "focusgate",
			PID:        r.pid,
		})
		if err != nil {
			return err
		}
		r.audit = a
		r.owned = append(r.owned, a.Close)
	}

	if r.journal == nil && cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		r.journal = j
		r.owned = append(r.owned, j.Close)
	}

	if r.metrics == nil && cfg.Metrics.Enabled {
		r.metrics = metrics.NewGateMetrics(metrics.NewRegistry("focusgate", ""))
	}
	return nil
}

func (r *Runtime) closeOwned() error {
	var errs []error
	for i := len(r.owned) - 1; i >= 0; i-- {
		if err := r.owned[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.owned = nil
	return errors.Join(errs...)
}

// Input returns the gated query surface the host should read input from.
func (r *Runtime) Input() *input.Gated { return r.input }

// Gate returns the input gate.
func (r *Runtime) Gate() *gate.Gate { return r.gate }

// Latch returns the process latch.
func (r *Runtime) Latch() *gate.Latch { return &r.latch }

// Focus returns the current focus signals.
func (r *Runtime) Focus() focus.Snapshot { return r.state.Snapshot() }

// Oracle returns the OS foreground oracle.
func (r *Runtime) Oracle() *focus.Oracle { return r.oracle }

// Metrics returns the metrics set, or nil when metrics are off.
func (r *Runtime) Metrics() *metrics.GateMetrics { return r.metrics }

// Journal returns the journal, or nil when the journal is off.
func (r *Runtime) Journal() *journal.Journal { return r.journal }

// Logger returns the root logger.
func (r *Runtime) Logger() *logging.Logger { return r.logger }

// Config returns a copy of the active configuration.
func (r *Runtime) Config() *config.Config {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	return r.cfg.Clone()
}

// Tick refreshes both focus signals and runs a periodic menu scan over roots.
// A panic anywhere in the tick is recovered and recorded.
func (r *Runtime) Tick(roots []uitree.Node) {
	r.crash.Recover(map[string]any{"callback": "tick"}, func() {
		r.oracle.Refresh()
		r.engine.Refresh()
		r.scan(roots, menu.ReasonPeriodic)
	})
}

// TreeLoaded runs a load-triggered menu scan over the new roots.
func (r *Runtime) TreeLoaded(roots []uitree.Node) menu.Result {
	var res menu.Result
	r.crash.Recover(map[string]any{"callback": "tree_loaded"}, func() {
		res = r.scan(roots, menu.ReasonLoad)
	})
	return res
}

// ForceScan runs a manual scan, bypassing the periodic rate limit.
func (r *Runtime) ForceScan(roots []uitree.Node) menu.Result {
	return r.scan(roots, menu.ReasonManual)
}

func (r *Runtime) scan(roots []uitree.Node, reason menu.Reason) menu.Result {
	if r.scanner == nil {
		return menu.Result{Reason: reason, Outcome: menu.OutcomeNoMatch}
	}
	start := r.now()
	res := r.scanner.MaybeScan(roots, reason)
	if r.metrics != nil {
		r.metrics.RecordScan(res, r.now().Sub(start))
	}
	if r.journal != nil && r.journalScan(res) {
		r.record("scan", r.journal.RecordScan(res))
	}
	return res
}

// journalScan reports whether res gets a journal row: the trim itself and
// the first pass of a run of failing ones.
func (r *Runtime) journalScan(res menu.Result) bool {
	switch res.Outcome {
	case menu.OutcomePatched:
		return true
	case menu.OutcomeFailed:
		return !r.scanFailing.Swap(true)
	case menu.OutcomeNoMatch:
		r.scanFailing.Store(false)
	}
	return false
}

// Stats returns the gate counters.
func (r *Runtime) Stats() gate.Stats { return r.gate.Stats() }

// Start starts the foreground poller, opens a journal session, records
// startup and begins periodic stats snapshots. It does not tick; the host
// keeps calling Tick. Until Start, a polled OS signal reads not foreground.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	if r.poller != nil {
		if err := r.poller.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("start foreground poller: %w", err)
		}
	}
	if r.journal != nil {
		if _, err := r.journal.BeginSession(r.pid, r.version); err != nil {
			r.stopPoller()
			cancel()
			return fmt.Errorf("begin journal session: %w", err)
		}
	}

	ok, backend := r.oracle.Available()
	engineFocused := r.engine.Refresh()
	r.log.Info("focusgate started",
		"version", r.version,
		"pid", r.pid,
		"engine_focused", engineFocused,
		"os_backend", backend,
		"os_backend_ok", ok,
		"menu_trim", r.scanner != nil,
	)
	r.record("audit", r.audit.LogStartup(r.version, map[string]any{
		"os_backend":     backend,
		"engine_focused": engineFocused,
	}))

	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	interval := r.Config().SnapshotInterval()
	if r.metrics != nil && interval > 0 {
		go r.snapshotLoop(ctx, interval)
	} else {
		close(r.done)
	}
	return nil
}

func (r *Runtime) snapshotLoop(ctx context.Context, interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Snapshot()
		}
	}
}

func (r *Runtime) stopPoller() {
	if r.poller != nil {
		r.poller.Stop()
	}
}

// Snapshot copies the gate counters into metrics and writes them to the
// journal.
func (r *Runtime) Snapshot() {
	stats := r.gate.Stats()
	var snap map[string]any
	if r.metrics != nil {
		r.metrics.SyncGate(stats)
		snap = r.metrics.Snapshot()
	}
	if r.journal != nil {
		r.record("stats", r.journal.RecordStats(stats, snap))
	}
}

// Stop stops the snapshot loop, writes a final snapshot and closes the
// journal session.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	r.cancel()
	<-r.done
	r.stopPoller()

	r.Snapshot()
	stats := r.gate.Stats()
	r.log.Info("focusgate stopped",
		"passed", stats.Passed,
		"blocked", stats.Blocked,
		"suppressed", stats.Suppressed,
		"menu_patched", r.latch.Patched(),
	)
	r.record("audit", r.audit.LogShutdown("stop", map[string]any{
		"passed":  stats.Passed,
		"blocked": stats.Blocked,
	}))
	if r.journal != nil {
		if err := r.journal.EndSession(); err != nil && !errors.Is(err, journal.ErrNoSession) {
			return fmt.Errorf("end journal session: %w", err)
		}
	}
	return nil
}

// Close stops the runtime and releases what New opened.
func (r *Runtime) Close() error {
	stopErr := r.Stop()
	return errors.Join(stopErr, r.closeOwned())
}

// WatchConfig applies every successful reload of l.
func (r *Runtime) WatchConfig(l *config.Loader) {
	l.OnChange(func(_, next *config.Config) {
		r.ApplyConfig(next)
	})
}

// ApplyConfig applies the hot-reloadable settings of next: the match
// vocabulary, the scan interval, flush on block and the log level. The latch
// is never reset.
func (r *Runtime) ApplyConfig(next *config.Config) {
	r.cfgMu.Lock()
	prev := r.cfg
	r.cfg = next.Clone()
	r.cfgMu.Unlock()

	if r.scanner != nil {
		if !sameTerms(prev.Menu, next.Menu) {
			r.scanner.SetVocabulary(Vocabulary(next.Menu))
			r.changed("menu.vocabulary", "", "")
		}
		if prev.Menu.ScanIntervalMs != next.Menu.ScanIntervalMs {
			r.scanner.SetInterval(next.ScanInterval())
			r.changed("menu.scan_interval_ms",
				strconv.Itoa(prev.Menu.ScanIntervalMs), strconv.Itoa(next.Menu.ScanIntervalMs))
		}
	}
	if prev.Gate.FlushOnBlock != next.Gate.FlushOnBlock {
		r.gate.SetFlushOnBlock(next.Gate.FlushOnBlock)
		r.changed("gate.flush_on_block",
			strconv.FormatBool(prev.Gate.FlushOnBlock), strconv.FormatBool(next.Gate.FlushOnBlock))
	}
	if prev.Logging.Level != next.Logging.Level {
		level, err := logging.ParseLevel(next.Logging.Level)
		if err != nil {
			r.log.Warn("ignoring log level from reloaded config", "error", err)
			return
		}
		r.logger.SetLevel(level)
		r.changed("logging.level", prev.Logging.Level, next.Logging.Level)
	}
}

func (r *Runtime) changed(setting, from, to string) {
	r.log.Info("config reloaded", "setting", setting, "old", from, "new", to)
	r.record("audit", r.audit.LogConfigChange(setting, from, to))
}

func (r *Runtime) onFocus(t focus.Transition) {
	if r.metrics != nil {
		r.metrics.RecordFocus(t)
	}
	r.record("audit", r.audit.LogFocusChange(string(t.Signal), t.Focused, t.Initial, t.PID))
	if r.journal != nil {
		r.record("focus", r.journal.RecordFocus(t))
	}
}

func (r *Runtime) onSuppress(q gate.Query) {
	r.record("audit", r.audit.LogSuppression(q.Name, q.Arg))
	if r.journal != nil {
		r.record("suppression", r.journal.RecordSuppression(q))
	}
}

func (r *Runtime) onPatch(res menu.Result) {
	r.record("audit", r.audit.LogMenuTrim(string(res.Reason), res.Disabled, res.Trimmer))
}

func (r *Runtime) onCrash(rep logging.CrashReport) {
	if r.metrics != nil {
		r.metrics.RecordPanic()
	}
	r.record("audit", r.audit.LogError("tick", errors.New(rep.PanicValue)))
}

// record logs a failed diagnostics write. Writes before Start have no
// journal session and are dropped quietly.
func (r *Runtime) record(what string, err error) {
	if err == nil || errors.Is(err, journal.ErrNoSession) {
		return
	}
	r.log.Warn("diagnostics write failed", "record", what, "error", err)
}

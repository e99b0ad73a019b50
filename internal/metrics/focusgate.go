package metrics

import (
	"time"

	"focusgate/internal/focus"
	"focusgate/internal/gate"
	"focusgate/internal/menu"
)

// GateMetrics holds the focusgate-specific metrics.
type GateMetrics struct {
	registry *Registry

	// Counters
	QueriesPassed     *Counter
	QueriesBlocked    *Counter
	QueriesSuppressed *Counter
	Flushes           *Counter
	FlushErrors       *Counter
	FocusTransitions  *Counter
	ScansTotal        *Counter
	ScanFailures      *Counter
	ItemsDisabled     *Counter
	TickPanics        *Counter

	// Gauges
	OSForeground  *Gauge
	EngineFocused *Gauge
	Patched       *Gauge
	UptimeSeconds *Gauge

	// Histograms
	ScanDuration *Histogram

	start time.Time
}

// NewGateMetrics creates and registers all focusgate metrics.
func NewGateMetrics(registry *Registry) *GateMetrics {
	if registry == nil {
		registry = Default()
	}

	return &GateMetrics{
		registry: registry,

		QueriesPassed: registry.RegisterCounter(
			"queries_passed_total",
			"Input queries forwarded to the host",
		),
		QueriesBlocked: registry.RegisterCounter(
			"queries_blocked_total",
			"Input queries blocked because the host was not focused",
		),
		QueriesSuppressed: registry.RegisterCounter(
			"queries_suppressed_total",
			"Edge queries consumed after the menu trim",
		),
		Flushes: registry.RegisterCounter(
			"hid_flushes_total",
			"Held-input flushes issued while blocked",
		),
		FlushErrors: registry.RegisterCounter(
			"hid_flush_errors_total",
			"Held-input flushes that failed",
		),
		FocusTransitions: registry.RegisterCounter(
			"focus_transitions_total",
			"Changes of either focus signal",
		),
		ScansTotal: registry.RegisterCounter(
			"menu_scans_total",
			"Menu scan passes that walked the tree",
		),
		ScanFailures: registry.RegisterCounter(
			"menu_scan_failures_total",
			"Menu scan passes aborted by a panic",
		),
		ItemsDisabled: registry.RegisterCounter(
			"menu_items_disabled_total",
			"Menu items disabled by the trim",
		),
		TickPanics: registry.RegisterCounter(
			"tick_panics_total",
			"Panics recovered from host tick callbacks",
		),

		OSForeground: registry.RegisterGauge(
			"os_foreground",
			"1 when the host owns the OS foreground window",
		),
		EngineFocused: registry.RegisterGauge(
			"engine_focused",
			"1 when the engine reports application focus",
		),
		Patched: registry.RegisterGauge(
			"menu_patched",
			"1 once the menu trim has been applied",
		),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds",
			"Seconds since the runtime started",
		),

		ScanDuration: registry.RegisterHistogram(
			"menu_scan_duration_seconds",
			"Time spent walking the UI tree per scan",
			ScanBuckets,
		),

		start: time.Now(),
	}
}

// Registry returns the backing registry.
func (m *GateMetrics) Registry() *Registry {
	return m.registry
}

// SyncGate copies the gate's counters.
func (m *GateMetrics) SyncGate(s gate.Stats) {
	m.QueriesPassed.Sync(s.Passed)
	m.QueriesBlocked.Sync(s.Blocked)
	m.QueriesSuppressed.Sync(s.Suppressed)
	m.Flushes.Sync(s.Flushes)
	m.FlushErrors.Sync(s.FlushErrors)
}

// RecordFocus records a transition and updates the focus gauges.
func (m *GateMetrics) RecordFocus(t focus.Transition) {
	if !t.Initial {
		m.FocusTransitions.Inc()
	}
	g := m.EngineFocused
	if t.Signal == focus.SignalOS {
		g = m.OSForeground
	}
	g.Set(boolGauge(t.Focused))
}

// RecordScan records a scan result. Calls that did not walk the tree only
// update the patched gauge.
func (m *GateMetrics) RecordScan(res menu.Result, d time.Duration) {
	switch res.Outcome {
	case menu.OutcomeNoMatch, menu.OutcomePatched, menu.OutcomeFailed:
		m.ScansTotal.Inc()
		m.ScanDuration.ObserveDuration(d)
	}
	if res.Outcome == menu.OutcomeFailed {
		m.ScanFailures.Inc()
	}
	if res.Disabled > 0 {
		m.ItemsDisabled.Add(uint64(res.Disabled))
	}
	if res.Outcome == menu.OutcomePatched || res.Outcome == menu.OutcomeAlreadyPatched {
		m.Patched.Set(1)
	}
}

// RecordPanic counts a recovered tick panic.
func (m *GateMetrics) RecordPanic() {
	m.TickPanics.Inc()
}

// UpdateUptime updates the uptime gauge.
func (m *GateMetrics) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(m.start).Seconds()))
}

// Snapshot returns a snapshot of key metrics, keyed by short name.
func (m *GateMetrics) Snapshot() map[string]any {
	m.UpdateUptime()
	return map[string]any{
		"queries_passed":      m.QueriesPassed.Value(),
		"queries_blocked":     m.QueriesBlocked.Value(),
		"queries_suppressed":  m.QueriesSuppressed.Value(),
		"hid_flushes":         m.Flushes.Value(),
		"hid_flush_errors":    m.FlushErrors.Value(),
		"focus_transitions":   m.FocusTransitions.Value(),
		"menu_scans":          m.ScansTotal.Value(),
		"menu_scan_failures":  m.ScanFailures.Value(),
		"menu_items_disabled": m.ItemsDisabled.Value(),
		"tick_panics":         m.TickPanics.Value(),
		"os_foreground":       m.OSForeground.Value(),
		"engine_focused":      m.EngineFocused.Value(),
		"menu_patched":        m.Patched.Value(),
		"uptime_seconds":      m.UptimeSeconds.Value(),
		"scan_avg_seconds":    m.ScanDuration.Mean(),
		"scan_p95_seconds":    m.ScanDuration.Percentile(95),
	}
}

func boolGauge(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

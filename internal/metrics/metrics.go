// Package metrics provides Prometheus-compatible metrics for focusgate.
//
// Gate decisions, focus transitions and menu scans are counted in a
// Registry that can be rendered as Prometheus text or JSON, snapshotted into
// the diagnostics journal, or served over HTTP by the demo host.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// metric is what the registry needs from each kind.
type metric interface {
	Name() string
	writePrometheus(w io.Writer)
	describe() map[string]any
	addTo(snap map[string]any)
	reset()
}

type desc struct {
	name string
	help string
}

// Name returns the fully qualified metric name.
func (d desc) Name() string { return d.name }

// Help returns the help text.
func (d desc) Help() string { return d.help }

func (d desc) header(w io.Writer, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", d.name, d.help, d.name, kind)
}

// Counter only goes up.
type Counter struct {
	desc
	value atomic.Uint64
}

// NewCounter returns an unregistered counter.
func NewCounter(name, help string) *Counter {
	return &Counter{desc: desc{name, help}}
}

func (c *Counter) Inc()          { c.value.Add(1) }
func (c *Counter) Add(v uint64)  { c.value.Add(v) }
func (c *Counter) Value() uint64 { return c.value.Load() }

// Sync raises the counter to v when an external monotonic source has moved
// ahead. It never lowers the value.
func (c *Counter) Sync(v uint64) {
	for {
		cur := c.value.Load()
		if v <= cur || c.value.CompareAndSwap(cur, v) {
			return
		}
	}
}

func (c *Counter) writePrometheus(w io.Writer) {
	c.header(w, "counter")
	fmt.Fprintf(w, "%s %d\n", c.name, c.Value())
}

func (c *Counter) describe() map[string]any {
	return map[string]any{"type": "counter", "help": c.help, "value": c.Value()}
}

func (c *Counter) addTo(snap map[string]any) { snap[c.name] = c.Value() }
func (c *Counter) reset()                    { c.value.Store(0) }

// Gauge holds a value that can go either way.
type Gauge struct {
	desc
	value atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Add(v int64)  { g.value.Add(v) }
func (g *Gauge) Value() int64 { return g.value.Load() }

func (g *Gauge) writePrometheus(w io.Writer) {
	g.header(w, "gauge")
	fmt.Fprintf(w, "%s %d\n", g.name, g.Value())
}

func (g *Gauge) describe() map[string]any {
	return map[string]any{"type": "gauge", "help": g.help, "value": g.Value()}
}

func (g *Gauge) addTo(snap map[string]any) { snap[g.name] = g.Value() }
func (g *Gauge) reset()                    { g.value.Store(0) }

// ScanBuckets are upper bounds in seconds for menu scan durations. A scan
// walks the live UI tree on the host's frame, so the range is sub-frame.
var ScanBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// Histogram counts observations into fixed buckets. cumulative[i] is the
// number of observations <= bounds[i]; the last slot is the +Inf bucket.
type Histogram struct {
	desc
	bounds []float64

	mu         sync.Mutex
	cumulative []uint64
	sum        float64
}

func newHistogram(name, help string, bounds []float64) *Histogram {
	if len(bounds) == 0 {
		bounds = ScanBuckets
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &Histogram{
		desc:       desc{name, help},
		bounds:     sorted,
		cumulative: make([]uint64, len(sorted)+1),
	}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	first := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	for i := first; i < len(h.cumulative); i++ {
		h.cumulative[i]++
	}
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

func (h *Histogram) total() uint64 { return h.cumulative[len(h.cumulative)-1] }

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total()
}

// Mean returns the average observation, or 0 before the first one.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mean()
}

func (h *Histogram) mean() float64 {
	if n := h.total(); n > 0 {
		return h.sum / float64(n)
	}
	return 0
}

// Percentile estimates the p-th percentile (0-100).
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Percentile(h.bounds, h.cumulative, p)
}

func (h *Histogram) writePrometheus(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(w, "histogram")
	for i, b := range h.bounds {
		fmt.Fprintf(w, "%s_bucket{le=\"%g\"} %d\n", h.name, b, h.cumulative[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.total())
	fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n", h.name, h.sum, h.name, h.total())
}

func (h *Histogram) describe() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	buckets := make(map[string]uint64, len(h.cumulative))
	for i, b := range h.bounds {
		buckets[fmt.Sprintf("%g", b)] = h.cumulative[i]
	}
	buckets["+Inf"] = h.total()
	return map[string]any{
		"type":    "histogram",
		"help":    h.help,
		"buckets": buckets,
		"sum":     h.sum,
		"count":   h.total(),
		"mean":    h.mean(),
	}
}

func (h *Histogram) addTo(snap map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap[h.name+"_sum"] = h.sum
	snap[h.name+"_count"] = h.total()
	snap[h.name+"_mean"] = h.mean()
}

func (h *Histogram) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum = 0
	clear(h.cumulative)
}

// Percentile estimates the p-th percentile from cumulative bucket counts,
// interpolating linearly inside the bucket that holds it. Observations past
// the last bound are placed between it and twice its value.
func Percentile(bounds []float64, cumulative []uint64, p float64) float64 {
	if len(bounds) == 0 || len(cumulative) == 0 {
		return 0
	}
	total := cumulative[len(cumulative)-1]
	if total == 0 {
		return 0
	}
	rank := uint64(math.Ceil(float64(total) * p / 100))

	for i, n := range cumulative {
		if n < rank {
			continue
		}
		if i == 0 {
			return bounds[0] / 2
		}
		lo, below := bounds[i-1], cumulative[i-1]
		hi := lo * 2
		if i < len(bounds) {
			hi = bounds[i]
		}
		return lo + (hi-lo)*float64(rank-below)/float64(n-below)
	}
	return bounds[len(bounds)-1]
}

// Registry owns a set of metrics under one name prefix.
type Registry struct {
	prefix string

	mu     sync.RWMutex
	byName map[string]metric
}

// NewRegistry returns a registry whose metric names are prefixed with
// namespace and subsystem, joined by underscores.
func NewRegistry(namespace, subsystem string) *Registry {
	var parts []string
	for _, p := range []string{namespace, subsystem} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	prefix := strings.Join(parts, "_")
	if prefix != "" {
		prefix += "_"
	}
	return &Registry{prefix: prefix, byName: make(map[string]metric)}
}

// register returns the metric already registered under name, or the one
// built by mk. Reusing a name for another kind is a programming error.
func register[M metric](r *Registry, name string, mk func(full string) M) M {
	full := r.prefix + name
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[full]; ok {
		m, ok := existing.(M)
		if !ok {
			panic(fmt.Sprintf("metrics: %s registered twice with different kinds", full))
		}
		return m
	}
	m := mk(full)
	r.byName[full] = m
	return m
}

// RegisterCounter returns the counter called name, creating it if needed.
func (r *Registry) RegisterCounter(name, help string) *Counter {
	return register(r, name, func(full string) *Counter { return NewCounter(full, help) })
}

// RegisterGauge returns the gauge called name, creating it if needed.
func (r *Registry) RegisterGauge(name, help string) *Gauge {
	return register(r, name, func(full string) *Gauge { return &Gauge{desc: desc{full, help}} })
}

// RegisterHistogram returns the histogram called name, creating it with
// bounds if needed. Empty bounds fall back to ScanBuckets.
func (r *Registry) RegisterHistogram(name, help string, bounds []float64) *Histogram {
	return register(r, name, func(full string) *Histogram { return newHistogram(full, help, bounds) })
}

// GetCounter returns the counter called name, or nil.
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, _ := r.byName[r.prefix+name].(*Counter)
	return c
}

// sorted returns the registered metrics ordered by name.
func (r *Registry) sorted() []metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]metric, 0, len(r.byName))
	for _, m := range r.byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// WritePrometheus writes every metric in the Prometheus text format.
func (r *Registry) WritePrometheus(w io.Writer) error {
	for _, m := range r.sorted() {
		m.writePrometheus(w)
	}
	return nil
}

// WriteJSON writes every metric as an indented JSON object keyed by name.
func (r *Registry) WriteJSON(w io.Writer) error {
	doc := make(map[string]any)
	for _, m := range r.sorted() {
		doc[m.Name()] = m.describe()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Snapshot returns the current value of every metric by full name.
// Histograms contribute _sum, _count and _mean entries.
func (r *Registry) Snapshot() map[string]any {
	snap := make(map[string]any)
	for _, m := range r.sorted() {
		m.addTo(snap)
	}
	return snap
}

// Reset zeroes every metric.
func (r *Registry) Reset() {
	for _, m := range r.sorted() {
		m.reset()
	}
}

// HTTPHandler serves the registry as Prometheus text, or as JSON when the
// request accepts application/json.
func (r *Registry) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.Header.Get("Accept"), "application/json") {
			w.Header().Set("Content-Type", "application/json")
			r.WriteJSON(w)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.WritePrometheus(w)
	})
}

var defaultRegistry atomic.Pointer[Registry]

func init() {
	defaultRegistry.Store(NewRegistry("focusgate", ""))
}

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry.Load() }

// SetDefault replaces the process-wide registry.
func SetDefault(r *Registry) { defaultRegistry.Store(r) }

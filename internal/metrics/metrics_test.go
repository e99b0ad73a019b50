package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusgate/internal/focus"
	"focusgate/internal/gate"
	"focusgate/internal/menu"
)

func TestCounterSyncNeverLowers(t *testing.T) {
	c := NewCounter("x", "")
	c.Sync(5)
	assert.Equal(t, uint64(5), c.Value())
	c.Sync(3)
	assert.Equal(t, uint64(5), c.Value())
	c.Inc()
	c.Sync(6)
	assert.Equal(t, uint64(6), c.Value())
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	r := NewRegistry("fg", "")
	h := r.RegisterHistogram("lat", "latency", []float64{1, 2, 4})
	for _, v := range []float64{0.5, 1.5, 3, 10} {
		h.Observe(v)
	}

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, `fg_lat_bucket{le="1"} 1`)
	assert.Contains(t, out, `fg_lat_bucket{le="2"} 2`)
	assert.Contains(t, out, `fg_lat_bucket{le="4"} 3`)
	assert.Contains(t, out, `fg_lat_bucket{le="+Inf"} 4`)
	assert.Contains(t, out, "fg_lat_count 4")
	assert.InDelta(t, 3.75, h.Mean(), 1e-9)
}

func TestPercentileOverflowBucket(t *testing.T) {
	// Everything beyond the last bucket must not index past it.
	got := Percentile([]float64{1, 2}, []uint64{0, 0, 4}, 50)
	assert.True(t, got >= 2 && got <= 4, "got %v", got)
	assert.Zero(t, Percentile(nil, nil, 50))
}

func TestRegistryReturnsExisting(t *testing.T) {
	r := NewRegistry("fg", "gate")
	a := r.RegisterCounter("hits", "")
	b := r.RegisterCounter("hits", "")
	assert.Same(t, a, b)
	assert.Same(t, a, r.GetCounter("hits"))
	assert.Equal(t, "fg_gate_hits", a.Name())
}

func TestGateMetrics(t *testing.T) {
	m := NewGateMetrics(NewRegistry("focusgate", ""))

	m.SyncGate(gate.Stats{Passed: 10, Blocked: 4, Suppressed: 1, Flushes: 4, FlushErrors: 1})
	m.RecordFocus(focus.Transition{Signal: focus.SignalOS, Focused: true, Initial: true})
	m.RecordFocus(focus.Transition{Signal: focus.SignalEngine, Focused: false})
	m.RecordScan(menu.Result{Outcome: menu.OutcomeNoMatch}, time.Millisecond)
	m.RecordScan(menu.Result{Outcome: menu.OutcomeRateLimited}, 0)
	m.RecordScan(menu.Result{Outcome: menu.OutcomeFailed, Err: errors.New("boom")}, time.Millisecond)
	m.RecordScan(menu.Result{Outcome: menu.OutcomePatched, Disabled: 1}, 2*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(10), snap["queries_passed"])
	assert.Equal(t, uint64(4), snap["queries_blocked"])
	assert.Equal(t, uint64(1), snap["queries_suppressed"])
	assert.Equal(t, uint64(1), snap["focus_transitions"])
	assert.Equal(t, int64(1), snap["os_foreground"])
	assert.Equal(t, int64(0), snap["engine_focused"])
	assert.Equal(t, uint64(3), snap["menu_scans"])
	assert.Equal(t, uint64(1), snap["menu_scan_failures"])
	assert.Equal(t, uint64(1), snap["menu_items_disabled"])
	assert.Equal(t, int64(1), snap["menu_patched"])

	var buf bytes.Buffer
	require.NoError(t, m.Registry().WriteJSON(&buf))
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(10), decoded["focusgate_queries_passed_total"]["value"])

	buf.Reset()
	require.NoError(t, m.Registry().WritePrometheus(&buf))
	assert.True(t, strings.Contains(buf.String(), "# TYPE focusgate_menu_patched gauge"))
}

func TestRegisterKindCollisionPanics(t *testing.T) {
	r := NewRegistry("fg", "")
	r.RegisterCounter("dup", "")
	assert.Panics(t, func() { r.RegisterGauge("dup", "") })
	assert.Nil(t, r.GetCounter("missing"))
}

func TestObserveOnBoundIsInclusive(t *testing.T) {
	r := NewRegistry("", "")
	h := r.RegisterHistogram("d", "", []float64{1, 2})
	h.Observe(1)
	h.Observe(2)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	assert.Contains(t, buf.String(), `d_bucket{le="1"} 1`)
	assert.Contains(t, buf.String(), `d_bucket{le="2"} 2`)

	r.Reset()
	assert.Zero(t, h.Count())
	assert.Zero(t, h.Mean())
}

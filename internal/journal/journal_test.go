package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"focusgate/internal/focus"
	"focusgate/internal/gate"
	"focusgate/internal/menu"
)

// steppingClock returns a clock advancing one millisecond per reading.
func steppingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	j.now = steppingClock()
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	if err := CheckTables(j.DB()); err != nil {
		t.Errorf("schema incomplete: %v", err)
	}
	if err := j.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var j *Journal
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil journal should not error: %v", err)
	}
}

func TestWritesNeedSession(t *testing.T) {
	j := openMemory(t)
	err := j.RecordSuppression(gate.Query{Name: "KeyJustPressed"})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRecordAndReadBack(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	sid, err := j.BeginSession(4242, "1.0.0")
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	transitions := []focus.Transition{
		{Signal: focus.SignalOS, Focused: true, Initial: true, PID: 4242},
		{Signal: focus.SignalEngine, Focused: true, Initial: true},
		{Signal: focus.SignalOS, Focused: false, PID: 77, Title: "Chat"},
	}
	for _, tr := range transitions {
		if err := j.RecordFocus(tr); err != nil {
			t.Fatalf("RecordFocus failed: %v", err)
		}
	}

	for _, skipped := range []menu.Outcome{menu.OutcomeRateLimited, menu.OutcomeNoMatch, menu.OutcomeNoTree} {
		if err := j.RecordScan(menu.Result{Reason: menu.ReasonPeriodic, Outcome: skipped, Controls: 1}); err != nil {
			t.Fatalf("RecordScan(%s) failed: %v", skipped, err)
		}
	}
	if err := j.RecordScan(menu.Result{
		Reason: menu.ReasonLoad, Outcome: menu.OutcomePatched,
		Controls: 3, Labels: 3, Continue: 2, Discard: 2, Disabled: 1,
	}); err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}
	if err := j.RecordSuppression(gate.Query{Name: "MouseButtonJustPressed", Arg: "0", Edge: true}); err != nil {
		t.Fatalf("RecordSuppression failed: %v", err)
	}

	gotFocus, err := j.FocusEvents(ctx, sid)
	if err != nil {
		t.Fatalf("FocusEvents failed: %v", err)
	}
	wantFocus := []FocusEvent{
		{SessionID: sid, Signal: "os", Focused: true, Initial: true, PID: 4242},
		{SessionID: sid, Signal: "engine", Focused: true, Initial: true},
		{SessionID: sid, Signal: "os", Focused: false, PID: 77, Title: "Chat"},
	}
	ignore := cmpopts.IgnoreFields(FocusEvent{}, "ID", "TimestampNs")
	if diff := cmp.Diff(wantFocus, gotFocus, ignore); diff != "" {
		t.Errorf("focus events mismatch (-want +got):\n%s", diff)
	}

	trims, err := j.MenuTrims(ctx, sid)
	if err != nil {
		t.Fatalf("MenuTrims failed: %v", err)
	}
	wantTrims := []MenuTrim{{
		SessionID: sid, Reason: "load", Outcome: "patched",
		Controls: 3, Labels: 3, Continue: 2, Discard: 2, Disabled: 1,
	}}
	if diff := cmp.Diff(wantTrims, trims, cmpopts.IgnoreFields(MenuTrim{}, "ID", "TimestampNs")); diff != "" {
		t.Errorf("menu trims mismatch (-want +got):\n%s", diff)
	}

	sups, err := j.Suppressions(ctx, sid)
	if err != nil {
		t.Fatalf("Suppressions failed: %v", err)
	}
	if len(sups) != 1 || sups[0].Query != "MouseButtonJustPressed" || sups[0].Arg != "0" {
		t.Errorf("unexpected suppressions: %+v", sups)
	}

	if err := j.EndSession(); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	sessions, err := j.Sessions(ctx, 10)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].EndedNs == nil || sessions[0].PID != 4242 {
		t.Errorf("unexpected sessions: %+v", sessions)
	}
}

func TestLatestStats(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	if s, err := j.LatestStats(ctx); err != nil || s != nil {
		t.Fatalf("expected no stats, got %+v, %v", s, err)
	}

	if _, err := j.BeginSession(1, "dev"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordStats(gate.Stats{Passed: 1}, nil); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordStats(gate.Stats{Passed: 9, Blocked: 3, Suppressed: 1, Flushes: 3},
		map[string]any{"menu_patched": 1}); err != nil {
		t.Fatal(err)
	}

	got, err := j.LatestStats(ctx)
	if err != nil {
		t.Fatalf("LatestStats failed: %v", err)
	}
	want := &StatsSnapshot{
		SessionID: got.SessionID,
		Passed:    9, Blocked: 3, Suppressed: 1, Flushes: 3,
		Metrics: map[string]any{"menu_patched": float64(1)},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(StatsSnapshot{}, "ID", "TimestampNs")); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestTailOrdersOldestFirst(t *testing.T) {
	j := openMemory(t)
	ctx := context.Background()

	if _, err := j.BeginSession(10, "dev"); err != nil {
		t.Fatal(err)
	}
	j.RecordFocus(focus.Transition{Signal: focus.SignalOS, Focused: true, Initial: true, PID: 10})
	j.RecordScan(menu.Result{Reason: menu.ReasonLoad, Outcome: menu.OutcomeFailed, Err: errors.New("node vanished")})
	j.RecordSuppression(gate.Query{Name: "KeyJustPressed", Arg: "Space"})
	j.RecordStats(gate.Stats{Passed: 5}, nil)

	entries, err := j.Tail(ctx, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = string(e.Kind) + ": " + e.Detail
	}
	want := []string{
		"trim: load failed controls=0 continue=0 discard=0 disabled=0 error=node vanished",
		"suppression: KeyJustPressed(Space)",
		"stats: passed=5 blocked=0 suppressed=0 flushes=0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tail mismatch (-want +got):\n%s", diff)
	}

	all, err := j.Tail(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 || all[0].Kind != KindSession || all[1].Detail != "os focused=true (initial) pid=10" {
		t.Errorf("unexpected full tail: %+v", all)
	}
}

func TestMigrationStatusAndRollback(t *testing.T) {
	j := openMemory(t)

	status, err := Status(j.DB())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != 2 || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Errorf("unexpected status: %+v", status)
	}

	if err := Rollback(j.DB()); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if err := CheckTables(j.DB()); err == nil {
		t.Error("expected missing stats_snapshots after rollback")
	}
	if err := Migrate(j.DB()); err != nil {
		t.Fatalf("re-migrate failed: %v", err)
	}
	if err := CheckTables(j.DB()); err != nil {
		t.Errorf("schema incomplete after re-migrate: %v", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.BeginSession(3, "dev"); err != nil {
		t.Fatal(err)
	}
	j.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	sessions, err := ro.Sessions(context.Background(), 5)
	if err != nil || len(sessions) != 1 {
		t.Errorf("sessions = %+v, %v", sessions, err)
	}

	if _, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error for missing journal")
	}
}

func TestRollbackToEmpty(t *testing.T) {
	j := openMemory(t)
	for i := 0; i < 2; i++ {
		if err := Rollback(j.DB()); err != nil {
			t.Fatalf("rollback %d: %v", i, err)
		}
	}
	if err := Rollback(j.DB()); !errors.Is(err, ErrNothingToRollback) {
		t.Fatalf("expected ErrNothingToRollback, got %v", err)
	}
	status, err := Status(j.DB())
	if err != nil {
		t.Fatal(err)
	}
	if status.CurrentVersion != 0 || len(status.Pending) != 2 {
		t.Errorf("unexpected status after full rollback: %+v", status)
	}
}

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"focusgate/internal/focus"
	"focusgate/internal/gate"
	"focusgate/internal/menu"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// ErrNoSession is returned by writes made before BeginSession.
var ErrNoSession = errors.New("journal: no active session")

// Journal is the SQLite diagnostics journal. It is safe for concurrent use.
type Journal struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	session int64
	now     func() time.Time
}

// Open opens or creates the journal at path and runs migrations. MemoryPath
// gives a journal that vanishes on Close.
func Open(path string) (*Journal, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		dsn = path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=2000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Journal{db: db, path: path, now: time.Now}, nil
}

// OpenReadOnly opens an existing journal file for inspection.
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := CheckTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db, path: path, now: time.Now}, nil
}

// Path returns the path the journal was opened with.
func (j *Journal) Path() string {
	return j.path
}

// DB exposes the handle for migration tooling.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Ping verifies the journal accepts writes.
func (j *Journal) Ping(ctx context.Context) error {
	if err := j.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping journal: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, "CREATE TEMP TABLE IF NOT EXISTS _probe (x INTEGER)"); err != nil {
		return fmt.Errorf("journal not writable: %w", err)
	}
	return nil
}

// BeginSession starts a session row that subsequent records attach to.
func (j *Journal) BeginSession(pid int, version string) (int64, error) {
	res, err := j.db.Exec(
		"INSERT INTO sessions (started_ns, pid, version) VALUES (?, ?, ?)",
		j.now().UnixNano(), pid, version,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	j.mu.Lock()
	j.session = id
	j.mu.Unlock()
	return id, nil
}

// EndSession stamps the active session's end time.
func (j *Journal) EndSession() error {
	id, err := j.activeSession()
	if err != nil {
		return err
	}
	if _, err := j.db.Exec("UPDATE sessions SET ended_ns = ? WHERE id = ?", j.now().UnixNano(), id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	j.mu.Lock()
	j.session = 0
	j.mu.Unlock()
	return nil
}

func (j *Journal) activeSession() (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.session == 0 {
		return 0, ErrNoSession
	}
	return j.session, nil
}

// RecordFocus stores a focus transition.
func (j *Journal) RecordFocus(t focus.Transition) error {
	id, err := j.activeSession()
	if err != nil {
		return err
	}
	ts := t.Timestamp
	if ts.IsZero() {
		ts = j.now()
	}
	_, err = j.db.Exec(`
		INSERT INTO focus_events (session_id, timestamp_ns, signal, focused, initial, pid, title)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ts.UnixNano(), string(t.Signal), t.Focused, t.Initial, t.PID, t.Title,
	)
	if err != nil {
		return fmt.Errorf("insert focus event: %w", err)
	}
	return nil
}

// RecordSuppression stores the one-shot suppression.
func (j *Journal) RecordSuppression(q gate.Query) error {
	id, err := j.activeSession()
	if err != nil {
		return err
	}
	_, err = j.db.Exec(
		"INSERT INTO suppressions (session_id, timestamp_ns, query, arg) VALUES (?, ?, ?, ?)",
		id, j.now().UnixNano(), q.Name, q.Arg,
	)
	if err != nil {
		return fmt.Errorf("insert suppression: %w", err)
	}
	return nil
}

// RecordScan stores a scan that trimmed the menu or failed. Every other
// outcome repeats once per scan interval for as long as the host runs, so it
// is left to the metrics registry.
func (j *Journal) RecordScan(res menu.Result) error {
	if res.Outcome != menu.OutcomePatched && res.Outcome != menu.OutcomeFailed {
		return nil
	}
	id, err := j.activeSession()
	if err != nil {
		return err
	}
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	_, err = j.db.Exec(`
		INSERT INTO menu_trims (session_id, timestamp_ns, reason, outcome, controls, labels,
			continue_count, discard_count, disabled, trimmer, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, j.now().UnixNano(), string(res.Reason), res.Outcome.String(), res.Controls, res.Labels,
		res.Continue, res.Discard, res.Disabled, res.Trimmer, errText,
	)
	if err != nil {
		return fmt.Errorf("insert menu trim: %w", err)
	}
	return nil
}

// RecordStats stores a gate counter snapshot with an optional metrics map.
func (j *Journal) RecordStats(s gate.Stats, snapshot map[string]any) error {
	id, err := j.activeSession()
	if err != nil {
		return err
	}
	var metricsJSON sql.NullString
	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		metricsJSON = sql.NullString{String: string(data), Valid: true}
	}
	_, err = j.db.Exec(`
		INSERT INTO stats_snapshots (session_id, timestamp_ns, passed, blocked, suppressed, flushes, flush_errors, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, j.now().UnixNano(), int64(s.Passed), int64(s.Blocked), int64(s.Suppressed),
		int64(s.Flushes), int64(s.FlushErrors), metricsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert stats snapshot: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (j *Journal) Sessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, started_ns, ended_ns, pid, COALESCE(version, '') FROM sessions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartedNs, &s.EndedNs, &s.PID, &s.Version); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FocusEvents returns the focus transitions of a session in order.
func (j *Journal) FocusEvents(ctx context.Context, sessionID int64) ([]FocusEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp_ns, signal, focused, initial, COALESCE(pid, 0), COALESCE(title, '')
		FROM focus_events WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query focus events: %w", err)
	}
	defer rows.Close()

	var out []FocusEvent
	for rows.Next() {
		var e FocusEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TimestampNs, &e.Signal, &e.Focused, &e.Initial, &e.PID, &e.Title); err != nil {
			return nil, fmt.Errorf("scan focus event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MenuTrims returns the recorded scans of a session in order.
func (j *Journal) MenuTrims(ctx context.Context, sessionID int64) ([]MenuTrim, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp_ns, reason, outcome, controls, labels, continue_count,
			discard_count, disabled, COALESCE(trimmer, ''), COALESCE(error, '')
		FROM menu_trims WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query menu trims: %w", err)
	}
	defer rows.Close()

	var out []MenuTrim
	for rows.Next() {
		var m MenuTrim
		if err := rows.Scan(&m.ID, &m.SessionID, &m.TimestampNs, &m.Reason, &m.Outcome, &m.Controls, &m.Labels,
			&m.Continue, &m.Discard, &m.Disabled, &m.Trimmer, &m.Error); err != nil {
			return nil, fmt.Errorf("scan menu trim: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Suppressions returns the suppressions of a session.
func (j *Journal) Suppressions(ctx context.Context, sessionID int64) ([]Suppression, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp_ns, query, COALESCE(arg, '')
		FROM suppressions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query suppressions: %w", err)
	}
	defer rows.Close()

	var out []Suppression
	for rows.Next() {
		var s Suppression
		if err := rows.Scan(&s.ID, &s.SessionID, &s.TimestampNs, &s.Query, &s.Arg); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestStats returns the newest stats snapshot, or nil when there is none.
func (j *Journal) LatestStats(ctx context.Context) (*StatsSnapshot, error) {
	var s StatsSnapshot
	var metricsJSON sql.NullString
	err := j.db.QueryRowContext(ctx, `
		SELECT id, session_id, timestamp_ns, passed, blocked, suppressed, flushes, flush_errors, metrics_json
		FROM stats_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&s.ID, &s.SessionID, &s.TimestampNs, &s.Passed, &s.Blocked, &s.Suppressed, &s.Flushes, &s.FlushErrors, &metricsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest stats: %w", err)
	}
	if metricsJSON.Valid {
		if err := json.Unmarshal([]byte(metricsJSON.String), &s.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics: %w", err)
		}
	}
	return &s, nil
}

// Tail returns the newest n entries across all tables, oldest first.
func (j *Journal) Tail(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, session_id, ts, detail FROM (
			SELECT 'session' AS kind, id AS session_id, started_ns AS ts,
				printf('start pid=%d version=%s', pid, COALESCE(version, '')) AS detail, id AS ord
			FROM sessions
			UNION ALL
			SELECT 'focus', session_id, timestamp_ns,
				printf('%s focused=%s%s pid=%d', signal,
					CASE focused WHEN 1 THEN 'true' ELSE 'false' END,
					CASE initial WHEN 1 THEN ' (initial)' ELSE '' END,
					COALESCE(pid, 0)), id
			FROM focus_events
			UNION ALL
			SELECT 'trim', session_id, timestamp_ns,
				printf('%s %s controls=%d continue=%d discard=%d disabled=%d%s', reason, outcome,
					controls, continue_count, discard_count, disabled,
					CASE WHEN COALESCE(error, '') = '' THEN '' ELSE ' error=' || error END), id
			FROM menu_trims
			UNION ALL
			SELECT 'suppression', session_id, timestamp_ns,
				printf('%s(%s)', query, COALESCE(arg, '')), id
			FROM suppressions
			UNION ALL
			SELECT 'stats', session_id, timestamp_ns,
				printf('passed=%d blocked=%d suppressed=%d flushes=%d', passed, blocked, suppressed, flushes), id
			FROM stats_snapshots
		)
		ORDER BY ts DESC, ord DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query tail: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var session sql.NullInt64
		if err := rows.Scan(&kind, &session, &e.TimestampNs, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan tail entry: %w", err)
		}
		e.Kind = EntryKind(kind)
		e.SessionID = session.Int64
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	return out, nil
}

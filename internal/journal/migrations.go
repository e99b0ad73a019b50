package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// migration is one schema step. Rolling it back drops Tables in reverse
// order; SQLite drops their indexes with them.
type migration struct {
	Version     int
	Description string
	Tables      []string
	DDL         string
}

var schema = []migration{
	{
		Version:     1,
		Description: "sessions, focus transitions, suppressions and menu trims",
		Tables:      []string{"sessions", "focus_events", "suppressions", "menu_trims"},
		DDL: `
CREATE TABLE sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_ns  INTEGER NOT NULL,
    ended_ns    INTEGER,
    pid         INTEGER NOT NULL,
    version     TEXT
);
CREATE TABLE focus_events (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    INTEGER REFERENCES sessions(id),
    timestamp_ns  INTEGER NOT NULL,
    signal        TEXT NOT NULL,
    focused       INTEGER NOT NULL,
    initial       INTEGER NOT NULL,
    pid           INTEGER,
    title         TEXT
);
CREATE INDEX idx_focus_ts ON focus_events(timestamp_ns);
CREATE TABLE suppressions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    INTEGER REFERENCES sessions(id),
    timestamp_ns  INTEGER NOT NULL,
    query         TEXT NOT NULL,
    arg           TEXT
);
CREATE TABLE menu_trims (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      INTEGER REFERENCES sessions(id),
    timestamp_ns    INTEGER NOT NULL,
    reason          TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    controls        INTEGER NOT NULL,
    labels          INTEGER NOT NULL,
    continue_count  INTEGER NOT NULL,
    discard_count   INTEGER NOT NULL,
    disabled        INTEGER NOT NULL,
    trimmer         TEXT,
    error           TEXT
);
CREATE INDEX idx_trims_ts ON menu_trims(timestamp_ns);`,
	},
	{
		Version:     2,
		Description: "periodic gate counter snapshots",
		Tables:      []string{"stats_snapshots"},
		DDL: `
CREATE TABLE stats_snapshots (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id    INTEGER REFERENCES sessions(id),
    timestamp_ns  INTEGER NOT NULL,
    passed        INTEGER NOT NULL,
    blocked       INTEGER NOT NULL,
    suppressed    INTEGER NOT NULL,
    flushes       INTEGER NOT NULL,
    flush_errors  INTEGER NOT NULL,
    metrics_json  TEXT
);
CREATE INDEX idx_stats_ts ON stats_snapshots(timestamp_ns);`,
	},
}

const historyTable = "schema_migrations"

// ErrNothingToRollback is returned by Rollback on an empty schema.
var ErrNothingToRollback = errors.New("journal: no migration to roll back")

func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func currentVersion(db *sql.DB) (int, error) {
	var v int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM " + historyTable).Scan(&v)
	return v, err
}

// Migrate brings db up to the newest schema, one transaction per step.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + historyTable + ` (
		version     INTEGER PRIMARY KEY,
		applied_at  INTEGER NOT NULL,
		description TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", historyTable, err)
	}
	have, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range schema {
		if m.Version <= have {
			continue
		}
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.DDL); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO "+historyTable+" (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version, time.Now().UnixNano(), m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}
	return nil
}

// Rollback undoes the newest applied migration.
func Rollback(db *sql.DB) error {
	have, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if have == 0 {
		return ErrNothingToRollback
	}
	i := slices.IndexFunc(schema, func(m migration) bool { return m.Version == have })
	if i < 0 {
		return fmt.Errorf("journal: schema version %d is newer than this build", have)
	}

	tables := slices.Clone(schema[i].Tables)
	slices.Reverse(tables)
	err = inTx(db, func(tx *sql.Tx) error {
		for _, t := range tables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + t); err != nil {
				return err
			}
		}
		_, err := tx.Exec("DELETE FROM "+historyTable+" WHERE version = ?", have)
		return err
	})
	if err != nil {
		return fmt.Errorf("roll back migration %d: %w", have, err)
	}
	return nil
}

// AppliedMigration is one row of the migration history.
type AppliedMigration struct {
	Version     int
	AppliedAt   time.Time
	Description string
}

// SchemaStatus compares the history in a database with this build.
type SchemaStatus struct {
	CurrentVersion int
	LatestVersion  int
	Applied        []AppliedMigration
	Pending        []int
}

// Status reports which migrations db has applied. A database that has never
// been migrated reports every version as pending.
func Status(db *sql.DB) (*SchemaStatus, error) {
	st := &SchemaStatus{LatestVersion: schema[len(schema)-1].Version}
	done := make(map[int]bool)

	rows, err := db.Query("SELECT version, applied_at, description FROM " + historyTable + " ORDER BY version")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var am AppliedMigration
			var ns int64
			if err := rows.Scan(&am.Version, &ns, &am.Description); err != nil {
				return nil, fmt.Errorf("read %s: %w", historyTable, err)
			}
			am.AppliedAt = time.Unix(0, ns)
			st.Applied = append(st.Applied, am)
			st.CurrentVersion = max(st.CurrentVersion, am.Version)
			done[am.Version] = true
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", historyTable, err)
		}
	}

	for _, m := range schema {
		if !done[m.Version] {
			st.Pending = append(st.Pending, m.Version)
		}
	}
	return st, nil
}

// CheckTables returns an error naming every table of the newest schema that
// db lacks.
func CheckTables(db *sql.DB) error {
	want := []string{historyTable}
	for _, m := range schema {
		want = append(want, m.Tables...)
	}

	var missing []string
	for _, t := range want {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", t).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if n == 0 {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("journal schema is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Package journal keeps an append-only SQLite history of triage outcomes.
// Triage never reads it back; it exists for the history command and for
// operators.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"archiver/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Old journals must be
// deleted by hand after a bump.
const schemaVersion = 1

// timeLayout is fixed width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrSchemaMismatch indicates the journal was written by another schema version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Entry is one recorded outcome.
type Entry struct {
	ID       int64
	CycleID  string
	Path     string
	Type     string
	Outcome  string
	Reason   string
	Dest     string
	Error    string
	Recorded time.Time
}

// Journal wraps the SQLite database.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal configured in cfg.
func Open(cfg *config.Config) (*Journal, error) {
	if cfg == nil {
		return nil, errors.New("journal requires config")
	}
	path := strings.TrimSpace(cfg.Journal.Path)
	if path == "" {
		path = filepath.Join(cfg.Paths.StateDir, "journal.db")
	}
	return OpenPath(path)
}

// OpenPath creates or opens a journal at path.
func OpenPath(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record appends entries in one transaction. Entries without a Recorded
// time are stamped with the current time.
func (j *Journal) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes (
            cycle_id, path, type_name, outcome, reason, destination, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		at := e.Recorded
		if at.IsZero() {
			at = now
		}
		if _, err := stmt.ExecContext(ctx,
			e.CycleID,
			e.Path,
			nullableString(e.Type),
			e.Outcome,
			nullableString(e.Reason),
			nullableString(e.Dest),
			nullableString(e.Error),
			at.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcomes: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT
            id, cycle_id, path, type_name, outcome, reason, destination, error_message, recorded_at
        FROM outcomes ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent outcomes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                          Entry
			typeName, reason, dest, em sql.NullString
			recorded                   string
		)
		if err := rows.Scan(&e.ID, &e.CycleID, &e.Path, &typeName, &e.Outcome, &reason, &dest, &em, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Type = typeName.String
		e.Reason = reason.String
		e.Dest = dest.String
		e.Error = em.String
		if ts, err := time.Parse(timeLayout, recorded); err == nil {
			e.Recorded = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns the number of entries per outcome.
func (j *Journal) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM outcomes GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM outcomes WHERE recorded_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune outcomes: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/logfields"
	"github.com/ifamed/markup-boilerplate/internal/notify"
)

// DefaultRecentLimit bounds Recent when callers pass a non-positive limit.
const DefaultRecentLimit = 20

// SQLiteStore implements Store using SQLite. It also implements notify.Notifier
// so it can sit in the notifier fan-out next to the log and NATS sinks.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ Store           = (*SQLiteStore)(nil)
	_ notify.Notifier = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create history directory").
				WithContext("path", dbPath).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "open history database").
			WithContext("path", dbPath).Build()
	}
	// One connection keeps ":memory:" databases shared between queries.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryRuntime, "initialize history schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task TEXT,
		class TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		started INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_class ON runs(class);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one finished run.
func (s *SQLiteStore) Append(ctx context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal run").Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, task, class, mode, status, started, payload) VALUES (?, ?, ?, ?, ?, ?, ?)",
		ev.RunID, ev.Task, ev.Class, ev.Mode, string(ev.Status), ev.Started.UnixNano(), payload,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "insert run").WithContext("run_id", ev.RunID).Build()
	}
	return nil
}

// Notify appends ev, logging instead of returning failures.
func (s *SQLiteStore) Notify(ctx context.Context, ev notify.Event) {
	if err := s.Append(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(ev.RunID), logfields.Error(err))
	}
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]notify.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "query runs").Build()
	}
	defer rows.Close()

	var events []notify.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.WrapError(err, errors.CategoryRuntime, "scan run").Build()
		}
		var ev notify.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "unmarshal run").Build()
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "iterate runs").Build()
	}
	return events, nil
}

// Summaries returns one summary per asset class, ordered by class.
func (s *SQLiteStore) Summaries(ctx context.Context) ([]ClassSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT r.class,
		(SELECT COUNT(*) FROM runs c WHERE c.class = r.class),
		(SELECT COUNT(*) FROM runs f WHERE f.class = r.class AND f.status = ?),
		r.payload
	FROM runs r
	WHERE r.id = (SELECT MAX(id) FROM runs l WHERE l.class = r.class)
	ORDER BY r.class`, string(notify.StatusFailed))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "query summaries").Build()
	}
	defer rows.Close()

	var out []ClassSummary
	for rows.Next() {
		var (
			sum     ClassSummary
			payload []byte
		)
		if err := rows.Scan(&sum.Class, &sum.Runs, &sum.Failures, &payload); err != nil {
			return nil, errors.WrapError(err, errors.CategoryRuntime, "scan summary").Build()
		}
		var last notify.Event
		if err := json.Unmarshal(payload, &last); err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "unmarshal run").Build()
		}
		sum.LastStatus = last.Status
		sum.LastRunID = last.RunID
		sum.LastError = last.Error
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "iterate summaries").Build()
	}
	return out, nil
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started < ?", cutoff.UnixNano())
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryRuntime, "prune runs").Build()
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

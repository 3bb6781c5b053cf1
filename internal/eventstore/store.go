// Package eventstore persists the history of pipeline runs in SQLite.
package eventstore

import (
	"context"

	"github.com/ifamed/markup-boilerplate/internal/notify"
)

// Store defines the interface for persisting and retrieving run history.
type Store interface {
	// Append records one finished run.
	Append(ctx context.Context, ev notify.Event) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]notify.Event, error)

	// Summaries returns one summary per asset class, ordered by class.
	Summaries(ctx context.Context) ([]ClassSummary, error)

	// Close closes the store and releases resources.
	Close() error
}

// ClassSummary is a read model of the runs recorded for one asset class.
type ClassSummary struct {
	Class      string        `json:"class"`
	Runs       int           `json:"runs"`
	Failures   int           `json:"failures"`
	LastStatus notify.Status `json:"last_status"`
	LastRunID  string        `json:"last_run_id"`
	LastError  string        `json:"last_error,omitempty"`
}

// Package notify reports pipeline outcomes to interested parties: the log, a NATS
// subject, and the run history store.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/ifamed/markup-boilerplate/internal/logfields"
)

// Status is the outcome of a pipeline run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Event describes one finished pipeline run.
type Event struct {
	RunID    string        `json:"run_id"`
	Task     string        `json:"task,omitempty"`
	Class    string        `json:"class"`
	Mode     string        `json:"mode"`
	Status   Status        `json:"status"`
	Step     string        `json:"step,omitempty"`
	File     string        `json:"file,omitempty"`
	Error    string        `json:"error,omitempty"`
	Files    int           `json:"files"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration_ns"`
}

// Notifier receives run events. Notification is best-effort: implementations log
// their own failures instead of returning them, so a broken sink never fails a build.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Log writes events to a slog.Logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		logfields.RunID(ev.RunID),
		logfields.AssetClass(ev.Class),
		logfields.Mode(ev.Mode),
		logfields.Files(ev.Files),
		logfields.DurationMS(float64(ev.Duration.Milliseconds())),
	}
	if ev.Status == StatusSuccess {
		logger.InfoContext(ctx, "Pipeline run succeeded", attrs...)
		return
	}
	attrs = append(attrs, logfields.Step(ev.Step))
	if ev.File != "" {
		attrs = append(attrs, logfields.File(ev.File))
	}
	attrs = append(attrs, slog.String(logfields.KeyError, ev.Error))
	logger.ErrorContext(ctx, "Pipeline run failed", attrs...)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

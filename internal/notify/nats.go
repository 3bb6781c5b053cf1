package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes events as JSON on a subject. The subject is suffixed with the
// event status, e.g. markup.builds.failed.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to the server at url.
func NewNATS(url, subject, name string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS notifier connected", "url", url, "subject", subject)
	return &NATS{conn: conn, subject: subject}, nil
}

// Subject returns the subject an event is published on.
func (n *NATS) Subject(ev Event) string {
	return n.subject + "." + string(ev.Status)
}

func (n *NATS) Notify(_ context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("Failed to marshal notification", "error", err)
		return
	}
	if err := n.conn.Publish(n.Subject(ev), data); err != nil {
		slog.Warn("Failed to publish notification", "subject", n.Subject(ev), "error", err)
	}
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

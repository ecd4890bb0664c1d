package repo

import (
	"context"

	"github.com/anthropics/companion-backend/internal/biz/domain"
)

// NotifierRepo is the live push channel keyed by session id. Delivery is
// best-effort: no ack, no queue. Sending to a session with no registered
// connection is a no-op, not an error; the message stays in history and
// surfaces on the next fetch.
//
// Registering and unregistering connections is the connection-lifecycle
// owner's job (the API layer); the core only sends.
type NotifierRepo interface {
	Send(ctx context.Context, sessionID string, event *domain.Event) error

	// Sessions lists session ids that currently have a live connection.
	Sessions() []string
}

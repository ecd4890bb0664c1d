package repo

import (
	"context"
	"time"

	"github.com/anthropics/companion-backend/internal/biz/domain"
)

// HistoryRepo is the append-only per-session message log.
type HistoryRepo interface {
	// Append stores a message. Callers treat failures as non-fatal: chat
	// must keep working without persistence.
	Append(ctx context.Context, msg *domain.Message) error

	// Recent returns up to limit messages ordered oldest-to-newest, for
	// synthesis context. A non-zero before bounds the page.
	Recent(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error)

	// RecentPage returns up to limit messages ordered newest-to-oldest,
	// for the frontend history endpoint.
	RecentPage(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error)

	// Close closes the underlying store.
	Close() error
}

package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// historyRepo implements the append-only message log on sqlite.
type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new history repository.
func NewHistoryRepo(dbPath string) (repo.HistoryRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			image_data TEXT,
			image_mime_type TEXT,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &historyRepo{db: db}, nil
}

// Append stores a message. ID and timestamp are assigned server-side when
// missing; created_at ordering is what history reads rely on.
func (r *historyRepo) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, sender, text, image_data, image_mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		msg.SessionID,
		string(msg.Sender),
		msg.Text,
		nullable(msg.ImageData),
		nullable(msg.ImageMimeType),
		msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Recent returns the last limit messages oldest-to-newest for synthesis
// context.
func (r *historyRepo) Recent(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error) {
	page, err := r.queryPage(ctx, sessionID, limit, before)
	if err != nil {
		return nil, err
	}
	// Fetched newest-first; reverse for oldest-to-newest.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// RecentPage returns the last limit messages newest-to-oldest for the
// frontend history endpoint.
func (r *historyRepo) RecentPage(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error) {
	return r.queryPage(ctx, sessionID, limit, before)
}

// queryPage fetches up to limit messages newest-first, optionally bounded
// by a before timestamp.
func (r *historyRepo) queryPage(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, sender, text, image_data, image_mime_type, created_at
		FROM messages
		WHERE session_id = ?`
	args := []interface{}{sessionID}

	if !before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, before.UnixNano())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var sender string
		var imageData, imageMime sql.NullString
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &sender, &msg.Text, &imageData, &imageMime, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		msg.ImageData = imageData.String
		msg.ImageMimeType = imageMime.String
		msg.CreatedAt = time.Unix(0, createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// Close closes the database connection.
func (r *historyRepo) Close() error {
	return r.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

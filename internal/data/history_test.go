package data

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

func newTestRepo(t *testing.T) repo.HistoryRepo {
	t.Helper()
	r, err := NewHistoryRepo(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("Failed to create repo: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func seedMessages(t *testing.T, r repo.HistoryRepo, sessionID string, n int) []domain.Message {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAI
		}
		msg := domain.Message{
			SessionID: sessionID,
			Sender:    sender,
			Text:      fmt.Sprintf("message-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := r.Append(context.Background(), &msg); err != nil {
			t.Fatalf("Failed to append message %d: %v", i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	r := newTestRepo(t)

	msg := domain.Message{SessionID: "s", Sender: domain.SenderUser, Text: "halo"}
	if err := r.Append(context.Background(), &msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.ID == "" {
		t.Error("Expected ID to be assigned")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be assigned")
	}
}

func TestRecent_OldestToNewest(t *testing.T) {
	r := newTestRepo(t)
	seedMessages(t, r, "s", 5)

	got, err := r.Recent(context.Background(), "s", 3, time.Time{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	// The last 3 of 5, oldest first.
	for i, want := range []string{"message-2", "message-3", "message-4"} {
		if got[i].Text != want {
			t.Errorf("Position %d: expected '%s', got '%s'", i, want, got[i].Text)
		}
	}
}

func TestRecentPage_NewestToOldest(t *testing.T) {
	r := newTestRepo(t)
	seedMessages(t, r, "s", 5)

	got, err := r.RecentPage(context.Background(), "s", 3, time.Time{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"message-4", "message-3", "message-2"} {
		if got[i].Text != want {
			t.Errorf("Position %d: expected '%s', got '%s'", i, want, got[i].Text)
		}
	}
}

func TestRecentPage_BeforeCursor(t *testing.T) {
	r := newTestRepo(t)
	msgs := seedMessages(t, r, "s", 5)

	// Page strictly before message-3's timestamp.
	got, err := r.RecentPage(context.Background(), "s", 10, msgs[3].CreatedAt)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages before cursor, got %d", len(got))
	}
	if got[0].Text != "message-2" {
		t.Errorf("Expected newest 'message-2', got '%s'", got[0].Text)
	}
}

func TestRecent_SessionIsolation(t *testing.T) {
	r := newTestRepo(t)
	seedMessages(t, r, "session-a", 3)
	seedMessages(t, r, "session-b", 2)

	got, err := r.Recent(context.Background(), "session-a", 10, time.Time{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 messages for session-a, got %d", len(got))
	}
	for _, msg := range got {
		if msg.SessionID != "session-a" {
			t.Errorf("Unexpected session in results: %s", msg.SessionID)
		}
	}
}

func TestAppend_ImageRoundTrip(t *testing.T) {
	r := newTestRepo(t)

	msg := domain.Message{
		SessionID:     "s",
		Sender:        domain.SenderUser,
		Text:          "liat nih",
		ImageData:     "aGVsbG8=",
		ImageMimeType: "image/png",
		CreatedAt:     time.Now(),
	}
	if err := r.Append(context.Background(), &msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := r.Recent(context.Background(), "s", 1, time.Time{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(got))
	}
	if got[0].ImageData != "aGVsbG8=" || got[0].ImageMimeType != "image/png" {
		t.Errorf("Image fields did not round-trip: %+v", got[0])
	}
	if !got[0].HasImage() {
		t.Error("Expected HasImage to be true")
	}
}

func TestRecent_EmptySession(t *testing.T) {
	r := newTestRepo(t)

	got, err := r.Recent(context.Background(), "nobody", 10, time.Time{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no messages, got %d", len(got))
	}
}

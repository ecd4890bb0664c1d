package service

import (
	"context"
	"testing"
	"time"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/usecase"
)

type stubNotifier struct{}

func (stubNotifier) Send(ctx context.Context, sessionID string, event *domain.Event) error {
	return nil
}

func (stubNotifier) Sessions() []string {
	return nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	engine := usecase.NewProactiveEngine(domain.NewMoodState(), nil, nil, stubNotifier{}, usecase.ProactivePromptConfig{})
	s, err := NewScheduler(engine, stubNotifier{}, "Asia/Jakarta", 6, 22)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	return s
}

func jakarta(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	return loc
}

func TestScheduler_Restart(t *testing.T) {
	s := newTestScheduler(t)

	// A stopped scheduler must come back up cleanly and stop again.
	s.Start()
	s.Stop()
	s.Start()
	s.Stop()
}

func TestScheduler_StartIdempotent(t *testing.T) {
	s := newTestScheduler(t)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestNextAfter_SameDay(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2026, 3, 10, 4, 30, 0, 0, loc)

	next := nextAfter(now, 6, 0, loc)

	want := time.Date(2026, 3, 10, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

func TestNextAfter_RollsToNextDay(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2026, 3, 10, 23, 15, 0, 0, loc)

	next := nextAfter(now, 22, 0, loc)

	want := time.Date(2026, 3, 11, 22, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

func TestNextAfter_ExactTimeRollsOver(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, loc)

	next := nextAfter(now, 6, 0, loc)

	// Strictly after: at 06:00 sharp the next run is tomorrow.
	want := time.Date(2026, 3, 11, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

func TestNextAfter_ConvertsFromOtherZone(t *testing.T) {
	loc := jakarta(t)
	// 23:30 UTC on March 10 is 06:30 on March 11 in Jakarta (UTC+7), so
	// the 06:00 slot that day has already passed.
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	next := nextAfter(now, 6, 0, loc)

	want := time.Date(2026, 3, 12, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

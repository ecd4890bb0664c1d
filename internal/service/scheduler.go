package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
	"github.com/anthropics/companion-backend/internal/biz/usecase"
)

// Scheduler fires the proactive engine at fixed wall-clock times in a fixed
// timezone: a morning greeting and an evening deep-talk opener. Jobs fire
// only for sessions with a live connection; the engine itself handles mood
// gating and failures.
type Scheduler struct {
	engine   *usecase.ProactiveEngine
	notifier repo.NotifierRepo
	loc      *time.Location

	jobs         []*job
	pollInterval time.Duration

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type job struct {
	kind    domain.TriggerKind
	hour    int
	minute  int
	nextRun time.Time
}

// NewScheduler creates a scheduler with the two daily triggers.
func NewScheduler(engine *usecase.ProactiveEngine, notifier repo.NotifierRepo, timezone string, morningHour, deepTalkHour int) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	s := &Scheduler{
		engine:   engine,
		notifier: notifier,
		loc:      loc,
		jobs: []*job{
			{kind: domain.TriggerGoodMorning, hour: morningHour},
			{kind: domain.TriggerDeepTalk, hour: deepTalkHour},
		},
		pollInterval: 30 * time.Second,
	}

	now := time.Now()
	for _, j := range s.jobs {
		j.nextRun = nextAfter(now, j.hour, j.minute, loc)
	}

	return s, nil
}

// Start starts the scheduler loop.
func (s *Scheduler) Start() {
	if s.running {
		return
	}
	s.running = true
	// Stop closes the channel, so every start needs a fresh one.
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
	fmt.Printf("[Scheduler] Started in %s with poll interval %v\n", s.loc, s.pollInterval)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runDue(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// runDue fires every job whose time has passed and re-arms it for the next
// day. Fire-and-forget: a failure mid-generation is handled inside the
// engine, never propagated here.
func (s *Scheduler) runDue(now time.Time) {
	for _, j := range s.jobs {
		if now.Before(j.nextRun) {
			continue
		}
		j.nextRun = nextAfter(now, j.hour, j.minute, s.loc)

		sessions := s.notifier.Sessions()
		if len(sessions) == 0 {
			fmt.Printf("[Scheduler] %s due, no connected sessions\n", j.kind)
			continue
		}

		fmt.Printf("[Scheduler] Running scheduled job: %s\n", j.kind)
		ctx := context.Background()
		for _, sessionID := range sessions {
			s.engine.Trigger(ctx, sessionID, 0, j.kind)
		}
	}
}

// nextAfter returns the next wall-clock occurrence of hour:minute in loc
// strictly after t.
func nextAfter(t time.Time, hour, minute int, loc *time.Location) time.Time {
	lt := t.In(loc)
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), hour, minute, 0, 0, loc)
	if !next.After(lt) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

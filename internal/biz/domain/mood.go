package domain

import (
	"fmt"
	"sync"
)

// SulkThreshold is the idle escalation level whose nudge flips the mood to
// sulking. Counting stops one past it: further idle triggers have no
// behavioral effect once sulking is set.
const SulkThreshold = 3

// MoodState holds the process-wide companion mood: silenced ("frozen"),
// sulking ("ngambek"), and the idle escalation counter. It is created once
// at startup and injected into the dispatcher and the proactive engine; it
// is never persisted, so a restart clears it.
//
// Transitions are value-replacing under a single mutex. The chat path, the
// idle-trigger endpoint and the scheduler goroutine all mutate this state
// concurrently.
type MoodState struct {
	mu        sync.Mutex
	silenced  bool
	sulking   bool
	idleLevel int
}

// NewMoodState creates a fresh mood state (not silenced, not sulking, level 0).
func NewMoodState() *MoodState {
	return &MoodState{}
}

// SetSilenced toggles the silenced flag.
func (m *MoodState) SetSilenced(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.silenced != v {
		fmt.Printf("[Mood] silenced=%v\n", v)
	}
	m.silenced = v
}

// IsSilenced reports whether all replies are suppressed.
func (m *MoodState) IsSilenced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.silenced
}

// SetSulking toggles the sulking flag.
func (m *MoodState) SetSulking(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sulking != v {
		fmt.Printf("[Mood] sulking=%v\n", v)
	}
	m.sulking = v
}

// IsSulking reports whether replies should be terse and irritable.
func (m *MoodState) IsSulking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sulking
}

// BumpIdleLevel increments the idle escalation counter and returns the new
// level. The counter saturates at SulkThreshold+1; counting further would
// have no behavioral effect.
func (m *MoodState) BumpIdleLevel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idleLevel <= SulkThreshold {
		m.idleLevel++
		fmt.Printf("[Mood] idle level -> %d\n", m.idleLevel)
	}
	return m.idleLevel
}

// ResetIdleLevel clears the idle escalation counter. Called on any user
// activity and whenever the live connection (re)opens.
func (m *MoodState) ResetIdleLevel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idleLevel != 0 {
		fmt.Printf("[Mood] idle level -> 0\n")
	}
	m.idleLevel = 0
}

// IdleLevel returns the current idle escalation level.
func (m *MoodState) IdleLevel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idleLevel
}

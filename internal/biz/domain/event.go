package domain

// EventType represents the live-channel event type.
type EventType string

const (
	EventProactiveMessage EventType = "proactive_message"
	EventError            EventType = "error"
)

// Event is the tagged payload pushed over the live connection.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Sender    Sender    `json:"sender,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// TriggerKind identifies what woke the proactive engine.
type TriggerKind string

const (
	TriggerIdle        TriggerKind = "idle"
	TriggerDeepTalk    TriggerKind = "deep_talk"
	TriggerGoodMorning TriggerKind = "good_morning"
)

package domain

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Synthesis context roles (OpenAI-compatible wire roles).
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a persisted chat message entity.
// Messages are append-only: never mutated or deleted once written.
type Message struct {
	ID            string
	SessionID     string
	Sender        Sender
	Text          string
	ImageData     string // base64 payload, empty when the message has no image
	ImageMimeType string
	CreatedAt     time.Time
}

// Turn is one role/text exchange used as synthesis context. Seed history
// entries and persisted messages are both reduced to turns.
type Turn struct {
	Role string `yaml:"role" json:"role"`
	Text string `yaml:"text" json:"text"`
}

// AsTurn converts a message to a synthesis context turn.
func (m *Message) AsTurn() Turn {
	role := RoleUser
	if m.Sender == SenderAI {
		role = RoleAssistant
	}
	return Turn{Role: role, Text: m.Text}
}

// HasImage checks whether the message carries an inline image.
func (m *Message) HasImage() bool {
	return m.ImageData != "" && m.ImageMimeType != ""
}

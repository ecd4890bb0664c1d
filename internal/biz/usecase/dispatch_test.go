package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

// Mock implementations

type mockHistoryRepo struct {
	messages  []domain.Message
	appendErr error
	recentErr error
}

func (m *mockHistoryRepo) Append(ctx context.Context, msg *domain.Message) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockHistoryRepo) Recent(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	start := len(m.messages) - limit
	if start < 0 {
		start = 0
	}
	result := make([]domain.Message, len(m.messages[start:]))
	copy(result, m.messages[start:])
	return result, nil
}

func (m *mockHistoryRepo) RecentPage(ctx context.Context, sessionID string, limit int, before time.Time) ([]domain.Message, error) {
	page, err := m.Recent(ctx, sessionID, limit, before)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (m *mockHistoryRepo) Close() error {
	return nil
}

// lastSender returns the sender of the most recently persisted message.
func (m *mockHistoryRepo) lastSender() domain.Sender {
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1].Sender
}

type mockSynthRepo struct {
	reply string
	err   error

	calls      int
	lastPrompt *repo.PromptContext
	lastParams repo.GenerationParams
}

func (m *mockSynthRepo) Generate(ctx context.Context, pc *repo.PromptContext, params repo.GenerationParams) (string, error) {
	m.calls++
	m.lastPrompt = pc
	m.lastParams = params
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockNotifierRepo struct {
	sent    []*domain.Event
	sendErr error
}

func (m *mockNotifierRepo) Send(ctx context.Context, sessionID string, event *domain.Event) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, event)
	return nil
}

func (m *mockNotifierRepo) Sessions() []string {
	return []string{"single-user-session"}
}

func testChatPrompts() ChatPromptConfig {
	return ChatPromptConfig{
		SystemInstruction:   "persona",
		Apology:             "apology",
		SilenceOnAck:        "silence-on-ack",
		SilenceOffWake:      "silence-off-wake",
		SilenceOffAlready:   "silence-off-already",
		ImageFallback:       "describe-this",
		AppeasementKeywords: []string{"maaf", "sorry", "jangan marah"},
		AngryPrompt:         "angry-template",
		AppeasedPrompt:      "appeased-template",
	}
}

func newTestDispatcher(mood *domain.MoodState, history *mockHistoryRepo, synth *mockSynthRepo) *ChatDispatcher {
	return NewChatDispatcher(mood, history, synth, testChatPrompts())
}

// Tests

func TestHandle_NormalReply(t *testing.T) {
	mood := domain.NewMoodState()
	history := &mockHistoryRepo{}
	synth := &mockSynthRepo{reply: "hey"}
	d := newTestDispatcher(mood, history, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "hey" {
		t.Errorf("Expected 'hey', got '%s'", reply)
	}
	if synth.lastParams.MaxTokens != 50 || synth.lastParams.Temperature != 0.7 {
		t.Errorf("Expected normal params, got %+v", synth.lastParams)
	}

	// Both the user message and the reply get persisted.
	if len(history.messages) != 2 {
		t.Fatalf("Expected 2 persisted messages, got %d", len(history.messages))
	}
	if history.messages[0].Sender != domain.SenderUser {
		t.Errorf("Expected first message from user, got %s", history.messages[0].Sender)
	}
	if history.lastSender() != domain.SenderAI {
		t.Errorf("Expected last message from ai, got %s", history.lastSender())
	}
}

func TestHandle_SilenceOnCommand(t *testing.T) {
	mood := domain.NewMoodState()
	history := &mockHistoryRepo{}
	synth := &mockSynthRepo{reply: "should not be used"}
	d := newTestDispatcher(mood, history, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "  silence on  "})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "silence-on-ack" {
		t.Errorf("Expected ack, got '%s'", reply)
	}
	if !mood.IsSilenced() {
		t.Error("Expected silenced mode on")
	}
	if synth.calls != 0 {
		t.Errorf("Expected no synthesis for commands, got %d calls", synth.calls)
	}
	if len(history.messages) != 0 {
		t.Errorf("Expected commands not persisted, got %d messages", len(history.messages))
	}
}

func TestHandle_SilenceOffCommand(t *testing.T) {
	mood := domain.NewMoodState()
	d := newTestDispatcher(mood, &mockHistoryRepo{}, &mockSynthRepo{})

	// Not silenced yet: the command gets the "already awake" reply.
	reply, _ := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "SILENCE OFF"})
	if reply != "silence-off-already" {
		t.Errorf("Expected already-awake reply, got '%s'", reply)
	}

	mood.SetSilenced(true)
	reply, _ = d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "silence off"})
	if reply != "silence-off-wake" {
		t.Errorf("Expected wake reply, got '%s'", reply)
	}
	if mood.IsSilenced() {
		t.Error("Expected silenced mode off")
	}
}

func TestHandle_SilencedGate(t *testing.T) {
	mood := domain.NewMoodState()
	mood.SetSilenced(true)
	history := &mockHistoryRepo{}
	synth := &mockSynthRepo{reply: "should not appear"}
	d := newTestDispatcher(mood, history, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "" {
		t.Errorf("Expected empty reply while silenced, got '%s'", reply)
	}
	if synth.calls != 0 {
		t.Errorf("Expected no synthesis while silenced, got %d calls", synth.calls)
	}

	// The user message is still persisted.
	if len(history.messages) != 1 || history.messages[0].Sender != domain.SenderUser {
		t.Errorf("Expected exactly the user message persisted, got %d", len(history.messages))
	}
}

func TestHandle_SulkingAngryReply(t *testing.T) {
	mood := domain.NewMoodState()
	mood.SetSulking(true)
	synth := &mockSynthRepo{reply: "hmph"}
	d := newTestDispatcher(mood, &mockHistoryRepo{}, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo kamu kenapa"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "hmph" {
		t.Errorf("Expected angry reply, got '%s'", reply)
	}
	if !mood.IsSulking() {
		t.Error("Expected sulking to persist without appeasement")
	}
	if synth.lastParams.MaxTokens != 10 || synth.lastParams.Temperature != 1.0 {
		t.Errorf("Expected angry params, got %+v", synth.lastParams)
	}
	if synth.lastPrompt.Prompt != "angry-template" {
		t.Errorf("Expected angry template, got '%s'", synth.lastPrompt.Prompt)
	}
}

func TestHandle_SulkingAppeasement(t *testing.T) {
	mood := domain.NewMoodState()
	mood.SetSulking(true)
	synth := &mockSynthRepo{reply: "yaudah, maafin deh"}
	d := newTestDispatcher(mood, &mockHistoryRepo{}, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "Maaf ya, jangan marah dong"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "yaudah, maafin deh" {
		t.Errorf("Unexpected reply: '%s'", reply)
	}
	if mood.IsSulking() {
		t.Error("Expected appeasement to clear sulking")
	}
	if synth.lastParams.MaxTokens != 50 || synth.lastParams.Temperature != 0.7 {
		t.Errorf("Expected appeased params, got %+v", synth.lastParams)
	}
	if synth.lastPrompt.Prompt != "appeased-template" {
		t.Errorf("Expected appeased template, got '%s'", synth.lastPrompt.Prompt)
	}
}

func TestHandle_ResetsIdleLevel(t *testing.T) {
	mood := domain.NewMoodState()
	mood.BumpIdleLevel()
	mood.BumpIdleLevel()
	d := newTestDispatcher(mood, &mockHistoryRepo{}, &mockSynthRepo{reply: "ok"})

	if _, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mood.IdleLevel() != 0 {
		t.Errorf("Expected idle level reset to 0, got %d", mood.IdleLevel())
	}
}

func TestHandle_SynthesisFailureReturnsApology(t *testing.T) {
	mood := domain.NewMoodState()
	history := &mockHistoryRepo{}
	synth := &mockSynthRepo{err: errors.New("upstream down")}
	d := newTestDispatcher(mood, history, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo"})
	if err != nil {
		t.Fatalf("Expected failure to be absorbed, got error: %v", err)
	}
	if reply != "apology" {
		t.Errorf("Expected apology, got '%s'", reply)
	}

	// The apology is not persisted as an AI turn.
	if history.lastSender() != domain.SenderUser {
		t.Errorf("Expected only the user message persisted, last sender %s", history.lastSender())
	}
}

func TestHandle_ImageUsesVisionParams(t *testing.T) {
	mood := domain.NewMoodState()
	synth := &mockSynthRepo{reply: "nice photo"}
	d := newTestDispatcher(mood, &mockHistoryRepo{}, synth)

	_, err := d.Handle(context.Background(), &ChatRequest{
		SessionID:     "s",
		ImageData:     "aGVsbG8=",
		ImageMimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if synth.lastParams.MaxTokens != 500 {
		t.Errorf("Expected vision params, got %+v", synth.lastParams)
	}
	if synth.lastPrompt.Prompt != "describe-this" {
		t.Errorf("Expected image fallback prompt, got '%s'", synth.lastPrompt.Prompt)
	}
	if synth.lastPrompt.ImageData != "aGVsbG8=" {
		t.Error("Expected image data forwarded to synthesizer")
	}
	if len(synth.lastPrompt.History) != 0 {
		t.Errorf("Expected no history for image replies, got %d turns", len(synth.lastPrompt.History))
	}
}

func TestHandle_ImageBypassesSulking(t *testing.T) {
	mood := domain.NewMoodState()
	mood.SetSulking(true)
	synth := &mockSynthRepo{reply: "a cat"}
	d := newTestDispatcher(mood, &mockHistoryRepo{}, synth)

	_, err := d.Handle(context.Background(), &ChatRequest{
		SessionID:     "s",
		Text:          "liat nih",
		ImageData:     "aGVsbG8=",
		ImageMimeType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if synth.lastParams.MaxTokens != 500 {
		t.Errorf("Expected vision params even while sulking, got %+v", synth.lastParams)
	}
	if !mood.IsSulking() {
		t.Error("Expected sulking untouched by image messages")
	}
}

func TestHandle_HistoryUnavailableDegrades(t *testing.T) {
	mood := domain.NewMoodState()
	history := &mockHistoryRepo{recentErr: errors.New("db locked")}
	synth := &mockSynthRepo{reply: "still here"}
	d := newTestDispatcher(mood, history, synth)

	reply, err := d.Handle(context.Background(), &ChatRequest{SessionID: "s", Text: "halo"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "still here" {
		t.Errorf("Expected reply despite history failure, got '%s'", reply)
	}
}

func TestContainsAppeasement(t *testing.T) {
	keywords := []string{"maaf", "sorry", "jangan marah"}

	cases := []struct {
		text string
		want bool
	}{
		{"maaf ya", true},
		{"MAAF BANGET", true},
		{"aku sorry deh", true},
		{"jangan marah dong", true},
		{"halo apa kabar", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := containsAppeasement(tc.text, keywords); got != tc.want {
			t.Errorf("containsAppeasement(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

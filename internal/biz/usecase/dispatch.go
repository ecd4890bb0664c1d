package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

// Normalized silence commands. Checked before anything else, including
// persistence and history lookups.
const (
	cmdSilenceOn  = "SILENCE ON"
	cmdSilenceOff = "SILENCE OFF"
)

// historyLimit caps the persisted context window for normal replies, to
// bound context growth and keep the persona from drifting.
const historyLimit = 10

// ChatDispatcher handles one inbound user message end to end: command
// interception, mood gating, synthesis, persistence.
type ChatDispatcher struct {
	mood    *domain.MoodState
	history repo.HistoryRepo
	synth   repo.SynthesizerRepo
	prompts ChatPromptConfig
}

// NewChatDispatcher creates a new chat dispatcher.
func NewChatDispatcher(
	mood *domain.MoodState,
	history repo.HistoryRepo,
	synth repo.SynthesizerRepo,
	prompts ChatPromptConfig,
) *ChatDispatcher {
	return &ChatDispatcher{
		mood:    mood,
		history: history,
		synth:   synth,
		prompts: prompts,
	}
}

// ChatRequest represents an inbound user message.
type ChatRequest struct {
	SessionID     string
	Text          string
	ImageData     string // base64, optional
	ImageMimeType string
}

// Handle processes an inbound user message and returns the reply text.
// An empty reply is meaningful: it means "say nothing". Synthesis failures
// surface as a fixed apology string, never as an error.
func (d *ChatDispatcher) Handle(ctx context.Context, req *ChatRequest) (string, error) {
	// Silence commands bypass persistence and mood gating entirely.
	switch strings.ToUpper(strings.TrimSpace(req.Text)) {
	case cmdSilenceOn:
		d.mood.SetSilenced(true)
		return d.prompts.SilenceOnAck, nil
	case cmdSilenceOff:
		if d.mood.IsSilenced() {
			d.mood.SetSilenced(false)
			return d.prompts.SilenceOffWake, nil
		}
		return d.prompts.SilenceOffAlready, nil
	}

	// The user is engaging; idle escalation starts over.
	d.mood.ResetIdleLevel()

	d.persist(ctx, req.SessionID, domain.SenderUser, req.Text, req.ImageData, req.ImageMimeType)

	// Silence gate: no synthesis call at all.
	if d.mood.IsSilenced() {
		return "", nil
	}

	reply, err := d.reply(ctx, req)
	if err != nil {
		fmt.Printf("[Dispatch] synthesis failed: %v\n", err)
		return d.prompts.Apology, nil
	}

	if reply != "" {
		d.persist(ctx, req.SessionID, domain.SenderAI, reply, "", "")
	}
	return reply, nil
}

func (d *ChatDispatcher) reply(ctx context.Context, req *ChatRequest) (string, error) {
	if req.ImageData != "" {
		return d.describeImage(ctx, req)
	}
	if d.mood.IsSulking() {
		return d.sulkingReply(ctx, req)
	}
	return d.normalReply(ctx, req)
}

// sulkingReply answers in ngambek mode: a curt reply, unless the message
// appeases, which clears the mood and warms the reply up.
func (d *ChatDispatcher) sulkingReply(ctx context.Context, req *ChatRequest) (string, error) {
	moodPrompt := d.prompts.AngryPrompt
	params := angryParams

	if containsAppeasement(req.Text, d.prompts.AppeasementKeywords) {
		d.mood.SetSulking(false)
		moodPrompt = d.prompts.AppeasedPrompt
		params = appeasedParams
	}

	turns := d.contextTurns(ctx, req.SessionID)
	turns = append(turns, domain.Turn{Role: domain.RoleUser, Text: req.Text})

	return d.synth.Generate(ctx, &repo.PromptContext{
		System:  d.prompts.SystemInstruction,
		History: turns,
		Prompt:  moodPrompt,
	}, params)
}

func (d *ChatDispatcher) normalReply(ctx context.Context, req *ChatRequest) (string, error) {
	return d.synth.Generate(ctx, &repo.PromptContext{
		System:  d.prompts.SystemInstruction,
		History: d.contextTurns(ctx, req.SessionID),
		Prompt:  req.Text,
	}, defaultParams)
}

// describeImage routes image messages to the vision model. No history
// context: one image, one reply.
func (d *ChatDispatcher) describeImage(ctx context.Context, req *ChatRequest) (string, error) {
	prompt := req.Text
	if strings.TrimSpace(prompt) == "" {
		prompt = d.prompts.ImageFallback
	}
	return d.synth.Generate(ctx, &repo.PromptContext{
		System:        d.prompts.SystemInstruction,
		Prompt:        prompt,
		ImageData:     req.ImageData,
		ImageMimeType: req.ImageMimeType,
	}, visionParams)
}

// contextTurns builds the synthesis context: seed history plus the last
// historyLimit persisted messages. Storage being unavailable degrades to
// seed-only context.
func (d *ChatDispatcher) contextTurns(ctx context.Context, sessionID string) []domain.Turn {
	turns := make([]domain.Turn, 0, len(d.prompts.SeedHistory)+historyLimit)
	turns = append(turns, d.prompts.SeedHistory...)

	recent, err := d.history.Recent(ctx, sessionID, historyLimit, time.Time{})
	if err != nil {
		fmt.Printf("[Dispatch] history unavailable, using seed only: %v\n", err)
		return turns
	}
	for i := range recent {
		turns = append(turns, recent[i].AsTurn())
	}
	return turns
}

func (d *ChatDispatcher) persist(ctx context.Context, sessionID string, sender domain.Sender, text, imageData, imageMime string) {
	msg := &domain.Message{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Sender:        sender,
		Text:          text,
		ImageData:     imageData,
		ImageMimeType: imageMime,
		CreatedAt:     time.Now(),
	}
	if err := d.history.Append(ctx, msg); err != nil {
		fmt.Printf("[Dispatch] failed to persist %s message: %v\n", sender, err)
	}
}

// containsAppeasement checks whether the message contains any configured
// appeasement keyword, case-insensitive substring match.
func containsAppeasement(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

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

// proactiveContextLimit bounds the recent-history window used as context
// for proactive messages.
const proactiveContextLimit = 5

// ProactiveEngine decides, on an idle or scheduled trigger, whether to emit
// an unsolicited message, which template to use, and how the mood changes
// afterwards. Safe to call with no live connection: delivery is skipped and
// the message stays persisted.
type ProactiveEngine struct {
	mood     *domain.MoodState
	history  repo.HistoryRepo
	synth    repo.SynthesizerRepo
	notifier repo.NotifierRepo
	prompts  ProactivePromptConfig
}

// NewProactiveEngine creates a new proactive engine.
func NewProactiveEngine(
	mood *domain.MoodState,
	history repo.HistoryRepo,
	synth repo.SynthesizerRepo,
	notifier repo.NotifierRepo,
	prompts ProactivePromptConfig,
) *ProactiveEngine {
	return &ProactiveEngine{
		mood:     mood,
		history:  history,
		synth:    synth,
		notifier: notifier,
		prompts:  prompts,
	}
}

// TriggerIdle bumps the idle escalation level and runs an idle trigger with
// the new level. Only idle triggers ever raise the level; user activity
// resets it elsewhere.
func (e *ProactiveEngine) TriggerIdle(ctx context.Context, sessionID string) {
	e.Trigger(ctx, sessionID, e.mood.BumpIdleLevel(), domain.TriggerIdle)
}

// Trigger runs one proactive decision. Silenced mode skips everything,
// including logging. Any synthesis or persistence failure is swallowed and
// replaced by the fallback message so the channel never silently goes dead.
func (e *ProactiveEngine) Trigger(ctx context.Context, sessionID string, idleCount int, kind domain.TriggerKind) {
	if e.mood.IsSilenced() {
		return
	}

	sel, ok := e.prompts.SelectProactivePrompt(kind, idleCount)
	if !ok {
		// Idle level past the threshold: already sulking, do not re-emit.
		return
	}

	fmt.Printf("[Proactive] trigger kind=%s idle=%d session=%s\n", kind, idleCount, sessionID)

	text, err := e.synthesize(ctx, sessionID, sel)
	if err != nil {
		fmt.Printf("[Proactive] %s trigger failed: %v\n", kind, err)
		e.deliver(ctx, sessionID, e.prompts.Fallback)
		return
	}

	e.deliver(ctx, sessionID, text)

	// The final nudge flips the mood: no more idle pings until appeased.
	if kind == domain.TriggerIdle && idleCount == domain.SulkThreshold {
		e.mood.SetSulking(true)
	}
}

// synthesize generates, normalizes and persists the proactive message.
func (e *ProactiveEngine) synthesize(ctx context.Context, sessionID string, sel PromptSelection) (string, error) {
	turns := make([]domain.Turn, 0, len(e.prompts.SeedHistory)+proactiveContextLimit)
	turns = append(turns, e.prompts.SeedHistory...)

	recent, err := e.history.Recent(ctx, sessionID, proactiveContextLimit, time.Time{})
	if err != nil {
		fmt.Printf("[Proactive] history unavailable, using seed only: %v\n", err)
	}
	for i := range recent {
		turns = append(turns, recent[i].AsTurn())
	}

	raw, err := e.synth.Generate(ctx, &repo.PromptContext{
		System:  e.prompts.SystemInstruction,
		History: turns,
		Prompt:  sel.Template,
	}, sel.Params)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	text := StripWrappingQuotes(strings.TrimSpace(raw))

	msg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    domain.SenderAI,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := e.history.Append(ctx, msg); err != nil {
		return "", fmt.Errorf("persist: %w", err)
	}

	return text, nil
}

// deliver pushes the message over the live channel. No registered
// connection is a no-op: the message stays in history for the next fetch.
func (e *ProactiveEngine) deliver(ctx context.Context, sessionID, text string) {
	event := &domain.Event{
		Type:      domain.EventProactiveMessage,
		Message:   text,
		Sender:    domain.SenderAI,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err := e.notifier.Send(ctx, sessionID, event); err != nil {
		fmt.Printf("[Proactive] delivery failed for %s: %v\n", sessionID, err)
	}
}

// quotePairs maps opening quote characters to their closers.
var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'“': '”', // left/right double quotation mark
	'«': '»', // guillemets
}

// StripWrappingQuotes removes exactly one matching pair of quotation marks
// wrapping the whole text. Models sometimes over-quote short outputs.
// Unquoted or asymmetric text is returned unchanged.
func StripWrappingQuotes(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return s
	}
	closer, ok := quotePairs[r[0]]
	if !ok || r[len(r)-1] != closer {
		return s
	}
	return strings.TrimSpace(string(r[1 : len(r)-1]))
}

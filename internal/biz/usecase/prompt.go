package usecase

import (
	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

// ChatPromptConfig contains the dispatcher's prompt configuration: the
// persona, the seed history, the fixed command replies and the sulking-mode
// templates.
type ChatPromptConfig struct {
	SystemInstruction string
	SeedHistory       []domain.Turn

	Apology           string
	SilenceOnAck      string
	SilenceOffWake    string
	SilenceOffAlready string
	ImageFallback     string

	AppeasementKeywords []string
	AngryPrompt         string
	AppeasedPrompt      string
}

// ProactivePromptConfig contains the proactive engine's prompt configuration.
type ProactivePromptConfig struct {
	SystemInstruction string
	SeedHistory       []domain.Turn

	// IdleLevels holds the nudge templates for idle levels 1 through 3.
	IdleLevels [3]string

	DeepTalk    string
	GoodMorning string

	// Fallback replaces the generated message when synthesis or
	// persistence fails, so the live channel never silently goes dead.
	Fallback string
}

// Generation parameter tiers. Normal replies stay modest to keep the
// persona consistent; angry replies are deliberately terse and hot; the
// appeased reply gets a warmer budget; proactive messages must stay brief;
// image replies get room to describe.
var (
	defaultParams   = repo.GenerationParams{MaxTokens: 50, Temperature: 0.7, TopP: 0.8}
	angryParams     = repo.GenerationParams{MaxTokens: 10, Temperature: 1.0, TopP: 0.9}
	appeasedParams  = repo.GenerationParams{MaxTokens: 50, Temperature: 0.7, TopP: 0.9}
	proactiveParams = repo.GenerationParams{MaxTokens: 30, Temperature: 1.0, TopP: 0.9}
	visionParams    = repo.GenerationParams{MaxTokens: 500, Temperature: 0.9, TopP: 0.9}
)

// PromptSelection pairs a template with its generation parameters.
type PromptSelection struct {
	Template string
	Params   repo.GenerationParams
}

// SelectProactivePrompt maps a trigger kind and idle escalation level to the
// template and parameters to use. ok is false when nothing should be
// emitted: idle level 0, or level past the sulking threshold (the companion
// is already sulking; re-emitting would turn escalation into a nag loop).
func (c *ProactivePromptConfig) SelectProactivePrompt(kind domain.TriggerKind, idleLevel int) (PromptSelection, bool) {
	switch kind {
	case domain.TriggerDeepTalk:
		return PromptSelection{Template: c.DeepTalk, Params: proactiveParams}, true
	case domain.TriggerGoodMorning:
		return PromptSelection{Template: c.GoodMorning, Params: proactiveParams}, true
	case domain.TriggerIdle:
		if idleLevel >= 1 && idleLevel <= domain.SulkThreshold {
			return PromptSelection{Template: c.IdleLevels[idleLevel-1], Params: proactiveParams}, true
		}
		return PromptSelection{}, false
	default:
		return PromptSelection{}, false
	}
}

package repo

import (
	"context"

	"github.com/anthropics/companion-backend/internal/biz/domain"
)

// GenerationParams tune a single synthesis call.
type GenerationParams struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// PromptContext is everything one synthesis call sees: the persona system
// instruction, the conversation so far (seed history plus recent persisted
// turns), and the new prompt.
type PromptContext struct {
	System  string
	History []domain.Turn
	Prompt  string

	// Optional inline image attached to the prompt.
	ImageData     string
	ImageMimeType string
}

// SynthesizerRepo produces generated text for a prompt context. Callers
// treat any error uniformly as "synthesis failed".
type SynthesizerRepo interface {
	Generate(ctx context.Context, pc *PromptContext, params GenerationParams) (string, error)
}

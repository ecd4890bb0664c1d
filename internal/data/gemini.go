package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

// synthesisTimeout caps one generation call.
const synthesisTimeout = 30 * time.Second

// geminiRepo implements the synthesizer on Gemini's OpenAI-compatible
// endpoint. Messages with an inline image route to the vision model.
type geminiRepo struct {
	client      *openai.Client
	textModel   string
	visionModel string
	limiter     *rate.Limiter
}

// NewGeminiRepo creates a Gemini synthesizer repository. rpm caps the
// request rate against the provider quota.
func NewGeminiRepo(apiKey, baseURL, textModel, visionModel string, rpm int) repo.SynthesizerRepo {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if rpm <= 0 {
		rpm = 30
	}

	return &geminiRepo{
		client:      openai.NewClientWithConfig(config),
		textModel:   textModel,
		visionModel: visionModel,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

// Generate produces text for a prompt context.
func (r *geminiRepo) Generate(ctx context.Context, pc *repo.PromptContext, params repo.GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(pc.History)+2)
	if pc.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: pc.System,
		})
	}
	for _, turn := range pc.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    wireRole(turn.Role),
			Content: turn.Text,
		})
	}

	model := r.textModel
	if pc.ImageData != "" {
		model = r.visionModel
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: pc.Prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", pc.ImageMimeType, pc.ImageData),
					},
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: pc.Prompt,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// wireRole maps context turn roles to OpenAI wire roles. "model" appears in
// seed-history files written against the Gemini native API.
func wireRole(role string) string {
	switch role {
	case domain.RoleAssistant, "model":
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

package port

import (
	"context"

	"docchat/internal/domain"
)

// ChatResult is the generator's reply plus the tokens it consumed.
type ChatResult struct {
	Text  string
	Usage domain.TokenUsage
}

// Generator produces text from a language model.
type Generator interface {
	// Generate produces text from a system instruction and a user prompt.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateChat produces the next assistant reply for a conversation.
	GenerateChat(ctx context.Context, systemPrompt string, messages []domain.Message) (ChatResult, error)

	// ModelName returns the name of the model.
	ModelName() string
}

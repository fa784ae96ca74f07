package llm

import (
	"context"
	"fmt"

	"docchat/internal/domain"
	"docchat/internal/port"
)

// MockGenerator echoes the last user message. Useful for tests and offline runs.
type MockGenerator struct {
	// Reply overrides the echoed text when non-empty.
	Reply string

	// Calls counts generation invocations.
	Calls int
}

func (g *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := g.GenerateChat(ctx, systemPrompt, []domain.Message{
		{Role: domain.RoleUser, Content: userPrompt},
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (g *MockGenerator) GenerateChat(ctx context.Context, systemPrompt string, messages []domain.Message) (port.ChatResult, error) {
	g.Calls++

	text := g.Reply
	if text == "" {
		last := ""
		for _, m := range messages {
			if m.Role == domain.RoleUser {
				last = m.Content
			}
		}
		text = fmt.Sprintf("mock reply to: %s", last)
	}

	return port.ChatResult{
		Text:  text,
		Usage: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (g *MockGenerator) ModelName() string {
	return "mock"
}

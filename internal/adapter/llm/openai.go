package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/domain"
	"docchat/internal/port"
)

// chatClient is the slice of the OpenAI client the generator needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator produces text through the OpenAI chat completions API.
type OpenAIGenerator struct {
	client      chatClient
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIGenerator reads the API key from the named environment variable
// and returns a generator for the given model.
func NewOpenAIGenerator(apiKeyEnv, model string, temperature float32, maxTokens int) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate produces text from a system instruction and a single user prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := g.GenerateChat(ctx, systemPrompt, []domain.Message{
		{Role: domain.RoleUser, Content: userPrompt},
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// GenerateChat produces the next assistant reply for a conversation history.
func (g *OpenAIGenerator) GenerateChat(ctx context.Context, systemPrompt string, messages []domain.Message) (port.ChatResult, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    chatMessages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return port.ChatResult{}, &domain.ServiceError{Service: "generation", Err: err}
	}

	if len(resp.Choices) == 0 {
		return port.ChatResult{}, &domain.ServiceError{
			Service: "generation",
			Err:     fmt.Errorf("no choices returned"),
		}
	}

	return port.ChatResult{
		Text: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ModelName returns the name of the generation model.
func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

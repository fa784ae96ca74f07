package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docchat/internal/domain"
	"docchat/internal/port"
)

const chatSystemPrompt = "You are a helpful assistant. Be concise and accurate."

// ChatService runs conversations: it replays stored history to the
// generation model and persists each exchange with its token usage.
type ChatService struct {
	generator port.Generator
	sessions  port.SessionStore
}

// NewChatService wires the generation model to the transcript store.
func NewChatService(generator port.Generator, sessions port.SessionStore) *ChatService {
	return &ChatService{generator: generator, sessions: sessions}
}

// StartConversation opens a new session for the user and answers the first
// prompt. Returns the new session ID and the assistant's reply.
func (s *ChatService) StartConversation(ctx context.Context, userID, prompt string) (string, string, error) {
	sessionID := uuid.NewString()
	reply, err := s.ContinueConversation(ctx, userID, sessionID, prompt)
	if err != nil {
		return "", "", err
	}
	return sessionID, reply, nil
}

// ContinueConversation answers the prompt within an existing session,
// replaying the stored turns as conversation history.
func (s *ChatService) ContinueConversation(ctx context.Context, userID, sessionID, prompt string) (string, error) {
	history, err := s.sessions.TurnsBySession(userID, sessionID)
	if err != nil {
		return "", err
	}

	messages := make([]domain.Message, 0, len(history)*2+1)
	for _, t := range history {
		messages = append(messages,
			domain.Message{Role: domain.RoleUser, Content: t.UserPrompt},
			domain.Message{Role: domain.RoleAssistant, Content: t.AssistantResponse},
		)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: prompt})

	result, err := s.generator.GenerateChat(ctx, chatSystemPrompt, messages)
	if err != nil {
		return "", err
	}

	turn := domain.ChatTurn{
		UserPrompt:        prompt,
		AssistantResponse: result.Text,
		Timestamp:         time.Now().UTC(),
	}
	if err := s.sessions.AppendTurn(userID, sessionID, turn, result.Usage); err != nil {
		return "", err
	}

	return result.Text, nil
}

// Sessions lists the user's conversations.
func (s *ChatService) Sessions(userID string) ([]domain.SessionSummary, error) {
	return s.sessions.SessionsByUser(userID)
}

// History returns a session's stored turns in order.
func (s *ChatService) History(userID, sessionID string) ([]domain.ChatTurn, error) {
	return s.sessions.TurnsBySession(userID, sessionID)
}

// Delete removes a session and reports whether it existed.
func (s *ChatService) Delete(userID, sessionID string) (bool, error) {
	return s.sessions.DeleteSession(userID, sessionID)
}

// TokenUsage returns the session's accumulated token counts.
func (s *ChatService) TokenUsage(userID, sessionID string) (domain.TokenUsage, error) {
	return s.sessions.TokenUsage(userID, sessionID)
}

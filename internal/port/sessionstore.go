package port

import "docchat/internal/domain"

// SessionStore persists chat transcripts and per-session token usage.
type SessionStore interface {
	AppendTurn(userID, sessionID string, turn domain.ChatTurn, usage domain.TokenUsage) error

	TurnsBySession(userID, sessionID string) ([]domain.ChatTurn, error)

	SessionsByUser(userID string) ([]domain.SessionSummary, error)

	DeleteSession(userID, sessionID string) (bool, error)

	TokenUsage(userID, sessionID string) (domain.TokenUsage, error)

	Close() error
}

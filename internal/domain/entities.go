package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is a source PDF registered with the retrieval engine.
type Document struct {
	Key   string
	Path  string
	Pages int
}

// DocumentKey derives the cache key for a source path: the base filename
// without its extension. Two documents with the same base name collide;
// callers that need to tell them apart must disambiguate the paths.
func DocumentKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IndexRecord is the persisted unit for one document: its chunks, their
// embeddings in the same order, and the model that produced them. Written
// wholesale on ingestion, never partially updated.
type IndexRecord struct {
	DocumentPath string      `json:"document_path"`
	Chunks       []string    `json:"chunks"`
	Embeddings   [][]float32 `json:"embeddings"`
	Model        string      `json:"model"`
}

// ScoredChunk is one similarity-search hit.
type ScoredChunk struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Message is a single role-tagged message sent to the generation model.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one stored exchange in a conversation.
type ChatTurn struct {
	UserPrompt        string    `json:"user_prompt"`
	AssistantResponse string    `json:"assistant_response"`
	Timestamp         time.Time `json:"timestamp"`
}

// SessionSummary identifies a conversation by its opening message.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	FirstMessage string `json:"first_message"`
}

// TokenUsage accumulates model token counts for a session.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usage counters.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

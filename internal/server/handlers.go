package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/internal/domain"
)

type chatRequest struct {
	Username string `json:"username" binding:"required"`
	Prompt   string `json:"prompt" binding:"required"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}

type documentRequest struct {
	Path  string `json:"path" binding:"required"`
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStartConversation(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, reply, err := s.chat.StartConversation(c.Request.Context(), req.Username, req.Prompt)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{ConversationID: sessionID, Response: reply})
}

func (s *Server) handleContinueConversation(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID := c.Param("conversation_id")
	reply, err := s.chat.ContinueConversation(c.Request.Context(), req.Username, conversationID, req.Prompt)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{ConversationID: conversationID, Response: reply})
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.chat.Sessions(c.Param("user_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleSessionMessages(c *gin.Context) {
	turns, err := s.chat.History(c.Param("username"), c.Param("conversation_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	c.JSON(http.StatusOK, turns)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	existed, err := s.chat.Delete(c.Param("user_id"), c.Param("conversation_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": existed})
}

func (s *Server) handleTokenUsage(c *gin.Context) {
	usage, err := s.chat.TokenUsage(c.Param("username"), c.Param("conversation_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (s *Server) handleDocumentAnswer(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.Retrieve.TopK
	}

	answer, err := s.registry.Answer(c.Request.Context(), req.Path, req.Query, req.TopK)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) handleDocumentSearch(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.Retrieve.TopK
	}

	results, err := s.registry.Search(c.Request.Context(), req.Path, req.Query, req.TopK, s.cfg.Retrieve.PreviewChars)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// abortWithError maps domain errors to HTTP status codes.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var cfgErr *domain.ConfigError
	var loadErr *domain.LoadError
	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.As(err, &loadErr):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotReady):
		status = http.StatusConflict
	case errors.As(err, &svcErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

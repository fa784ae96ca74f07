package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"docchat/config"
	"docchat/internal/usecase"
)

// Server exposes the chat and retrieval services over HTTP.
type Server struct {
	cfg      *config.Config
	chat     *usecase.ChatService
	registry *usecase.Registry
	router   *gin.Engine
}

// New builds the router and returns a server ready to run.
func New(cfg *config.Config, chat *usecase.ChatService, registry *usecase.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		chat:     chat,
		registry: registry,
	}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if s.cfg.Server.CORSEnabled {
		router.Use(corsMiddleware())
	}

	router.GET("/healthz", s.handleHealth)

	router.POST("/conversations", s.handleStartConversation)
	router.POST("/conversations/:conversation_id/messages", s.handleContinueConversation)
	router.GET("/users/:user_id/conversations", s.handleListSessions)
	router.GET("/sessions/:username/:conversation_id/messages", s.handleSessionMessages)
	router.DELETE("/conversations/:user_id/:conversation_id", s.handleDeleteSession)
	router.GET("/sessions/:username/:conversation_id/token_usage", s.handleTokenUsage)

	router.POST("/documents/answer", s.handleDocumentAnswer)
	router.POST("/documents/search", s.handleDocumentSearch)

	s.router = router
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the context is canceled or an interrupt arrives, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"docchat/internal/adapter/llm"
	"docchat/internal/adapter/store"
	"docchat/internal/server"
	"docchat/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP server exposing conversations, session history, token
usage and document question-answering endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	config := GetConfig()
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		config.Server.Port = port
	}

	registry, err := newRegistry(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(config.Storage.SessionsDB), 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}
	sessions, err := store.NewBoltSessionStore(config.Storage.SessionsDB)
	if err != nil {
		return err
	}
	defer sessions.Close()

	generator, err := llm.NewOpenAIGenerator(
		config.Embedding.APIKeyEnv,
		config.Answer.Model,
		config.Answer.Temperature,
		config.Answer.MaxTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	chat := usecase.NewChatService(generator, sessions)
	srv := server.New(config, chat, registry)

	log.Info("starting server", "host", config.Server.Host, "port", config.Server.Port)
	return srv.Run(cmd.Context())
}

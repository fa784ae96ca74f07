package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docchat/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "docchat - chat with PDF documents using retrieval-augmented generation",
	Long: `docchat ingests PDF documents into a persisted vector index and answers
questions about them by retrieving the most relevant passages and handing
them to a language model.

Example usage:
  docchat ingest manual.pdf           # Chunk, embed and index a PDF
  docchat ask -f manual.pdf -q "..."  # Answer a question from the PDF
  docchat search -f manual.pdf -q "warranty"  # Inspect raw matches
  docchat serve                       # Start the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; the environment may already be set.
		_ = godotenv.Load()

		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, perr := log.ParseLevel(cfg.Logging.Level); perr == nil {
			log.SetLevel(level)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docchat.yaml)")
}

func GetConfig() *config.Config {
	return cfg
}

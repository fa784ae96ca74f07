package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askFile  string
	askQuery string
	askTopK  int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from a PDF document",
	Long: `Retrieve the passages most relevant to the question and ask the
generation model to answer from them.

Examples:
  docchat ask -f manual.pdf -q "What is the warranty period?"
  docchat ask -f report.pdf -q "Summarize the findings" -k 5`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "PDF document (required)")
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of context chunks (default from config)")
	askCmd.MarkFlagRequired("file")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	answer, err := registry.Answer(cmd.Context(), askFile, askQuery, topK)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docchat/internal/usecase"
)

var (
	searchFile  string
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the most relevant passages without generating an answer",
	Long: `Run similarity search against an indexed PDF and print the ranked
matches with scores. Cheaper than ask: no generation call is made.

Examples:
  docchat search -f manual.pdf -q "return policy"
  docchat search -f manual.pdf -q "return policy" -k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "PDF document (required)")
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output raw results as JSON")
	searchCmd.MarkFlagRequired("file")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	if searchJSON {
		return printSearchJSON(cmd.Context(), registry, topK)
	}

	out, err := registry.Search(cmd.Context(), searchFile, searchQuery, topK, cfg.Retrieve.PreviewChars)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Println(out)
	return nil
}

func printSearchJSON(ctx context.Context, registry *usecase.Registry, topK int) error {
	eng, err := registry.Engine(ctx, searchFile, false)
	if err != nil {
		return err
	}
	results, err := eng.Search(ctx, searchQuery, topK)
	if err != nil {
		return err
	}
	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}

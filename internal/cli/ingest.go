package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docchat/internal/adapter/fs"
)

var (
	ingestForce    bool
	ingestIncludes []string
	ingestExcludes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Chunk, embed and index PDF documents",
	Long: `Ingest a PDF file, or every PDF under a directory, into the persisted
vector index. Documents already indexed are loaded from cache and skipped
unless --force is given.

Examples:
  docchat ingest manual.pdf
  docchat ingest ./docs --force
  docchat ingest ./docs --exclude "archive/**"`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-chunk and re-embed even when a cached index exists")
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "doublestar patterns to include (default **/*.pdf)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "doublestar patterns to exclude")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var files []string
	if info.IsDir() {
		walker := fs.NewWalker(ingestIncludes, ingestExcludes)
		files, err = walker.Walk(path)
		if err != nil {
			return fmt.Errorf("failed to scan directory: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("No matching documents found.")
			return nil
		}
	} else {
		files = []string{path}
	}

	registry, err := newRegistry(GetConfig())
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Ingesting"),
		)
	}

	failures := 0
	for _, file := range files {
		eng, err := registry.Engine(cmd.Context(), file, ingestForce)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "failed to ingest %s: %v\n", file, err)
		} else if bar == nil {
			fmt.Printf("Indexed %s (%d chunks)\n", filepath.Base(file), eng.ChunkCount())
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Println()
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(files))
	}
	fmt.Printf("Ingested %d document(s).\n", len(files))
	return nil
}

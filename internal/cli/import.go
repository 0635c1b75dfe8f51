package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import episodes from a CSV catalog export",
	Long: `Import episodes from a CSV file into the catalog.

The file needs at least title and URL columns; Japanese and English
headers are both accepted. Rows without a title or URL are skipped.
Existing episodes (same URL) are updated in place.

Examples:
  discovery import episodes.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	ingest := service.NewIngestService(dbClient, metrics.NewCollector())
	result, err := ingest.ImportCSV(ctx, f)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	printIngestResult(result)
	return nil
}

// printIngestResult prints a summary shared by import, sync and embed.
func printIngestResult(r *service.IngestResult) {
	fmt.Printf("Imported:   %d\n", r.EpisodesImported)
	if r.EpisodesSkipped > 0 {
		fmt.Printf("Skipped:    %d\n", r.EpisodesSkipped)
	}
	if r.EmbeddingsCreated > 0 {
		fmt.Printf("Embeddings: %d\n", r.EmbeddingsCreated)
	}
	if len(r.Errors) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  • %s\n", e)
		}
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soretetsu/discovery-go/internal/embedding"
	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/service"
)

var embedLimit int

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embeddings for episodes that have none",
	Long: `Generate embedding vectors for episodes missing them.

Episodes are embedded in batches against the configured provider
(DISCOVERY_EMBED_PROVIDER: ollama, openai or bedrock). Failed batches
are reported and left for a later run.

Examples:
  discovery embed
  discovery embed --limit 50`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().IntVarP(&embedLimit, "limit", "n", 0, "max episodes to embed (0 = all pending)")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	ingest := service.NewIngestService(dbClient, metrics.NewCollector())

	mgr := service.NewJobManager()
	job := mgr.CreateJob("embed", 0)

	go func() {
		result, err := ingest.EmbedMissing(context.Background(), embedder, embedLimit, mgr, job)
		if err != nil {
			mgr.Fail(job, err)
			return
		}
		mgr.Complete(job, result)
	}()

	return RunJobProgress(mgr, job)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/service"
	"github.com/soretetsu/discovery-go/internal/source"
)

var (
	syncDatabaseID string
	syncWithBodies bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the episode catalog from the remote source",
	Long: `Sync episodes from the remote catalog database into local storage.

Requires DISCOVERY_SOURCE_TOKEN and a database ID, either via
DISCOVERY_SOURCE_DATABASE_ID or the --database flag.

With --with-bodies each episode's page content is fetched too, which is
slower but gives embeddings more text to work with.

Examples:
  discovery sync
  discovery sync --database a1b2c3d4 --with-bodies`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncDatabaseID, "database", "", "source database ID (default from env)")
	syncCmd.Flags().BoolVar(&syncWithBodies, "with-bodies", false, "fetch episode page bodies")
}

func runSync(cmd *cobra.Command, args []string) error {
	databaseID := syncDatabaseID
	if databaseID == "" {
		databaseID = cfg.SourceDatabaseID
	}
	if databaseID == "" {
		return fmt.Errorf("no source database ID; set DISCOVERY_SOURCE_DATABASE_ID or pass --database")
	}
	if cfg.SourceToken == "" {
		return fmt.Errorf("DISCOVERY_SOURCE_TOKEN is not set")
	}

	src := source.New(cfg.SourceURL, cfg.SourceToken)
	ingest := service.NewIngestService(dbClient, metrics.NewCollector())

	mgr := service.NewJobManager()
	job := mgr.CreateJob("sync", 0)

	go func() {
		result, err := ingest.SyncCatalog(context.Background(), src, databaseID, syncWithBodies, mgr, job)
		if err != nil {
			mgr.Fail(job, err)
			return
		}
		mgr.Complete(job, result)
	}()

	return RunJobProgress(mgr, job)
}

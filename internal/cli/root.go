// Package cli provides the command-line interface for discovery.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soretetsu/discovery-go/internal/config"
	"github.com/soretetsu/discovery-go/internal/db"
	"github.com/soretetsu/discovery-go/internal/embedding"
	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/service"
	"github.com/soretetsu/discovery-go/internal/vocab"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Podcast episode discovery engine",
	Long: `Discovery finds podcast episodes by philosopher and theme tags,
with optional free-text search.

Queries against a closed vocabulary return a guaranteed number of ranked
episodes; when a strict match comes up short, matching is relaxed
step by step until enough results exist.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// loadVocabularies builds the tag vocabularies, applying the optional
// override file from config.
func loadVocabularies() (philosophers, themes *vocab.Vocabulary, err error) {
	override, err := config.LoadVocabFile(cfg.VocabFile)
	if err != nil {
		return nil, nil, err
	}
	if override == nil {
		return vocab.DefaultPhilosophers(), vocab.DefaultThemes(), nil
	}
	return vocab.New(override.Philosophers), vocab.New(override.Themes), nil
}

// newDiscoveryService builds a discovery service over the connected database.
func newDiscoveryService() (*service.DiscoveryService, error) {
	philosophers, themes, err := loadVocabularies()
	if err != nil {
		return nil, err
	}

	factory := func(ctx context.Context) (service.TextEmbedder, error) {
		return embedding.NewEmbedder(ctx, &cfg)
	}

	return service.NewDiscoveryService(dbClient, &cfg, metrics.NewCollector(), philosophers, themes, factory), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(statsCmd)
}

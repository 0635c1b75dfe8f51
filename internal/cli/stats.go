package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Long: `Show episode counts and tag usage across the catalog.

Examples:
  discovery stats
  discovery stats -v`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newDiscoveryService()
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	fmt.Printf("Episodes: %d\n", stats.EpisodeCount)

	fmt.Printf("\nPhilosophers (%d tagged):\n", len(stats.Philosophers))
	for _, tc := range stats.Philosophers {
		if !verbose && tc.Count < 2 {
			continue
		}
		fmt.Printf("  %-20s %d\n", tc.Tag, tc.Count)
	}

	fmt.Printf("\nThemes (%d tagged):\n", len(stats.Themes))
	for _, tc := range stats.Themes {
		if !verbose && tc.Count < 2 {
			continue
		}
		fmt.Printf("  %-20s %d\n", tc.Tag, tc.Count)
	}

	return nil
}

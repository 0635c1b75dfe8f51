package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soretetsu/discovery-go/internal/recommend"
	"github.com/soretetsu/discovery-go/internal/service"
)

var (
	discoverPhilosophers []string
	discoverThemes       []string
)

var discoverCmd = &cobra.Command{
	Use:   "discover [search text]",
	Short: "Find episodes by tags and free text",
	Long: `Find episodes matching philosopher tags, theme tags, and optional
free text.

Tags must come from the closed vocabulary (see 'discovery vocab').
Unknown tags are ignored; if nothing remains, the query is rejected.

Examples:
  discovery discover -p カント
  discovery discover -p カント -t 自由・意志
  discovery discover -t 時間 "存在とは何か"
  discovery discover "ニーチェの系譜学"`,
	Args: cobra.ArbitraryArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringSliceVarP(&discoverPhilosophers, "philosophers", "p", nil, "philosopher tags")
	discoverCmd.Flags().StringSliceVarP(&discoverThemes, "themes", "t", nil, "theme tags")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := newDiscoveryService()
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	if err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	query := recommend.Query{
		Philosophers: discoverPhilosophers,
		Themes:       discoverThemes,
		SearchText:   strings.TrimSpace(strings.Join(args, " ")),
	}

	result, err := svc.Discover(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuery):
			return fmt.Errorf("give at least one tag or some search text")
		case errors.Is(err, service.ErrNoVocabularyMatch):
			return fmt.Errorf("no tag matched the vocabulary; run 'discovery vocab' to see valid tags")
		}
		return fmt.Errorf("discover: %w", err)
	}

	if result.Message != nil {
		fmt.Printf("Note: %s\n\n", *result.Message)
	}

	fmt.Printf("Found %d matching episodes, showing %d:\n\n", result.TotalFound, len(result.Results))
	for i, item := range result.Results {
		fmt.Printf("%d. %s\n", i+1, item.Title)
		if item.Summary != "" {
			fmt.Printf("   %s\n", item.Summary)
		}
		if item.URL != "" {
			fmt.Printf("   %s\n", item.URL)
		}
		if verbose {
			fmt.Printf("   Score: %.2f", item.Score)
			if b := item.Breakdown; b != nil {
				fmt.Printf(" (philosopher %d, theme %d, relevance %d, difficulty %d, penalty %d)",
					b.PhilosopherExact, b.ThemeExact, b.RelevanceBonus, b.DifficultyBonus, b.Penalty)
			}
			fmt.Println()
			if len(item.Philosophers) > 0 {
				fmt.Printf("   Philosophers: %s\n", strings.Join(item.Philosophers, ", "))
			}
			if len(item.Themes) > 0 {
				fmt.Printf("   Themes: %s\n", strings.Join(item.Themes, ", "))
			}
		}
		fmt.Println()
	}

	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "List the tag vocabularies",
	Long: `List the philosopher and theme tags that discovery queries accept.

The built-in vocabularies can be replaced with DISCOVERY_VOCAB_FILE,
a YAML file with 'philosophers' and 'themes' lists.`,
	RunE: runVocab,
}

func runVocab(cmd *cobra.Command, args []string) error {
	philosophers, themes, err := loadVocabularies()
	if err != nil {
		return err
	}

	fmt.Printf("Philosophers (%d):\n", philosophers.Len())
	for _, p := range philosophers.Values() {
		fmt.Printf("  %s\n", p)
	}

	fmt.Printf("\nThemes (%d):\n", themes.Len())
	for _, t := range themes.Values() {
		fmt.Printf("  %s\n", t)
	}

	return nil
}

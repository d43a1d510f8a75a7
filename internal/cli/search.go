package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchOffset int
	searchLimit  int
)

// searchCmd runs a ranked multi-word lookup directly against the
// inverted word index, bypassing the SQL translator entirely — the same
// fast path a tracker:fulltext-match fts:match built-in would take,
// exposed here as its own command since it needs no SPARQL pattern at
// all.
var searchCmd = &cobra.Command{
	Use:   "search [words...]",
	Short: "Ranked full-text search over the inverted word index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "result offset")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	hits, err := e.SearchWords(context.Background(), args, searchOffset, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, h := range hits {
		fmt.Printf("%d\t%d\n", h.ServiceID, h.Score)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "(%d hits)\n", len(hits))
	return nil
}

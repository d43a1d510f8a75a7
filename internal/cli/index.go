package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// indexCmd groups inverted-index maintenance subcommands.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the inverted word index",
}

var indexOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the inverted word index",
	Long: `Optimize compacts the inverted word index file, the same pass the
engine starts on its own after ` + "`tracker update`" + ` when the record/bucket
ratio check says it is due — run here synchronously, on demand, and
without that check.`,
	RunE: runIndexOptimize,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inverted word index size and bucket statistics",
	RunE:  runIndexStats,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexOptimizeCmd)
	indexCmd.AddCommand(indexStatsCmd)
}

func runIndexOptimize(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Optimizing index"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
	defer bar.Finish()

	if err := e.Optimize(); err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}

	fmt.Println("\n✓ Index optimized")
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	stats, err := e.IndexStats()
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	fmt.Printf("records: %d\n", stats.RecordCount)
	fmt.Printf("buckets: %d\n", stats.BucketCount)
	return nil
}

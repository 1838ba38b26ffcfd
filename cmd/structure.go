package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fablecraft/loom/internal/analysis"
)

var (
	structureJSON     bool
	structureTopN     int
	structureKeystone int
)

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Show dependency clusters, standalone chapters, and keystone chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		snap, _, err := loadEngine(d)
		if err != nil {
			return err
		}

		cfg := analysis.DefaultConfig()
		cfg.TopN = structureTopN
		cfg.KeystoneThreshold = structureKeystone

		report := analysis.ComputeStructure(snap, cfg)

		if structureJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("\n  Chapters: %d   Dependency links: %d   Clusters: %d (largest %d, smallest %d)\n",
			report.TotalChapters, report.TotalLinks, report.NumClusters,
			report.LargestCluster, report.SmallestCluster)
		if report.StandaloneCount > 0 {
			fmt.Printf("  Standalone chapters (%d): %v\n", report.StandaloneCount, report.StandaloneIDs)
		}
		if len(report.Keystones) > 0 {
			fmt.Println("\n  Keystone chapters:")
			for _, k := range report.Keystones {
				fmt.Printf("    %s — %s (degree %d, %d in / %d out)\n",
					k.ID, k.Title, k.Degree, k.InDegree, k.OutDegree)
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	structureCmd.Flags().BoolVar(&structureJSON, "json", false, "Output as JSON")
	structureCmd.Flags().IntVar(&structureTopN, "top-n", 10, "Number of items to show per section")
	structureCmd.Flags().IntVar(&structureKeystone, "keystone-threshold", 3, "Minimum dependency degree for a keystone chapter")
	rootCmd.AddCommand(structureCmd)
}

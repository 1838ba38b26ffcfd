package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fablecraft/loom/internal/analysis"
)

var (
	scoreJSON  bool
	scoreOrder string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the current chapter order's quality",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		snap, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		order := mgr.CurrentVersion().ChapterOrder
		if scoreOrder != "" {
			order = splitOrder(scoreOrder)
		}

		report, err := analysis.Score(snap, order, analysis.DefaultConfig())
		if err != nil {
			return err
		}

		if scoreJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printScore(report)
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Output as JSON")
	scoreCmd.Flags().StringVar(&scoreOrder, "order", "", "Comma-separated chapter ids to score instead of the current order")
	rootCmd.AddCommand(scoreCmd)
}

func printScore(report *analysis.QualityReport) {
	barLen := report.Score / 5
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Order Quality: %d/100  [%s]\n\n", report.Score, bar)

	if len(report.Strengths) > 0 {
		fmt.Println("  Strengths:")
		for _, s := range report.Strengths {
			fmt.Printf("    + %s\n", s)
		}
		fmt.Println()
	}
	if len(report.Improvements) > 0 {
		fmt.Println("  Improvements:")
		for _, s := range report.Improvements {
			fmt.Printf("    - %s\n", s)
		}
		fmt.Println()
	}
	if len(report.Issues) > 0 {
		fmt.Printf("  %d findings (run `loom analyze` for details)\n\n", len(report.Issues))
	}
}

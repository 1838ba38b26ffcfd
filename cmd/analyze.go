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
	analyzeJSON        bool
	analyzeOrder       string
	analyzeTensionDrop int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check the current chapter order for consistency problems",
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
		if analyzeOrder != "" {
			order = splitOrder(analyzeOrder)
		}

		cfg := analysis.DefaultConfig()
		cfg.TensionDropThreshold = analyzeTensionDrop

		checks, err := analysis.Analyze(snap, order, cfg)
		if err != nil {
			return err
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(checks)
		}

		printChecks(checks)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeOrder, "order", "", "Comma-separated chapter ids to analyze instead of the current order")
	analyzeCmd.Flags().IntVar(&analyzeTensionDrop, "tension-drop", 3, "Largest tension fall tolerated without a de-escalation beat")
	rootCmd.AddCommand(analyzeCmd)
}

func splitOrder(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printChecks(checks []analysis.Check) {
	if len(checks) == 0 {
		fmt.Println("\n  No consistency problems found.")
		return
	}

	counts := map[analysis.Severity]int{}
	for _, c := range checks {
		counts[c.Severity]++
	}
	fmt.Printf("\n  %d findings: %d errors, %d warnings, %d notes\n\n",
		len(checks), counts[analysis.SeverityError], counts[analysis.SeverityWarning], counts[analysis.SeverityInfo])

	for _, c := range checks {
		fmt.Printf("  %s [%s/%s] %s\n", severityGlyph(c.Severity), c.Type, c.Severity, c.Message)
		if c.Suggestion != "" {
			fix := ""
			if c.AutoFixable {
				fix = " (auto-fixable)"
			}
			fmt.Printf("      -> %s%s\n", c.Suggestion, fix)
		}
	}
	fmt.Println()
}

func severityGlyph(s analysis.Severity) string {
	switch s {
	case analysis.SeverityError:
		return "✗"
	case analysis.SeverityWarning:
		return "!"
	default:
		return "·"
	}
}

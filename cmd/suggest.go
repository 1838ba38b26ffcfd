package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fablecraft/loom/internal/analysis"
)

var (
	suggestJSON  bool
	suggestApply bool
	suggestName  string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Propose a chapter order that satisfies dependencies and improves pacing",
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

		suggestion, err := analysis.Suggest(snap, analysis.DefaultConfig())
		if err != nil {
			return err
		}

		if suggestJSON && !suggestApply {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(suggestion)
		}

		fmt.Println("\n  Suggested order:")
		for i, id := range suggestion.Order {
			fmt.Printf("    %2d. %s — %s\n", i+1, id, snap.Chapter(id).Title)
		}
		fmt.Println("\n  Reasoning:")
		for _, r := range suggestion.Reasoning {
			fmt.Printf("    - %s\n", r)
		}
		fmt.Println()

		if !suggestApply {
			return nil
		}

		ctx := context.Background()
		if _, err := mgr.CreateVersion(ctx, suggestName, "Order suggested by loom"); err != nil {
			return err
		}
		if _, err := mgr.PreviewReordering(ctx, suggestion.Order); err != nil {
			return err
		}
		v, err := mgr.ApplyReordering(ctx)
		if err != nil {
			return err
		}
		if err := saveManager(d, mgr); err != nil {
			return err
		}
		fmt.Printf("  Applied as version %q (%d chapters moved)\n\n", v.Name, len(v.Changes))
		return nil
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Output as JSON")
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Save the suggestion as a new version")
	suggestCmd.Flags().StringVar(&suggestName, "name", "Suggested order", "Name for the new version with --apply")
	rootCmd.AddCommand(suggestCmd)
}

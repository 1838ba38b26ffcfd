package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reorderTo    string
	reorderApply bool
)

var reorderCmd = &cobra.Command{
	Use:   "reorder --to ch1,ch2,...",
	Short: "Preview a chapter reordering, optionally applying it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reorderTo == "" {
			return fmt.Errorf("--to is required")
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		_, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		ctx := context.Background()
		candidate := splitOrder(reorderTo)

		checks, err := mgr.PreviewReordering(ctx, candidate)
		if err != nil {
			return err
		}
		printChecks(checks)

		if !reorderApply {
			if err := mgr.CancelReordering(ctx); err != nil {
				return err
			}
			fmt.Println("  Preview only; rerun with --apply to commit.")
			return nil
		}

		before := len(mgr.CurrentVersion().Changes)
		v, err := mgr.ApplyReordering(ctx)
		if err != nil {
			return err
		}
		if err := saveManager(d, mgr); err != nil {
			return err
		}
		fmt.Printf("  Applied to version %q (%d chapters moved)\n", v.Name, len(v.Changes)-before)
		return nil
	},
}

func init() {
	reorderCmd.Flags().StringVar(&reorderTo, "to", "", "Comma-separated chapter ids in the new order")
	reorderCmd.Flags().BoolVar(&reorderApply, "apply", false, "Commit the reordering instead of previewing")
	rootCmd.AddCommand(reorderCmd)
}

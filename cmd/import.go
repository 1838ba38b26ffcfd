package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fablecraft/loom/internal/analysis"
	"fablecraft/loom/internal/db"
	"fablecraft/loom/internal/manuscript"
	"fablecraft/loom/internal/version"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import <manuscript.yaml>",
	Short: "Import a manuscript file into a loom database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mf, snap, err := manuscript.LoadFile(args[0])
		if err != nil {
			return err
		}

		path := importOut
		if path == "" {
			if discovered, err := DiscoverDB(); err == nil {
				path = discovered
			} else {
				path = ".loom.db"
			}
		}

		d, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.SaveManuscript(mf); err != nil {
			return err
		}

		// Seed the base version unless history already exists
		versions, _, err := d.LoadVersions()
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			mgr := version.NewManager(snap, analysis.DefaultConfig())
			if err := saveManager(d, mgr); err != nil {
				return err
			}
		}

		fmt.Printf("Imported %q: %d chapters -> %s\n", mf.Title, len(mf.Chapters), path)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importOut, "out", "", "Database file to write (default: discovered or ./.loom.db)")
	rootCmd.AddCommand(importCmd)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage chapter-order versions",
}

var versionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		_, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		versions := mgr.Versions()
		current := mgr.CurrentVersion().ID

		if versionJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(versions)
		}

		fmt.Println()
		for _, v := range versions {
			marker := " "
			if v.ID == current {
				marker = "*"
			}
			tag := ""
			if v.IsBase {
				tag = " (base)"
			}
			fmt.Printf("  %s %s  %s%s — %d chapters, %d changes\n",
				marker, v.ID[:8], v.Name, tag, len(v.ChapterOrder), len(v.Changes))
		}
		fmt.Println()
		return nil
	},
}

var versionCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create a new version from the current order and switch to it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		_, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		v, err := mgr.CreateVersion(context.Background(), args[0], description)
		if err != nil {
			return err
		}
		if err := saveManager(d, mgr); err != nil {
			return err
		}
		fmt.Printf("Created version %q (%s)\n", v.Name, v.ID[:8])
		return nil
	},
}

var versionSwitchCmd = &cobra.Command{
	Use:   "switch <version-id>",
	Short: "Switch the current version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		_, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		// Allow id prefixes, the way humans paste them
		id := args[0]
		for _, v := range mgr.Versions() {
			if len(id) >= 6 && len(v.ID) >= len(id) && v.ID[:len(id)] == id {
				id = v.ID
				break
			}
		}

		v, err := mgr.SwitchVersion(context.Background(), id)
		if err != nil {
			return err
		}
		if err := saveManager(d, mgr); err != nil {
			return err
		}
		fmt.Printf("Switched to version %q (%s)\n", v.Name, v.ID[:8])
		return nil
	},
}

var versionLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the current version's change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		_, mgr, err := loadEngine(d)
		if err != nil {
			return err
		}

		v := mgr.CurrentVersion()
		if len(v.Changes) == 0 {
			fmt.Printf("No changes recorded for version %q\n", v.Name)
			return nil
		}
		fmt.Printf("\n  Changes for %q:\n", v.Name)
		for _, c := range v.Changes {
			fmt.Printf("    %s  %s\n", c.Timestamp.Format("2006-01-02 15:04"), c.Description)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	versionListCmd.Flags().BoolVar(&versionJSON, "json", false, "Output as JSON")
	versionCmd.AddCommand(versionListCmd, versionCreateCmd, versionSwitchCmd, versionLogCmd)
	rootCmd.AddCommand(versionCmd)
}

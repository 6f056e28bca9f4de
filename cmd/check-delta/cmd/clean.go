package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/workspace"
)

var cleanDryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the persisted snapshot so the next run rebuilds everything",
	Long: `Removes the state file from the target directory, dropping both the
snapshot and the retry ledger. Use --dry-run to see what would be removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		meta, err := queryMetadata(cmd)
		if err != nil {
			return err
		}

		eng := &engine.CleanEngine{Provider: workspace.Static{Meta: meta}}
		result, err := eng.Clean(cmd.Context(), engine.CleanOptions{
			StateFile: cfg.StateFile,
			DryRun:    cleanDryRun,
		})
		if err != nil {
			return err
		}

		switch {
		case !result.Removed:
			info("Nothing to clean.")
		case cleanDryRun:
			info("Would remove %s", result.StatePath)
		default:
			info("Removed %s", result.StatePath)
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without acting")
	rootCmd.AddCommand(cleanCmd)
}

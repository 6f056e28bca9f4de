package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/state"
	"github.com/bianoble/check-delta/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted snapshot and retry ledger",
	Long: `Shows where the state file lives, when the snapshot was taken, how many
files it tracks, whether the next run would discard it as stale, and which
packages are queued for retry after a failed build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		meta, err := queryMetadata(cmd)
		if err != nil {
			return err
		}

		eng := &engine.StatusEngine{Provider: workspace.Static{Meta: meta}}
		s, err := eng.Status(cmd.Context(), engine.StatusOptions{
			StateFile:      cfg.StateFile,
			StaleThreshold: cfg.StaleThreshold(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("state file:   %s\n", s.StatePath)
		switch s.Load.Status {
		case state.StatusMissing:
			fmt.Println("state:        none (next run builds every package)")
			return nil
		case state.StatusCorrupt, state.StatusInvalid:
			fmt.Printf("state:        %s (next run builds every package)\n", s.Load.Status)
			detail("%v", s.Load.Err)
			return nil
		}

		staleNote := ""
		if s.Stale {
			staleNote = " (stale: next run builds every package)"
		}
		fmt.Printf("captured:     %s, %s ago%s\n", s.CapturedAt.Local().Format(time.RFC3339), s.Age.Round(time.Second), staleNote)
		fmt.Printf("files:        %d\n", s.Files)
		fmt.Printf("packages:     %d\n", len(s.Packages))
		if s.Digest != "" {
			fmt.Printf("digest:       sha256:%s\n", s.Digest)
		}

		if len(s.Ledger) == 0 {
			fmt.Println("retry ledger: empty")
			return nil
		}
		fmt.Println("retry ledger:")
		for _, root := range s.Ledger {
			fmt.Printf("  %s\n", root)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/workspace"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration layers, workspace layout and state location",
	Long: `Displays the check-delta version, the configuration files considered and
which of them were loaded, the workspace and target directories, the state and
log file locations, and the workspace packages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, hr, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		considered := config.DiscoverPaths(config.DiscoverOptions{
			ProjectPath: config.ProjectPath(wd, configPath),
		})
		if config.EnvNoInherit() {
			considered = considered[len(considered)-1:]
		}

		// Info is still useful outside a workspace.
		var meta *workspace.Metadata
		if m, err := queryMetadata(cmd); err == nil {
			meta = m
		} else {
			detail("workspace metadata unavailable: %v", err)
		}

		result := engine.Info(version, considered, hr.Layers, meta, cfg.StateFile)

		fmt.Printf("check-delta %s\n", result.Version)
		fmt.Println("  config chain:")
		for _, layer := range result.ConfigChain {
			status := "not found"
			if layer.Loaded {
				status = "loaded"
			}
			fmt.Printf("    %-10s %s (%s)\n", layer.Level+":", layer.Path, status)
		}

		if meta == nil {
			return nil
		}
		fmt.Printf("  workspace:     %s\n", result.WorkspaceRoot)
		fmt.Printf("  target dir:    %s\n", result.TargetDir)
		fmt.Printf("  state file:    %s (%s)\n", result.StatePath, humanSize(result.StateSize))
		fmt.Printf("  log file:      %s\n", result.LogPath)

		if len(result.Packages) > 0 {
			fmt.Println("\nPackages:")
			for _, p := range result.Packages {
				fmt.Printf("  %-20s %s\n", p.Name, p.Root)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

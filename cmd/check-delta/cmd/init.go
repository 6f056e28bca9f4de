package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default check-delta.yaml scaffold. Every setting is
// shown with its default value.
const initTemplate = `# check-delta configuration
# Docs: https://github.com/bianoble/check-delta
version: 1

# cargo subcommand run in each affected package.
subcommand: check

# Extra arguments passed to the subcommand (arguments after -- on the
# command line replace these).
# args: ["--all-targets"]

# Where diagnostics go: stderr, file (<target-dir>/cargo-check-delta.log), none.
log: stderr

# Seconds after which the previous snapshot is discarded and every package
# is rebuilt.
stale_time: 10800

# File suffixes that are tracked.
extensions: [".rs"]

# Extra gitignore-style patterns, relative to the workspace root.
# .gitignore and .ignore files are always honored.
# ignore:
#   - "generated/"

# Also honor the global git excludes file.
# global_ignore: true

# Parallel directory walkers; 0 uses one per CPU.
jobs: 0

# State file name under the target directory, or an absolute path.
state_file: cargo-check-delta.json

# Prometheus textfile output.
# metrics_file: /var/lib/node_exporter/textfile/check_delta.prom

watch:
  debounce_ms: 500
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter check-delta.yaml configuration",
	Long: `Creates a check-delta.yaml file in the current directory listing every
setting with its default value.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Adjust the subcommand and arguments for your workflow")
		info("  2. Run 'cargo check-delta' to record the first snapshot")
		info("  3. Run 'cargo check-delta watch' to rebuild on every save")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}

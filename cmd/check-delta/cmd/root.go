package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/runner"
	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/workspace"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	manifestPath string
	subcommand   string
	logTarget    logging.Target = logging.TargetStderr
	reset        bool
	staleTime    int64
	metricsFile  string
	jobs         int
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "check-delta [flags] [-- build-args...]",
	Short: "Run cargo only for workspace packages whose sources changed",
	Long: `check-delta records the modification time of every Rust source file in a
Cargo workspace. On each run it compares the tree against the previous record,
maps changed files to their owning packages, and runs the cargo subcommand in
each affected package, plus any package whose build failed last time.

Builds run one package at a time and stop at the first failure, whose exit
code becomes check-delta's exit code. Arguments check-delta does not
recognize, and everything after --, are passed to cargo.`,
	Args:          cobra.ArbitraryArgs,
	Annotations:   map[string]string{buildArgsAnnotation: "true"},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		meta, err := queryMetadata(cmd)
		if err != nil {
			return err
		}

		logger, closer, err := newLogger(cfg, meta)
		if err != nil {
			return err
		}
		defer closer.Close()

		rec := metrics.New()
		eng := &engine.DeltaEngine{
			Provider: workspace.Static{Meta: meta},
			Runner:   &runner.ExecRunner{},
			Program:  cargoBin(),
			Logger:   logger,
			Metrics:  rec,
		}

		result, err := eng.Run(cmd.Context(), runOptions(cfg, args))
		writeMetrics(rec, cfg, logger)
		if result != nil {
			printRunSummary(result)
		}
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("check-delta %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.FileName, "path to config file")
	pf.StringVar(&manifestPath, "manifest-path", "", "path to the workspace Cargo.toml")
	pf.StringVarP(&subcommand, "subcommand", "s", config.DefaultSubcommand, "cargo subcommand to invoke per package")
	pf.VarP(&logTarget, "log", "l", "where diagnostics go")
	pf.BoolVarP(&reset, "reset", "r", false, "ignore the previous snapshot and rebuild everything")
	pf.Int64Var(&staleTime, "stale-time", int64(snapshot.DefaultStaleThreshold.Seconds()), "seconds after which the previous snapshot is discarded")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	pf.IntVar(&jobs, "jobs", 0, "parallel directory walkers (0 = number of CPUs)")
	pf.BoolVar(&verbose, "verbose", false, "detailed output")
	pf.BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with args.
func Execute(args []string) error {
	rootCmd.SetArgs(splitBuildArgs(rootCmd, normalizeArgs(args)))
	if err := rootCmd.Execute(); err != nil {
		errorf("%v", err)
		return err
	}
	return nil
}

func printRunSummary(r *engine.RunResult) {
	added, modified, removed := r.Diff.Sorted()
	if r.Verdict != snapshot.VerdictFresh {
		detail("previous snapshot: %s", r.Verdict)
	}
	detail("%d file(s) tracked: %d added, %d modified, %d removed", r.Files, len(added), len(modified), len(removed))
	for _, p := range r.Unowned {
		detail("changed outside any package: %s", p)
	}

	if len(r.Plan) == 0 {
		detail("Nothing to build.")
		return
	}
	for _, b := range r.Builds {
		status := "ok"
		if !b.OK() {
			status = fmt.Sprintf("failed (exit %d)", b.ExitCode)
		}
		detail("%-8s %s", status, b.Package)
	}
	for _, p := range r.Skipped {
		detail("skipped  %s", p)
	}
	if len(r.Ledger) > 0 {
		notice("%d package(s) will be retried next run", len(r.Ledger))
	}
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/runner"
	"github.com/bianoble/check-delta/internal/watch"
	"github.com/bianoble/check-delta/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:   "watch [-- build-args...]",
	Short: "Run, then run again whenever sources change",
	Long: `Performs an incremental run, then watches the workspace and runs again
once changes settle. Build failures are recorded for retry exactly as in a
single run and do not stop watching. Press Ctrl-C to stop.`,
	Args:        cobra.ArbitraryArgs,
	Annotations: map[string]string{buildArgsAnnotation: "true"},
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rec := metrics.New()
		eng := &engine.DeltaEngine{
			Provider: workspace.Static{Meta: meta},
			Runner:   &runner.ExecRunner{},
			Program:  cargoBin(),
			Logger:   logger,
			Metrics:  rec,
		}
		opts := runOptions(cfg, args)

		w := &watch.Watcher{
			Root:         meta.WorkspaceRoot,
			TargetDir:    meta.TargetDirectory,
			Extensions:   cfg.Extensions,
			Ignore:       cfg.Ignore,
			GlobalIgnore: cfg.UseGlobalIgnore(),
			Debounce:     cfg.Debounce(),
			Logger:       logger,
			Run: func(ctx context.Context) error {
				result, err := eng.Run(ctx, opts)
				// Only the first run honors --reset.
				opts.Reset = false
				writeMetrics(rec, cfg, logger)
				if result != nil {
					printRunSummary(result)
				}
				if code, ok := engine.IsBuildFailure(err); ok {
					notice("build failed with exit code %d; waiting for changes", code)
				} else if err != nil && ctx.Err() == nil {
					errorf("%v", err)
				}
				return err
			},
		}

		info("Watching %s (Ctrl-C to stop)", meta.WorkspaceRoot)
		return w.Watch(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

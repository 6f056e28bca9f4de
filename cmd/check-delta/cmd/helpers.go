package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/workspace"
)

// normalizeArgs drops the subcommand name cargo passes when check-delta is
// invoked as "cargo check-delta".
func normalizeArgs(args []string) []string {
	if len(args) > 0 && args[0] == "check-delta" {
		return args[1:]
	}
	return args
}

// buildArgsAnnotation marks commands whose positional arguments go to cargo.
const buildArgsAnnotation = "check-delta/build-args"

// splitBuildArgs inserts "--" before the first flag that cmd does not know,
// so "cargo check-delta --all-features" passes --all-features to cargo the
// way arguments after an explicit "--" are. Only commands carrying
// buildArgsAnnotation are affected; elsewhere unknown flags stay errors.
func splitBuildArgs(root *cobra.Command, args []string) []string {
	target := root
	seenPositional := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return args
		}
		if a == "-" || !strings.HasPrefix(a, "-") {
			if !seenPositional {
				seenPositional = true
				if sub, _, err := root.Find([]string{a}); err == nil && sub != root {
					target = sub
				}
			}
			continue
		}

		f, inline := lookupFlag(target, a)
		if f == nil {
			if _, ok := target.Annotations[buildArgsAnnotation]; !ok {
				return args
			}
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
		if !inline && f.NoOptDefVal == "" {
			i++
		}
	}
	return args
}

// lookupFlag finds the flag named by arg on cmd, including inherited and
// help flags. inline reports whether arg already carries the value.
func lookupFlag(cmd *cobra.Command, arg string) (f *pflag.Flag, inline bool) {
	sets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags(), cmd.InheritedFlags()}
	help := &pflag.Flag{Name: "help", Shorthand: "h", NoOptDefVal: "true"}

	if name, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, inline = strings.Cut(name, "=")
		if name == help.Name {
			return help, inline
		}
		for _, fs := range sets {
			if f := fs.Lookup(name); f != nil {
				return f, inline
			}
		}
		return nil, false
	}

	short := arg[1:2]
	inline = len(arg) > 2
	if short == help.Shorthand {
		return help, inline
	}
	for _, fs := range sets {
		if f := fs.ShorthandLookup(short); f != nil {
			return f, inline
		}
	}
	return nil, false
}

// loadConfig resolves the config layers and environment, then applies the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.HierarchicalResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving working directory: %w", err)
	}

	hr, err := config.Resolve(config.ResolveOptions{
		HierarchicalOptions: config.HierarchicalOptions{
			ProjectPath: config.ProjectPath(wd, configPath),
		},
		DotEnvDir: wd,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	cfg := hr.Config
	applyFlags(cmd.Flags(), cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, nil, &config.ValidationError{Errors: errs}
	}
	return cfg, hr, nil
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("subcommand") {
		cfg.Subcommand = subcommand
	}
	if fs.Changed("log") {
		cfg.Log = string(logTarget)
	}
	if fs.Changed("stale-time") {
		cfg.StaleTime = staleTime
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if fs.Changed("jobs") {
		cfg.Jobs = jobs
	}
}

// cargoBin returns the cargo binary; cargo exports $CARGO to subcommands.
func cargoBin() string {
	if c := os.Getenv("CARGO"); c != "" {
		return c
	}
	return engine.DefaultProgram
}

func newProvider() *workspace.CargoProvider {
	return &workspace.CargoProvider{Cargo: cargoBin(), ManifestPath: manifestPath}
}

// queryMetadata runs cargo metadata once for the command.
func queryMetadata(cmd *cobra.Command) (*workspace.Metadata, error) {
	return newProvider().Metadata(cmd.Context())
}

// newLogger builds the diagnostic logger for cfg.Log.
func newLogger(cfg *config.Config, meta *workspace.Metadata) (*slog.Logger, io.Closer, error) {
	target, err := logging.ParseTarget(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		Target:  target,
		Dir:     meta.TargetDirectory,
		Verbose: verbose,
	})
}

func runOptions(cfg *config.Config, args []string) engine.RunOptions {
	buildArgs := cfg.Args
	if len(args) > 0 {
		buildArgs = args
	}
	return engine.RunOptions{
		Subcommand:     cfg.Subcommand,
		Args:           buildArgs,
		Reset:          reset,
		StaleThreshold: cfg.StaleThreshold(),
		StateFile:      cfg.StateFile,
		Extensions:     cfg.Extensions,
		Ignore:         cfg.Ignore,
		GlobalIgnore:   cfg.UseGlobalIgnore(),
		Jobs:           cfg.Jobs,
	}
}

// writeMetrics writes the metrics file if configured. Failures are logged.
func writeMetrics(rec *metrics.Recorder, cfg *config.Config, logger *slog.Logger) {
	if cfg.MetricsFile == "" {
		return
	}
	if err := rec.WriteFile(cfg.MetricsFile); err != nil {
		logger.Warn("writing metrics", logging.Path(cfg.MetricsFile), logging.Error(err))
	}
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// notice prints a line to stderr unless quiet mode is active.
func notice(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, "check-delta: "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

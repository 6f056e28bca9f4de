package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/bianoble/check-delta/internal/ledger"
	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/runner"
)

// DefaultProgram is the build tool invoked per package.
const DefaultProgram = "cargo"

// Dispatcher builds packages one at a time and stops at the first failure.
type Dispatcher struct {
	Runner  runner.Runner
	Program string
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Command returns the invocation for building root.
func (d *Dispatcher) Command(root, subcommand string, args []string) runner.Command {
	program := d.Program
	if program == "" {
		program = DefaultProgram
	}
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, subcommand)
	argv = append(argv, args...)
	return runner.Command{Program: program, Args: argv, Dir: root}
}

// Dispatch builds each root of plan in order, updating led as it goes.
// It returns the builds attempted and the roots never reached. A cancelled
// context stops the loop before the next build.
func (d *Dispatcher) Dispatch(ctx context.Context, plan []string, subcommand string, args []string, led *ledger.Ledger) ([]BuildResult, []string, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var builds []BuildResult
	for i, root := range plan {
		if err := ctx.Err(); err != nil {
			return builds, plan[i:], err
		}

		cmd := d.Command(root, subcommand, args)
		logger.Info("building", logging.Package(root), logging.Command(cmd.String()))

		start := time.Now()
		code, err := d.Runner.Run(ctx, cmd)
		b := BuildResult{Package: root, ExitCode: code, Duration: time.Since(start), Err: err}
		if err != nil && b.ExitCode == 0 {
			b.ExitCode = runner.ExitCodeUnknown
		}
		builds = append(builds, b)
		d.Metrics.Build(b.OK(), b.Duration.Seconds())

		if b.OK() {
			led.Succeeded(root)
			logger.Debug("build succeeded", logging.Package(root), logging.Duration(b.Duration))
			continue
		}

		led.Failed(root)
		logger.Error("build failed",
			logging.Package(root),
			logging.ExitCode(b.ExitCode),
			logging.Duration(b.Duration),
			logging.Error(err))
		return builds, plan[i+1:], nil
	}
	return builds, nil, nil
}

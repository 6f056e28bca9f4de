// Package logging builds the slog logger for a run and names the fields the
// rest of the code logs with.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Target selects where diagnostic lines go.
type Target string

const (
	TargetStderr Target = "stderr"
	TargetFile   Target = "file"
	TargetNone   Target = "none"
)

// LogFileName is the log file written under the target directory.
const LogFileName = "cargo-check-delta.log"

// Targets lists the accepted values in display order.
var Targets = []Target{TargetStderr, TargetFile, TargetNone}

// ParseTarget accepts a target name case-insensitively. "std-err" is
// accepted as an alias of stderr.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stderr", "std-err":
		return TargetStderr, nil
	case "file":
		return TargetFile, nil
	case "none":
		return TargetNone, nil
	}
	return "", fmt.Errorf("invalid log target '%s': must be one of: stderr, file, none", s)
}

// String implements pflag.Value.
func (t *Target) String() string {
	if t == nil || *t == "" {
		return string(TargetStderr)
	}
	return string(*t)
}

// Set implements pflag.Value.
func (t *Target) Set(s string) error {
	v, err := ParseTarget(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Type implements pflag.Value.
func (t *Target) Type() string {
	return "stderr|file|none"
}

// Options configures New.
type Options struct {
	Target Target
	// Dir holds the log file for TargetFile.
	Dir     string
	Verbose bool
	// Stderr overrides os.Stderr for TargetStderr.
	Stderr io.Writer
}

// New builds a logger for opts. The returned closer releases the log file
// and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch opts.Target {
	case TargetNone:
		return slog.New(slog.DiscardHandler), nopCloser{}, nil

	case TargetFile:
		if opts.Dir == "" {
			return nil, nopCloser{}, fmt.Errorf("log target 'file' needs a directory")
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nopCloser{}, fmt.Errorf("creating log directory %s: %w", opts.Dir, err)
		}
		path := filepath.Join(opts.Dir, LogFileName)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("opening log file %s: %w", path, err)
		}
		return slog.New(slog.NewTextHandler(f, handlerOpts)), f, nil

	case TargetStderr, "":
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nopCloser{}, nil
	}

	return nil, nopCloser{}, fmt.Errorf("invalid log target '%s'", opts.Target)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Package scan walks a workspace and records the modification time of every
// tracked source file.
//
// Top-level directories are walked concurrently by a bounded pool of
// workers, all writing into one Collector. Hidden entries, the build target
// directory, symlinks and anything matched by .gitignore/.ignore files (or
// configured patterns) are skipped. A file that cannot be stat'ed is left
// out silently.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/bianoble/check-delta/internal/snapshot"
)

// DefaultExtensions selects Rust sources.
var DefaultExtensions = []string{".rs"}

// Scanner walks Root and builds a snapshot.
type Scanner struct {
	// Root is the directory to walk; snapshot keys are relative to it.
	Root string
	// TargetDir is never descended into, whether ignored or not.
	TargetDir string
	// Extensions lists the file suffixes to record; empty means DefaultExtensions.
	Extensions []string
	// Ignore holds extra gitignore-style patterns applied from Root.
	Ignore []string
	// GlobalIgnore also applies the user's and system's git excludes.
	GlobalIgnore bool
	// Jobs bounds concurrent directory walkers; 0 means GOMAXPROCS, 1 walks sequentially.
	Jobs int
	// Logger receives debug output; nil means slog.Default().
	Logger *slog.Logger
}

// Stats counts what a scan saw.
type Stats struct {
	Files   int
	Dirs    int64
	Ignored int64
	Failed  int64
}

type walker struct {
	s         *Scanner
	root      string
	target    string
	exts      []string
	collector *Collector
	dirs      atomic.Int64
	ignored   atomic.Int64
	failed    atomic.Int64
}

// Scan walks the tree and returns a snapshot captured at now.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (snapshot.Snapshot, Stats, error) {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return snapshot.Snapshot{}, Stats{}, fmt.Errorf("resolving scan root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return snapshot.Snapshot{}, Stats{}, fmt.Errorf("stat scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return snapshot.Snapshot{}, Stats{}, fmt.Errorf("scan root %s is not a directory", root)
	}

	w := &walker{
		s:         s,
		root:      root,
		exts:      s.Extensions,
		collector: NewCollector(),
	}
	if len(w.exts) == 0 {
		w.exts = DefaultExtensions
	}
	if s.TargetDir != "" {
		if t, err := filepath.Abs(s.TargetDir); err == nil {
			w.target = t
		}
	}

	patterns := dirPatterns(root, nil, basePatterns(s.Ignore, s.GlobalIgnore))
	subdirs := w.visitDir(root, nil, patterns)

	jobs := s.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, sd := range subdirs {
		g.Go(func() error {
			return w.walk(gctx, sd.abs, sd.parts, sd.patterns)
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot.Snapshot{}, Stats{}, err
	}

	files := w.collector.Freeze()
	stats := Stats{
		Files:   len(files),
		Dirs:    w.dirs.Load(),
		Ignored: w.ignored.Load(),
		Failed:  w.failed.Load(),
	}
	w.logger().Debug("Scan complete",
		"root", root,
		"files", stats.Files,
		"dirs", stats.Dirs,
		"ignored", stats.Ignored,
		"failed", stats.Failed)
	return snapshot.FromFiles(now, files), stats, nil
}

type pendingDir struct {
	abs      string
	parts    []string
	patterns []gitignore.Pattern
}

func (w *walker) walk(ctx context.Context, dir string, parts []string, inherited []gitignore.Pattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patterns := dirPatterns(dir, parts, inherited)
	for _, sd := range w.visitDir(dir, parts, patterns) {
		if err := w.walk(ctx, sd.abs, sd.parts, sd.patterns); err != nil {
			return err
		}
	}
	return nil
}

// visitDir records matching files in dir and returns the subdirectories
// still to walk.
func (w *walker) visitDir(dir string, parts []string, patterns []gitignore.Pattern) []pendingDir {
	w.dirs.Add(1)

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.failed.Add(1)
		w.logger().Debug("Skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	matcher := gitignore.NewMatcher(patterns)
	var subdirs []pendingDir
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		abs := filepath.Join(dir, name)
		childParts := append(append(make([]string, 0, len(parts)+1), parts...), name)

		switch {
		case e.IsDir():
			if w.target != "" && abs == w.target {
				continue
			}
			if matcher.Match(childParts, true) {
				w.ignored.Add(1)
				continue
			}
			subdirs = append(subdirs, pendingDir{abs: abs, parts: childParts, patterns: patterns})

		case e.Type().IsRegular():
			if !w.tracked(name) {
				continue
			}
			if matcher.Match(childParts, false) {
				w.ignored.Add(1)
				continue
			}
			info, err := e.Info()
			if err != nil {
				w.failed.Add(1)
				continue
			}
			w.collector.Add(filepath.Join(childParts...), info.ModTime())
		}
	}
	return subdirs
}

func (w *walker) tracked(name string) bool {
	for _, ext := range w.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (w *walker) logger() *slog.Logger {
	if w.s.Logger != nil {
		return w.s.Logger
	}
	return slog.Default()
}

// Package watch re-runs the incremental build whenever tracked sources
// change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/scan"
)

// DefaultDebounce is the quiet period after the last event before a run.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc performs one incremental run.
type RunFunc func(ctx context.Context) error

// Watcher runs once, then again after every settled burst of changes.
type Watcher struct {
	Root       string
	TargetDir  string
	Extensions []string

	// Ignore and GlobalIgnore select ignored directories as a scan does.
	Ignore       []string
	GlobalIgnore bool

	Debounce time.Duration
	Run      RunFunc
	Logger   *slog.Logger

	// OnRun, if set, observes the outcome of every run.
	OnRun func(err error)

	root    string
	target  string
	matcher *scan.Matcher
}

// Watch blocks until ctx is cancelled. Failed runs are logged and do not
// end the loop.
func (w *Watcher) Watch(ctx context.Context) error {
	root, err := filepath.Abs(w.Root)
	if err != nil {
		return fmt.Errorf("resolving watch root: %w", err)
	}
	target := ""
	if w.TargetDir != "" {
		if t, err := filepath.Abs(w.TargetDir); err == nil {
			target = t
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fsw.Close()

	w.root = root
	w.target = target
	w.matcher = scan.NewMatcher(root, w.Ignore, w.GlobalIgnore)
	if err := w.addDirsRecursive(fsw, root); err != nil {
		return err
	}

	// Buffer of one: a request arriving during a run is kept, further ones
	// coalesce into it.
	runReq := make(chan struct{}, 1)
	request := func() {
		select {
		case runReq <- struct{}{}:
		default:
		}
	}
	delay := w.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	debouncer := NewDebouncer(delay, request)
	defer debouncer.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-runReq:
				w.runOnce(ctx)
			}
		}
	}()

	request()
	w.logger().Info("Watching for changes", logging.Path(root), slog.Duration("debounce", delay))

	for {
		select {
		case <-ctx.Done():
			debouncer.Stop()
			<-done
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(fsw, ev) {
				debouncer.Trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger().Warn("watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	err := w.Run(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger().Warn("run failed; still watching", logging.Error(err))
	}
	if w.OnRun != nil {
		w.OnRun(err)
	}
}

// handleEvent reports whether ev may change the next snapshot. New
// directories are added to the watch list.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	if w.target != "" && (ev.Name == w.target || strings.HasPrefix(ev.Name, w.target+string(filepath.Separator))) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if w.matcher.Ignored(ev.Name, true) {
				return false
			}
			_ = w.addDirsRecursive(fsw, ev.Name)
			return true
		}
	}

	// A removed or renamed path may have been a directory of sources.
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.logger().Debug("path removed", logging.Path(ev.Name))
		return true
	}

	if !w.tracked(ev.Name) || w.matcher.Ignored(ev.Name, false) {
		return false
	}
	w.logger().Debug("source changed", logging.Path(ev.Name), slog.String("op", ev.Op.String()))
	return true
}

func (w *Watcher) tracked(path string) bool {
	exts := w.Extensions
	if len(exts) == 0 {
		exts = scan.DefaultExtensions
	}
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// addDirsRecursive watches dir and every directory below it that a scan
// would descend into.
func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if strings.HasPrefix(d.Name(), ".") || path == w.target || w.matcher.Ignored(path, true) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			w.logger().Warn("watch add failed", logging.Path(path), logging.Error(err))
		}
		return nil
	})
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

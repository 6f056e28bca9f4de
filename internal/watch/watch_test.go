package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalesces(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func() { fired.Add(1) })
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncerStop(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { fired.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

type harness struct {
	root   string
	runs   chan error
	cancel context.CancelFunc
	done   chan error
}

func startWatcher(t *testing.T, runErr error) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target", "debug"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "generated"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\nscratch/\n"), 0644))

	h := &harness{root: root, runs: make(chan error, 16), done: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	w := &Watcher{
		Root:      root,
		TargetDir: filepath.Join(root, "target"),
		Debounce:  50 * time.Millisecond,
		Run:       func(ctx context.Context) error { return runErr },
		OnRun:     func(err error) { h.runs <- err },
	}
	go func() { h.done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})

	// Initial run.
	select {
	case <-h.runs:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial run")
	}
	return h
}

func (h *harness) expectRun(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.runs:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("expected a run")
		return nil
	}
}

func (h *harness) expectNoRun(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case <-h.runs:
		t.Fatal("unexpected run")
	case <-time.After(wait):
	}
}

func TestWatchRunsOnSourceChange(t *testing.T) {
	h := startWatcher(t, nil)

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", "src", "lib.rs"), []byte("fn a() {}"), 0644))
	assert.NoError(t, h.expectRun(t))
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	h := startWatcher(t, nil)

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "target", "debug", "out.rs"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", ".hidden.rs"), []byte("x"), 0644))
	h.expectNoRun(t, 300*time.Millisecond)
}

func TestWatchSkipsIgnoredDirectories(t *testing.T) {
	h := startWatcher(t, nil)

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "generated", "bindings.rs"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "scratch", "src"), 0755))
	h.expectNoRun(t, 300*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "scratch", "src", "lib.rs"), []byte("x"), 0644))
	h.expectNoRun(t, 300*time.Millisecond)
}

func TestWatchPicksUpNewDirectories(t *testing.T) {
	h := startWatcher(t, nil)

	dir := filepath.Join(h.root, "b", "src")
	require.NoError(t, os.MkdirAll(dir, 0755))
	h.expectRun(t)

	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte("fn b() {}"), 0644))
	h.expectRun(t)
}

func TestWatchKeepsGoingAfterFailure(t *testing.T) {
	h := startWatcher(t, errors.New("build failed"))

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", "src", "lib.rs"), []byte("1"), 0644))
	assert.Error(t, h.expectRun(t))

	require.NoError(t, os.WriteFile(filepath.Join(h.root, "a", "src", "main.rs"), []byte("2"), 0644))
	assert.Error(t, h.expectRun(t))
}

func TestWatchStopsOnCancel(t *testing.T) {
	h := startWatcher(t, nil)
	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestTracked(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.tracked("/ws/a/src/lib.rs"))
	assert.False(t, w.tracked("/ws/a/Cargo.toml"))

	w.Extensions = []string{".toml"}
	assert.True(t, w.tracked("/ws/a/Cargo.toml"))
}

package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func keys(m map[string]time.Time) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, filepath.ToSlash(k))
	}
	return out
}

func TestScanSelectsExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/src/lib.rs":   "",
		"a/Cargo.toml":   "",
		"a/README.md":    "",
		"b/src/main.rs":  "",
		"b/src/mod/x.rs": "",
		"top.rs":         "",
	})

	s := &Scanner{Root: root, Jobs: 2}
	snap, stats, err := s.Scan(context.Background(), time.Unix(100, 0))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a/src/lib.rs", "b/src/main.rs", "b/src/mod/x.rs", "top.rs"}, keys(snap.Files))
	assert.Equal(t, 4, stats.Files)
	assert.True(t, snap.CapturedAt.Equal(time.Unix(100, 0)))
}

func TestScanRecordsModTime(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/lib.rs": ""})
	mod := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "src", "lib.rs"), mod, mod))

	snap, _, err := (&Scanner{Root: root}).Scan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.True(t, snap.Files[filepath.Join("src", "lib.rs")].Equal(mod))
}

func TestScanHonorsIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":             "generated/\n# comment\n\n*.bak.rs\n",
		"a/.gitignore":           "fixtures/\n",
		"b/.ignore":              "skip.rs\n",
		"a/src/lib.rs":           "",
		"a/fixtures/data.rs":     "",
		"b/fixtures/data.rs":     "",
		"b/skip.rs":              "",
		"b/keep.rs":              "",
		"generated/out.rs":       "",
		"c/generated/nested.rs":  "",
		"c/old.bak.rs":           "",
		".hidden/src/lib.rs":     "",
	})

	snap, stats, err := (&Scanner{Root: root, Jobs: 3}).Scan(context.Background(), time.Now())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a/src/lib.rs", "b/fixtures/data.rs", "b/keep.rs"}, keys(snap.Files))
	assert.Positive(t, stats.Ignored)
}

func TestMatcherAgreesWithScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":   "generated/\n*.bak.rs\n",
		"a/.gitignore": "fixtures/\n",
		"a/src/lib.rs": "",
	})

	m := NewMatcher(root, []string{"benches/"}, false)
	assert.True(t, m.Ignored(filepath.Join(root, "generated"), true))
	assert.True(t, m.Ignored(filepath.Join(root, "c", "generated"), true))
	assert.True(t, m.Ignored(filepath.Join(root, "a", "fixtures"), true))
	assert.True(t, m.Ignored(filepath.Join(root, "benches"), true))
	assert.True(t, m.Ignored(filepath.Join("c", "old.bak.rs"), false))

	assert.False(t, m.Ignored(filepath.Join(root, "b", "fixtures"), true))
	assert.False(t, m.Ignored(filepath.Join(root, "a", "src", "lib.rs"), false))
	assert.False(t, m.Ignored(root, true))
	assert.False(t, m.Ignored(filepath.Dir(root), true))
}

func TestSplitRel(t *testing.T) {
	assert.Nil(t, splitRel(""))
	assert.Nil(t, splitRel("."))
	assert.Equal(t, []string{"a", "src", "lib.rs"}, splitRel(filepath.Join("a", "src", "lib.rs")))
}

func TestScanExtraPatternsAndTargetDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"target/debug/build/out.rs": "",
		"benches/bench.rs":          "",
		"src/lib.rs":                "",
	})

	s := &Scanner{
		Root:      root,
		TargetDir: filepath.Join(root, "target"),
		Ignore:    []string{"benches/"},
	}
	snap, _, err := s.Scan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/lib.rs"}, keys(snap.Files))
}

func TestScanSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/lib.rs": ""})
	require.NoError(t, os.Symlink(filepath.Join(root, "src", "lib.rs"), filepath.Join(root, "src", "alias.rs")))

	snap, _, err := (&Scanner{Root: root}).Scan(context.Background(), time.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/lib.rs"}, keys(snap.Files))
}

func TestScanSequentialAndParallelAgree(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			files[fmt.Sprintf("crate%02d/src/m%d.rs", i, j)] = ""
		}
	}
	writeTree(t, root, files)

	seq, _, err := (&Scanner{Root: root, Jobs: 1}).Scan(context.Background(), time.Now())
	require.NoError(t, err)
	par, _, err := (&Scanner{Root: root, Jobs: 8}).Scan(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Len(t, seq.Files, 100)
	assert.Equal(t, seq.Files, par.Files)
}

func TestScanRootErrors(t *testing.T) {
	_, _, err := (&Scanner{Root: filepath.Join(t.TempDir(), "missing")}).Scan(context.Background(), time.Now())
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.rs")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, _, err = (&Scanner{Root: file}).Scan(context.Background(), time.Now())
	require.ErrorContains(t, err, "not a directory")
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/x.rs": "", "b/y.rs": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := (&Scanner{Root: root}).Scan(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCollectorConcurrentAdds(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				c.Add(fmt.Sprintf("w%d/f%d.rs", w, i), time.Unix(int64(i), 0))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 2000, c.Len())
	files := c.Freeze()
	assert.Len(t, files, 2000)

	c.Add("late.rs", time.Now())
	assert.Len(t, files, 2000, "adds after Freeze are dropped")
}

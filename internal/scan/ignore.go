package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFiles are read in every directory, in this order.
var ignoreFiles = []string{".gitignore", ".ignore"}

// readIgnoreFile parses one ignore file into patterns scoped to domain.
// A missing or unreadable file yields no patterns.
func readIgnoreFile(path string, domain []string) []gitignore.Pattern {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ps []gitignore.Pattern
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}
	return ps
}

// dirPatterns returns inherited extended with the ignore files found in dir.
// inherited is never modified.
func dirPatterns(dir string, domain []string, inherited []gitignore.Pattern) []gitignore.Pattern {
	var own []gitignore.Pattern
	for _, name := range ignoreFiles {
		own = append(own, readIgnoreFile(filepath.Join(dir, name), domain)...)
	}
	if len(own) == 0 {
		return inherited
	}
	out := make([]gitignore.Pattern, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	return append(out, own...)
}

// basePatterns returns the user's global git excludes followed by extra
// patterns, all scoped to the scan root.
func basePatterns(extra []string, global bool) []gitignore.Pattern {
	var ps []gitignore.Pattern
	if global {
		root := osfs.New(string(filepath.Separator))
		if sys, err := gitignore.LoadSystemPatterns(root); err == nil {
			ps = append(ps, sys...)
		}
		if user, err := gitignore.LoadGlobalPatterns(root); err == nil {
			ps = append(ps, user...)
		}
	}
	for _, p := range extra {
		if strings.TrimSpace(p) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return ps
}

// splitRel turns a root-relative path into the component slice the
// gitignore matcher expects.
func splitRel(rel string) []string {
	if rel == "" || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// Matcher answers ignore queries for single paths under a root, applying
// the same rules as a scan. Ignore files are read once per directory.
type Matcher struct {
	root string
	base []gitignore.Pattern

	mu   sync.Mutex
	dirs map[string][]gitignore.Pattern
}

// NewMatcher returns a Matcher for root with extra patterns, optionally
// including the global git excludes.
func NewMatcher(root string, extra []string, global bool) *Matcher {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Matcher{
		root: root,
		base: basePatterns(extra, global),
		dirs: make(map[string][]gitignore.Pattern),
	}
}

// Ignored reports whether path is excluded. Paths outside the root and the
// root itself are never ignored.
func (m *Matcher) Ignored(path string, isDir bool) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil {
			return false
		}
		rel = r
	}
	parts := splitRel(rel)
	if len(parts) == 0 || parts[0] == ".." {
		return false
	}
	patterns := m.patternsFor(parts[:len(parts)-1])
	return gitignore.NewMatcher(patterns).Match(parts, isDir)
}

// patternsFor returns the patterns in effect inside the directory dir,
// given as components relative to the root.
func (m *Matcher) patternsFor(dir []string) []gitignore.Pattern {
	key := strings.Join(dir, "/")
	m.mu.Lock()
	ps, ok := m.dirs[key]
	m.mu.Unlock()
	if ok {
		return ps
	}

	if len(dir) == 0 {
		ps = dirPatterns(m.root, nil, m.base)
	} else {
		parent := m.patternsFor(dir[:len(dir)-1])
		ps = dirPatterns(filepath.Join(append([]string{m.root}, dir...)...), dir, parent)
	}

	m.mu.Lock()
	m.dirs[key] = ps
	m.mu.Unlock()
	return ps
}

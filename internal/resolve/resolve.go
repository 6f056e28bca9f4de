// Package resolve maps changed file paths to the workspace package that owns
// them.
//
// A path belongs to a package when its canonical form lies inside the
// package root on a directory boundary. When package roots are nested, the
// deepest matching root wins, so every path maps to at most one package.
package resolve

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps paths to package roots. Construct with New; the zero value
// owns nothing.
type Resolver struct {
	base  string
	roots []root
}

type root struct {
	canonical string // symlink-resolved, used for matching
	reported  string // as given by the workspace metadata
}

// Result groups the changed paths by owning package.
type Result struct {
	// Affected lists the owning package roots in lexical order.
	Affected []string
	// Paths maps each affected root to the changed paths it owns, in the
	// form they were passed to Resolve.
	Paths map[string][]string
	// Unowned lists paths outside every package root.
	Unowned []string
}

// New creates a Resolver for the given package roots. Relative paths passed
// to Resolve are interpreted against base, which is usually the workspace
// root the scanner walked.
func New(base string, packageRoots []string) *Resolver {
	absBase, err := filepath.Abs(base)
	if err != nil {
		absBase = filepath.Clean(base)
	}

	r := &Resolver{base: absBase}
	seen := make(map[string]bool, len(packageRoots))
	for _, pr := range packageRoots {
		if pr == "" || seen[pr] {
			continue
		}
		seen[pr] = true
		r.roots = append(r.roots, root{canonical: Canonicalize(r.abs(pr)), reported: pr})
	}

	// Deepest first so the first match is the most specific root.
	sort.SliceStable(r.roots, func(i, j int) bool {
		di, dj := depth(r.roots[i].canonical), depth(r.roots[j].canonical)
		if di != dj {
			return di > dj
		}
		return r.roots[i].canonical < r.roots[j].canonical
	})
	return r
}

// Resolve returns the packages owning the given paths.
func (r *Resolver) Resolve(paths []string) Result {
	res := Result{Paths: make(map[string][]string)}
	for _, p := range paths {
		owner, ok := r.Owner(p)
		if !ok {
			res.Unowned = append(res.Unowned, p)
			continue
		}
		if _, seen := res.Paths[owner]; !seen {
			res.Affected = append(res.Affected, owner)
		}
		res.Paths[owner] = append(res.Paths[owner], p)
	}
	sort.Strings(res.Affected)
	return res
}

// Owner returns the root of the deepest package containing path.
func (r *Resolver) Owner(path string) (string, bool) {
	canonical := Canonicalize(r.abs(path))
	for _, rt := range r.roots {
		if Contains(rt.canonical, canonical) {
			return rt.reported, true
		}
	}
	return "", false
}

func (r *Resolver) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.base, p)
}

// Contains reports whether path equals dir or lies beneath it. Both must be
// clean absolute paths. The comparison adds a trailing separator to dir so
// that "/ws/crate" does not contain "/ws/crate2".
func Contains(dir, path string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Canonicalize resolves symlinks in an absolute path. When the path no
// longer exists, which is the normal case for removed files, the longest
// existing prefix is resolved and the missing suffix appended unchanged.
func Canonicalize(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved
	}
	if !os.IsNotExist(err) {
		return filepath.Clean(path)
	}

	dir := filepath.Dir(path)
	if dir == path {
		return path
	}
	return filepath.Join(Canonicalize(dir), filepath.Base(path))
}

func depth(p string) int {
	return strings.Count(p, string(filepath.Separator))
}

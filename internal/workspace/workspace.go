// Package workspace queries the build tool for the workspace layout: where
// build output goes and which packages the workspace contains.
package workspace

import (
	"context"
	"fmt"
	"strings"
)

// Package is one buildable workspace member.
type Package struct {
	ID           string
	Name         string
	ManifestPath string
	Root         string // directory containing ManifestPath
}

// Metadata is the workspace layout, queried once per run and then treated
// as read-only.
type Metadata struct {
	WorkspaceRoot   string
	TargetDirectory string
	Packages        []Package
}

// Roots returns the package root directories in metadata order.
func (m *Metadata) Roots() []string {
	out := make([]string, 0, len(m.Packages))
	for _, p := range m.Packages {
		out = append(out, p.Root)
	}
	return out
}

// PackageByRoot returns the package with the given root.
func (m *Metadata) PackageByRoot(root string) (Package, bool) {
	for _, p := range m.Packages {
		if p.Root == root {
			return p, true
		}
	}
	return Package{}, false
}

// HasRoot reports whether root is the root of a workspace package.
func (m *Metadata) HasRoot(root string) bool {
	_, ok := m.PackageByRoot(root)
	return ok
}

// Provider supplies workspace metadata.
type Provider interface {
	Metadata(ctx context.Context) (*Metadata, error)
}

// MetadataError reports a failed metadata query.
type MetadataError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *MetadataError) Error() string {
	msg := fmt.Sprintf("querying workspace metadata (%s): %s", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Static is a Provider returning fixed metadata.
type Static struct {
	Meta *Metadata
}

func (s Static) Metadata(ctx context.Context) (*Metadata, error) {
	if s.Meta == nil {
		return nil, &MetadataError{Command: "static", Err: fmt.Errorf("no metadata configured")}
	}
	return s.Meta, nil
}

package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// CargoProvider runs `cargo metadata` to describe the workspace.
type CargoProvider struct {
	// Cargo is the cargo executable; empty means "cargo" from PATH.
	Cargo string
	// ManifestPath selects a workspace other than the current directory's.
	ManifestPath string
	// Dir is the working directory for the query; empty means the current one.
	Dir string
}

type cargoMetadata struct {
	Packages []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		ManifestPath string `json:"manifest_path"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	TargetDirectory  string   `json:"target_directory"`
	WorkspaceRoot    string   `json:"workspace_root"`
}

// Args returns the cargo arguments used for the query.
func (p *CargoProvider) Args() []string {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if p.ManifestPath != "" {
		args = append(args, "--manifest-path", p.ManifestPath)
	}
	return args
}

func (p *CargoProvider) Metadata(ctx context.Context) (*Metadata, error) {
	bin := p.Cargo
	if bin == "" {
		bin = "cargo"
	}
	args := p.Args()
	cmdline := bin + " " + strings.Join(args, " ")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = p.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &MetadataError{Command: cmdline, Stderr: stderr.String(), Err: err}
	}

	meta, err := ParseCargoMetadata(stdout.Bytes())
	if err != nil {
		return nil, &MetadataError{Command: cmdline, Err: err}
	}
	return meta, nil
}

// ParseCargoMetadata decodes `cargo metadata --format-version 1` output and
// keeps only workspace members, sorted by root.
func ParseCargoMetadata(data []byte) (*Metadata, error) {
	var raw cargoMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing cargo metadata: %w", err)
	}
	if raw.TargetDirectory == "" {
		return nil, fmt.Errorf("cargo metadata has no target_directory")
	}

	members := make(map[string]bool, len(raw.WorkspaceMembers))
	for _, id := range raw.WorkspaceMembers {
		members[id] = true
	}

	meta := &Metadata{
		WorkspaceRoot:   filepath.Clean(raw.WorkspaceRoot),
		TargetDirectory: filepath.Clean(raw.TargetDirectory),
	}
	for _, pkg := range raw.Packages {
		if len(members) > 0 && !members[pkg.ID] {
			continue
		}
		if pkg.ManifestPath == "" {
			return nil, fmt.Errorf("package '%s' has no manifest_path", pkg.Name)
		}
		manifest := filepath.Clean(pkg.ManifestPath)
		meta.Packages = append(meta.Packages, Package{
			ID:           pkg.ID,
			Name:         pkg.Name,
			ManifestPath: manifest,
			Root:         filepath.Dir(manifest),
		})
	}

	sort.Slice(meta.Packages, func(i, j int) bool {
		return meta.Packages[i].Root < meta.Packages[j].Root
	})
	return meta, nil
}

package engine

import (
	"os"
	"path/filepath"

	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/state"
	"github.com/bianoble/check-delta/internal/workspace"
)

// ConfigLayerStatus describes a config layer's load status for display.
type ConfigLayerStatus struct {
	Level  string // "system", "user", "project"
	Path   string
	Loaded bool
}

// PackageInfo describes a workspace member.
type PackageInfo struct {
	Name string
	Root string
}

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version       string
	ConfigChain   []ConfigLayerStatus
	WorkspaceRoot string
	TargetDir     string
	StatePath     string
	StateSize     int64
	LogPath       string
	Packages      []PackageInfo
}

// Info gathers tool information. Every config layer that was considered is
// listed, whether or not it was found.
func Info(version string, considered []config.ConfigLayerInfo, loaded []config.ConfigLayerInfo, meta *workspace.Metadata, stateFile string) *InfoResult {
	r := &InfoResult{Version: version}

	found := make(map[string]bool, len(loaded))
	for _, l := range loaded {
		found[l.Path] = true
	}
	for _, l := range considered {
		r.ConfigChain = append(r.ConfigChain, ConfigLayerStatus{
			Level:  string(l.Level),
			Path:   l.Path,
			Loaded: found[l.Path],
		})
	}

	if meta == nil {
		return r
	}
	r.WorkspaceRoot = meta.WorkspaceRoot
	r.TargetDir = meta.TargetDirectory
	r.StatePath = state.Path(meta.TargetDirectory, stateFile)
	r.LogPath = filepath.Join(meta.TargetDirectory, logging.LogFileName)
	if fi, err := os.Stat(r.StatePath); err == nil {
		r.StateSize = fi.Size()
	}
	for _, p := range meta.Packages {
		r.Packages = append(r.Packages, PackageInfo{Name: p.Name, Root: p.Root})
	}
	return r
}

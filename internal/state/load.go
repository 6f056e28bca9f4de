package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
)

// Load reads the state file at path. It never fails: a missing, unreadable,
// unparsable or invalid file yields Empty(now), and the returned LoadInfo
// says why.
func Load(path string, now time.Time) (*State, LoadInfo) {
	data, err := os.ReadFile(path)
	if err != nil {
		status := StatusCorrupt
		if errors.Is(err, fs.ErrNotExist) {
			status = StatusMissing
		}
		return Empty(now), LoadInfo{Status: status, Err: fmt.Errorf("reading state %s: %w", path, err)}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return Empty(now), LoadInfo{Status: StatusCorrupt, Err: fmt.Errorf("parsing state %s: %w", path, err)}
	}

	if errs := Validate(&st); len(errs) > 0 {
		return Empty(now), LoadInfo{Status: StatusInvalid, Err: &ValidationError{Errors: errs}}
	}

	if st.Files == nil {
		st.Files = map[string]time.Time{}
	}
	if st.FailedCrates == nil {
		st.FailedCrates = []string{}
	}
	return &st, LoadInfo{Status: StatusLoaded}
}

// Save writes the state atomically: the canonical JSON encoding goes to a
// temp file in the same directory, which is synced and renamed over path.
func Save(path string, st *State) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".check-delta-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp state file to %s: %w", path, err)
	}

	success = true
	return nil
}

// Encode returns the RFC 8785 canonical JSON form of st, so equal states
// always produce identical bytes.
func Encode(st *State) ([]byte, error) {
	if st.Files == nil || st.FailedCrates == nil {
		cp := *st
		if cp.Files == nil {
			cp.Files = map[string]time.Time{}
		}
		if cp.FailedCrates == nil {
			cp.FailedCrates = []string{}
		}
		st = &cp
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshaling state: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing state: %w", err)
	}
	return canonical, nil
}

// Digest returns the sha256 of the canonical form of the state file at
// path, or an error if it cannot be read or is not JSON.
func Digest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading state %s: %w", path, err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalizing state %s: %w", path, err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Remove deletes the state file. A missing file is not an error; the
// returned bool reports whether something was removed.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing state %s: %w", path, err)
	}
	return true, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a decoded State for structural problems.
// Returns a list of validation error messages (empty if valid).
func Validate(st *State) []string {
	var errs []string

	if st.LastUpdate.IsZero() {
		errs = append(errs, "'last_update' is missing")
	}

	for p, mod := range st.Files {
		if p == "" {
			errs = append(errs, "files: empty path key")
		}
		if mod.IsZero() {
			errs = append(errs, fmt.Sprintf("files: '%s' has no timestamp", p))
		}
	}

	seen := make(map[string]bool, len(st.FailedCrates))
	for i, root := range st.FailedCrates {
		switch {
		case root == "":
			errs = append(errs, fmt.Sprintf("failed_crates[%d]: empty package root", i))
		case seen[root]:
			errs = append(errs, fmt.Sprintf("failed_crates[%d]: duplicate package root '%s'", i, root))
		default:
			seen[root] = true
		}
	}

	return errs
}

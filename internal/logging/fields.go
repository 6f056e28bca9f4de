package logging

import (
	"log/slog"
	"time"
)

// Canonical log field names.
const (
	KeyRunID      = "run_id"
	KeyPackage    = "package"
	KeyPath       = "path"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyVerdict    = "verdict"
	KeyStateFile  = "state_file"
	KeyCommand    = "command"
	KeyError      = "error"
)

func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Package(root string) slog.Attr      { return slog.String(KeyPackage, root) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func ExitCode(code int) slog.Attr        { return slog.Int(KeyExitCode, code) }
func Verdict(v string) slog.Attr         { return slog.String(KeyVerdict, v) }
func StateFile(p string) slog.Attr       { return slog.String(KeyStateFile, p) }
func Command(c string) slog.Attr         { return slog.String(KeyCommand, c) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

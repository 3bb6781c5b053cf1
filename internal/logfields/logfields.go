package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyAssetClass = "asset_class"
	KeyStep       = "step"
	KeyFile       = "file"
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyPath       = "path"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyEvent      = "event"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyScope      = "scope"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func AssetClass(id string) slog.Attr  { return slog.String(KeyAssetClass, id) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func File(p string) slog.Attr         { return slog.String(KeyFile, p) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Event(op string) slog.Attr       { return slog.String(KeyEvent, op) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Scope(s string) slog.Attr        { return slog.String(KeyScope, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

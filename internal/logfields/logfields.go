package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeySessionID  = "session_id"
	KeyPass       = "pass"
	KeyCommand    = "command"
	KeyPlugin     = "plugin"
	KeyMode       = "mode"
	KeyTarget     = "target"
	KeyPort       = "port"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyStatus     = "status"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func SessionID(id string) slog.Attr   { return slog.String(KeySessionID, id) }
func Pass(name string) slog.Attr      { return slog.String(KeyPass, name) }
func Command(name string) slog.Attr   { return slog.String(KeyCommand, name) }
func Plugin(id string) slog.Attr      { return slog.String(KeyPlugin, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Target(t string) slog.Attr       { return slog.String(KeyTarget, t) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Package logfields holds canonical slog attribute keys so log records stay
// queryable across packages.
package logfields

import "log/slog"

const (
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyPageID     = "page_id"
	KeySectionID  = "section_id"
	KeyPresetID   = "preset_id"
	KeyTemplateID = "template_id"
	KeySessionID  = "session_id"
	KeyBlockType  = "block_type"
	KeyWarnings   = "warnings"
	KeyIndex      = "index"
	KeyRevision   = "revision"
	KeyError      = "error"
)

func RequestID(id string) slog.Attr     { return slog.String(KeyRequestID, id) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func DurationMS(ms int64) slog.Attr     { return slog.Int64(KeyDurationMS, ms) }
func PageID(id string) slog.Attr        { return slog.String(KeyPageID, id) }
func SectionID(id string) slog.Attr     { return slog.String(KeySectionID, id) }
func PresetID(id string) slog.Attr      { return slog.String(KeyPresetID, id) }
func TemplateID(id string) slog.Attr    { return slog.String(KeyTemplateID, id) }
func SessionID(id string) slog.Attr     { return slog.String(KeySessionID, id) }
func BlockType(t string) slog.Attr      { return slog.String(KeyBlockType, t) }
func Warnings(n int) slog.Attr          { return slog.Int(KeyWarnings, n) }
func Index(name string) slog.Attr       { return slog.String(KeyIndex, name) }
func Revision(hash string) slog.Attr    { return slog.String(KeyRevision, hash) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

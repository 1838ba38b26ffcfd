package manuscript

import "fmt"

// DataIntegrityError reports corrupted manuscript input the engine cannot
// safely reason about. It is always surfaced, never silently repaired.
type DataIntegrityError struct {
	Kind      string // "unknown-chapter", "duplicate-chapter", "unknown-reference-target", ...
	ChapterID string
	Detail    string
}

func (e *DataIntegrityError) Error() string {
	switch {
	case e.ChapterID != "" && e.Detail != "":
		return fmt.Sprintf("manuscript integrity: %s (chapter %s: %s)", e.Kind, e.ChapterID, e.Detail)
	case e.ChapterID != "":
		return fmt.Sprintf("manuscript integrity: %s (chapter %s)", e.Kind, e.ChapterID)
	default:
		return fmt.Sprintf("manuscript integrity: %s", e.Kind)
	}
}

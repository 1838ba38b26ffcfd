package version

import (
	"fmt"
	"time"
)

// ChangeReorder is the only structural change type recorded today
const ChangeReorder = "reorder"

// Change is one append-only structural edit record, written when a
// reordering is applied (never during preview)
type Change struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ChapterID   string    `json:"chapter_id"`
	OldPosition int       `json:"old_position"`
	NewPosition int       `json:"new_position"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Version is a named snapshot of a chapter ordering. It is mutated only
// while it is the current working version; once superseded it is history.
type Version struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ChapterOrder []string  `json:"chapter_order"`
	Created      time.Time `json:"created"`
	IsBase       bool      `json:"is_base"`
	ParentID     string    `json:"parent_id,omitempty"`
	Changes      []Change  `json:"changes"`
}

// clone returns a deep copy safe to hand to callers
func (v *Version) clone() *Version {
	out := *v
	out.ChapterOrder = append([]string(nil), v.ChapterOrder...)
	out.Changes = append([]Change(nil), v.Changes...)
	return &out
}

// VersionNotFoundError is returned when switching to an unknown version id.
// Callers must handle it explicitly; there is no silent base fallback.
type VersionNotFoundError struct {
	ID string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version not found: %s", e.ID)
}

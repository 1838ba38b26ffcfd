package analysis

// CheckType classifies a consistency finding
type CheckType string

const (
	CheckCharacter CheckType = "character"
	CheckPlot      CheckType = "plot"
	CheckTech      CheckType = "tech"
	CheckPacing    CheckType = "pacing"
)

// Severity is the impact level of a finding. Even "error" is advisory data
// about the narrative, never a software fault.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// severityRank orders severities for sorting (error first)
func severityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Check is one consistency finding for a candidate chapter order. Checks are
// freshly allocated on every analysis call and never persisted as state.
type Check struct {
	ID         string    `json:"id"`
	Type       CheckType `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	ChapterIDs []string  `json:"chapter_ids"`
	// AutoFixable marks findings whose remedy is a mechanical reordering
	// rather than a content edit
	AutoFixable bool   `json:"auto_fixable"`
	Suggestion  string `json:"suggestion,omitempty"`
}

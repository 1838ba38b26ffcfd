package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"fablecraft/loom/internal/manuscript"
)

// Config holds analysis parameters
type Config struct {
	// TensionDropThreshold is the largest tension fall between consecutive
	// chapters tolerated without a de-escalation event
	TensionDropThreshold int
	// KeystoneThreshold is the minimum dependency degree for a chapter to
	// count as a keystone in the structure report
	KeystoneThreshold int
	// TopN caps list lengths in reports
	TopN int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TensionDropThreshold: 3,
		KeystoneThreshold:    3,
		TopN:                 10,
	}
}

// deEscalationMarkers are major-event words that justify a sharp tension drop
var deEscalationMarkers = []string{
	"resolution", "resolve", "aftermath", "denouement", "recovery", "respite", "epilogue",
}

// Analyze walks a candidate chapter order left to right and returns every
// consistency finding, ordered by chapter position then severity. The order
// must be a permutation of the manuscript's chapter ids; a malformed order is
// a DataIntegrityError, never silently truncated. An empty order yields an
// empty result, not an error.
func Analyze(snap *manuscript.Snapshot, order []string, cfg *Config) ([]Check, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	// An empty order is a valid degenerate input, not a malformed one
	if len(order) == 0 {
		return []Check{}, nil
	}
	if err := snap.ValidateOrder(order); err != nil {
		return nil, err
	}

	knownConcepts := make(map[string]bool)
	introducedCharacters := make(map[string]bool)
	tensionHistory := make([]int, 0, len(order))
	characterNames := collectCharacterNames(snap)
	techConcepts := collectTechConcepts(snap)
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	checks := make([]Check, 0)
	for i, id := range order {
		ch := snap.Chapter(id)
		var batch []Check

		// Missing required knowledge
		for _, req := range ch.Dependencies.RequiredKnowledge {
			// A character counts as introduced once a chapter has either
			// declared it or narrated from its point of view
			if knownConcepts[req] || introducedCharacters[req] {
				continue
			}
			batch = append(batch, missingKnowledgeCheck(snap, ch, req, characterNames, techConcepts))
		}

		// Forward references
		for _, ref := range ch.Dependencies.References {
			tpos, ok := position[ref.TargetChapterID]
			if !ok || tpos <= i {
				continue
			}
			target := snap.Chapter(ref.TargetChapterID)
			batch = append(batch, Check{
				ID:          fmt.Sprintf("forward-ref:%s:%s", ch.ID, ref.TargetChapterID),
				Type:        CheckPlot,
				Severity:    SeverityWarning,
				Message:     fmt.Sprintf("%q references %q, which comes later in this order", ch.Title, target.Title),
				ChapterIDs:  []string{ch.ID, ref.TargetChapterID},
				AutoFixable: true,
				Suggestion:  fmt.Sprintf("Move %q before %q", target.Title, ch.Title),
			})
		}

		// Pacing: sharp tension drop with no de-escalation beat
		if len(tensionHistory) > 0 {
			prev := snap.Chapter(order[i-1])
			drop := tensionHistory[len(tensionHistory)-1] - ch.Metadata.TensionLevel
			if drop > cfg.TensionDropThreshold && !hasDeEscalationBeat(ch) {
				batch = append(batch, Check{
					ID:       fmt.Sprintf("tension-drop:%s:%s", prev.ID, ch.ID),
					Type:     CheckPacing,
					Severity: SeverityInfo,
					Message: fmt.Sprintf("Tension falls from %d to %d between %q and %q with no de-escalation beat",
						prev.Metadata.TensionLevel, ch.Metadata.TensionLevel, prev.Title, ch.Title),
					ChapterIDs:  []string{prev.ID, ch.ID},
					AutoFixable: false,
					Suggestion:  fmt.Sprintf("Consider a resolution beat in %q or a gentler descent", ch.Title),
				})
			}
		}

		// All simultaneous violations at one chapter are reported; order
		// them by severity within the chapter
		sort.SliceStable(batch, func(a, b int) bool {
			return severityRank(batch[a].Severity) < severityRank(batch[b].Severity)
		})
		checks = append(checks, batch...)

		for _, concept := range ch.Dependencies.Introduces {
			knownConcepts[concept] = true
		}
		if ch.Metadata.POV != "" {
			introducedCharacters[ch.Metadata.POV] = true
		}
		tensionHistory = append(tensionHistory, ch.Metadata.TensionLevel)
	}

	return checks, nil
}

// missingKnowledgeCheck classifies a missing required concept. A missing
// character identity is an error (a reader cannot follow a scene built on an
// unintroduced character); missing tech or plot knowledge is a warning. A
// name counts as a character identity when the registry or a POV carries it,
// or when a chapter introduces it as a proper name outside the tech concepts.
func missingKnowledgeCheck(snap *manuscript.Snapshot, ch *manuscript.Chapter, req string, characterNames, techConcepts map[string]bool) Check {
	ctype := CheckPlot
	severity := SeverityWarning
	_, introduced := snap.Provider(req)
	switch {
	case req == ch.Metadata.POV || characterNames[req],
		introduced && !techConcepts[req] && looksLikeName(req):
		ctype = CheckCharacter
		severity = SeverityError
	case techConcepts[req]:
		ctype = CheckTech
	}

	check := Check{
		ID:         fmt.Sprintf("missing-dep:%s:%s", ch.ID, req),
		Type:       ctype,
		Severity:   severity,
		Message:    fmt.Sprintf("%q assumes the reader knows %q, which has not been introduced yet", ch.Title, req),
		ChapterIDs: []string{ch.ID},
	}
	if provider, ok := snap.Provider(req); ok && provider != ch.ID {
		// Mechanical fix exists: move the introducing chapter earlier
		pch := snap.Chapter(provider)
		check.ChapterIDs = append(check.ChapterIDs, provider)
		check.AutoFixable = true
		check.Suggestion = fmt.Sprintf("Move %q before %q", pch.Title, ch.Title)
	} else {
		check.Suggestion = fmt.Sprintf("Introduce %q in an earlier chapter", req)
	}
	return check
}

// looksLikeName reports whether a concept reads as a proper name rather
// than a plot phrase ("Sarah" vs "the heist plan")
func looksLikeName(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func hasDeEscalationBeat(ch *manuscript.Chapter) bool {
	for _, ev := range ch.Metadata.MajorEvents {
		lower := strings.ToLower(ev)
		for _, marker := range deEscalationMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// collectCharacterNames gathers every name the manuscript treats as a
// character: registry entries and chapter POVs
func collectCharacterNames(snap *manuscript.Snapshot) map[string]bool {
	names := make(map[string]bool)
	for _, c := range snap.Characters {
		names[c.Name] = true
		names[c.ID] = true
	}
	for _, id := range snap.ChapterIDs() {
		if pov := snap.Chapter(id).Metadata.POV; pov != "" {
			names[pov] = true
		}
	}
	return names
}

func collectTechConcepts(snap *manuscript.Snapshot) map[string]bool {
	concepts := make(map[string]bool)
	for _, id := range snap.ChapterIDs() {
		for _, tc := range snap.Chapter(id).Metadata.TechConcepts {
			concepts[tc] = true
		}
	}
	return concepts
}

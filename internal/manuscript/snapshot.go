package manuscript

import (
	"sort"
	"strings"
)

// Snapshot is a read-only view over a manuscript's chapters with precomputed
// lookup maps. Build one with NewSnapshot and treat it as immutable.
type Snapshot struct {
	Chapters   map[string]*Chapter
	Characters map[string]*Character
	Locations  map[string]*Location

	// manuscript order as authored, used for stable tie-breaking
	authoredOrder []string
	position      map[string]int

	// concept -> id of the chapter whose Introduces lists it
	providers map[string]string
}

// NewSnapshot builds a Snapshot from chapters in authored order. It does not
// validate; call Validate before handing the snapshot to the analyzers.
func NewSnapshot(chapters []*Chapter, characters []*Character, locations []*Location) *Snapshot {
	chapterMap := make(map[string]*Chapter, len(chapters))
	position := make(map[string]int, len(chapters))
	providers := make(map[string]string)
	authored := make([]string, 0, len(chapters))

	for i, ch := range chapters {
		// duplicates stay in authoredOrder so Validate can report them;
		// the lookup maps keep the first occurrence
		authored = append(authored, ch.ID)
		if _, dup := chapterMap[ch.ID]; dup {
			continue
		}
		chapterMap[ch.ID] = ch
		position[ch.ID] = i
		for _, concept := range ch.Dependencies.Introduces {
			if _, claimed := providers[concept]; !claimed {
				providers[concept] = ch.ID
			}
		}
	}

	charMap := make(map[string]*Character, len(characters))
	for _, c := range characters {
		charMap[c.ID] = c
	}
	locMap := make(map[string]*Location, len(locations))
	for _, l := range locations {
		locMap[l.ID] = l
	}

	return &Snapshot{
		Chapters:      chapterMap,
		Characters:    charMap,
		Locations:     locMap,
		authoredOrder: authored,
		position:      position,
		providers:     providers,
	}
}

// Chapter returns the chapter with the given id, or nil
func (s *Snapshot) Chapter(id string) *Chapter {
	return s.Chapters[id]
}

// AuthoredOrder returns chapter ids in the order they were authored
func (s *Snapshot) AuthoredOrder() []string {
	out := make([]string, len(s.authoredOrder))
	copy(out, s.authoredOrder)
	return out
}

// AuthoredPosition returns a chapter's position in the authored order,
// or -1 for unknown ids
func (s *Snapshot) AuthoredPosition(id string) int {
	if pos, ok := s.position[id]; ok {
		return pos
	}
	return -1
}

// Provider returns the id of the chapter that introduces concept, if any
func (s *Snapshot) Provider(concept string) (string, bool) {
	id, ok := s.providers[concept]
	return id, ok
}

// ChapterIDs returns a sorted list of all chapter ids (for deterministic output)
func (s *Snapshot) ChapterIDs() []string {
	ids := make([]string, 0, len(s.Chapters))
	for id := range s.Chapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the manuscript for data-integrity problems: duplicate
// chapter ids, reference edges to nonexistent chapters, duplicate concept
// providers, and out-of-range tension levels. Returns nil when clean.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.authoredOrder))
	claimed := make(map[string]string)

	for _, id := range s.authoredOrder {
		if seen[id] {
			return &DataIntegrityError{Kind: "duplicate-chapter", ChapterID: id}
		}
		seen[id] = true

		ch := s.Chapters[id]
		for _, ref := range ch.Dependencies.References {
			if _, ok := s.Chapters[ref.TargetChapterID]; !ok {
				return &DataIntegrityError{
					Kind:      "unknown-reference-target",
					ChapterID: id,
					Detail:    ref.TargetChapterID,
				}
			}
		}
		for _, concept := range ch.Dependencies.Introduces {
			if prev, ok := claimed[concept]; ok && prev != id {
				return &DataIntegrityError{
					Kind:      "duplicate-introduction",
					ChapterID: id,
					Detail:    concept,
				}
			}
			claimed[concept] = id
		}
		if ch.Metadata.TensionLevel < 0 || ch.Metadata.TensionLevel > 10 {
			return &DataIntegrityError{Kind: "tension-out-of-range", ChapterID: id}
		}
	}
	return nil
}

// ValidateOrder checks that order is a permutation of the snapshot's chapter
// ids: every id known, no duplicates, none missing. An empty order over an
// empty manuscript is valid.
func (s *Snapshot) ValidateOrder(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := s.Chapters[id]; !ok {
			return &DataIntegrityError{Kind: "unknown-chapter", ChapterID: id}
		}
		if seen[id] {
			return &DataIntegrityError{Kind: "duplicate-chapter", ChapterID: id}
		}
		seen[id] = true
	}
	if len(order) != len(s.Chapters) {
		var missing []string
		for _, id := range s.ChapterIDs() {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		return &DataIntegrityError{
			Kind:   "incomplete-order",
			Detail: strings.Join(missing, ", "),
		}
	}
	return nil
}

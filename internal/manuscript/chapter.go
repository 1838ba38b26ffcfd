package manuscript

// ReferenceType classifies a cross-chapter reference
type ReferenceType string

const (
	RefPlot      ReferenceType = "plot"
	RefTech      ReferenceType = "tech"
	RefCharacter ReferenceType = "character"
)

// ReferenceStrength is how load-bearing a reference is; the suggester breaks
// weaker references first when the dependency graph is cyclic
type ReferenceStrength string

const (
	StrengthWeak   ReferenceStrength = "weak"
	StrengthMedium ReferenceStrength = "medium"
	StrengthStrong ReferenceStrength = "strong"
)

// Reference is a directed edge from one chapter to another
type Reference struct {
	TargetChapterID string            `json:"target_chapter_id" yaml:"target"`
	Type            ReferenceType     `json:"type" yaml:"type"`
	Strength        ReferenceStrength `json:"strength" yaml:"strength"`
	Description     string            `json:"description" yaml:"description,omitempty"`
}

// Dependencies holds a chapter's declared knowledge edges. Authored once;
// the engine only reads them.
type Dependencies struct {
	Introduces        []string    `json:"introduces" yaml:"introduces,omitempty"`
	RequiredKnowledge []string    `json:"required_knowledge" yaml:"requires,omitempty"`
	References        []Reference `json:"references" yaml:"references,omitempty"`
	ContinuityRules   []string    `json:"continuity_rules" yaml:"continuity_rules,omitempty"`
}

// Metadata is the author-supplied narrative metadata for a chapter
type Metadata struct {
	POV          string   `json:"pov" yaml:"pov,omitempty"`
	Locations    []string `json:"locations" yaml:"locations,omitempty"`
	Timeframe    string   `json:"timeframe" yaml:"timeframe,omitempty"`
	TensionLevel int      `json:"tension_level" yaml:"tension"` // 1-10
	MajorEvents  []string `json:"major_events" yaml:"major_events,omitempty"`
	TechConcepts []string `json:"tech_concepts" yaml:"tech_concepts,omitempty"`
	ArcTags      []string `json:"arc_tags" yaml:"arc_tags,omitempty"`
}

// Chapter is a single manuscript chapter. ID is stable across reorderings
// and versions; Content is opaque to the engine beyond word count.
type Chapter struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Content      string       `json:"content" yaml:"content,omitempty"`
	Metadata     Metadata     `json:"metadata" yaml:"metadata"`
	Dependencies Dependencies `json:"dependencies" yaml:"dependencies"`
}

// WordCount is a rough whitespace-delimited count over Content, display only
func (c *Chapter) WordCount() int {
	count := 0
	inWord := false
	for _, r := range c.Content {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				count++
			}
			inWord = true
		}
	}
	return count
}

// SignificanceTier ranks how central a character or location is
type SignificanceTier string

const (
	TierMajor SignificanceTier = "major"
	TierMinor SignificanceTier = "minor"
	TierCameo SignificanceTier = "cameo"
)

// Character is a registry entry used for cross-reference lookups
type Character struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	FirstAppearance string           `json:"first_appearance" yaml:"first_appearance,omitempty"`
	Tier            SignificanceTier `json:"tier" yaml:"tier,omitempty"`
}

// Location is a registry entry used for cross-reference lookups
type Location struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	FirstAppearance string           `json:"first_appearance" yaml:"first_appearance,omitempty"`
	Tier            SignificanceTier `json:"tier" yaml:"tier,omitempty"`
}

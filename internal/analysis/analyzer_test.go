package analysis

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"fablecraft/loom/internal/manuscript"
)

// chapterSpec is a compact way to declare a test chapter
type chapterSpec struct {
	id         string
	pov        string
	tension    int
	introduces []string
	requires   []string
	refs       []manuscript.Reference
	events     []string
	tech       []string
}

func quickManuscript(specs ...chapterSpec) *manuscript.Snapshot {
	var chapters []*manuscript.Chapter
	for _, s := range specs {
		chapters = append(chapters, &manuscript.Chapter{
			ID:    s.id,
			Title: "Chapter " + s.id,
			Metadata: manuscript.Metadata{
				POV:          s.pov,
				TensionLevel: s.tension,
				MajorEvents:  s.events,
				TechConcepts: s.tech,
			},
			Dependencies: manuscript.Dependencies{
				Introduces:        s.introduces,
				RequiredKnowledge: s.requires,
				References:        s.refs,
			},
		})
	}
	return manuscript.NewSnapshot(chapters, nil, nil)
}

func findByPrefix(checks []Check, prefix string) []Check {
	var out []Check
	for _, c := range checks {
		if strings.HasPrefix(c.ID, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestAnalyze_EmptyOrder(t *testing.T) {
	snap := quickManuscript()
	checks, err := Analyze(snap, nil, nil)
	if err != nil {
		t.Fatalf("empty order should not error: %v", err)
	}
	if len(checks) != 0 {
		t.Errorf("expected no findings for empty order, got %d", len(checks))
	}

	// Empty order is a degenerate input even over a nonempty manuscript
	snap = quickManuscript(chapterSpec{id: "ch1", tension: 3})
	checks, err = Analyze(snap, []string{}, nil)
	if err != nil {
		t.Fatalf("empty order should not error: %v", err)
	}
	if len(checks) != 0 {
		t.Errorf("expected no findings for empty order, got %d", len(checks))
	}
}

func TestAnalyze_MalformedOrder(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "ch1", tension: 3},
		chapterSpec{id: "ch2", tension: 4},
	)

	var integrity *manuscript.DataIntegrityError

	if _, err := Analyze(snap, []string{"ch1", "ghost"}, nil); !errors.As(err, &integrity) {
		t.Errorf("unknown id should be a DataIntegrityError, got %v", err)
	}
	if _, err := Analyze(snap, []string{"ch1", "ch1"}, nil); !errors.As(err, &integrity) {
		t.Errorf("duplicate id should be a DataIntegrityError, got %v", err)
	}
	if _, err := Analyze(snap, []string{"ch1"}, nil); !errors.As(err, &integrity) {
		t.Errorf("missing chapter should be a DataIntegrityError, got %v", err)
	}
}

func TestAnalyze_MonotonicPrecedence(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "A", tension: 3, introduces: []string{"X"}},
		chapterSpec{id: "B", tension: 4, requires: []string{"X"}},
	)

	checks, err := Analyze(snap, []string{"B", "A"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	missing := findByPrefix(checks, "missing-dep:")
	if len(missing) == 0 {
		t.Fatal("order [B, A] should flag B's missing dependency")
	}
	if !containsID(missing[0].ChapterIDs, "B") {
		t.Errorf("finding should reference B, got %v", missing[0].ChapterIDs)
	}

	checks, err = Analyze(snap, []string{"A", "B"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "missing-dep:"); len(got) != 0 {
		t.Errorf("order [A, B] should have no dependency findings, got %v", got)
	}
}

func TestAnalyze_POVEscalation(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "B", pov: "Elena", tension: 5, requires: []string{"Elena"}},
		chapterSpec{id: "A", pov: "Elena", tension: 3, introduces: []string{"Elena"}},
	)

	checks, err := Analyze(snap, []string{"B", "A"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	missing := findByPrefix(checks, "missing-dep:")
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing-dep finding, got %d", len(missing))
	}
	if missing[0].Severity != SeverityError {
		t.Errorf("missing POV character should be an error, got %s", missing[0].Severity)
	}
	if missing[0].Type != CheckCharacter {
		t.Errorf("missing POV character should be type character, got %s", missing[0].Type)
	}
}

func TestAnalyze_ForwardReferenceSymmetry(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "C", tension: 4, refs: []manuscript.Reference{
			{TargetChapterID: "D", Type: manuscript.RefPlot, Strength: manuscript.StrengthMedium},
		}},
		chapterSpec{id: "D", tension: 5},
	)

	checks, err := Analyze(snap, []string{"C", "D"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "forward-ref:"); len(got) != 1 {
		t.Fatalf("C before D should flag the forward reference, got %v", got)
	}

	checks, err = Analyze(snap, []string{"D", "C"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "forward-ref:"); len(got) != 0 {
		t.Errorf("D before C should remove the forward-reference flag, got %v", got)
	}
}

func TestAnalyze_PacingDrop(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "p1", tension: 9},
		chapterSpec{id: "p2", tension: 2},
	)

	checks, err := Analyze(snap, []string{"p1", "p2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pacing := findByPrefix(checks, "tension-drop:")
	if len(pacing) != 1 {
		t.Fatalf("drop 9 -> 2 should produce a pacing note, got %v", checks)
	}
	if pacing[0].Severity != SeverityInfo {
		t.Errorf("pacing notes are informational, got %s", pacing[0].Severity)
	}
	if pacing[0].AutoFixable {
		t.Error("tension-drop suggestions require authorial judgment, not auto-fix")
	}
}

func TestAnalyze_PacingDropJustified(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "p1", tension: 9},
		chapterSpec{id: "p2", tension: 2, events: []string{"Resolution of the siege"}},
	)

	checks, err := Analyze(snap, []string{"p1", "p2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "tension-drop:"); len(got) != 0 {
		t.Errorf("a resolution beat justifies the drop, got %v", got)
	}
}

func TestAnalyze_POVIntroductionCounts(t *testing.T) {
	// Narrating from a character's POV introduces them even without a
	// declared introduces entry
	snap := quickManuscript(
		chapterSpec{id: "n1", pov: "Iris", tension: 3},
		chapterSpec{id: "n2", tension: 4, requires: []string{"Iris"}},
	)

	checks, err := Analyze(snap, []string{"n1", "n2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "missing-dep:"); len(got) != 0 {
		t.Errorf("Iris was introduced as POV of n1, got %v", got)
	}
}

func TestAnalyze_OrderingAndSimultaneousFindings(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "z", pov: "Mara", tension: 9, requires: []string{"Mara", "the heist plan"},
			refs: []manuscript.Reference{
				{TargetChapterID: "y", Type: manuscript.RefPlot, Strength: manuscript.StrengthWeak},
			}},
		chapterSpec{id: "y", pov: "Mara", tension: 2, introduces: []string{"Mara", "the heist plan"}},
	)

	checks, err := Analyze(snap, []string{"z", "y"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// All three violations at z must be reported, errors first
	if len(checks) < 3 {
		t.Fatalf("expected all simultaneous violations reported, got %d: %v", len(checks), checks)
	}
	if checks[0].Severity != SeverityError {
		t.Errorf("errors should sort before warnings within a chapter, got %s first", checks[0].Severity)
	}
}

func TestAnalyze_Determinism(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "a", pov: "Kit", tension: 2, introduces: []string{"Kit", "the ansible"}},
		chapterSpec{id: "b", tension: 8, requires: []string{"the ansible"}, tech: []string{"the ansible"}},
		chapterSpec{id: "c", tension: 3, requires: []string{"Kit"}},
	)
	order := []string{"b", "c", "a"}

	first, err := Analyze(snap, order, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Analyze(snap, order, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("analyze is not deterministic:\n%v\n%v", first, second)
	}
}

func TestAnalyze_TechClassification(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "t1", tension: 3, introduces: []string{"warp drive"}, tech: []string{"warp drive"}},
		chapterSpec{id: "t2", tension: 4, requires: []string{"warp drive"}},
	)

	checks, err := Analyze(snap, []string{"t2", "t1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	missing := findByPrefix(checks, "missing-dep:")
	if len(missing) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(missing))
	}
	if missing[0].Type != CheckTech {
		t.Errorf("missing tech concept should be type tech, got %s", missing[0].Type)
	}
	if missing[0].Severity != SeverityWarning {
		t.Errorf("missing tech concept is a warning, got %s", missing[0].Severity)
	}
	if !missing[0].AutoFixable {
		t.Error("a provider exists, so the fix is mechanical")
	}
}

func TestAnalyze_NameClassification(t *testing.T) {
	// A proper name introduced by a chapter is a character identity even
	// without a registry entry or POV credit; a plot phrase is not
	snap := quickManuscript(
		chapterSpec{id: "k1", tension: 3, introduces: []string{"Odette", "the forged will"}},
		chapterSpec{id: "k2", tension: 5, requires: []string{"Odette", "the forged will"}},
	)

	checks, err := Analyze(snap, []string{"k2", "k1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	missing := findByPrefix(checks, "missing-dep:")
	if len(missing) != 2 {
		t.Fatalf("expected 2 findings, got %v", checks)
	}
	// Errors sort first within the chapter
	if missing[0].Type != CheckCharacter || missing[0].Severity != SeverityError {
		t.Errorf("missing Odette should be a character error, got %s/%s", missing[0].Type, missing[0].Severity)
	}
	if missing[1].Type != CheckPlot || missing[1].Severity != SeverityWarning {
		t.Errorf("missing plot knowledge is a warning, got %s/%s", missing[1].Type, missing[1].Severity)
	}
}

func TestAnalyze_ConcreteScenario(t *testing.T) {
	snap := quickManuscript(
		chapterSpec{id: "ch1", tension: 3, introduces: []string{"Sarah"}},
		chapterSpec{id: "ch2", pov: "Marcus", tension: 5, introduces: []string{"Marcus"}, requires: []string{"Sarah"}},
		chapterSpec{id: "ch3", tension: 7, requires: []string{"Sarah", "Marcus"}},
	)

	checks, err := Analyze(snap, []string{"ch2", "ch1", "ch3"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	missing := findByPrefix(checks, "missing-dep:")
	if len(missing) != 1 {
		t.Fatalf("expected exactly one dependency finding, got %v", checks)
	}
	if missing[0].Type != CheckCharacter || missing[0].Severity != SeverityError {
		t.Errorf("missing Sarah should be a character error, got %s/%s", missing[0].Type, missing[0].Severity)
	}
	if !containsID(missing[0].ChapterIDs, "ch2") {
		t.Errorf("finding should reference ch2, got %v", missing[0].ChapterIDs)
	}

	checks, err = Analyze(snap, []string{"ch1", "ch2", "ch3"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := findByPrefix(checks, "missing-dep:"); len(got) != 0 {
		t.Errorf("authored order should have zero dependency findings, got %v", got)
	}
}

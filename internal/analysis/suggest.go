package analysis

import (
	"fmt"
	"math"
	"sort"

	"fablecraft/loom/internal/manuscript"
)

// Suggester weighting. tensionWeight scores how closely a candidate chapter
// tracks the target tension trajectory; positionWeight penalizes moving a
// chapter away from its authored position. Dependency satisfaction is a hard
// constraint, not a weight.
const (
	tensionWeight  = 1.0
	positionWeight = 0.15
)

// Three-act trajectory shape: tension climbs until climaxPoint of the book,
// then dips toward resolution
const (
	climaxPoint    = 0.85
	resolutionDrop = 0.4 // fraction of the tension range released after the climax
)

// Suggestion is a proposed chapter order with the reasoning behind it
type Suggestion struct {
	Order     []string `json:"order"`
	Reasoning []string `json:"reasoning"`
}

// precedenceEdge says From must be scheduled before To
type precedenceEdge struct {
	From, To string
	Strength manuscript.ReferenceStrength
	Concepts []string
}

// Suggest proposes a chapter ordering that schedules every chapter after the
// chapters introducing its required knowledge, while greedily tracking a
// rising-then-resolving tension trajectory. The result is always a complete
// permutation of the chapter ids: dependency cycles are broken at their
// weakest edge and the break is recorded in Reasoning.
func Suggest(snap *manuscript.Snapshot, cfg *Config) (*Suggestion, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	ids := snap.AuthoredOrder()
	n := len(ids)
	if n == 0 {
		return &Suggestion{Order: []string{}, Reasoning: []string{"Manuscript has no chapters"}}, nil
	}

	edges := buildPrecedence(snap)
	indegree := make(map[string]int, n)
	out := make(map[string][]*precedenceEdge, n)
	for _, id := range ids {
		indegree[id] = 0
	}
	for i := range edges {
		e := &edges[i]
		indegree[e.To]++
		out[e.From] = append(out[e.From], e)
	}

	reasoning := []string{
		fmt.Sprintf("Ordered %d chapters honoring %d dependency edges", n, len(edges)),
	}

	lo, hi := tensionRange(snap, ids)
	scheduled := make(map[string]bool, n)
	broken := make(map[*precedenceEdge]bool)
	order := make([]string, 0, n)

	for len(order) < n {
		var ready []string
		for _, id := range ids {
			if !scheduled[id] && indegree[id] == 0 {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			// Cycle among the unscheduled chapters: break the weakest edge
			weak := weakestRemainingEdge(edges, scheduled, broken)
			if weak == nil {
				// should be unreachable; refuse to loop forever
				for _, id := range ids {
					if !scheduled[id] {
						order = append(order, id)
						scheduled[id] = true
					}
				}
				reasoning = append(reasoning, "Unresolvable dependency graph; remaining chapters kept in authored order")
				break
			}
			broken[weak] = true
			indegree[weak.To]--
			reasoning = append(reasoning, fmt.Sprintf(
				"Dependency cycle detected; relaxed the %s link %q -> %q (%s)",
				weak.Strength, snap.Chapter(weak.From).Title, snap.Chapter(weak.To).Title,
				joinConcepts(weak.Concepts)))
			continue
		}

		target := targetTension(len(order), n, lo, hi)
		next := pickNext(snap, ready, len(order), target)
		order = append(order, next)
		scheduled[next] = true
		for _, e := range out[next] {
			if !broken[e] {
				indegree[e.To]--
			}
		}
	}

	if report, err := Score(snap, order, cfg); err == nil {
		reasoning = append(reasoning, fmt.Sprintf("Suggested order scores %d/100", report.Score))
	}

	return &Suggestion{Order: order, Reasoning: reasoning}, nil
}

// buildPrecedence derives provider -> consumer edges from required knowledge.
// Edge strength defaults to strong (knowledge gaps lose the reader) but is
// softened when the consumer's own reference to the provider says weaker.
func buildPrecedence(snap *manuscript.Snapshot) []precedenceEdge {
	type key struct{ from, to string }
	merged := make(map[key]*precedenceEdge)
	var keys []key

	for _, id := range snap.AuthoredOrder() {
		ch := snap.Chapter(id)
		for _, req := range ch.Dependencies.RequiredKnowledge {
			provider, ok := snap.Provider(req)
			if !ok || provider == id {
				continue
			}
			k := key{provider, id}
			e, seen := merged[k]
			if !seen {
				e = &precedenceEdge{From: provider, To: id, Strength: manuscript.StrengthStrong}
				if s, ok := declaredStrength(ch, provider); ok {
					e.Strength = s
				}
				merged[k] = e
				keys = append(keys, k)
			}
			e.Concepts = append(e.Concepts, req)
		}
	}

	edges := make([]precedenceEdge, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, *merged[k])
	}
	return edges
}

func declaredStrength(ch *manuscript.Chapter, target string) (manuscript.ReferenceStrength, bool) {
	for _, ref := range ch.Dependencies.References {
		if ref.TargetChapterID == target {
			return ref.Strength, true
		}
	}
	return "", false
}

// weakestRemainingEdge finds the unbroken edge between unscheduled chapters
// with the lowest strength, ties broken lexicographically for determinism
func weakestRemainingEdge(edges []precedenceEdge, scheduled map[string]bool, broken map[*precedenceEdge]bool) *precedenceEdge {
	var best *precedenceEdge
	for i := range edges {
		e := &edges[i]
		if broken[e] || scheduled[e.From] || scheduled[e.To] {
			continue
		}
		if best == nil || edgeLess(e, best) {
			best = e
		}
	}
	return best
}

func edgeLess(a, b *precedenceEdge) bool {
	ra, rb := strengthRank(a.Strength), strengthRank(b.Strength)
	if ra != rb {
		return ra < rb
	}
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}

func strengthRank(s manuscript.ReferenceStrength) int {
	switch s {
	case manuscript.StrengthWeak:
		return 0
	case manuscript.StrengthMedium:
		return 1
	case manuscript.StrengthStrong:
		return 2
	default:
		return 1
	}
}

// pickNext chooses the ready chapter that best continues the target tension
// trajectory; ties fall back to authored position so two chapters are never
// reordered without a stated reason
func pickNext(snap *manuscript.Snapshot, ready []string, slot int, target float64) string {
	sort.Slice(ready, func(i, j int) bool {
		return snap.AuthoredPosition(ready[i]) < snap.AuthoredPosition(ready[j])
	})

	best := ready[0]
	bestCost := math.Inf(1)
	for _, id := range ready {
		ch := snap.Chapter(id)
		displacement := math.Abs(float64(snap.AuthoredPosition(id) - slot))
		cost := tensionWeight*math.Abs(float64(ch.Metadata.TensionLevel)-target) +
			positionWeight*displacement
		if cost < bestCost {
			best = id
			bestCost = cost
		}
	}
	return best
}

// targetTension is the three-act trajectory: a linear climb from the lowest
// observed tension to the highest at climaxPoint, then a resolution dip
func targetTension(slot, n int, lo, hi float64) float64 {
	if n == 1 {
		return hi
	}
	progress := float64(slot) / float64(n-1)
	if progress <= climaxPoint {
		return lo + (hi-lo)*(progress/climaxPoint)
	}
	return hi - (hi-lo)*resolutionDrop*((progress-climaxPoint)/(1.0-climaxPoint))
}

func tensionRange(snap *manuscript.Snapshot, ids []string) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, id := range ids {
		t := float64(snap.Chapter(id).Metadata.TensionLevel)
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return lo, hi
}

func joinConcepts(concepts []string) string {
	switch len(concepts) {
	case 0:
		return "no shared concepts"
	case 1:
		return "shares " + concepts[0]
	default:
		return fmt.Sprintf("shares %s and %d more", concepts[0], len(concepts)-1)
	}
}

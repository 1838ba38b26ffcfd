package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fablecraft/loom/internal/manuscript"
)

// Penalty weights for the quality score. Each additional finding of the same
// check type counts penaltyDecay times the previous one, so a single
// structural flaw that cascades into many findings is not over-punished.
const (
	penaltyError   = 15.0
	penaltyWarning = 6.0
	penaltyInfo    = 2.0
	penaltyDecay   = 0.6
)

// maxImprovements caps the ranked improvement list
const maxImprovements = 5

// QualityReport is the scored assessment of one chapter order
type QualityReport struct {
	Score        int      `json:"score"` // 0-100
	Issues       []Check  `json:"issues"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Score aggregates analyzer findings and tension-curve shape into a single
// 0-100 quality score. Deterministic: the same order always yields the same
// report. An empty order scores 100 with no issues.
func Score(snap *manuscript.Snapshot, order []string, cfg *Config) (*QualityReport, error) {
	checks, err := Analyze(snap, order, cfg)
	if err != nil {
		return nil, err
	}

	// Group findings by type so penalties decay within each type
	byType := make(map[CheckType][]Check)
	for _, c := range checks {
		byType[c.Type] = append(byType[c.Type], c)
	}

	// Fixed type order keeps the float accumulation bit-for-bit stable
	penalty := 0.0
	for _, ctype := range []CheckType{CheckCharacter, CheckPlot, CheckTech, CheckPacing} {
		group := byType[ctype]
		// Heaviest findings in a group count at full weight
		sort.SliceStable(group, func(a, b int) bool {
			return severityRank(group[a].Severity) < severityRank(group[b].Severity)
		})
		decay := 1.0
		for _, c := range group {
			penalty += severityWeight(c.Severity) * decay
			decay *= penaltyDecay
		}
	}

	score := int(math.Round(clamp(100.0-penalty, 0, 100)))

	return &QualityReport{
		Score:        score,
		Issues:       checks,
		Strengths:    collectStrengths(snap, order, checks),
		Improvements: rankImprovements(checks),
	}, nil
}

func severityWeight(s Severity) float64 {
	switch s {
	case SeverityError:
		return penaltyError
	case SeverityWarning:
		return penaltyWarning
	default:
		return penaltyInfo
	}
}

// collectStrengths surfaces structural positives the finding list cannot show
func collectStrengths(snap *manuscript.Snapshot, order []string, checks []Check) []string {
	var strengths []string

	hasForwardRef := false
	hasMissingDep := false
	for _, c := range checks {
		if strings.HasPrefix(c.ID, "forward-ref:") {
			hasForwardRef = true
		}
		if strings.HasPrefix(c.ID, "missing-dep:") {
			hasMissingDep = true
		}
	}
	if len(order) > 0 && !hasForwardRef {
		strengths = append(strengths, "No forward references")
	}
	if len(order) > 0 && !hasMissingDep {
		strengths = append(strengths, "Every required concept is introduced before it is needed")
	}

	if len(order) >= 3 {
		tension := make([]int, len(order))
		for i, id := range order {
			tension[i] = snap.Chapter(id).Metadata.TensionLevel
		}
		if risesThroughMidpoint(tension) {
			strengths = append(strengths, "Tension rises steadily through the midpoint")
		}
		if peak, last := maxInt(tension), tension[len(tension)-1]; last < peak {
			strengths = append(strengths, "Ends on a resolution dip after the peak")
		}
	}
	return strengths
}

func risesThroughMidpoint(tension []int) bool {
	mid := len(tension)/2 + 1
	for i := 1; i < mid; i++ {
		if tension[i] < tension[i-1] {
			return false
		}
	}
	return true
}

func maxInt(vals []int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// rankImprovements is a ranked, human-readable subset of analyzer
// suggestions: errors first, then warnings, then pacing notes
func rankImprovements(checks []Check) []string {
	ranked := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Suggestion != "" {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return severityRank(ranked[a].Severity) < severityRank(ranked[b].Severity)
	})

	var improvements []string
	seen := make(map[string]bool)
	for _, c := range ranked {
		line := fmt.Sprintf("%s (%s)", c.Suggestion, c.Severity)
		if seen[line] {
			continue
		}
		seen[line] = true
		improvements = append(improvements, line)
		if len(improvements) == maxImprovements {
			break
		}
	}
	return improvements
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

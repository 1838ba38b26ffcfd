package analysis

import (
	"sort"

	"fablecraft/loom/internal/manuscript"
)

// KeystoneChapter is a chapter many others depend on
type KeystoneChapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// StructureReport describes the shape of the dependency graph independent of
// any particular chapter order
type StructureReport struct {
	TotalChapters   int               `json:"total_chapters"`
	TotalLinks      int               `json:"total_links"`
	NumClusters     int               `json:"num_clusters"`
	LargestCluster  int               `json:"largest_cluster"`
	SmallestCluster int               `json:"smallest_cluster"`
	StandaloneCount int               `json:"standalone_count"`
	StandaloneIDs   []string          `json:"standalone_ids"`
	Keystones       []KeystoneChapter `json:"keystones"`
}

// ComputeStructure analyzes dependency structure: clusters of interlinked
// chapters, standalone chapters with no links, and keystone chapters.
// Links combine knowledge edges and explicit references.
func ComputeStructure(snap *manuscript.Snapshot, cfg *Config) *StructureReport {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ids := snap.ChapterIDs()
	total := len(ids)
	if total == 0 {
		return &StructureReport{}
	}

	type link struct{ a, b string }
	linkSet := make(map[link]bool)
	addLink := func(a, b string) {
		if a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		linkSet[link{a, b}] = true
	}

	inDeg := make(map[string]int, total)
	outDeg := make(map[string]int, total)
	for _, id := range ids {
		ch := snap.Chapter(id)
		for _, req := range ch.Dependencies.RequiredKnowledge {
			if provider, ok := snap.Provider(req); ok && provider != id {
				addLink(provider, id)
				inDeg[id]++
				outDeg[provider]++
			}
		}
		for _, ref := range ch.Dependencies.References {
			if _, ok := snap.Chapters[ref.TargetChapterID]; !ok {
				continue
			}
			addLink(id, ref.TargetChapterID)
			outDeg[id]++
			inDeg[ref.TargetChapterID]++
		}
	}

	uf := newUnionFind(ids)
	degree := make(map[string]int, total)
	for l := range linkSet {
		uf.union(l.a, l.b)
		degree[l.a]++
		degree[l.b]++
	}

	comps := uf.components()
	largest, smallest := 0, total
	for _, members := range comps {
		if len(members) > largest {
			largest = len(members)
		}
		if len(members) < smallest {
			smallest = len(members)
		}
	}

	var standalone []string
	for _, id := range ids {
		if degree[id] == 0 {
			standalone = append(standalone, id)
		}
	}
	standaloneCount := len(standalone)
	sort.Strings(standalone)
	if len(standalone) > cfg.TopN {
		standalone = standalone[:cfg.TopN]
	}

	var keystones []KeystoneChapter
	for _, id := range ids {
		if degree[id] >= cfg.KeystoneThreshold {
			keystones = append(keystones, KeystoneChapter{
				ID:        id,
				Title:     snap.Chapter(id).Title,
				Degree:    degree[id],
				InDegree:  inDeg[id],
				OutDegree: outDeg[id],
			})
		}
	}
	sort.Slice(keystones, func(i, j int) bool {
		if keystones[i].Degree != keystones[j].Degree {
			return keystones[i].Degree > keystones[j].Degree
		}
		return keystones[i].ID < keystones[j].ID
	})
	if len(keystones) > cfg.TopN {
		keystones = keystones[:cfg.TopN]
	}

	return &StructureReport{
		TotalChapters:   total,
		TotalLinks:      len(linkSet),
		NumClusters:     len(comps),
		LargestCluster:  largest,
		SmallestCluster: smallest,
		StandaloneCount: standaloneCount,
		StandaloneIDs:   standalone,
		Keystones:       keystones,
	}
}

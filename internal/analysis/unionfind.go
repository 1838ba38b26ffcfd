package analysis

// unionFind groups chapter ids into connected dependency clusters, with
// path compression and union by size
type unionFind struct {
	parent map[string]string
	size   map[string]int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		size:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	root := id
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[id] != root {
		uf.parent[id], id = root, uf.parent[id]
	}
	return root
}

// union merges the clusters containing a and b; returns true if they were separate
func (uf *unionFind) union(a, b string) bool {
	rootA, rootB := uf.find(a), uf.find(b)
	if rootA == rootB {
		return false
	}
	if uf.size[rootA] < uf.size[rootB] {
		rootA, rootB = rootB, rootA
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	return true
}

// components returns cluster members keyed by root id
func (uf *unionFind) components() map[string][]string {
	comps := make(map[string][]string)
	for id := range uf.parent {
		root := uf.find(id)
		comps[root] = append(comps[root], id)
	}
	return comps
}

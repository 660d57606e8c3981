package graph

import (
	"sort"

	"factory/planner/internal/flow"
)

// UnionFind implements union-find with path compression and union by rank
type UnionFind struct {
	parent map[flow.NodeID]flow.NodeID
	rank   map[flow.NodeID]int
	size   map[flow.NodeID]int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(ids []flow.NodeID) *UnionFind {
	uf := &UnionFind{
		parent: make(map[flow.NodeID]flow.NodeID, len(ids)),
		rank:   make(map[flow.NodeID]int, len(ids)),
		size:   make(map[flow.NodeID]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.rank[id] = 0
		uf.size[id] = 1
	}
	return uf
}

// Find returns the root of the component containing id, with path compression
func (uf *UnionFind) Find(id flow.NodeID) flow.NodeID {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.Find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b flow.NodeID) bool {
	rootA := uf.Find(a)
	rootB := uf.Find(b)
	if rootA == rootB {
		return false
	}

	rankA := uf.rank[rootA]
	rankB := uf.rank[rootB]
	sizeA := uf.size[rootA]
	sizeB := uf.size[rootB]

	if rankA < rankB {
		uf.parent[rootA] = rootB
		uf.size[rootB] = sizeA + sizeB
	} else if rankA > rankB {
		uf.parent[rootB] = rootA
		uf.size[rootA] = sizeA + sizeB
	} else {
		uf.parent[rootB] = rootA
		uf.size[rootA] = sizeA + sizeB
		uf.rank[rootA]++
	}
	return true
}

// Components returns all connected components, each sorted, ordered by their
// smallest id
func (uf *UnionFind) Components() [][]flow.NodeID {
	groups := make(map[flow.NodeID][]flow.NodeID)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]flow.NodeID, 0, len(groups))
	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}

package graph

import (
	"fmt"
	"sort"

	"factory/planner/internal/flow"
)

// NodeInfo is a lightweight node representation decoupled from the flow graph
type NodeInfo struct {
	ID       flow.NodeID
	Title    string
	Kind     flow.Kind
	Count    float64
	Resource string // logistics nodes only
}

// EdgeInfo is a lightweight edge representation
type EdgeInfo struct {
	Seq      uint64
	Source   flow.NodeID
	Target   flow.NodeID
	Resource string
	Rate     float64
}

// GraphSnapshot holds a graph with precomputed adjacency lists
type GraphSnapshot struct {
	Nodes  map[flow.NodeID]*NodeInfo
	Edges  []EdgeInfo
	Adj    map[flow.NodeID][]flow.NodeID // undirected
	OutAdj map[flow.NodeID][]flow.NodeID // directed: source -> targets
	InAdj  map[flow.NodeID][]flow.NodeID // directed: target -> sources
}

// NewSnapshot builds a GraphSnapshot from raw nodes and edges
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *GraphSnapshot {
	nodeMap := make(map[flow.NodeID]*NodeInfo, len(nodes))
	adj := make(map[flow.NodeID][]flow.NodeID)
	outAdj := make(map[flow.NodeID][]flow.NodeID)
	inAdj := make(map[flow.NodeID][]flow.NodeID)

	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = nil // ensure entry exists
		outAdj[n.ID] = nil
		inAdj[n.ID] = nil
	}

	var kept []EdgeInfo
	for _, e := range edges {
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)
	}

	return &GraphSnapshot{
		Nodes:  nodeMap,
		Edges:  kept,
		Adj:    adj,
		OutAdj: outAdj,
		InAdj:  inAdj,
	}
}

// FromGraph snapshots a flow graph. names may be nil, in which case nodes
// are titled by kind and id.
func FromGraph(g *flow.Graph, names flow.Namer) *GraphSnapshot {
	var nodes []*NodeInfo
	for _, n := range g.Nodes() {
		title := fmt.Sprintf("%s #%d", n.Kind(), n.ID)
		if names != nil {
			title = n.Title(names)
		}
		nodes = append(nodes, &NodeInfo{
			ID:       n.ID,
			Title:    title,
			Kind:     n.Kind(),
			Count:    n.Count,
			Resource: n.Resource(),
		})
	}
	var edges []EdgeInfo
	for _, f := range g.Flows() {
		edges = append(edges, EdgeInfo{
			Seq:      f.Seq(),
			Source:   f.From,
			Target:   f.To,
			Resource: f.Resource,
			Rate:     f.Rate(),
		})
	}
	return NewSnapshot(nodes, edges)
}

// FilterToResource returns a new snapshot containing only flows of one
// resource and the nodes they touch
func (s *GraphSnapshot) FilterToResource(resource string) *GraphSnapshot {
	included := make(map[flow.NodeID]bool)
	var filteredEdges []EdgeInfo
	for _, e := range s.Edges {
		if e.Resource == resource {
			filteredEdges = append(filteredEdges, e)
			included[e.Source] = true
			included[e.Target] = true
		}
	}
	for id, n := range s.Nodes {
		if n.Resource == resource {
			included[id] = true
		}
	}

	var filteredNodes []*NodeInfo
	for id := range included {
		filteredNodes = append(filteredNodes, s.Nodes[id])
	}
	return NewSnapshot(filteredNodes, filteredEdges)
}

// Resources returns the sorted set of resources carried by any edge
func (s *GraphSnapshot) Resources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.Edges {
		if !seen[e.Resource] {
			seen[e.Resource] = true
			out = append(out, e.Resource)
		}
	}
	sort.Strings(out)
	return out
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []flow.NodeID {
	ids := make([]flow.NodeID, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package graph

import (
	"sort"

	"factory/planner/internal/flow"
)

// ArticulationPoint is a node whose removal disconnects the production chain
type ArticulationPoint struct {
	ID                  flow.NodeID `json:"id"`
	Title               string      `json:"title"`
	ComponentsIfRemoved int         `json:"components_if_removed"`
}

// BridgeEdge is a flow whose removal disconnects the production chain
type BridgeEdge struct {
	SourceID    flow.NodeID `json:"source_id"`
	TargetID    flow.NodeID `json:"target_id"`
	SourceTitle string      `json:"source_title"`
	TargetTitle string      `json:"target_title"`
	Resource    string      `json:"resource"`
	Rate        float64     `json:"rate"`
}

// FragileConnection is a resource carried by very few flows
type FragileConnection struct {
	Resource string  `json:"resource"`
	Flows    int     `json:"flows"`
	Rate     float64 `json:"rate"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	FragileConnections []FragileConnection `json:"fragile_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points, bridge flows, and resources
// that hang on one or two flows
func ComputeBridges(snap *GraphSnapshot) *BridgeReport {
	if len(snap.Nodes) == 0 {
		return &BridgeReport{}
	}

	// Map node IDs to indices
	nodeIDs := snap.NodeIDs()
	idToIdx := make(map[flow.NodeID]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idToIdx[id] = i
	}
	n := len(nodeIDs)

	// Build deduplicated undirected adjacency (as indices). Parallel flows
	// between the same pair count once, so they are never bridges.
	adjIdx := make([][]int, n)
	type edgePair struct{ u, v int }
	seen := make(map[edgePair]bool)
	multi := make(map[edgePair]bool)
	firstEdge := make(map[edgePair]EdgeInfo)

	for _, e := range snap.Edges {
		u, okU := idToIdx[e.Source]
		v, okV := idToIdx[e.Target]
		if !okU || !okV || u == v {
			continue
		}
		key := edgePair{u, v}
		if u > v {
			key = edgePair{v, u}
		}
		if seen[key] {
			multi[key] = true
			continue
		}
		seen[key] = true
		firstEdge[key] = e
		adjIdx[u] = append(adjIdx[u], v)
		adjIdx[v] = append(adjIdx[v], u)
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	// Iterative Tarjan for each connected component
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node
			parent := top.parent

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++

				if child == parent {
					continue
				}

				if visited[child] {
					// Back edge
					if disc[child] < low[node] {
						low[node] = disc[child]
					}
				} else {
					// Tree edge
					visited[child] = true
					disc[child] = counter
					low[child] = counter
					counter++

					if node == start {
						rootChildren++
					}

					stack = append(stack, frame{child, node, 0})
				}
			} else {
				// Done with this node, pop and propagate
				stack = stack[:len(stack)-1]

				if len(stack) > 0 {
					parentFrame := &stack[len(stack)-1]
					pn := parentFrame.node

					if low[node] < low[pn] {
						low[pn] = low[node]
					}

					if low[node] > disc[pn] {
						bridgePairs = append(bridgePairs, [2]int{pn, node})
					}

					// AP check (non-root)
					if pn != start && low[node] >= disc[pn] {
						isAP[pn] = true
					}
				}
			}
		}

		// Root is AP if 2+ tree children
		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	var aps []ArticulationPoint
	for i := 0; i < n; i++ {
		if isAP[i] {
			id := nodeIDs[i]
			aps = append(aps, ArticulationPoint{
				ID:                  id,
				Title:               snap.Nodes[id].Title,
				ComponentsIfRemoved: len(adjIdx[i]),
			})
		}
	}

	var bridges []BridgeEdge
	for _, pair := range bridgePairs {
		key := edgePair{pair[0], pair[1]}
		if key.u > key.v {
			key = edgePair{key.v, key.u}
		}
		if multi[key] {
			continue
		}
		e := firstEdge[key]
		bridges = append(bridges, BridgeEdge{
			SourceID:    e.Source,
			TargetID:    e.Target,
			SourceTitle: snap.Nodes[e.Source].Title,
			TargetTitle: snap.Nodes[e.Target].Title,
			Resource:    e.Resource,
			Rate:        e.Rate,
		})
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].SourceID != bridges[j].SourceID {
			return bridges[i].SourceID < bridges[j].SourceID
		}
		return bridges[i].TargetID < bridges[j].TargetID
	})

	// Fragile connections: resources carried by at most two flows
	counts := make(map[string]int)
	rates := make(map[string]float64)
	for _, e := range snap.Edges {
		counts[e.Resource]++
		rates[e.Resource] += e.Rate
	}
	var fragile []FragileConnection
	for r, c := range counts {
		if c <= 2 {
			fragile = append(fragile, FragileConnection{Resource: r, Flows: c, Rate: rates[r]})
		}
	}
	sort.Slice(fragile, func(i, j int) bool {
		if fragile[i].Flows != fragile[j].Flows {
			return fragile[i].Flows < fragile[j].Flows
		}
		return fragile[i].Resource < fragile[j].Resource
	})

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		FragileConnections: fragile,
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

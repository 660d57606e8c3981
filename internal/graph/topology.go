package graph

import (
	"sort"

	"factory/planner/internal/flow"
)

// BusyNode is a node with high connectivity
type BusyNode struct {
	ID        flow.NodeID `json:"id"`
	Title     string      `json:"title"`
	Kind      flow.Kind   `json:"kind"`
	Degree    int         `json:"degree"`
	InDegree  int         `json:"in_degree"`
	OutDegree int         `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []flow.NodeID  `json:"orphan_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Busiest           []BusyNode     `json:"busiest"`
	KindCounts        map[string]int `json:"kind_counts"`
	DegenerateHubs    []flow.NodeID  `json:"degenerate_hubs"`
	LoadBearingHubs   []flow.NodeID  `json:"load_bearing_hubs"`
}

// ComputeTopology analyzes graph topology: components, orphans, degree
// distribution, busiest nodes, and which hubs elimination would remove
func ComputeTopology(snap *GraphSnapshot, busyThreshold, topN int) *TopologyReport {
	totalNodes := len(snap.Nodes)
	totalEdges := len(snap.Edges)

	if totalNodes == 0 {
		return &TopologyReport{
			DegreeHistogram: defaultHistogram(),
			KindCounts:      map[string]int{},
		}
	}

	// Connected components via UnionFind
	nodeIDs := snap.NodeIDs()
	uf := NewUnionFind(nodeIDs)
	for _, e := range snap.Edges {
		uf.Union(e.Source, e.Target)
	}

	components := uf.Components()
	numComponents := len(components)
	largest, smallest := 0, totalNodes
	for _, c := range components {
		if len(c) > largest {
			largest = len(c)
		}
		if len(c) < smallest {
			smallest = len(c)
		}
	}

	// Orphans: degree == 0
	var orphans []flow.NodeID
	for _, id := range nodeIDs {
		if len(snap.Adj[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	// Degree histogram (log-scale buckets)
	buckets := [7]int{}
	for _, id := range nodeIDs {
		degree := len(snap.Adj[id])
		buckets[degreeBucket(degree)]++
	}
	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	kinds := make(map[string]int)
	var busiest []BusyNode
	var degenerate, loadBearing []flow.NodeID
	for _, id := range nodeIDs {
		n := snap.Nodes[id]
		kinds[n.Kind.String()]++
		in, out := len(snap.InAdj[id]), len(snap.OutAdj[id])
		if n.Kind == flow.KindHub {
			// Mirrors flow.(*Graph).EliminateHub.
			if in <= 1 || out <= 1 {
				degenerate = append(degenerate, id)
			} else {
				loadBearing = append(loadBearing, id)
			}
		}
		degree := len(snap.Adj[id])
		if degree > busyThreshold {
			busiest = append(busiest, BusyNode{
				ID:        id,
				Title:     n.Title,
				Kind:      n.Kind,
				Degree:    degree,
				InDegree:  in,
				OutDegree: out,
			})
		}
	}
	sort.SliceStable(busiest, func(i, j int) bool { return busiest[i].Degree > busiest[j].Degree })
	if len(busiest) > topN {
		busiest = busiest[:topN]
	}

	return &TopologyReport{
		TotalNodes:        totalNodes,
		TotalEdges:        totalEdges,
		NumComponents:     numComponents,
		LargestComponent:  largest,
		SmallestComponent: smallest,
		OrphanCount:       orphanCount,
		OrphanIDs:         orphans,
		DegreeHistogram:   histogram,
		Busiest:           busiest,
		KindCounts:        kinds,
		DegenerateHubs:    degenerate,
		LoadBearingHubs:   loadBearing,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}

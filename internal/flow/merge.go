package flow

import (
	"fmt"
	"math"
)

// Merge coalesces nodes of the same kind and parameters into one whose count
// is the sum of theirs. Flows between the merged nodes are dropped, and for
// sources, sinks and hubs their rate is taken off the summed count. Flows to
// the outside are re-aggregated so the merged node has one flow per side,
// resource and neighbour. Nodes that cannot be merged are packed into a
// composite instead.
func (g *Graph) Merge(ids []NodeID) (*Node, error) {
	nodes, err := g.lookupAll(ids)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	first := nodes[0]
	for _, n := range nodes[1:] {
		if !sameParams(first.Data, n.Data) {
			g.logger.Debug("merge falls back to pack", "first", first.ID, "other", n.ID)
			return g.Pack(ids, DefaultGroupName)
		}
	}

	inSet := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		inSet[n.ID] = true
	}
	logistics := first.Kind() == KindSource || first.Kind() == KindSink || first.Kind() == KindHub

	var count float64
	for _, n := range nodes {
		count += n.Count
	}
	external := newAggregate()
	for _, n := range nodes {
		for _, side := range Sides {
			for _, f := range n.io[side].Flows() {
				other := f.other(side)
				if inSet[other] {
					// Each internal flow is seen from both ends; count it once.
					if side == Out && logistics {
						count -= f.rate
					}
					continue
				}
				external.add(boundaryKey{side, f.Resource, other}, f.rate)
			}
		}
	}

	merged := NewNode(first.Data, math.Max(0, count), first.Pos)
	merged.Active = first.Active
	g.AddNode(merged)
	for _, k := range external.order {
		if k.side == In {
			g.AddFlow(k.resource, external.rate[k], k.node, merged.ID)
		} else {
			g.AddFlow(k.resource, external.rate[k], merged.ID, k.node)
		}
	}
	for _, n := range nodes {
		g.RemoveNode(n.ID)
	}
	g.logger.Debug("merged", "nodes", len(nodes), "into", merged.ID, "count", merged.Count)
	return merged, nil
}

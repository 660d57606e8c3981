package flow

import "fmt"

// EliminateHub removes a degenerate hub. A hub with no inflows or no
// outflows is dropped together with its flows. A hub with a single outflow
// has every inflow rerouted to that destination; a hub with a single inflow
// has every outflow rerouted from that source. A hub with two or more flows
// on both sides is load-bearing and stays. Reports whether the hub was
// removed.
func (g *Graph) EliminateHub(id NodeID) (bool, error) {
	n, err := g.Lookup(id)
	if err != nil {
		return false, err
	}
	h, ok := n.Data.(Hub)
	if !ok {
		return false, fmt.Errorf("node %d: %w", id, ErrNotHub)
	}
	var ins, outs []*Flow
	if fg, ok := n.io[In].Group(h.Resource); ok {
		ins = fg.Flows()
	}
	if fg, ok := n.io[Out].Group(h.Resource); ok {
		outs = fg.Flows()
	}

	switch {
	case len(ins) == 0 || len(outs) == 0:
	case len(outs) == 1:
		dst := outs[0].To
		for _, f := range ins {
			g.AddFlow(f.Resource, f.rate, f.From, dst)
		}
	case len(ins) == 1:
		src := ins[0].From
		for _, f := range outs {
			g.AddFlow(f.Resource, f.rate, src, f.To)
		}
	default:
		return false, nil
	}
	g.RemoveNode(id)
	g.logger.Debug("eliminated hub", "node", id, "resource", h.Resource, "in", len(ins), "out", len(outs))
	return true, nil
}

// EliminateHubs runs EliminateHub over every hub until none can be removed
// and returns how many were. Running it again is a no-op.
func (g *Graph) EliminateHubs() int {
	removed := 0
	for {
		changed := false
		for _, n := range g.Nodes() {
			if n.Kind() != KindHub || g.nodes[n.ID] == nil {
				continue
			}
			ok, err := g.EliminateHub(n.ID)
			if err != nil {
				continue
			}
			if ok {
				removed++
				changed = true
			}
		}
		if !changed {
			return removed
		}
	}
}

// eliminateAll tries each id that still names a hub.
func (g *Graph) eliminateAll(ids []NodeID) {
	for _, id := range ids {
		if n := g.nodes[id]; n != nil && n.Kind() == KindHub {
			_, _ = g.EliminateHub(id)
		}
	}
}

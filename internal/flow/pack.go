package flow

import (
	"fmt"
	"math"
)

// DefaultGroupName names composites created without an explicit name.
const DefaultGroupName = "Group"

// boundaryKey aggregates crossing flows per side, resource and endpoint.
type boundaryKey struct {
	side     Side
	resource string
	node     NodeID
}

// aggregate sums rates per key, preserving first-seen order.
type aggregate struct {
	order []boundaryKey
	rate  map[boundaryKey]float64
}

func newAggregate() *aggregate {
	return &aggregate{rate: make(map[boundaryKey]float64)}
}

func (a *aggregate) add(k boundaryKey, rate float64) {
	if _, ok := a.rate[k]; !ok {
		a.order = append(a.order, k)
	}
	a.rate[k] += rate
}

// Pack replaces the given nodes with a single composite node. Every flow
// crossing the selection boundary is split at a boundary hub, one per side
// and resource; the selection, its boundary hubs and the flows between them
// are saved inside the composite. The composite has count 1 and a ratio per
// boundary resource equal to the net flow across it.
func (g *Graph) Pack(ids []NodeID, name string) (*Node, error) {
	nodes, err := g.lookupAll(ids)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	if name == "" {
		name = DefaultGroupName
	}
	inSet := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		inSet[n.ID] = true
	}

	outer := newAggregate() // keyed by external endpoint
	inner := newAggregate() // keyed by internal endpoint
	net := newAggregate()   // keyed by resource only
	var crossing []*Flow
	for _, n := range nodes {
		for _, side := range Sides {
			for _, f := range n.io[side].Flows() {
				other := f.other(side)
				if inSet[other] {
					continue
				}
				crossing = append(crossing, f)
				outer.add(boundaryKey{side, f.Resource, other}, f.rate)
				inner.add(boundaryKey{side, f.Resource, n.ID}, f.rate)
				net.add(boundaryKey{side: side, resource: f.Resource}, f.rate)
			}
		}
	}

	pos := centroid(nodes)
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.Pos.X)
		maxX = math.Max(maxX, n.Pos.X)
	}

	// Boundary hubs live only inside the saved sub-graph.
	hubs := [2]map[string]NodeID{{}, {}}
	ratios := Ratios{{}, {}}
	captured := append([]*Node(nil), nodes...)
	slot := [2]int{}
	for _, k := range net.order {
		x := minX - 200
		if k.side == Out {
			x = maxX + 200
		}
		h := NewNode(Hub{Resource: k.resource}, net.rate[k], Position{X: x, Y: pos.Y + 200*float64(slot[k.side])})
		slot[k.side]++
		g.AddNode(h)
		hubs[k.side][k.resource] = h.ID
		ratios[k.side][k.resource] = net.rate[k]
		captured = append(captured, h)
	}
	for _, k := range inner.order {
		hub := hubs[k.side][k.resource]
		if k.side == In {
			g.AddFlow(k.resource, inner.rate[k], hub, k.node)
		} else {
			g.AddFlow(k.resource, inner.rate[k], k.node, hub)
		}
	}
	for _, f := range crossing {
		g.RemoveFlow(f)
	}

	snapshot := g.capture(captured)
	snapshot.Name = name
	for _, n := range captured {
		g.RemoveNode(n.ID)
	}

	c := NewNode(Composite{
		Name:     name,
		Inner:    snapshot,
		Hubs:     hubs,
		Ratios:   ratios,
		Baseline: 1,
	}, 1, pos)
	g.AddNode(c)
	for _, k := range outer.order {
		if k.side == In {
			g.AddFlow(k.resource, outer.rate[k], k.node, c.ID)
		} else {
			g.AddFlow(k.resource, outer.rate[k], c.ID, k.node)
		}
	}
	g.logger.Debug("packed", "composite", c.ID, "name", name, "nodes", len(nodes), "boundary", len(net.order))
	return c, nil
}

// Unpack restores the sub-graph saved inside a composite, scaled by
// count/baseline, centred on the composite's position. The composite's
// flows are reconnected to the restored boundary hubs, which are then
// eliminated where possible. Returns the restored nodes still present.
func (g *Graph) Unpack(id NodeID) ([]*Node, error) {
	n, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	c, ok := n.Data.(Composite)
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotComposite)
	}
	if c.Inner == nil {
		return nil, violation("unpack", id, "composite without inner graph")
	}
	if !finite(c.Baseline) || c.Baseline <= 0 {
		return nil, violation("unpack", id, "invalid baseline %v", c.Baseline)
	}
	if err := g.validate(c.Inner, false); err != nil {
		return nil, err
	}
	innerIDs := make(map[NodeID]bool, len(c.Inner.Nodes))
	for _, nr := range c.Inner.Nodes {
		innerIDs[nr.ID] = true
	}
	for _, side := range Sides {
		for _, f := range n.io[side].Flows() {
			hub, ok := c.Hubs[side][f.Resource]
			if !ok || !innerIDs[hub] {
				return nil, violation("unpack", id, "no %s boundary hub for %s", side, f.Resource)
			}
		}
	}

	remap, err := g.Load(c.Inner, WithMultiplier(n.Count/c.Baseline), WithFreshIDs())
	if err != nil {
		return nil, err
	}
	loaded := make([]*Node, 0, len(remap))
	for _, nr := range c.Inner.Nodes {
		loaded = append(loaded, g.nodes[remap[nr.ID]])
	}
	mid := centroid(loaded)
	for _, ln := range loaded {
		ln.Pos.X += n.Pos.X - mid.X
		ln.Pos.Y += n.Pos.Y - mid.Y
	}

	boundary := func(side Side, resource string) NodeID {
		return remap[c.Hubs[side][resource]]
	}
	for _, f := range n.io[In].Flows() {
		from := f.From
		if from == id {
			from = boundary(Out, f.Resource)
		}
		g.AddFlow(f.Resource, f.rate, from, boundary(In, f.Resource))
	}
	for _, f := range n.io[Out].Flows() {
		if f.To == id {
			continue // self-loop, reconnected with the inflows
		}
		g.AddFlow(f.Resource, f.rate, boundary(Out, f.Resource), f.To)
	}
	g.RemoveNode(id)

	var hubIDs []NodeID
	for _, side := range Sides {
		for _, r := range sortedKeys(c.Hubs[side]) {
			hubIDs = append(hubIDs, remap[c.Hubs[side][r]])
		}
	}
	g.eliminateAll(hubIDs)

	var out []*Node
	for _, ln := range loaded {
		if g.nodes[ln.ID] == ln {
			out = append(out, ln)
		}
	}
	g.logger.Debug("unpacked", "composite", id, "restored", len(out), "scale", n.Count/c.Baseline)
	return out, nil
}

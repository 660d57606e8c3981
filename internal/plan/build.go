package plan

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"factory/planner/internal/catalog"
	"factory/planner/internal/flow"
)

var ErrInfeasible = errors.New("no feasible solution")

// Layout columns for generated nodes.
const (
	columnSource  = 0
	columnMachine = 400
	columnHub     = 600
	columnSink    = 800
	rowStep       = 200
)

type endpoint struct {
	node flow.NodeID
	rate float64
}

// balance tracks producers and consumers of one resource.
type balance struct {
	producers []endpoint
	consumers []endpoint
	produced  float64
	consumed  float64
}

// Build turns a solution into a flow graph: one machine per recipe and one
// sink per Sink_ variable with positive throughput, joined per resource by a
// hub. A resource consumed more than produced gets a source for the deficit;
// one produced more than consumed gets a sink for the surplus. Degenerate
// hubs are eliminated before returning.
func Build(cat *catalog.Catalog, sol Solution, name string, opts ...flow.Option) (*flow.Graph, error) {
	if !sol.Feasible {
		return nil, ErrInfeasible
	}
	g := flow.New(cat, opts...)
	g.Name = name

	keys := make([]string, 0, len(sol.Values))
	for k, v := range sol.Values {
		if v > flow.Epsilon {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	resources := make(map[string]*balance)
	get := func(r string) *balance {
		b, ok := resources[r]
		if !ok {
			b = &balance{}
			resources[r] = b
		}
		return b
	}

	rows := map[int]int{}
	place := func(column int) flow.Position {
		p := flow.Position{X: float64(column), Y: float64(rows[column] * rowStep)}
		rows[column]++
		return p
	}

	for _, key := range keys {
		value := sol.Values[key]
		if item, ok := strings.CutPrefix(key, SinkPrefix); ok {
			id := g.AddNode(flow.NewNode(flow.Sink{Resource: item}, value, place(columnSink)))
			b := get(item)
			b.consumers = append(b.consumers, endpoint{id, value})
			b.consumed += value
			continue
		}
		tally := make(map[string][2]float64)
		if err := cat.Tally(key, value, tally); err != nil {
			return nil, fmt.Errorf("building plan: %w", err)
		}
		id := g.AddNode(flow.NewNode(flow.Machine{Recipe: key}, value, place(columnMachine)))
		for _, item := range sortedItems(tally) {
			t := tally[item]
			b := get(item)
			if t[0] > 0 {
				b.consumers = append(b.consumers, endpoint{id, t[0]})
				b.consumed += t[0]
			}
			if t[1] > 0 {
				b.producers = append(b.producers, endpoint{id, t[1]})
				b.produced += t[1]
			}
		}
	}

	items := make([]string, 0, len(resources))
	for r := range resources {
		items = append(items, r)
	}
	sort.Strings(items)
	for _, item := range items {
		b := resources[item]
		hub := g.AddNode(flow.NewNode(flow.Hub{Resource: item}, math.Max(b.produced, b.consumed), place(columnHub)))
		for _, p := range b.producers {
			g.AddFlow(item, p.rate, p.node, hub)
		}
		for _, c := range b.consumers {
			g.AddFlow(item, c.rate, hub, c.node)
		}
		switch diff := b.consumed - b.produced; {
		case diff > flow.Epsilon:
			src := g.AddNode(flow.NewNode(flow.Source{Resource: item}, diff, place(columnSource)))
			g.AddFlow(item, diff, src, hub)
		case diff < -flow.Epsilon:
			sink := g.AddNode(flow.NewNode(flow.Sink{Resource: item}, -diff, place(columnSink)))
			g.AddFlow(item, -diff, hub, sink)
		}
	}
	g.EliminateHubs()
	return g, nil
}

func sortedItems(m map[string][2]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

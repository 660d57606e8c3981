// Package flow is the production-chain flow graph: nodes connected by
// resource flows, and the structural rewrites (extract, merge, pack, unpack,
// hub elimination) that keep resource flow conserved.
//
// A Graph is owned by a single tab and is not safe for concurrent use. Every
// rewrite validates its input before mutating, so a returned error leaves the
// graph as it was.
package flow

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"factory/planner/internal/catalog"
)

// Epsilon absorbs floating point noise in rate comparisons.
const Epsilon = 1e-6

// Recipes resolves machine recipes. *catalog.Catalog satisfies it.
type Recipes interface {
	Recipe(key string) (*catalog.Recipe, error)
}

// Graph owns nodes and flows.
type Graph struct {
	Name string

	recipes Recipes
	logger  *slog.Logger

	nodes   map[NodeID]*Node
	flows   map[uint64]*Flow
	nextID  NodeID
	nextSeq uint64
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for operation debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns an empty graph. recipes may be nil when the graph holds no
// machines.
func New(recipes Recipes, opts ...Option) *Graph {
	g := &Graph{
		recipes: recipes,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		nodes:   make(map[NodeID]*Node),
		flows:   make(map[uint64]*Flow),
		nextID:  1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Recipes returns the recipe lookup the graph was built with.
func (g *Graph) Recipes() Recipes { return g.recipes }

// AddNode registers n under a fresh id and returns it.
func (g *Graph) AddNode(n *Node) NodeID {
	id := g.nextID
	g.nextID++
	g.insert(n, id)
	return id
}

// AddNodeWithID registers n under an explicit id. The id counter is advanced
// past it.
func (g *Graph) AddNodeWithID(n *Node, id NodeID) error {
	if id < 0 {
		return violation("add-node", id, "negative id")
	}
	if _, ok := g.nodes[id]; ok {
		return violation("add-node", id, "id already in use")
	}
	g.insert(n, id)
	if id >= g.nextID {
		g.nextID = id + 1
	}
	return nil
}

func (g *Graph) insert(n *Node, id NodeID) {
	if n.io[In] == nil {
		n.io = [2]*IO{newIO(), newIO()}
	}
	n.ID = id
	g.nodes[id] = n
}

// RemoveNode detaches every flow touching the node, on both endpoints, and
// then drops the node. Removing an unknown node is a defect and panics.
func (g *Graph) RemoveNode(id NodeID) {
	n, ok := g.nodes[id]
	if !ok {
		panic(violation("remove-node", id, "unknown node"))
	}
	seen := make(map[uint64]bool)
	for _, side := range Sides {
		for _, f := range n.io[side].Flows() {
			if seen[f.seq] {
				continue // self-loop, listed on both sides
			}
			seen[f.seq] = true
			g.RemoveFlow(f)
		}
	}
	if n.io[In].Len() != 0 || n.io[Out].Len() != 0 {
		panic(violation("remove-node", id, "flows still attached after detach"))
	}
	delete(g.nodes, id)
}

// AddFlow creates a flow and registers it on both endpoints. A negative or
// non-finite rate, or an unknown endpoint, is a defect and panics.
func (g *Graph) AddFlow(resource string, rate float64, from, to NodeID) *Flow {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		panic(violation("add-flow", from, "invalid rate %v", rate))
	}
	src, ok := g.nodes[from]
	if !ok {
		panic(violation("add-flow", from, "unknown source node"))
	}
	dst, ok := g.nodes[to]
	if !ok {
		panic(violation("add-flow", to, "unknown destination node"))
	}
	f := &Flow{Resource: resource, From: from, To: to, rate: rate, seq: g.nextSeq}
	g.nextSeq++
	src.io[Out].add(f)
	dst.io[In].add(f)
	g.flows[f.seq] = f
	return f
}

// RemoveFlow detaches a flow from both endpoints and the graph.
func (g *Graph) RemoveFlow(f *Flow) {
	if g.flows[f.seq] != f {
		panic(violation("remove-flow", f.From, "flow %s not registered", f))
	}
	if n, ok := g.nodes[f.From]; ok {
		n.io[Out].remove(f)
	}
	if n, ok := g.nodes[f.To]; ok {
		n.io[In].remove(f)
	}
	delete(g.flows, f.seq)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Lookup is like Node but returns ErrUnknownNode for a missing id.
func (g *Graph) Lookup(id NodeID) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return n, nil
}

// Nodes returns all nodes in id order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Flows returns all flows in creation order.
func (g *Graph) Flows() []*Flow {
	out := make([]*Flow, 0, len(g.flows))
	for _, f := range g.flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) FlowCount() int { return len(g.flows) }

// Check verifies the structural invariants: cached group totals match their
// members, every flow is registered on both endpoints, and no node holds a
// flow the graph does not know about.
func (g *Graph) Check() []error {
	var errs []error
	registered := 0
	for _, n := range g.Nodes() {
		for _, side := range Sides {
			sideIO := n.io[side]
			for _, r := range sideIO.order {
				fg := sideIO.groups[r]
				var sum float64
				for _, f := range fg.parts {
					sum += f.rate
					if g.flows[f.seq] != f {
						errs = append(errs, violation("check", n.ID, "unregistered %s flow %s", side, f))
					}
					if f.Resource != r {
						errs = append(errs, violation("check", n.ID, "flow %s filed under %q", f, r))
					}
					end := f.To
					if side == Out {
						end = f.From
					}
					if end != n.ID {
						errs = append(errs, violation("check", n.ID, "flow %s on wrong node", f))
					}
					if side == In {
						registered++
					}
				}
				if math.Abs(sum-fg.total) > Epsilon {
					errs = append(errs, violation("check", n.ID, "%s %s total %g, members sum to %g", side, r, fg.total, sum))
				}
			}
		}
	}
	for _, f := range g.Flows() {
		if g.nodes[f.From] == nil || g.nodes[f.To] == nil {
			errs = append(errs, violation("check", NoNode, "flow %s has a missing endpoint", f))
		}
	}
	if registered != len(g.flows) {
		errs = append(errs, violation("check", NoNode, "%d flows registered on nodes, %d in graph", registered, len(g.flows)))
	}
	return errs
}

// lookupAll resolves ids in order, dropping duplicates.
func (g *Graph) lookupAll(ids []NodeID) ([]*Node, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	seen := make(map[NodeID]bool, len(ids))
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := g.Lookup(id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func centroid(nodes []*Node) Position {
	var p Position
	if len(nodes) == 0 {
		return p
	}
	for _, n := range nodes {
		p.X += n.Pos.X
		p.Y += n.Pos.Y
	}
	p.X /= float64(len(nodes))
	p.Y /= float64(len(nodes))
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

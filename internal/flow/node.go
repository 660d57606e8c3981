package flow

import (
	"fmt"
	"maps"
	"reflect"
)

// NodeID identifies a node within one Graph.
type NodeID int

// Side selects the inflow or outflow half of a node.
type Side int

const (
	In  Side = 0
	Out Side = 1
)

// Sides lists both sides in index order.
var Sides = [2]Side{In, Out}

func (s Side) String() string {
	if s == In {
		return "in"
	}
	return "out"
}

// Kind enumerates node variants. String values are the save-format tags.
type Kind int

const (
	KindSource Kind = iota
	KindSink
	KindHub
	KindMachine
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindSink:
		return "sink"
	case KindHub:
		return "hub"
	case KindMachine:
		return "machine"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its save-format tag.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind maps a save-format tag back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "source":
		return KindSource, nil
	case "sink":
		return KindSink, nil
	case "hub":
		return KindHub, nil
	case "machine":
		return KindMachine, nil
	case "composite":
		return KindComposite, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", s)
	}
}

// Position is the layout position of a node. The engine never reads it
// except to place nodes it creates.
type Position struct {
	X, Y float64
}

// Node is a vertex of the flow graph. Count is a throughput scale whose unit
// depends on the variant: resource quantity per minute for logistics nodes,
// recipe runs per minute for machines, copies of the packed sub-graph for
// composites.
type Node struct {
	ID     NodeID
	Pos    Position
	Count  float64
	Active bool
	Data   NodeData

	io [2]*IO
}

// NewNode returns an unregistered node. Register it with Graph.AddNode.
func NewNode(data NodeData, count float64, pos Position) *Node {
	return &Node{
		Pos:    pos,
		Count:  count,
		Active: true,
		Data:   data,
		io:     [2]*IO{newIO(), newIO()},
	}
}

// IO returns the flow groups of one side.
func (n *Node) IO(side Side) *IO { return n.io[side] }

// Degree returns the number of edges on one side.
func (n *Node) Degree(side Side) int { return n.io[side].Len() }

// Kind returns the variant tag.
func (n *Node) Kind() Kind { return n.Data.kind() }

// Resource returns the carried resource of a logistics node, or "".
func (n *Node) Resource() string {
	switch d := n.Data.(type) {
	case Source:
		return d.Resource
	case Sink:
		return d.Resource
	case Hub:
		return d.Resource
	}
	return ""
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d(%g)", n.Kind(), n.ID, n.Count)
}

// NodeData is the closed set of kind-specific payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
	kind() Kind
}

// Source supplies a raw resource; it has no inflows.
type Source struct {
	Resource string
}

// Sink disposes of a resource; it has no outflows.
type Sink struct {
	Resource string
}

// Hub passes a single resource through unchanged.
type Hub struct {
	Resource string
}

// Machine runs a catalog recipe.
type Machine struct {
	Recipe string
}

// Composite stands in for a packed sub-graph. Inner is shared between
// copies produced by splitting and must be treated as immutable. Baseline is
// the count at which Inner was captured; unpacking scales Inner by
// Count/Baseline.
type Composite struct {
	Name     string
	Inner    *GraphRecord
	Hubs     [2]map[string]NodeID
	Ratios   Ratios
	Baseline float64
}

func (Source) nodeData()    {}
func (Sink) nodeData()      {}
func (Hub) nodeData()       {}
func (Machine) nodeData()   {}
func (Composite) nodeData() {}

func (Source) kind() Kind    { return KindSource }
func (Sink) kind() Kind      { return KindSink }
func (Hub) kind() Kind       { return KindHub }
func (Machine) kind() Kind   { return KindMachine }
func (Composite) kind() Kind { return KindComposite }

// sameParams reports whether two payloads have the same variant and
// identifying parameters, which is what Merge requires.
func sameParams(a, b NodeData) bool {
	switch x := a.(type) {
	case Source:
		y, ok := b.(Source)
		return ok && x.Resource == y.Resource
	case Sink:
		y, ok := b.(Sink)
		return ok && x.Resource == y.Resource
	case Hub:
		y, ok := b.(Hub)
		return ok && x.Resource == y.Resource
	case Machine:
		y, ok := b.(Machine)
		return ok && x.Recipe == y.Recipe
	case Composite:
		y, ok := b.(Composite)
		if !ok || x.Baseline != y.Baseline {
			return false
		}
		if x.Inner != y.Inner && !reflect.DeepEqual(x.Inner, y.Inner) {
			return false
		}
		return maps.Equal(x.Ratios[In], y.Ratios[In]) && maps.Equal(x.Ratios[Out], y.Ratios[Out])
	}
	return false
}

// split returns one fresh, unregistered node per size with the same variant
// and parameters, stacked below n.
func (n *Node) split(sizes []float64) []*Node {
	out := make([]*Node, len(sizes))
	for i, size := range sizes {
		nn := NewNode(n.Data, size, Position{X: n.Pos.X, Y: n.Pos.Y + 200*float64(i)})
		nn.Active = n.Active
		out[i] = nn
	}
	return out
}

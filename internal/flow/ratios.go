package flow

import (
	"fmt"
	"maps"
)

// Ratios is the per-unit-count consumption ([In]) and production ([Out]) of
// a node. count*ratio[side][r] is the designed throughput of r on that side.
type Ratios [2]map[string]float64

// Clone returns a deep copy.
func (r Ratios) Clone() Ratios {
	return Ratios{cloneOrEmpty(r[In]), cloneOrEmpty(r[Out])}
}

func cloneOrEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return make(map[string]float64)
	}
	return maps.Clone(m)
}

// Ratios returns the per-unit recipe of a node.
func (g *Graph) Ratios(n *Node) (Ratios, error) {
	switch d := n.Data.(type) {
	case Source:
		return Ratios{{d.Resource: 0}, {d.Resource: 1}}, nil
	case Sink:
		return Ratios{{d.Resource: 1}, {d.Resource: 0}}, nil
	case Hub:
		return Ratios{{d.Resource: 1}, {d.Resource: 1}}, nil
	case Machine:
		if g.recipes == nil {
			return Ratios{}, fmt.Errorf("machine %d: no recipe catalog", n.ID)
		}
		rec, err := g.recipes.Recipe(d.Recipe)
		if err != nil {
			return Ratios{}, fmt.Errorf("machine %d: %w", n.ID, err)
		}
		out := Ratios{make(map[string]float64), make(map[string]float64)}
		for _, in := range rec.Ingredients {
			out[In][in.Item] += in.Quantity
		}
		for _, p := range rec.Products {
			out[Out][p.Item] += p.Quantity
		}
		return out, nil
	case Composite:
		return d.Ratios.Clone(), nil
	}
	return Ratios{}, fmt.Errorf("node %d: unsupported node data %T", n.ID, n.Data)
}

// Namer maps catalog keys to display names. *catalog.Catalog satisfies it.
type Namer interface {
	ItemName(key string) string
	RecipeName(key string) string
}

// Title is the display label of a node.
func (n *Node) Title(names Namer) string {
	switch d := n.Data.(type) {
	case Source:
		return "Source " + names.ItemName(d.Resource)
	case Sink:
		return "Sink " + names.ItemName(d.Resource)
	case Hub:
		return "Hub " + names.ItemName(d.Resource)
	case Machine:
		return names.RecipeName(d.Recipe)
	case Composite:
		return d.Name
	}
	return n.Kind().String()
}

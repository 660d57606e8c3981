// Package plan builds linear programming models for an external solver and
// turns solved throughputs into a flow graph.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"factory/planner/internal/catalog"
)

// SinkPrefix marks solver variables that dispose of an item for points.
const SinkPrefix = "Sink_"

// WaterItem is extracted without a map-wide limit.
const WaterItem = "Desc_Water_C"

// GoalMaxPoints maximizes sink points per minute.
const GoalMaxPoints = "max_points"

var ErrUnsupportedGoal = errors.New("unsupported goal")

// Bound limits a resource, recipe or output. Nil means unbounded.
type Bound struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Limits are the user constraints of a solve: raw resource inputs, fixed or
// bounded recipe throughputs, and required outputs.
type Limits struct {
	Inputs  map[string]Bound `json:"inputs"`
	Recipes map[string]Bound `json:"recipes"`
	Outputs map[string]Bound `json:"outputs"`
}

// Constraint is one row of the model.
type Constraint struct {
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Equal *float64 `json:"equal,omitempty"`
}

// Model is the solver input: every variable lists its contribution to named
// constraints, and the objective names one attribute to optimize.
type Model struct {
	Optimize    string                        `json:"optimize"`
	OpType      string                        `json:"opType"`
	Constraints map[string]Constraint         `json:"constraints"`
	Variables   map[string]map[string]float64 `json:"variables"`
}

func ptr(v float64) *float64 { return &v }

// DefaultLimits caps every raw resource at its map-wide extraction limit
// and leaves water unbounded.
func DefaultLimits(cat *catalog.Catalog) Limits {
	l := Limits{Inputs: map[string]Bound{}, Recipes: map[string]Bound{}, Outputs: map[string]Bound{}}
	for key, res := range cat.Resources {
		b := Bound{}
		if res.MaxExtraction != nil {
			b.Max = ptr(*res.MaxExtraction)
		}
		l.Inputs[key] = b
	}
	l.Inputs[WaterItem] = Bound{}
	return l
}

// DecodeLimits reads limits from JSON.
func DecodeLimits(r io.Reader) (Limits, error) {
	var l Limits
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Limits{}, fmt.Errorf("decoding limits: %w", err)
	}
	return l, nil
}

// BuildModel describes the planning problem. Recipe variables consume
// ingredients (positive) and produce products (negative); Sink_ variables
// consume one unit of a sinkable solid and earn its points. Items without an
// input limit must net to zero.
func BuildModel(cat *catalog.Catalog, limits Limits, goal string) (*Model, error) {
	if goal != GoalMaxPoints {
		return nil, fmt.Errorf("goal %q: %w", goal, ErrUnsupportedGoal)
	}
	m := &Model{
		Optimize:    "sinkPoints",
		OpType:      "max",
		Constraints: make(map[string]Constraint),
		Variables:   make(map[string]map[string]float64),
	}
	for item, b := range limits.Inputs {
		m.Constraints[item] = Constraint{Min: b.Min, Max: b.Max}
	}

	for _, key := range cat.RecipeKeys() {
		r := cat.Recipes[key]
		if !r.MachineCraftable {
			continue
		}
		v := make(map[string]float64)
		for _, in := range r.Ingredients {
			v[in.Item] += in.Quantity
		}
		for _, out := range r.Products {
			v[out.Item] -= out.Quantity
		}
		if b, ok := limits.Recipes[key]; ok {
			v[key] = 1
			m.Constraints[key] = Constraint{Min: b.Min, Max: b.Max}
		}
		m.Variables[key] = v
	}

	for _, key := range cat.ItemKeys() {
		it := cat.Items[key]
		b, wanted := limits.Outputs[key]
		if (it.SinkPoints > 0 && !it.IsFluid) || wanted {
			v := map[string]float64{key: 1}
			if it.SinkPoints > 0 && !it.IsFluid {
				v["sinkPoints"] = it.SinkPoints
			}
			if wanted {
				v[SinkPrefix+key] = 1
				m.Constraints[SinkPrefix+key] = Constraint{Min: b.Min, Max: b.Max}
			}
			m.Variables[SinkPrefix+key] = v
		}
		if _, ok := m.Constraints[key]; !ok {
			m.Constraints[key] = Constraint{Equal: ptr(0)}
		}
	}
	return m, nil
}

// Encode writes the model as indented JSON.
func (m *Model) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

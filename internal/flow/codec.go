package flow

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
)

// FormatVersion is written into every saved graph.
const FormatVersion = 1

// GraphRecord is the saved form of a graph. Composite nodes embed their
// packed sub-graph in the same shape.
type GraphRecord struct {
	Version int          `json:"version"`
	Name    string       `json:"name"`
	Nodes   []NodeRecord `json:"nodes"`
	Flows   []FlowRecord `json:"flows"`
}

type NodeRecord struct {
	Type   string  `json:"type"`
	ID     NodeID  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Count  float64 `json:"count"`
	Active bool    `json:"active"`

	Resource string `json:"resource,omitempty"`
	Recipe   string `json:"recipe,omitempty"`

	Name      string               `json:"name,omitempty"`
	InnerData *GraphRecord         `json:"inner_data,omitempty"`
	InnerHubs []map[string]NodeID  `json:"inner_hubs,omitempty"`
	RatioRaw  []map[string]float64 `json:"ratio_raw,omitempty"`
	Baseline  float64              `json:"baseline,omitempty"`
}

type FlowRecord struct {
	Resource string  `json:"resource"`
	Rate     float64 `json:"rate"`
	From     NodeID  `json:"from"`
	To       NodeID  `json:"to"`
}

// Decode reads a graph record from JSON.
func Decode(r io.Reader) (*GraphRecord, error) {
	var rec GraphRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	return &rec, nil
}

// Encode writes the record as indented JSON.
func (rec *GraphRecord) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// Save captures the whole graph: nodes in id order, flows in creation order.
func (g *Graph) Save() *GraphRecord {
	return g.capture(g.Nodes())
}

// capture records the given nodes and every flow with both endpoints among
// them.
func (g *Graph) capture(nodes []*Node) *GraphRecord {
	rec := &GraphRecord{Version: FormatVersion, Name: g.Name, Nodes: []NodeRecord{}, Flows: []FlowRecord{}}
	in := make(map[NodeID]bool, len(nodes))
	sorted := make([]*Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, n := range sorted {
		in[n.ID] = true
		rec.Nodes = append(rec.Nodes, n.record())
	}
	for _, f := range g.Flows() {
		if in[f.From] && in[f.To] {
			rec.Flows = append(rec.Flows, FlowRecord{Resource: f.Resource, Rate: f.rate, From: f.From, To: f.To})
		}
	}
	return rec
}

func (n *Node) record() NodeRecord {
	nr := NodeRecord{
		Type:   n.Kind().String(),
		ID:     n.ID,
		X:      n.Pos.X,
		Y:      n.Pos.Y,
		Count:  n.Count,
		Active: n.Active,
	}
	switch d := n.Data.(type) {
	case Source:
		nr.Resource = d.Resource
	case Sink:
		nr.Resource = d.Resource
	case Hub:
		nr.Resource = d.Resource
	case Machine:
		nr.Recipe = d.Recipe
	case Composite:
		nr.Name = d.Name
		nr.InnerData = d.Inner
		nr.InnerHubs = []map[string]NodeID{cloneHubs(d.Hubs[In]), cloneHubs(d.Hubs[Out])}
		nr.RatioRaw = []map[string]float64{cloneOrEmpty(d.Ratios[In]), cloneOrEmpty(d.Ratios[Out])}
		nr.Baseline = d.Baseline
	}
	return nr
}

func cloneHubs(m map[string]NodeID) map[string]NodeID {
	out := make(map[string]NodeID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// data rebuilds the node payload. The record must have passed validation.
func (nr *NodeRecord) data() NodeData {
	kind, _ := ParseKind(nr.Type)
	switch kind {
	case KindSource:
		return Source{Resource: nr.Resource}
	case KindSink:
		return Sink{Resource: nr.Resource}
	case KindHub:
		return Hub{Resource: nr.Resource}
	case KindMachine:
		return Machine{Recipe: nr.Recipe}
	}
	c := Composite{
		Name:     nr.Name,
		Inner:    nr.InnerData,
		Hubs:     [2]map[string]NodeID{{}, {}},
		Ratios:   Ratios{{}, {}},
		Baseline: nr.Baseline,
	}
	if c.Baseline == 0 {
		c.Baseline = 1
	}
	for i := 0; i < len(nr.InnerHubs) && i < 2; i++ {
		c.Hubs[i] = cloneHubs(nr.InnerHubs[i])
	}
	for i := 0; i < len(nr.RatioRaw) && i < 2; i++ {
		c.Ratios[i] = cloneOrEmpty(nr.RatioRaw[i])
	}
	return c
}

type loadOptions struct {
	multiplier float64
	fresh      bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithMultiplier scales every loaded count and rate.
func WithMultiplier(m float64) LoadOption {
	return func(o *loadOptions) { o.multiplier = m }
}

// WithFreshIDs assigns new ids to loaded nodes instead of keeping the saved
// ones.
func WithFreshIDs() LoadOption {
	return func(o *loadOptions) { o.fresh = true }
}

// Load inserts a saved graph and returns the saved-id to live-id mapping.
// The record is fully validated first; on error nothing is inserted.
func (g *Graph) Load(rec *GraphRecord, opts ...LoadOption) (map[NodeID]NodeID, error) {
	o := loadOptions{multiplier: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if math.IsNaN(o.multiplier) || math.IsInf(o.multiplier, 0) || o.multiplier < 0 {
		return nil, violation("load", NoNode, "invalid multiplier %v", o.multiplier)
	}
	if err := g.validate(rec, !o.fresh); err != nil {
		return nil, err
	}

	remap := make(map[NodeID]NodeID, len(rec.Nodes))
	for i := range rec.Nodes {
		nr := &rec.Nodes[i]
		n := NewNode(nr.data(), nr.Count*o.multiplier, Position{X: nr.X, Y: nr.Y})
		n.Active = nr.Active
		if o.fresh {
			remap[nr.ID] = g.AddNode(n)
			continue
		}
		if err := g.AddNodeWithID(n, nr.ID); err != nil {
			// validate rejects clashes, so this is unreachable
			panic(err)
		}
		remap[nr.ID] = nr.ID
	}
	for _, fr := range rec.Flows {
		g.AddFlow(fr.Resource, fr.Rate*o.multiplier, remap[fr.From], remap[fr.To])
	}
	g.logger.Debug("loaded graph", "name", rec.Name, "nodes", len(rec.Nodes), "flows", len(rec.Flows), "multiplier", o.multiplier)
	return remap, nil
}

// FromRecord builds a new graph from a saved record, keeping saved ids.
func FromRecord(rec *GraphRecord, recipes Recipes, opts ...Option) (*Graph, error) {
	g := New(recipes, opts...)
	if _, err := g.Load(rec); err != nil {
		return nil, err
	}
	g.Name = rec.Name
	return g, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validate checks a record without touching the graph. When keepIDs is set
// saved ids must not clash with live ones.
func (g *Graph) validate(rec *GraphRecord, keepIDs bool) error {
	if rec == nil {
		return violation("load", NoNode, "missing graph record")
	}
	if rec.Version > FormatVersion {
		return violation("load", NoNode, "unsupported format version %d", rec.Version)
	}
	kinds := make(map[NodeID]Kind, len(rec.Nodes))
	for i := range rec.Nodes {
		nr := &rec.Nodes[i]
		kind, err := ParseKind(nr.Type)
		if err != nil {
			return violation("load", nr.ID, "%v", err)
		}
		if nr.ID < 0 {
			return violation("load", nr.ID, "negative id %d", nr.ID)
		}
		if _, dup := kinds[nr.ID]; dup {
			return violation("load", nr.ID, "duplicate id")
		}
		if keepIDs && g.nodes[nr.ID] != nil {
			return violation("load", nr.ID, "id already in use")
		}
		if !finite(nr.X) || !finite(nr.Y) || !finite(nr.Count) || nr.Count < 0 {
			return violation("load", nr.ID, "invalid position or count")
		}
		switch kind {
		case KindSource, KindSink, KindHub:
			if nr.Resource == "" {
				return violation("load", nr.ID, "%s without resource", kind)
			}
		case KindMachine:
			if nr.Recipe == "" {
				return violation("load", nr.ID, "machine without recipe")
			}
			if g.recipes != nil {
				if _, err := g.recipes.Recipe(nr.Recipe); err != nil {
					return violation("load", nr.ID, "%v", err)
				}
			}
		case KindComposite:
			if err := g.validateComposite(nr); err != nil {
				return err
			}
		}
		kinds[nr.ID] = kind
	}
	for _, fr := range rec.Flows {
		if _, ok := kinds[fr.From]; !ok {
			return violation("load", fr.From, "flow from unknown node")
		}
		if _, ok := kinds[fr.To]; !ok {
			return violation("load", fr.To, "flow to unknown node")
		}
		if fr.Resource == "" || !finite(fr.Rate) || fr.Rate < 0 {
			return violation("load", fr.From, "invalid flow %s %v", fr.Resource, fr.Rate)
		}
	}
	return nil
}

func (g *Graph) validateComposite(nr *NodeRecord) error {
	if nr.InnerData == nil {
		return violation("load", nr.ID, "composite without inner graph")
	}
	if len(nr.InnerHubs) != 0 && len(nr.InnerHubs) != 2 {
		return violation("load", nr.ID, "inner_hubs needs 2 sides, got %d", len(nr.InnerHubs))
	}
	if len(nr.RatioRaw) != 0 && len(nr.RatioRaw) != 2 {
		return violation("load", nr.ID, "ratio_raw needs 2 sides, got %d", len(nr.RatioRaw))
	}
	if !finite(nr.Baseline) || nr.Baseline < 0 {
		return violation("load", nr.ID, "invalid baseline %v", nr.Baseline)
	}
	for _, side := range nr.RatioRaw {
		for r, v := range side {
			if !finite(v) || v < 0 {
				return violation("load", nr.ID, "invalid ratio %v for %s", v, r)
			}
		}
	}
	// The inner graph is only ever loaded with fresh ids.
	if err := g.validate(nr.InnerData, false); err != nil {
		return violation("load", nr.ID, "inner graph: %v", err)
	}
	hubs := make(map[NodeID]bool)
	for _, inner := range nr.InnerData.Nodes {
		if inner.Type == KindHub.String() {
			hubs[inner.ID] = true
		}
	}
	for _, side := range nr.InnerHubs {
		for r, id := range side {
			if !hubs[id] {
				return violation("load", nr.ID, "boundary hub %d for %s is not an inner hub", id, r)
			}
		}
	}
	return nil
}

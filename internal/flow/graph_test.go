package flow

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"factory/planner/internal/catalog"
)

type testRecipes map[string]*catalog.Recipe

func (r testRecipes) Recipe(key string) (*catalog.Recipe, error) {
	rec, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("recipe %q not found", key)
	}
	return rec, nil
}

// recipes: "plate" turns 2 A into 1 B, "screw" turns 1 B into 4 C.
func newTestGraph() *Graph {
	return New(testRecipes{
		"plate": {
			Slug:        "plate",
			Name:        "Plate",
			CraftTime:   6,
			Ingredients: []catalog.ItemAmount{{Item: "A", Quantity: 2}},
			Products:    []catalog.ItemAmount{{Item: "B", Quantity: 1}},
		},
		"screw": {
			Slug:        "screw",
			Name:        "Screw",
			CraftTime:   6,
			Ingredients: []catalog.ItemAmount{{Item: "B", Quantity: 1}},
			Products:    []catalog.ItemAmount{{Item: "C", Quantity: 4}},
		},
	})
}

func add(g *Graph, data NodeData, count float64) NodeID {
	return g.AddNode(NewNode(data, count, Position{}))
}

func near(a, b float64) bool { return math.Abs(a-b) <= Epsilon }

func mustCheck(t *testing.T, g *Graph) {
	t.Helper()
	for _, err := range g.Check() {
		t.Errorf("invariant: %v", err)
	}
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("%s: expected panic", what)
			return
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvariant) {
			t.Errorf("%s: expected invariant panic, got %v", what, r)
		}
	}()
	fn()
}

// --- Data model ---

func TestAddNode_IDsMonotonic(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 1)
	b := add(g, Sink{Resource: "A"}, 1)
	if a != 1 || b != 2 {
		t.Errorf("expected ids 1,2, got %d,%d", a, b)
	}
	g.RemoveNode(b)
	c := add(g, Sink{Resource: "A"}, 1)
	if c != 3 {
		t.Errorf("ids must not be reused, got %d", c)
	}
}

func TestAddNodeWithID_AdvancesCounter(t *testing.T) {
	g := newTestGraph()
	if err := g.AddNodeWithID(NewNode(Hub{Resource: "A"}, 1, Position{}), 41); err != nil {
		t.Fatal(err)
	}
	if id := add(g, Hub{Resource: "A"}, 1); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
	err := g.AddNodeWithID(NewNode(Hub{Resource: "A"}, 1, Position{}), 41)
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("expected invariant error for clash, got %v", err)
	}
}

func TestFlowGroup_Totals(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 10)
	hub := add(g, Hub{Resource: "A"}, 10)
	f1 := g.AddFlow("A", 3, src, hub)
	g.AddFlow("A", 0.1, src, hub)
	g.AddFlow("A", 0.2, src, hub)

	in := g.Node(hub).IO(In).MustGroup("A")
	if in.Len() != 3 || !near(in.Total(), 3.3) {
		t.Errorf("expected 3 flows totalling 3.3, got %d / %g", in.Len(), in.Total())
	}
	g.RemoveFlow(f1)
	if !near(in.Total(), 0.3) {
		t.Errorf("expected 0.3 after removal, got %g", in.Total())
	}
	if out := g.Node(src).IO(Out).MustGroup("A"); out.Len() != 2 {
		t.Errorf("removal must detach both endpoints, source still has %d", out.Len())
	}
	mustCheck(t, g)
}

func TestMustGroup_NeverPopulated(t *testing.T) {
	g := newTestGraph()
	id := add(g, Hub{Resource: "A"}, 1)
	expectPanic(t, "MustGroup", func() { g.Node(id).IO(In).MustGroup("A") })
}

func TestAddFlow_Defects(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 1)
	expectPanic(t, "negative rate", func() { g.AddFlow("A", -1, a, a) })
	expectPanic(t, "NaN rate", func() { g.AddFlow("A", math.NaN(), a, a) })
	expectPanic(t, "unknown endpoint", func() { g.AddFlow("A", 1, a, 99) })
	expectPanic(t, "unknown node removal", func() { g.RemoveNode(99) })
}

func TestRemoveNode_DetachesAllFlows(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 4)
	hub := add(g, Hub{Resource: "A"}, 4)
	dst := add(g, Sink{Resource: "A"}, 4)
	g.AddFlow("A", 4, src, hub)
	g.AddFlow("A", 4, hub, dst)

	g.RemoveNode(hub)
	if g.FlowCount() != 0 {
		t.Errorf("expected no flows, got %d", g.FlowCount())
	}
	if g.Node(src).Degree(Out) != 0 || g.Node(dst).Degree(In) != 0 {
		t.Error("neighbours still hold flows of the removed node")
	}
	mustCheck(t, g)
}

func TestRatios(t *testing.T) {
	g := newTestGraph()
	m := g.Node(add(g, Machine{Recipe: "plate"}, 1))
	r, err := g.Ratios(m)
	if err != nil {
		t.Fatal(err)
	}
	if r[In]["A"] != 2 || r[Out]["B"] != 1 {
		t.Errorf("unexpected machine ratios %v", r)
	}
	src := g.Node(add(g, Source{Resource: "A"}, 1))
	r, _ = g.Ratios(src)
	if r[In]["A"] != 0 || r[Out]["A"] != 1 {
		t.Errorf("unexpected source ratios %v", r)
	}
	bad := g.Node(add(g, Machine{Recipe: "missing"}, 1))
	if _, err := g.Ratios(bad); err == nil {
		t.Error("expected error for unknown recipe")
	}
}

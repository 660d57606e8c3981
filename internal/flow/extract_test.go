package flow

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestExtract_ConcreteSplit(t *testing.T) {
	g := newTestGraph()
	feed := add(g, Source{Resource: "A"}, 20)
	m := add(g, Machine{Recipe: "plate"}, 10)
	g.AddFlow("A", 20, feed, m)

	nodes, err := g.Extract(m, []Part{{{"A": {Exactly(5)}}, nil}})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if !near(nodes[0].Count, 2.5) || !near(nodes[1].Count, 7.5) {
		t.Errorf("expected counts 2.5/7.5, got %g/%g", nodes[0].Count, nodes[1].Count)
	}
	for i, want := range []float64{5, 15} {
		fg := nodes[i].IO(In).MustGroup("A")
		if fg.Len() != 1 || !near(fg.Total(), want) {
			t.Errorf("node %d: expected one A inflow of %g, got %d totalling %g", i, want, fg.Len(), fg.Total())
		}
		if fg.At(0).From != feed {
			t.Errorf("node %d: inflow should come from the original source", i)
		}
	}
	if g.Node(m) != nil {
		t.Error("original node still present")
	}
	mustCheck(t, g)
}

func TestExtract_ImpossibleLeavesGraph(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 5)
	sink := add(g, Sink{Resource: "A"}, 5)
	g.AddFlow("A", 5, src, sink)
	before := g.Save()

	_, err := g.Extract(sink, []Part{{{"A": {Exactly(8)}}, nil}})
	if !errors.Is(err, ErrImpossible) {
		t.Fatalf("expected ErrImpossible, got %v", err)
	}
	if !reflect.DeepEqual(before, g.Save()) {
		t.Error("graph changed after a rejected extraction")
	}
}

func TestExtract_TotalAboveCount(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 4)
	b := add(g, Source{Resource: "A"}, 4)
	sink := add(g, Sink{Resource: "A"}, 6)
	g.AddFlow("A", 4, a, sink)
	g.AddFlow("A", 4, b, sink)

	// Both flows fully requested: 8 > 6.
	_, err := g.Extract(sink, []Part{
		{{"A": {Exactly(4), Exactly(0)}}, nil},
		{{"A": {Exactly(0), Exactly(4)}}, nil},
	})
	if !errors.Is(err, ErrImpossible) {
		t.Errorf("expected ErrImpossible, got %v", err)
	}
}

func TestExtract_OverlappingConcrete(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 5)
	sink := add(g, Sink{Resource: "A"}, 5)
	g.AddFlow("A", 5, src, sink)

	_, err := g.Extract(sink, []Part{
		{{"A": {Exactly(3)}}, nil},
		{{"A": {Exactly(3)}}, nil},
	})
	if !errors.Is(err, ErrImpossible) {
		t.Errorf("expected ErrImpossible when parts overdraw one flow, got %v", err)
	}
}

func TestExtract_CompetingAnyKeepsEveryFlow(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 5)
	b := add(g, Source{Resource: "A"}, 5)
	sink := add(g, Sink{Resource: "A"}, 10)
	g.AddFlow("A", 5, a, sink)
	g.AddFlow("A", 5, b, sink)

	// Both parts may only draw on the first flow.
	nodes, err := g.Extract(sink, []Part{
		{{"A": {Any(), Exactly(0)}}, nil},
		{{"A": {Any(), Exactly(0)}}, nil},
	})
	if err != nil {
		t.Fatal(err)
	}
	var count, in float64
	for _, n := range nodes {
		count += n.Count
		in += n.IO(In).Total("A")
		if !near(n.Count, n.IO(In).Total("A")) {
			t.Errorf("node %d: count %g but inflow %g", n.ID, n.Count, n.IO(In).Total("A"))
		}
	}
	if !near(count, 10) || !near(in, 10) {
		t.Errorf("expected count 10 and inflow 10, got %g and %g", count, in)
	}
	if got := g.Node(b).IO(Out).Total("A"); !near(got, 5) {
		t.Errorf("second source should still send 5, got %g", got)
	}
	if !near(nodes[0].Count, 5) || !near(nodes[1].Count, 0) {
		t.Errorf("expected first part 5 and second part 0, got %g and %g", nodes[0].Count, nodes[1].Count)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected a remainder for the unclaimed flow, got %d nodes", len(nodes))
	}
	if fg := nodes[2].IO(In).MustGroup("A"); fg.Len() != 1 || fg.At(0).From != b {
		t.Errorf("remainder should take the flow from the second source")
	}
	mustCheck(t, g)
}

func TestExtract_StarvedLaterPartImpossible(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 10)
	b := add(g, Source{Resource: "A"}, 10)
	m := add(g, Machine{Recipe: "plate"}, 10)
	out := add(g, Sink{Resource: "B"}, 10)
	g.AddFlow("A", 10, a, m)
	g.AddFlow("A", 10, b, m)
	g.AddFlow("B", 10, m, out)
	before := g.Save()

	// The first part fills from the second A flow, which the second part
	// needs in full.
	_, err := g.Extract(m, []Part{
		{{"A": {Exactly(2), Any()}}, nil},
		{{"A": {Exactly(0), Any()}}, {"B": {Exactly(5)}}},
	})
	if !errors.Is(err, ErrImpossible) {
		t.Fatalf("expected ErrImpossible, got %v", err)
	}
	if !reflect.DeepEqual(before, g.Save()) {
		t.Error("graph changed after a rejected extraction")
	}
}

func TestExtract_AnyFillsInFlowOrder(t *testing.T) {
	g := newTestGraph()
	a := add(g, Source{Resource: "A"}, 3)
	b := add(g, Source{Resource: "A"}, 4)
	hub := add(g, Hub{Resource: "A"}, 7)
	out := add(g, Sink{Resource: "A"}, 7)
	g.AddFlow("A", 3, a, hub)
	g.AddFlow("A", 4, b, hub)
	g.AddFlow("A", 7, hub, out)

	// Take 5 from the outflow; inflows are Any and fill in order.
	nodes, err := g.Extract(hub, []Part{{nil, {"A": {Exactly(5)}}}})
	if err != nil {
		t.Fatal(err)
	}
	// New hubs with one outflow are spliced away, so the sources feed the
	// sink directly.
	if len(nodes) != 0 {
		t.Errorf("expected both new hubs eliminated, %d left", len(nodes))
	}
	var fromA, fromB float64
	for _, f := range g.Node(out).IO(In).MustGroup("A").Flows() {
		switch f.From {
		case a:
			fromA += f.Rate()
		case b:
			fromB += f.Rate()
		}
		if f.Rate() <= Epsilon {
			t.Errorf("noise flow %s created", f)
		}
	}
	if !near(fromA, 3) || !near(fromB, 4) {
		t.Errorf("expected 3 from a and 4 from b, got %g and %g", fromA, fromB)
	}
	if !near(g.Node(out).IO(In).Total("A"), 7) {
		t.Errorf("sink inflow must be conserved, got %g", g.Node(out).IO(In).Total("A"))
	}
	mustCheck(t, g)
}

func TestExtract_ConservesEveryResource(t *testing.T) {
	g := newTestGraph()
	ore := add(g, Source{Resource: "A"}, 20)
	m := add(g, Machine{Recipe: "plate"}, 10)
	s1 := add(g, Sink{Resource: "B"}, 4)
	s2 := add(g, Sink{Resource: "B"}, 6)
	g.AddFlow("A", 20, ore, m)
	g.AddFlow("B", 4, m, s1)
	g.AddFlow("B", 6, m, s2)

	nodes, err := g.Extract(m, []Part{{nil, {"B": {Exactly(4), Exactly(0)}}}})
	if err != nil {
		t.Fatal(err)
	}
	var count, a, b float64
	for _, n := range nodes {
		count += n.Count
		a += n.IO(In).Total("A")
		b += n.IO(Out).Total("B")
		for _, side := range Sides {
			for _, f := range n.IO(side).Flows() {
				if f.Rate() <= Epsilon {
					t.Errorf("noise flow %s created", f)
				}
			}
		}
	}
	if !near(count, 10) || !near(a, 20) || !near(b, 10) {
		t.Errorf("expected count 10, A 20, B 10; got %g, %g, %g", count, a, b)
	}
	if !near(nodes[0].Count, 4) || !near(nodes[0].IO(In).Total("A"), 8) {
		t.Errorf("first part should run at 4 consuming 8 A, got %g / %g", nodes[0].Count, nodes[0].IO(In).Total("A"))
	}
	mustCheck(t, g)
}

func TestExtract_CompositeCopiesShareSnapshot(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 10)
	m := add(g, Machine{Recipe: "plate"}, 5)
	dst := add(g, Sink{Resource: "B"}, 5)
	g.AddFlow("A", 10, src, m)
	g.AddFlow("B", 5, m, dst)
	c, err := g.Pack([]NodeID{m}, "plates")
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := g.Extract(c.ID, []Part{{{"A": {Exactly(4)}}, nil}})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 composites, got %d", len(nodes))
	}
	a, b := nodes[0].Data.(Composite), nodes[1].Data.(Composite)
	if a.Inner != b.Inner {
		t.Error("split composites should share one snapshot")
	}
	if !near(nodes[0].Count, 0.4) || !near(nodes[1].Count, 0.6) {
		t.Errorf("expected counts 0.4/0.6, got %g/%g", nodes[0].Count, nodes[1].Count)
	}
}

func TestExtract_UnknownResource(t *testing.T) {
	g := newTestGraph()
	src := add(g, Source{Resource: "A"}, 1)
	sink := add(g, Sink{Resource: "A"}, 1)
	g.AddFlow("A", 1, src, sink)
	if _, err := g.Extract(sink, []Part{{{"Z": {Exactly(1)}}, nil}}); !errors.Is(err, ErrImpossible) {
		t.Errorf("expected ErrImpossible, got %v", err)
	}
	if _, err := g.Extract(99, []Part{{}}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestAmount_JSON(t *testing.T) {
	var p Part
	if err := json.Unmarshal([]byte(`[{"A": [5, null, "?", "*"]}, {}]`), &p); err != nil {
		t.Fatal(err)
	}
	got := p[In]["A"]
	if len(got) != 4 || got[0].IsAny() || got[0].Value() != 5 {
		t.Fatalf("unexpected amounts %v", got)
	}
	for i := 1; i < 4; i++ {
		if !got[i].IsAny() {
			t.Errorf("amount %d should be Any", i)
		}
	}
	if err := json.Unmarshal([]byte(`[{"A": ["x"]}, {}]`), &p); err == nil {
		t.Error("expected error for invalid amount")
	}
}

package flow

import (
	"encoding/json"
	"fmt"
	"math"
)

// Amount is one slot of an extraction request: either a fixed rate taken
// from the aligned flow, or Any, filled greedily from what is left.
type Amount struct {
	value float64
	any   bool
}

// Exactly requests a fixed rate from a flow.
func Exactly(v float64) Amount { return Amount{value: v} }

// Any leaves the rate to the allocator.
func Any() Amount { return Amount{any: true} }

func (a Amount) IsAny() bool    { return a.any }
func (a Amount) Value() float64 { return a.value }

func (a Amount) String() string {
	if a.any {
		return "*"
	}
	return fmt.Sprintf("%g", a.value)
}

// MarshalJSON encodes Any as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.any {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

// UnmarshalJSON accepts a number, or null, "?" or "*" for Any.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*a = Any()
	case float64:
		*a = Exactly(v)
	case string:
		if v != "?" && v != "*" {
			return fmt.Errorf("invalid amount %q", v)
		}
		*a = Any()
	default:
		return fmt.Errorf("invalid amount %s", b)
	}
	return nil
}

// Part is one requested group of an extraction: per side and resource, a
// list of amounts aligned by index with the node's flows of that resource.
// A resource or side the part does not mention is all Any; a list shorter
// than the flow list requests zero from the flows past its end.
type Part [2]map[string][]Amount

// slotPlan is the resolved request of one part for one side and resource.
type slotPlan struct {
	side     Side
	resource string
	amounts  []Amount
	min, max float64
	alloc    []float64
}

type partPlan struct {
	slots    []*slotPlan
	min, max float64
	size     float64
	rest     bool
}

// Extract splits node id into one new node per part, plus a remainder node
// holding whatever the parts leave unassigned. Counts of the new nodes sum to
// the original count, and every flow of the original is redistributed over
// them. Returns ErrImpossible, before touching the graph, when the parts
// cannot be satisfied.
func (g *Graph) Extract(id NodeID, parts []Part) ([]*Node, error) {
	n, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("extract node %d: %w", id, ErrEmptySelection)
	}
	ratios, err := g.Ratios(n)
	if err != nil {
		return nil, err
	}
	for _, side := range Sides {
		for _, f := range n.io[side].Flows() {
			if f.From == f.To {
				return nil, impossible("node %d has a flow to itself", id)
			}
		}
	}

	plans, err := resolveParts(n, parts)
	if err != nil {
		return nil, err
	}

	// Concrete amounts of every part are reserved before any Any slot.
	pool, err := reserve(n, plans)
	if err != nil {
		return nil, err
	}

	var totalMin, totalMax float64
	for pi, p := range plans {
		if err := p.bounds(ratios, pool); err != nil {
			return nil, fmt.Errorf("part %d: %w", pi, err)
		}
		totalMin += p.min
		totalMax += p.max
		if totalMin-Epsilon > totalMax {
			return nil, impossible("parts up to %d need at least %g but allow at most %g", pi, totalMin, totalMax)
		}
	}
	if totalMin-Epsilon > n.Count {
		return nil, impossible("parts need at least %g but node %d only has %g", totalMin, id, n.Count)
	}

	// Parts are sized and filled in order, each against the capacity the
	// earlier parts left behind, so no part is promised flow another takes.
	free := math.Max(0, n.Count-totalMin)
	for pi, p := range plans {
		if pi > 0 {
			if err := p.bounds(ratios, pool); err != nil {
				return nil, fmt.Errorf("part %d after earlier parts: %w", pi, err)
			}
		}
		extra := math.Max(0, math.Min(p.max-p.min, free))
		free -= extra
		p.size = p.min + extra
		p.fill(ratios, pool)
	}

	// The remainder takes every flow no part claimed.
	rest := &partPlan{rest: true, size: free}
	for _, side := range Sides {
		for _, r := range n.io[side].order {
			fg := n.io[side].groups[r]
			amounts := make([]Amount, fg.Len())
			for i := range amounts {
				amounts[i] = Any()
			}
			rest.slots = append(rest.slots, &slotPlan{
				side: side, resource: r, amounts: amounts,
				alloc: make([]float64, fg.Len()),
			})
		}
	}
	rest.fill(ratios, pool)
	plans = append(plans, rest)

	// Validation is complete; mutate from here on.
	keep := make([]*partPlan, 0, len(plans))
	sizes := make([]float64, 0, len(plans))
	for _, p := range plans {
		if p.rest && p.empty() {
			continue
		}
		keep = append(keep, p)
		sizes = append(sizes, p.size)
	}
	created := n.split(sizes)
	for i, nn := range created {
		g.AddNode(nn)
		p := keep[i]
		for _, s := range p.slots {
			fg := n.io[s.side].groups[s.resource]
			for ei, rate := range s.alloc {
				if rate <= Epsilon {
					continue
				}
				orig := fg.parts[ei]
				if s.side == In {
					g.AddFlow(s.resource, rate, orig.From, nn.ID)
				} else {
					g.AddFlow(s.resource, rate, nn.ID, orig.To)
				}
			}
		}
	}
	g.RemoveNode(id)

	ids := make([]NodeID, len(created))
	for i, nn := range created {
		ids[i] = nn.ID
	}
	g.eliminateAll(ids)

	var out []*Node
	for _, nid := range ids {
		if nn := g.nodes[nid]; nn != nil {
			out = append(out, nn)
		}
	}
	g.logger.Debug("extracted", "node", id, "parts", len(parts), "sizes", sizes, "created", ids)
	return out, nil
}

// resolveParts expands every part to cover every side and resource of n.
func resolveParts(n *Node, parts []Part) ([]*partPlan, error) {
	plans := make([]*partPlan, len(parts))
	for pi, part := range parts {
		for _, side := range Sides {
			for r := range part[side] {
				if _, ok := n.io[side].groups[r]; !ok {
					return nil, impossible("part %d: node %d has no %s flows of %s", pi, n.ID, side, r)
				}
			}
		}
		p := &partPlan{}
		for _, side := range Sides {
			for _, r := range n.io[side].order {
				fg := n.io[side].groups[r]
				given, mentioned := part[side][r]
				if len(given) > fg.Len() {
					return nil, impossible("part %d: %d amounts for %d %s flows of %s", pi, len(given), fg.Len(), side, r)
				}
				amounts := make([]Amount, fg.Len())
				for i := range amounts {
					switch {
					case !mentioned:
						amounts[i] = Any()
					case i < len(given):
						amounts[i] = given[i]
					default:
						amounts[i] = Exactly(0)
					}
				}
				p.slots = append(p.slots, &slotPlan{
					side: side, resource: r, amounts: amounts,
					alloc: make([]float64, fg.Len()),
				})
			}
		}
		plans[pi] = p
	}
	return plans, nil
}

type edgeKey struct {
	side     Side
	resource string
}

// reserve clamps concrete amounts, checks them against the flow rates, and
// returns the capacity left on each flow for Any slots.
func reserve(n *Node, plans []*partPlan) (map[edgeKey][]float64, error) {
	pool := make(map[edgeKey][]float64)
	for _, side := range Sides {
		for _, r := range n.io[side].order {
			fg := n.io[side].groups[r]
			caps := make([]float64, fg.Len())
			for i, f := range fg.parts {
				caps[i] = f.rate
			}
			pool[edgeKey{side, r}] = caps
		}
	}
	for pi, p := range plans {
		for _, s := range p.slots {
			caps := pool[edgeKey{s.side, s.resource}]
			fg := n.io[s.side].groups[s.resource]
			for i, a := range s.amounts {
				if a.any {
					continue
				}
				v := a.value
				if math.IsNaN(v) || v < 0 {
					v = 0
				}
				rate := fg.parts[i].rate
				if v > rate+Epsilon {
					return nil, impossible("part %d: %s %s flow %d carries %g, %g requested", pi, s.side, s.resource, i, rate, v)
				}
				v = math.Min(v, rate)
				s.amounts[i] = Exactly(v)
				s.alloc[i] = v
				caps[i] -= v
				if caps[i] < -Epsilon {
					return nil, impossible("%s %s flow %d carries %g, parts request %g", s.side, s.resource, i, rate, rate-caps[i])
				}
				caps[i] = math.Max(0, caps[i])
			}
		}
	}
	return pool, nil
}

// bounds computes the part's size range in node count units.
func (p *partPlan) bounds(ratios Ratios, pool map[edgeKey][]float64) error {
	p.min, p.max = 0, math.Inf(1)
	for _, s := range p.slots {
		caps := pool[edgeKey{s.side, s.resource}]
		s.min, s.max = 0, 0
		for i, a := range s.amounts {
			if a.any {
				s.max += caps[i]
			} else {
				s.min += a.value
				s.max += a.value
			}
		}
		mul := ratios[s.side][s.resource]
		lo := s.min / mul
		if s.min == 0 {
			lo = 0
		}
		hi := s.max / mul
		if s.max == 0 && mul == 0 {
			hi = math.Inf(1)
		}
		p.min = math.Max(p.min, lo)
		p.max = math.Min(p.max, hi)
	}
	if p.min-Epsilon > p.max {
		return impossible("needs at least %g but allows at most %g", p.min, p.max)
	}
	return nil
}

// fill assigns Any slots from the shared pool in flow order, up to the
// amount implied by the part's final size. The remainder drains the pool.
func (p *partPlan) fill(ratios Ratios, pool map[edgeKey][]float64) {
	for _, s := range p.slots {
		caps := pool[edgeKey{s.side, s.resource}]
		want := ratios[s.side][s.resource]*p.size - s.min
		if p.rest {
			want = math.Inf(1)
		}
		for i, a := range s.amounts {
			if !a.any {
				continue
			}
			if want <= Epsilon {
				break
			}
			take := math.Min(caps[i], want)
			s.alloc[i] = take
			caps[i] -= take
			want -= take
		}
	}
}

// empty reports whether a remainder part ended up with nothing to carry.
func (p *partPlan) empty() bool {
	if p.size > Epsilon {
		return false
	}
	for _, s := range p.slots {
		for _, v := range s.alloc {
			if v > Epsilon {
				return false
			}
		}
	}
	return true
}

package flow

import "fmt"

// Flow is a directed, resource-typed edge. Resource, From and To are set at
// creation and must not be modified; the rate is fixed for the lifetime of
// the flow. Rewiring means removing the flow and adding a new one.
type Flow struct {
	Resource string
	From     NodeID
	To       NodeID

	rate float64
	seq  uint64
}

// Rate returns the quantity per minute carried by the flow.
func (f *Flow) Rate() float64 { return f.rate }

// Seq returns the creation sequence number. Flows sharing a group are kept
// in Seq order, which is the "edge list order" used by extraction.
func (f *Flow) Seq() uint64 { return f.seq }

func (f *Flow) String() string {
	return fmt.Sprintf("%d -[%s %g]-> %d", f.From, f.Resource, f.rate, f.To)
}

// other returns the endpoint that is not on the given side of a node, i.e.
// the source of an inflow or the destination of an outflow.
func (f *Flow) other(side Side) NodeID {
	if side == In {
		return f.From
	}
	return f.To
}

// FlowGroup is the set of flows of one resource on one side of a node.
type FlowGroup struct {
	resource string
	parts    []*Flow
	total    float64
}

func (fg *FlowGroup) Resource() string { return fg.resource }

// Total returns the summed rate of all member flows.
func (fg *FlowGroup) Total() float64 { return fg.total }

func (fg *FlowGroup) Len() int { return len(fg.parts) }

// At returns the i-th member flow.
func (fg *FlowGroup) At(i int) *Flow { return fg.parts[i] }

// Flows returns a copy of the member flows in edge list order.
func (fg *FlowGroup) Flows() []*Flow {
	out := make([]*Flow, len(fg.parts))
	copy(out, fg.parts)
	return out
}

func (fg *FlowGroup) add(f *Flow) {
	fg.parts = append(fg.parts, f)
	fg.total += f.rate
}

func (fg *FlowGroup) remove(f *Flow) bool {
	for i, p := range fg.parts {
		if p == f {
			fg.parts = append(fg.parts[:i], fg.parts[i+1:]...)
			fg.recompute()
			return true
		}
	}
	return false
}

// recompute rebuilds total from scratch so repeated removals cannot drift.
func (fg *FlowGroup) recompute() {
	var sum float64
	for _, p := range fg.parts {
		sum += p.rate
	}
	fg.total = sum
}

// IO is one side of a node: flow groups keyed by resource, iterated in the
// order each resource was first seen. Groups persist once populated, even
// after their last flow is removed.
type IO struct {
	order  []string
	groups map[string]*FlowGroup
}

func newIO() *IO {
	return &IO{groups: make(map[string]*FlowGroup)}
}

// Resources returns the resource keys in first-seen order.
func (io *IO) Resources() []string {
	out := make([]string, len(io.order))
	copy(out, io.order)
	return out
}

// Group returns the flow group for a resource.
func (io *IO) Group(resource string) (*FlowGroup, bool) {
	fg, ok := io.groups[resource]
	return fg, ok
}

// MustGroup is like Group but panics when the resource was never populated
// on this side.
func (io *IO) MustGroup(resource string) *FlowGroup {
	fg, ok := io.groups[resource]
	if !ok {
		panic(violation("flow-group", NoNode, "no flow group for resource %q", resource))
	}
	return fg
}

// Total returns the summed rate for a resource, zero when absent.
func (io *IO) Total(resource string) float64 {
	if fg, ok := io.groups[resource]; ok {
		return fg.total
	}
	return 0
}

// Flows returns every flow on this side, grouped by resource.
func (io *IO) Flows() []*Flow {
	var out []*Flow
	for _, r := range io.order {
		out = append(out, io.groups[r].parts...)
	}
	return out
}

// Len returns the number of flows on this side.
func (io *IO) Len() int {
	n := 0
	for _, fg := range io.groups {
		n += len(fg.parts)
	}
	return n
}

func (io *IO) add(f *Flow) {
	fg, ok := io.groups[f.Resource]
	if !ok {
		fg = &FlowGroup{resource: f.Resource}
		io.groups[f.Resource] = fg
		io.order = append(io.order, f.Resource)
	}
	fg.add(f)
}

func (io *IO) remove(f *Flow) bool {
	fg, ok := io.groups[f.Resource]
	if !ok {
		return false
	}
	return fg.remove(f)
}

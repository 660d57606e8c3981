package graph

import (
	"math"
	"sort"

	"factory/planner/internal/flow"
)

// Mismatch is a node side whose flows do not carry what its count and
// ratios say it should
type Mismatch struct {
	ID       flow.NodeID `json:"id"`
	Title    string      `json:"title"`
	Side     string      `json:"side"`
	Resource string      `json:"resource"`
	Designed float64     `json:"designed"`
	Actual   float64     `json:"actual"`
}

// ResourceBalance is the external supply and disposal of one resource
type ResourceBalance struct {
	Resource string  `json:"resource"`
	Supplied float64 `json:"supplied"` // by sources
	Disposed float64 `json:"disposed"` // by sinks
}

// BalanceReport compares designed and actual throughput
type BalanceReport struct {
	CheckedSides  int               `json:"checked_sides"`
	Mismatches    []Mismatch        `json:"mismatches"`
	MismatchCount int               `json:"mismatch_count"`
	Resources     []ResourceBalance `json:"resources"`
	Errors        []string          `json:"errors,omitempty"`
}

// ComputeBalance checks count*ratio against flow totals for every node,
// side and resource. Nodes whose ratios cannot be resolved are listed in
// Errors and skipped.
func ComputeBalance(g *flow.Graph, snap *GraphSnapshot) *BalanceReport {
	report := &BalanceReport{}
	byResource := make(map[string]*ResourceBalance)
	entry := func(r string) *ResourceBalance {
		rb, ok := byResource[r]
		if !ok {
			rb = &ResourceBalance{Resource: r}
			byResource[r] = rb
		}
		return rb
	}

	for _, n := range g.Nodes() {
		switch d := n.Data.(type) {
		case flow.Source:
			entry(d.Resource).Supplied += n.Count
		case flow.Sink:
			entry(d.Resource).Disposed += n.Count
		}

		ratios, err := g.Ratios(n)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		title := ""
		if info, ok := snap.Nodes[n.ID]; ok {
			title = info.Title
		}
		for _, side := range flow.Sides {
			resources := make(map[string]bool)
			for r := range ratios[side] {
				resources[r] = true
			}
			for _, r := range n.IO(side).Resources() {
				resources[r] = true
			}
			keys := make([]string, 0, len(resources))
			for r := range resources {
				keys = append(keys, r)
			}
			sort.Strings(keys)

			for _, r := range keys {
				designed := n.Count * ratios[side][r]
				actual := n.IO(side).Total(r)
				if designed == 0 && actual == 0 {
					continue
				}
				report.CheckedSides++
				if math.Abs(designed-actual) > flow.Epsilon*math.Max(1, math.Abs(designed)) {
					report.Mismatches = append(report.Mismatches, Mismatch{
						ID:       n.ID,
						Title:    title,
						Side:     side.String(),
						Resource: r,
						Designed: designed,
						Actual:   actual,
					})
				}
			}
		}
	}
	report.MismatchCount = len(report.Mismatches)

	for _, rb := range byResource {
		report.Resources = append(report.Resources, *rb)
	}
	sort.Slice(report.Resources, func(i, j int) bool {
		return report.Resources[i].Resource < report.Resources[j].Resource
	})
	return report
}

package graph

import (
	"math"

	"factory/planner/internal/flow"
)

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Balance      float64 `json:"balance"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Balance         *BalanceReport  `json:"balance"`
	Bridges         *BridgeReport   `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	BusyThreshold int
	TopN          int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		BusyThreshold: 4,
		TopN:          50,
	}
}

// Analyze runs all analyses and computes a composite health score
func Analyze(g *flow.Graph, snap *GraphSnapshot, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(snap, config.BusyThreshold, config.TopN)
	balance := ComputeBalance(g, snap)
	bridges := ComputeBridges(snap)

	total := float64(topology.TotalNodes)

	var connectivity, components, balanceScore, fragility float64

	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.2)*5.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	if balance.CheckedSides > 0 {
		balanceScore = clamp(1.0-math.Min(float64(balance.MismatchCount)/float64(balance.CheckedSides), 0.1)*10.0, 0, 1)
	} else if total > 0 {
		balanceScore = 1
	}
	if total > 0 {
		// Every interior node of a linear chain is an articulation point,
		// so fragility tolerates far more than a general graph would.
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.5)*2.0, 0, 1)
	}

	healthScore := 0.30*connectivity + 0.20*components + 0.35*balanceScore + 0.15*fragility

	return &AnalysisReport{
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Connectivity: connectivity,
			Components:   components,
			Balance:      balanceScore,
			Fragility:    fragility,
		},
		Topology: topology,
		Balance:  balance,
		Bridges:  bridges,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

package cmd

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"factory/planner/internal/flow"
	"factory/planner/internal/graph"
)

var (
	analyzeJSON          bool
	analyzeResource      string
	analyzeTopN          int
	analyzeBusyThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tab]",
	Short: "Analyze graph structure: topology, balance, bridges, health score",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		_, t, err := s.tab(firstArg(args))
		if err != nil {
			return err
		}

		snap := graph.FromGraph(t.Graph, s.names())
		if analyzeResource != "" {
			snap = snap.FilterToResource(analyzeResource)
		}

		config := &graph.AnalyzerConfig{
			BusyThreshold: cfg.Analyze.BusyThreshold,
			TopN:          cfg.Analyze.TopN,
		}
		if cmd.Flags().Changed("busy-threshold") || config.BusyThreshold <= 0 {
			config.BusyThreshold = analyzeBusyThreshold
		}
		if cmd.Flags().Changed("top-n") || config.TopN <= 0 {
			config.TopN = analyzeTopN
		}

		report := graph.Analyze(t.Graph, snap, config)

		if analyzeJSON {
			return writeJSON(os.Stdout, report)
		}

		printHumanReadable(report, snap, t.Name())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeResource, "resource", "", "Scope topology and bridges to flows of this resource")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeBusyThreshold, "busy-threshold", 4, "Minimum degree to list a node as busy")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.GraphSnapshot, name string) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  %s health: %.0f%%  [%s]\n", name, report.HealthScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f balance=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Balance,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	heading(os.Stdout, "TOPOLOGY")
	fmt.Printf("  Nodes: %d  Flows: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)

	kinds := make([]string, 0, len(t.KindCounts))
	for k := range t.KindCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, t.KindCounts[k])
	}
	fmt.Printf("  Kinds: %s\n", strings.Join(parts, " "))

	if t.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d disconnected nodes\n", t.OrphanCount)
		limit := 5
		if len(t.OrphanIDs) < limit {
			limit = len(t.OrphanIDs)
		}
		for _, id := range t.OrphanIDs[:limit] {
			fmt.Printf("    - #%d (%s)\n", id, nodeTitle(snap, id, 50))
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	if len(t.DegenerateHubs) > 0 {
		fmt.Printf("  %d hubs can be eliminated:", len(t.DegenerateHubs))
		for _, id := range t.DegenerateHubs {
			fmt.Printf(" #%d", id)
		}
		fmt.Println()
	}

	// Degree distribution
	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Busiest
	if len(t.Busiest) > 0 {
		fmt.Println("\n  Busiest nodes (degree > threshold):")
		for _, n := range t.Busiest {
			fmt.Printf("    #%-4d degree=%d (in=%d, out=%d)  %s\n",
				n.ID, n.Degree, n.InDegree, n.OutDegree, truncTitle(n.Title, 40))
		}
	}

	// Balance
	b := report.Balance
	fmt.Println()
	heading(os.Stdout, "BALANCE")
	fmt.Printf("  %d of %d node sides off their designed rate\n", b.MismatchCount, b.CheckedSides)
	limit := 10
	if len(b.Mismatches) < limit {
		limit = len(b.Mismatches)
	}
	for _, m := range b.Mismatches[:limit] {
		warnColor.Printf("    #%-4d %-3s %-24s designed %s, flowing %s\n",
			m.ID, m.Side, truncTitle(m.Resource, 24), rate(m.Designed), rate(m.Actual))
	}
	for _, e := range b.Errors {
		warnColor.Printf("    %s\n", e)
	}
	if len(b.Resources) > 0 {
		fmt.Println("  External resources (supplied / disposed per min):")
		for _, r := range b.Resources {
			fmt.Printf("    %-28s %12s %12s\n", truncTitle(r.Resource, 28), rate(r.Supplied), rate(r.Disposed))
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 || len(br.FragileConnections) > 0 {
		fmt.Println()
		heading(os.Stdout, "STRUCTURAL FRAGILITY")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation points (removal disconnects the chain):\n", br.APCount)
			limit := 10
			if len(br.ArticulationPoints) < limit {
				limit = len(br.ArticulationPoints)
			}
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Printf("    #%-4d (degree ~%d)  %s\n",
					ap.ID, ap.ComponentsIfRemoved, truncTitle(ap.Title, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge flows (removal disconnects the chain):\n", br.BridgeCount)
			limit := 10
			if len(br.BridgeEdges) < limit {
				limit = len(br.BridgeEdges)
			}
			for _, be := range br.BridgeEdges[:limit] {
				fmt.Printf("    %s -> %s  %s %s/min\n", truncTitle(be.SourceTitle, 30), truncTitle(be.TargetTitle, 30),
					be.Resource, rate(be.Rate))
			}
		}
		if len(br.FragileConnections) > 0 {
			fmt.Printf("  %d resources carried by at most two flows:\n", len(br.FragileConnections))
			limit := 10
			if len(br.FragileConnections) < limit {
				limit = len(br.FragileConnections)
			}
			for _, fc := range br.FragileConnections[:limit] {
				s := ""
				if fc.Flows != 1 {
					s = "s"
				}
				fmt.Printf("    %-28s %d flow%s, %s/min\n", truncTitle(fc.Resource, 28), fc.Flows, s, rate(fc.Rate))
			}
		}
	}

	fmt.Println()
}

func nodeTitle(snap *graph.GraphSnapshot, id flow.NodeID, max int) string {
	if node := snap.Nodes[id]; node != nil {
		return truncTitle(node.Title, max)
	}
	return "?"
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

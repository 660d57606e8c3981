package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"factory/planner/internal/flow"
	"factory/planner/internal/plan"
	"factory/planner/internal/workspace"
)

var (
	modelLimits string
	modelGoal   string
	buildName   string
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Print the LP model for an external solver",
	Long: `Print the linear program describing the factory as JSON in the
javascript-lp-solver model format. Without --limits every raw resource is
capped at its map-wide extraction limit and water is unbounded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		if cat == nil {
			return fmt.Errorf("no catalog configured (use --catalog or set catalog.path)")
		}

		limits := plan.DefaultLimits(cat)
		if modelLimits != "" {
			f, err := os.Open(modelLimits)
			if err != nil {
				return fmt.Errorf("opening %s: %w", modelLimits, err)
			}
			defer f.Close()
			if limits, err = plan.DecodeLimits(f); err != nil {
				return err
			}
		}

		m, err := plan.BuildModel(cat, limits, modelGoal)
		if err != nil {
			return err
		}
		logger.Debug("built model", "variables", len(m.Variables), "constraints", len(m.Constraints))
		return m.Encode(os.Stdout)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <solution.json>",
	Short: "Build a new tab from a solver result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		cat, err := s.requireCatalog()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		sol, err := plan.DecodeSolution(f)
		if err != nil {
			return err
		}

		g, err := plan.Build(cat, sol, buildName, flow.WithLogger(logger))
		if err != nil {
			return err
		}
		t := workspace.NewTab(g)
		return s.traced(cmd.Context(), "build", t, func() error {
			s.ws.Selected = s.ws.Add(t)
			fmt.Printf("Built %s as tab %d: %d nodes, %d flows, %s points/min\n",
				g.Name, s.ws.Selected, g.NodeCount(), g.FlowCount(), rate(sol.Objective))
			return nil
		})
	},
}

func init() {
	modelCmd.Flags().StringVar(&modelLimits, "limits", "", "Limits JSON {inputs, recipes, outputs}")
	modelCmd.Flags().StringVar(&modelGoal, "goal", plan.GoalMaxPoints, "Optimization goal")
	buildCmd.Flags().StringVar(&buildName, "name", "Factory", "Tab name")

	rootCmd.AddCommand(modelCmd, buildCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"factory/planner/internal/flow"
	"factory/planner/internal/workspace"
)

var (
	extractParts []string
	packName     string
)

var extractCmd = &cobra.Command{
	Use:   "extract <node> --part JSON [--part JSON...]",
	Short: "Split a node into one node per part plus a remainder",
	Long: `Split a node into one node per requested part. Each part is a JSON pair of
objects, inputs then outputs, mapping a resource to amounts aligned with the
node's flows of that resource. An amount is a number or null for "any".

  planner extract 4 --part '[{"Desc_OreIron_C":[30]},{}]'

Whatever the parts leave unassigned stays on a remainder node.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseNodeIDs(args)
		if err != nil {
			return err
		}
		if len(extractParts) == 0 {
			return fmt.Errorf("at least one --part is required")
		}
		parts := make([]flow.Part, len(extractParts))
		for i, raw := range extractParts {
			if err := json.Unmarshal([]byte(raw), &parts[i]); err != nil {
				return fmt.Errorf("parsing --part %d: %w", i+1, err)
			}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.mutate(cmd.Context(), "extract", func(t *workspace.Tab) error {
			nodes, err := t.Graph.Extract(ids[0], parts)
			if err != nil {
				return err
			}
			fmt.Printf("Extracted #%d into %d nodes:\n", ids[0], len(nodes))
			printNodes(s, nodes)
			return nil
		})
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <node> <node>...",
	Short: "Combine nodes of the same kind into one, or pack them if they differ",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseNodeIDs(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.mutate(cmd.Context(), "merge", func(t *workspace.Tab) error {
			n, err := t.Graph.Merge(ids)
			if err != nil {
				return err
			}
			fmt.Printf("Merged %d nodes into:\n", len(ids))
			printNodes(s, []*flow.Node{n})
			return nil
		})
	},
}

var packCmd = &cobra.Command{
	Use:   "pack <node>...",
	Short: "Replace a set of nodes with one composite node",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseNodeIDs(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.mutate(cmd.Context(), "pack", func(t *workspace.Tab) error {
			n, err := t.Graph.Pack(ids, packName)
			if err != nil {
				return err
			}
			fmt.Printf("Packed %d nodes into:\n", len(ids))
			printNodes(s, []*flow.Node{n})
			return nil
		})
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <node>",
	Short: "Expand a composite node back into its sub-graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseNodeIDs(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.mutate(cmd.Context(), "unpack", func(t *workspace.Tab) error {
			nodes, err := t.Graph.Unpack(ids[0])
			if err != nil {
				return err
			}
			fmt.Printf("Unpacked #%d into %d nodes:\n", ids[0], len(nodes))
			printNodes(s, nodes)
			return nil
		})
	},
}

var eliminateCmd = &cobra.Command{
	Use:   "eliminate [hub]...",
	Short: "Remove hubs that only pass flow through",
	Long: `Remove degenerate hubs: hubs with one input or one output are bypassed and
hubs with no inputs or no outputs are dropped. With no arguments every hub
is tried until nothing changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseNodeIDs(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		return s.mutate(cmd.Context(), "eliminate", func(t *workspace.Tab) error {
			if len(ids) == 0 {
				fmt.Printf("Eliminated %d hubs\n", t.Graph.EliminateHubs())
				return nil
			}
			removed := 0
			for _, id := range ids {
				ok, err := t.Graph.EliminateHub(id)
				if err != nil {
					return err
				}
				if ok {
					removed++
				} else {
					fmt.Printf("Hub #%d kept: it joins several inputs and several outputs\n", id)
				}
			}
			fmt.Printf("Eliminated %d hubs\n", removed)
			return nil
		})
	},
}

func init() {
	extractCmd.Flags().StringArrayVar(&extractParts, "part", nil, "Part request as JSON [inputs, outputs] (repeatable)")
	packCmd.Flags().StringVar(&packName, "name", flow.DefaultGroupName, "Composite name")

	rootCmd.AddCommand(extractCmd, mergeCmd, packCmd, unpackCmd, eliminateCmd)
}

func printNodes(s *session, nodes []*flow.Node) {
	names := s.names()
	for _, n := range nodes {
		fmt.Printf("  #%-4d %-10s %-32s x%s\n", n.ID, n.Kind(), truncTitle(n.Title(names), 32), rate(n.Count))
	}
}

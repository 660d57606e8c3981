package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"factory/planner/internal/flow"
	"factory/planner/internal/workspace"
)

var (
	importName string
	exportOut  string
	tabsJSON   bool
	tabsSearch string
	showJSON   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a saved graph as a new tab and select it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		rec, err := flow.Decode(f)
		if err != nil {
			return err
		}
		g, err := flow.FromRecord(rec, s.recipes(), flow.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}
		switch {
		case importName != "":
			g.Name = importName
		case g.Name == "":
			g.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		t := workspace.NewTab(g)
		return s.traced(cmd.Context(), "import", t, func() error {
			s.ws.Selected = s.ws.Add(t)
			fmt.Printf("Imported %s as tab %d (%s): %d nodes, %d flows\n",
				g.Name, s.ws.Selected, workspace.ShortID(t.ID), g.NodeCount(), g.FlowCount())
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [tab]",
	Short: "Write a tab's graph as JSON",
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
		if exportOut == "" {
			return t.Graph.Save().Encode(os.Stdout)
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOut, err)
		}
		if err := t.Graph.Save().Encode(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

// tabSummary is one line of the tabs listing
type tabSummary struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Nodes    int    `json:"nodes"`
	Flows    int    `json:"flows"`
	Selected bool   `json:"selected"`
}

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List tabs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		var keep map[string]bool
		if tabsSearch != "" {
			rows, err := s.db.SearchTabs(tabsSearch)
			if err != nil {
				return fmt.Errorf("searching tabs: %w", err)
			}
			keep = make(map[string]bool, len(rows))
			for _, r := range rows {
				keep[r.ID] = true
			}
		}

		summaries := []tabSummary{}
		for i, t := range s.ws.Tabs {
			if keep != nil && !keep[t.ID] {
				continue
			}
			summaries = append(summaries, tabSummary{
				Index:    i,
				ID:       t.ID,
				Name:     t.Name(),
				Nodes:    t.Graph.NodeCount(),
				Flows:    t.Graph.FlowCount(),
				Selected: i == s.ws.Selected,
			})
		}

		if tabsJSON {
			return writeJSON(os.Stdout, summaries)
		}
		if len(summaries) == 0 {
			fmt.Println("No tabs.")
			return nil
		}
		for _, ts := range summaries {
			marker := " "
			if ts.Selected {
				marker = "*"
			}
			fmt.Printf("%s %2d  %s  %-30s %s\n", marker, ts.Index, workspace.ShortID(ts.ID), truncTitle(ts.Name, 30),
				mutedColor.Sprintf("%d nodes, %d flows", ts.Nodes, ts.Flows))
		}
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <tab>",
	Short: "Select the tab later commands operate on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		i, t, err := s.tab(args[0])
		if err != nil {
			return err
		}
		if err := s.ws.Select(i); err != nil {
			return err
		}
		if err := s.save(); err != nil {
			return err
		}
		fmt.Printf("Selected tab %d: %s\n", i, t.Name())
		return nil
	},
}

var removeTabCmd = &cobra.Command{
	Use:   "remove-tab <tab>",
	Short: "Delete a tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		i, t, err := s.tab(args[0])
		if err != nil {
			return err
		}
		return s.traced(cmd.Context(), "remove-tab", t, func() error {
			if err := s.ws.Remove(i); err != nil {
				return err
			}
			fmt.Printf("Removed tab %d: %s\n", i, t.Name())
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [tab]",
	Short: "Print a tab's nodes and flows",
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
		if showJSON {
			return writeJSON(os.Stdout, t.Graph.Save())
		}
		printGraph(s, t)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [tab]",
	Short: "Verify flow-group totals and endpoint consistency",
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
		problems := t.Graph.Check()
		for _, p := range problems {
			printWarning("%v", p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d problems in %s", len(problems), t.Name())
		}
		fmt.Printf("%s: ok (%d nodes, %d flows)\n", t.Name(), t.Graph.NodeCount(), t.Graph.FlowCount())
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "Tab name (default: name stored in the file, else the file name)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")
	tabsCmd.Flags().BoolVar(&tabsJSON, "json", false, "Output as JSON")
	tabsCmd.Flags().StringVar(&tabsSearch, "search", "", "Only tabs whose saved name contains every word")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the saved form as JSON")

	rootCmd.AddCommand(importCmd, exportCmd, tabsCmd, selectCmd, removeTabCmd, showCmd, checkCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printGraph(s *session, t *workspace.Tab) {
	g := t.Graph
	names := s.names()

	fmt.Println()
	heading(os.Stdout, fmt.Sprintf("%s  (%s)", t.Name(), workspace.ShortID(t.ID)))
	for _, n := range g.Nodes() {
		line := fmt.Sprintf("  #%-4d %-10s %-32s x%s", n.ID, n.Kind(), truncTitle(n.Title(names), 32), rate(n.Count))
		if m, ok := n.Data.(flow.Machine); ok && s.cat != nil {
			line += mutedColor.Sprintf("  (%s machines)", rate(s.cat.MachinesFor(m.Recipe, n.Count)))
		}
		if !n.Active {
			line += mutedColor.Sprint("  inactive")
		}
		fmt.Println(line)
		if m, ok := n.Data.(flow.Machine); ok && s.cat != nil {
			if desc, err := s.cat.Describe(m.Recipe, n.Count); err == nil {
				fmt.Println(mutedColor.Sprint("        " + desc))
			}
		}
	}

	fmt.Println()
	heading(os.Stdout, "FLOWS")
	for _, f := range g.Flows() {
		fmt.Printf("  #%-4d -> #%-4d %-28s %s/min\n", f.From, f.To, truncTitle(names.ItemName(f.Resource), 28), rate(f.Rate()))
	}
	fmt.Println()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"factory/planner/internal/catalog"
	"factory/planner/internal/db"
	"factory/planner/internal/flow"
	"factory/planner/internal/observability"
	"factory/planner/internal/workspace"
)

var tabRef string

func init() {
	rootCmd.PersistentFlags().StringVar(&tabRef, "tab", "", "Tab to operate on (id, id prefix, name or index); default is the selected tab")
}

// session is one command's view of the stored workspace.
type session struct {
	db  *db.DB
	ws  *workspace.Workspace
	cat *catalog.Catalog
}

// openSession opens the database, loads the catalog if one is configured
// and decodes the saved workspace. Tabs that no longer load are reported
// and dropped.
func openSession() (*session, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	d, err := OpenDatabase()
	if err != nil {
		return nil, err
	}
	s := &session{db: d, ws: workspace.New(), cat: cat}

	snap, err := d.LoadWorkspace()
	switch {
	case errors.Is(err, db.ErrNoWorkspace):
		logger.Debug("no saved workspace", "reason", err)
	case err != nil:
		d.Close()
		return nil, fmt.Errorf("loading workspace: %w", err)
	default:
		ws, skipped := workspace.FromSnapshot(snap, s.recipes(), flow.WithLogger(logger))
		for _, e := range skipped {
			printWarning("skipping tab: %v", e)
		}
		s.ws = ws
	}
	return s, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

func loadCatalog() (*catalog.Catalog, error) {
	path := catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.PowerRecipes {
		cat = cat.WithPowerRecipes()
	}
	logger.Debug("loaded catalog", "path", path, "recipes", len(cat.Recipes))
	return cat, nil
}

// recipes returns the catalog as a recipe lookup, or a nil interface when
// no catalog is configured.
func (s *session) recipes() flow.Recipes {
	if s.cat == nil {
		return nil
	}
	return s.cat
}

func (s *session) names() flow.Namer {
	if s.cat == nil {
		return keyNamer{}
	}
	return s.cat
}

func (s *session) requireCatalog() (*catalog.Catalog, error) {
	if s.cat == nil {
		return nil, errors.New("no catalog configured (use --catalog or set catalog.path)")
	}
	return s.cat, nil
}

func (s *session) newGraph() *flow.Graph {
	return flow.New(s.recipes(), flow.WithLogger(logger))
}

// keyNamer shows raw catalog keys when no catalog is loaded.
type keyNamer struct{}

func (keyNamer) ItemName(key string) string   { return key }
func (keyNamer) RecipeName(key string) string { return key }

// tab resolves ref, falling back to --tab and then to the selected tab.
func (s *session) tab(ref string) (int, *workspace.Tab, error) {
	if ref == "" {
		ref = tabRef
	}
	if ref == "" {
		t, err := s.ws.Current()
		return s.ws.Selected, t, err
	}
	i, err := s.ws.Resolve(ref)
	if err != nil {
		return -1, nil, err
	}
	return i, s.ws.Tabs[i], nil
}

func (s *session) save() error {
	rows, err := s.ws.Rows()
	if err != nil {
		return err
	}
	slot, err := s.db.SaveWorkspace(rows, s.ws.Selected)
	if err != nil {
		return fmt.Errorf("saving workspace: %w", err)
	}
	logger.Debug("saved workspace", "slot", slot, "tabs", len(rows))
	return nil
}

// mutate applies fn to the target tab inside a span and saves the workspace
// when fn succeeds. A failed fn leaves the stored workspace untouched.
func (s *session) mutate(ctx context.Context, op string, fn func(t *workspace.Tab) error) error {
	_, t, err := s.tab("")
	if err != nil {
		return err
	}
	return s.traced(ctx, op, t, func() error { return fn(t) })
}

// traced runs fn inside an operation span for t, then saves.
func (s *session) traced(ctx context.Context, op string, t *workspace.Tab, fn func() error) error {
	_, span := observability.StartOperationSpan(ctx, op, t.ID)
	defer span.End()

	if err := fn(); err != nil {
		observability.RecordError(span, err)
		return err
	}
	observability.RecordGraphSize(span, t.Graph.NodeCount(), t.Graph.FlowCount())
	if err := s.save(); err != nil {
		observability.RecordError(span, err)
		return err
	}
	logger.Info(op, "tab", workspace.ShortID(t.ID), "nodes", t.Graph.NodeCount(), "flows", t.Graph.FlowCount())
	return nil
}

func parseNodeIDs(args []string) ([]flow.NodeID, error) {
	ids := make([]flow.NodeID, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid node id %q", a)
		}
		ids[i] = flow.NodeID(v)
	}
	return ids, nil
}

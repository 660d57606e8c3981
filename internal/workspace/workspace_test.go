package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory/planner/internal/db"
	"factory/planner/internal/flow"
)

func oreGraph(name string, rate float64) *flow.Graph {
	g := flow.New(nil)
	g.Name = name
	src := g.AddNode(flow.NewNode(flow.Source{Resource: "ore"}, rate, flow.Position{}))
	dst := g.AddNode(flow.NewNode(flow.Sink{Resource: "ore"}, rate, flow.Position{X: 200}))
	g.AddFlow("ore", rate, src, dst)
	return g
}

func fixture() *Workspace {
	w := New()
	w.Add(&Tab{ID: "3f2a9c10-0000-4000-8000-000000000001", Graph: oreGraph("Plates", 10)})
	w.Add(&Tab{ID: "3f2a9c11-0000-4000-8000-000000000002", Graph: oreGraph("Screws", 20)})
	w.Add(&Tab{ID: "b7c1e2d3-0000-4000-8000-000000000003", Graph: oreGraph("plates", 30)})
	return w
}

func TestNewTab_UUID(t *testing.T) {
	a, b := NewTab(flow.New(nil)), NewTab(flow.New(nil))
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolve_ExactID(t *testing.T) {
	w := fixture()
	i, err := w.Resolve("3f2a9c11-0000-4000-8000-000000000002")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestResolve_UniquePrefix(t *testing.T) {
	w := fixture()
	i, err := w.Resolve("B7C1E2")
	require.NoError(t, err)
	assert.Equal(t, 2, i)
}

func TestResolve_AmbiguousPrefix(t *testing.T) {
	w := fixture()
	_, err := w.Resolve("3f2a9c")
	require.ErrorIs(t, err, ErrAmbiguousTab)
	assert.Contains(t, err.Error(), "2 matches")
	assert.Contains(t, err.Error(), "3f2a9c10 Plates")
	assert.Contains(t, err.Error(), "3f2a9c11 Screws")
}

func TestResolve_ShortPrefixIsNotAnID(t *testing.T) {
	w := fixture()
	_, err := w.Resolve("3f2a9")
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestResolve_Name(t *testing.T) {
	w := fixture()
	i, err := w.Resolve("screws")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = w.Resolve("PLATES")
	assert.ErrorIs(t, err, ErrAmbiguousTab)
}

func TestResolve_NameIgnoresAccents(t *testing.T) {
	w := fixture()
	w.Add(&Tab{ID: "c0ffee00-0000-4000-8000-000000000004", Graph: oreGraph("Fábrica Norte", 5)})

	i, err := w.Resolve("fabrica norte")
	require.NoError(t, err)
	assert.Equal(t, 3, i)
}

func TestResolve_Position(t *testing.T) {
	w := fixture()
	i, err := w.Resolve("2")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = w.Resolve("3")
	assert.ErrorIs(t, err, ErrTabNotFound)
}

func TestRemove_SelectionFollows(t *testing.T) {
	w := fixture()
	require.NoError(t, w.Select(2))
	require.NoError(t, w.Remove(0))
	assert.Equal(t, 1, w.Selected)
	cur, err := w.Current()
	require.NoError(t, err)
	assert.Equal(t, "plates", cur.Name())

	require.NoError(t, w.Remove(1))
	assert.Equal(t, 0, w.Selected)

	require.NoError(t, w.Remove(0))
	assert.Equal(t, 0, w.Selected)
	_, err = w.Current()
	assert.ErrorIs(t, err, ErrTabNotFound)

	assert.ErrorIs(t, w.Remove(0), ErrTabNotFound)
}

func TestRowsRoundTrip(t *testing.T) {
	w := fixture()
	w.Selected = 1

	rows, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Screws", rows[1].Name)
	assert.Equal(t, 1, rows[1].Position)

	snap := &db.Snapshot{Meta: db.Meta{Version: db.SaveVersion, SaveID: db.SlotA, Selected: 1}, Tabs: rows}
	back, skipped := FromSnapshot(snap, nil)
	assert.Empty(t, skipped)
	require.Len(t, back.Tabs, 3)
	assert.Equal(t, 1, back.Selected)
	for i, tab := range back.Tabs {
		assert.Equal(t, w.Tabs[i].ID, tab.ID)
		assert.Equal(t, w.Tabs[i].Name(), tab.Name())
		assert.Equal(t, w.Tabs[i].Graph.Save(), tab.Graph.Save())
	}
}

func TestFromSnapshot_SkipsBrokenTabs(t *testing.T) {
	good, err := fixture().Rows()
	require.NoError(t, err)
	snap := &db.Snapshot{
		Meta: db.Meta{Version: db.SaveVersion, SaveID: db.SlotA, Selected: 5},
		Tabs: []db.TabRow{
			good[0],
			{ID: "broken-json", Name: "x", Data: "{"},
			{ID: "bad-flow", Name: "y", Data: `{"version":1,"nodes":[],"flows":[{"resource":"ore","rate":1,"from":1,"to":2}]}`},
		},
	}

	w, skipped := FromSnapshot(snap, nil)
	assert.Len(t, skipped, 2)
	require.Len(t, w.Tabs, 1)
	assert.Equal(t, 0, w.Selected)
}

package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory database with the workspace schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// saveTabs saves one tab per name with generated ids and returns the slot written.
func saveTabs(t *testing.T, d *DB, names ...string) string {
	t.Helper()
	tabs := make([]TabRow, len(names))
	for i, name := range names {
		tabs[i] = TabRow{
			ID:   fmt.Sprintf("tab-%d", i),
			Name: name,
			Data: fmt.Sprintf(`{"version":1,"name":%q,"nodes":[],"flows":[]}`, name),
		}
	}
	slot, err := d.SaveWorkspace(tabs, 0)
	require.NoError(t, err)
	return slot
}

func countSlot(t *testing.T, d *DB, slot string) int {
	t.Helper()
	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT COUNT(*) FROM tabs WHERE slot = ?`, slot).Scan(&n))
	return n
}

func TestLoadWorkspace_Empty(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.LoadWorkspace()
	assert.ErrorIs(t, err, ErrNoWorkspace)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	d := setupTestDB(t)
	tabs := []TabRow{
		{ID: "a1", Name: "Plates", Data: `{"nodes":[]}`},
		{ID: "b2", Name: "Screws", Data: `{"nodes":[1]}`},
	}

	slot, err := d.SaveWorkspace(tabs, 1)
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)

	snap, err := d.LoadWorkspace()
	require.NoError(t, err)
	assert.Equal(t, Meta{Version: SaveVersion, SaveID: SlotA, Selected: 1}, snap.Meta)
	require.Len(t, snap.Tabs, 2)
	for i, got := range snap.Tabs {
		assert.Equal(t, tabs[i].ID, got.ID)
		assert.Equal(t, tabs[i].Name, got.Name)
		assert.Equal(t, tabs[i].Data, got.Data)
		assert.Equal(t, i, got.Position)
		assert.NotZero(t, got.UpdatedAt)
	}
}

func TestSave_AlternatesSlots(t *testing.T) {
	d := setupTestDB(t)

	assert.Equal(t, SlotA, saveTabs(t, d, "one"))
	assert.Equal(t, SlotB, saveTabs(t, d, "two", "three"))
	assert.Equal(t, SlotA, saveTabs(t, d, "four"))

	// Slot B still holds the previous save untouched.
	assert.Equal(t, 2, countSlot(t, d, SlotB))
	assert.Equal(t, 1, countSlot(t, d, SlotA))

	snap, err := d.LoadWorkspace()
	require.NoError(t, err)
	require.Len(t, snap.Tabs, 1)
	assert.Equal(t, "four", snap.Tabs[0].Name)
}

func TestSave_EmptyWorkspace(t *testing.T) {
	d := setupTestDB(t)
	saveTabs(t, d, "one", "two")

	_, err := d.SaveWorkspace(nil, 0)
	require.NoError(t, err)

	snap, err := d.LoadWorkspace()
	require.NoError(t, err)
	assert.Empty(t, snap.Tabs)
}

func TestLoadWorkspace_UnsupportedVersion(t *testing.T) {
	d := setupTestDB(t)
	_, err := d.Conn().Exec(`INSERT INTO save_meta (id, version, save_id, selected) VALUES (1, 1, 'slot-1', 0)`)
	require.NoError(t, err)

	_, err = d.LoadWorkspace()
	assert.ErrorIs(t, err, ErrNoWorkspace)
	assert.Contains(t, err.Error(), "unsupported save version 1")
}

func TestSave_OldVersionMetaWritesSlotA(t *testing.T) {
	d := setupTestDB(t)
	_, err := d.Conn().Exec(`INSERT INTO save_meta (id, version, save_id, selected) VALUES (1, 1, ?, 0)`, SlotA)
	require.NoError(t, err)

	assert.Equal(t, SlotA, saveTabs(t, d, "fresh"))
}

func TestOpenDB_MigrateIdempotent(t *testing.T) {
	d := setupTestDB(t)
	require.NoError(t, migrate(d.Conn()))
}

package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTerms_PunctuationTrimming(t *testing.T) {
	got := SearchTerms("(iron) plates, screws!")
	assert.Equal(t, []string{"iron", "plates", "screws"}, got)
}

func TestSearchTerms_Empty(t *testing.T) {
	assert.Empty(t, SearchTerms(""))
	assert.Empty(t, SearchTerms("  -- ,, "))
}

func TestSearchTabs_CaseInsensitive(t *testing.T) {
	d := setupTestDB(t)
	saveTabs(t, d, "Iron Plates", "Copper Wire", "iron screws")

	got, err := d.SearchTabs("IRON")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Iron Plates", got[0].Name)
	assert.Equal(t, "iron screws", got[1].Name)
}

func TestSearchTabs_AllTermsMustMatch(t *testing.T) {
	d := setupTestDB(t)
	saveTabs(t, d, "Iron Plates", "Copper Wire", "iron screws")

	got, err := d.SearchTabs("iron screws")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "iron screws", got[0].Name)
}

func TestSearchTabs_WildcardsAreLiteral(t *testing.T) {
	d := setupTestDB(t)
	saveTabs(t, d, "100% uptime", "plain")

	got, err := d.SearchTabs("100%")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% uptime", got[0].Name)

	got, err = d.SearchTabs("p_ain")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchTabs_OnlyActiveSlot(t *testing.T) {
	d := setupTestDB(t)
	saveTabs(t, d, "old factory")
	saveTabs(t, d, "new factory")

	got, err := d.SearchTabs("factory")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new factory", got[0].Name)
}

func TestSearchTabs_NothingSaved(t *testing.T) {
	d := setupTestDB(t)

	got, err := d.SearchTabs("iron")
	require.NoError(t, err)
	assert.Empty(t, got)
}

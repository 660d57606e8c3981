package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleData = `{
	"items": {
		"Desc_OreIron_C": {"slug": "Desc_OreIron_C", "name": "Iron Ore", "sinkPoints": 1},
		"Desc_IronIngot_C": {"slug": "Desc_IronIngot_C", "name": "Iron Ingot", "sinkPoints": 2},
		"Desc_Water_C": {"slug": "Desc_Water_C", "name": "Water", "isFluid": true}
	},
	"productionRecipes": {
		"Recipe_IngotIron_C": {
			"name": "Iron Ingot",
			"craftTime": 2,
			"ingredients": [{"itemClass": "Desc_OreIron_C", "quantity": 1}],
			"products": [{"itemClass": "Desc_IronIngot_C", "quantity": 1}],
			"producedIn": "Desc_SmelterMk1_C",
			"machineCraftable": true
		}
	},
	"buildables": {
		"Desc_SmelterMk1_C": {"slug": "Desc_SmelterMk1_C", "name": "Smelter"}
	},
	"resources": {
		"Desc_OreIron_C": {"itemClass": "Desc_OreIron_C", "maxExtraction": 70380}
	}
}`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	r, err := c.Recipe("Recipe_IngotIron_C")
	require.NoError(t, err)
	assert.Equal(t, "Recipe_IngotIron_C", r.Slug, "slug defaults to the map key")
	assert.Len(t, r.Ingredients, 1)
	assert.Equal(t, "Iron Ore", c.ItemName("Desc_OreIron_C"))
	assert.Equal(t, "Desc_Unknown_C", c.ItemName("Desc_Unknown_C"))
	assert.Equal(t, "Smelter", c.BuildableName("Desc_SmelterMk1_C"))
	require.NotNil(t, c.Resources["Desc_OreIron_C"].MaxExtraction)
	assert.InDelta(t, 70380, *c.Resources["Desc_OreIron_C"].MaxExtraction, 1e-9)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding catalog")
}

func TestRecipe_NotFound(t *testing.T) {
	c := New()
	_, err := c.Recipe("nope")
	assert.Error(t, err)
}

func TestWithPowerRecipes(t *testing.T) {
	c := New().WithPowerRecipes()
	r, err := c.Recipe("Recipe_NuclearReactorUranium")
	require.NoError(t, err)
	assert.Equal(t, 300.0, r.CraftTime)
	assert.Equal(t, []string{"Recipe_NuclearReactorPlutonium", "Recipe_NuclearReactorUranium"}, c.RecipeKeys())
}

func TestDescribeAndTally(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	s, err := c.Describe("Recipe_IngotIron_C", 30)
	require.NoError(t, err)
	assert.Equal(t, "Iron Ingot: 30 * Iron Ore => 30 * Iron Ingot", s)

	tally := make(map[string][2]float64)
	require.NoError(t, c.Tally("Recipe_IngotIron_C", 2, tally))
	require.NoError(t, c.Tally("Recipe_IngotIron_C", 3, tally))
	assert.Equal(t, [2]float64{5, 0}, tally["Desc_OreIron_C"])
	assert.Equal(t, [2]float64{0, 5}, tally["Desc_IronIngot_C"])

	assert.InDelta(t, 1.0, c.MachinesFor("Recipe_IngotIron_C", 30), 1e-9)
}

// Package catalog is a read-only lookup over the static game data: items,
// production recipes, buildables and extractable resources, keyed by opaque
// string ids.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// ItemAmount is one ingredient or product line of a recipe.
type ItemAmount struct {
	Item     string  `json:"itemClass"`
	Quantity float64 `json:"quantity"`
}

// Recipe is a production recipe.
type Recipe struct {
	Slug             string       `json:"slug"`
	Name             string       `json:"name"`
	CraftTime        float64      `json:"craftTime"` // seconds per craft
	Ingredients      []ItemAmount `json:"ingredients"`
	Products         []ItemAmount `json:"products"`
	ProducedIn       string       `json:"producedIn"`
	MachineCraftable bool         `json:"machineCraftable"`
	IsAlternate      bool         `json:"isAlternate,omitempty"`
}

// Item is anything that can flow along an edge.
type Item struct {
	Slug       string  `json:"slug"`
	Name       string  `json:"name"`
	SinkPoints float64 `json:"sinkPoints"`
	IsFluid    bool    `json:"isFluid"`
}

// Buildable is a building that runs recipes.
type Buildable struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Resource is a raw resource with an optional map-wide extraction limit.
type Resource struct {
	Item          string   `json:"itemClass"`
	MaxExtraction *float64 `json:"maxExtraction,omitempty"`
}

// Catalog holds the game data.
type Catalog struct {
	Items      map[string]*Item      `json:"items"`
	Recipes    map[string]*Recipe    `json:"productionRecipes"`
	Buildables map[string]*Buildable `json:"buildables"`
	Resources  map[string]*Resource  `json:"resources"`
}

// New returns an empty catalog ready for AddRecipe.
func New() *Catalog {
	return &Catalog{
		Items:      make(map[string]*Item),
		Recipes:    make(map[string]*Recipe),
		Buildables: make(map[string]*Buildable),
		Resources:  make(map[string]*Resource),
	}
}

// Parse decodes a catalog from JSON.
func Parse(r io.Reader) (*Catalog, error) {
	c := New()
	if err := json.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if c.Items == nil {
		c.Items = make(map[string]*Item)
	}
	if c.Recipes == nil {
		c.Recipes = make(map[string]*Recipe)
	}
	if c.Buildables == nil {
		c.Buildables = make(map[string]*Buildable)
	}
	if c.Resources == nil {
		c.Resources = make(map[string]*Resource)
	}
	for key, rec := range c.Recipes {
		if rec == nil {
			return nil, fmt.Errorf("recipe %q: empty entry", key)
		}
		if rec.Slug == "" {
			rec.Slug = key
		}
	}
	return c, nil
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Recipe returns the recipe with the given key.
func (c *Catalog) Recipe(key string) (*Recipe, error) {
	r, ok := c.Recipes[key]
	if !ok {
		return nil, fmt.Errorf("recipe %q not found", key)
	}
	return r, nil
}

// Item returns the item with the given key.
func (c *Catalog) Item(key string) (*Item, error) {
	it, ok := c.Items[key]
	if !ok {
		return nil, fmt.Errorf("item %q not found", key)
	}
	return it, nil
}

// ItemName returns the display name of an item, or the key itself when the
// item is unknown.
func (c *Catalog) ItemName(key string) string {
	if it, ok := c.Items[key]; ok && it.Name != "" {
		return it.Name
	}
	return key
}

// RecipeName returns the display name of a recipe, or the key.
func (c *Catalog) RecipeName(key string) string {
	if r, ok := c.Recipes[key]; ok && r.Name != "" {
		return r.Name
	}
	return key
}

// BuildableName returns the display name of a building, or the key.
func (c *Catalog) BuildableName(key string) string {
	if b, ok := c.Buildables[key]; ok && b.Name != "" {
		return b.Name
	}
	return key
}

// AddRecipe registers (or replaces) a recipe.
func (c *Catalog) AddRecipe(r *Recipe) {
	c.Recipes[r.Slug] = r
}

// RecipeKeys returns all recipe keys, sorted.
func (c *Catalog) RecipeKeys() []string {
	keys := make([]string, 0, len(c.Recipes))
	for k := range c.Recipes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ItemKeys returns all item keys, sorted.
func (c *Catalog) ItemKeys() []string {
	keys := make([]string, 0, len(c.Items))
	for k := range c.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MachinesFor converts a recipe throughput (crafts per minute) into the
// number of buildings needed to run it.
func (c *Catalog) MachinesFor(recipeKey string, count float64) float64 {
	r, ok := c.Recipes[recipeKey]
	if !ok {
		return 0
	}
	return count * r.CraftTime / 60
}

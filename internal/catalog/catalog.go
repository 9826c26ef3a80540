// Package catalog generates and serves the fixed set of named filter presets.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/MeKo-Tech/phonix/internal/filter"
)

// DefaultPageSize is the number of presets shown per page in the picker.
const DefaultPageSize = 20

var (
	ErrUnknownCategory = errors.New("unknown filter category")
	ErrPageOutOfRange  = errors.New("page out of range")
)

// Category describes one preset family and how its presets are generated.
type Category struct {
	Name           string
	Count          int
	BaseHue        float64
	BaseSaturation float64
}

// Category names with generator overrides.
const (
	Vibrant  = "Vibrant"
	Warm     = "Warm"
	Cool     = "Cool"
	Vintage  = "Vintage"
	Neon     = "Neon"
	Pastel   = "Pastel"
	Dramatic = "Dramatic"
	Soft     = "Soft"
)

// DefaultCategories is the fixed eight-category table (3000 presets total).
var DefaultCategories = []Category{
	{Name: Vibrant, Count: 500, BaseHue: 0, BaseSaturation: 150},
	{Name: Warm, Count: 500, BaseHue: 30, BaseSaturation: 120},
	{Name: Cool, Count: 500, BaseHue: 200, BaseSaturation: 130},
	{Name: Vintage, Count: 400, BaseHue: 40, BaseSaturation: 80},
	{Name: Neon, Count: 400, BaseHue: 280, BaseSaturation: 180},
	{Name: Pastel, Count: 300, BaseHue: 320, BaseSaturation: 100},
	{Name: Dramatic, Count: 200, BaseHue: 0, BaseSaturation: 140},
	{Name: Soft, Count: 200, BaseHue: 0, BaseSaturation: 90},
}

// Preset is a named parameter vector offered for one-click selection.
type Preset struct {
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Parameters filter.Parameters `json:"parameters"`
}

// CategoryInfo summarizes a category for listing.
type CategoryInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Page is one slice of a category's presets.
type Page struct {
	Category   string   `json:"category"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
	Total      int      `json:"total"`
	Presets    []Preset `json:"presets"`
}

// Catalog is an immutable, ordered preset collection partitioned by category.
// It is safe for concurrent readers.
type Catalog struct {
	presets    []Preset
	categories []CategoryInfo
	byCategory map[string][]Preset
	byName     map[string]int
}

// Generate builds a catalog from the category table using rng for the
// per-preset draws. Only the shape (categories, counts, names) is fixed;
// values depend on rng. Categories with a non-positive count yield no presets.
func Generate(categories []Category, rng *rand.Rand) *Catalog {
	total := 0
	for _, c := range categories {
		if c.Count > 0 {
			total += c.Count
		}
	}

	c := &Catalog{
		presets:    make([]Preset, 0, total),
		categories: make([]CategoryInfo, 0, len(categories)),
		byCategory: make(map[string][]Preset, len(categories)),
		byName:     make(map[string]int, total),
	}

	for _, cat := range categories {
		count := max(cat.Count, 0)
		start := len(c.presets)

		for i := 0; i < count; i++ {
			p := Preset{
				Name:       fmt.Sprintf("%s %d", cat.Name, i+1),
				Category:   cat.Name,
				Parameters: generateParameters(cat, i, rng),
			}
			c.byName[p.Name] = len(c.presets)
			c.presets = append(c.presets, p)
		}

		c.byCategory[cat.Name] = c.presets[start:len(c.presets):len(c.presets)]
		c.categories = append(c.categories, CategoryInfo{Name: cat.Name, Count: count})
	}

	return c
}

// generateParameters draws one preset vector. variation runs 0..1 across the
// category and sweeps the hue over 60 degrees from the category's base hue.
func generateParameters(cat Category, i int, rng *rand.Rand) filter.Parameters {
	variation := float64(i) / float64(cat.Count)

	p := filter.Parameters{
		Brightness: 90 + rng.Float64()*30,
		Contrast:   90 + rng.Float64()*60,
		Saturation: cat.BaseSaturation + (rng.Float64()-0.5)*40,
		HueRotate:  math.Mod(cat.BaseHue+variation*60, 360),
	}

	if rng.Float64() < 0.3 {
		p.Blur = rng.Float64() * 2
	}

	if cat.Name == Vintage {
		p.Sepia = 20 + rng.Float64()*40
	} else {
		p.Sepia = rng.Float64() * 20
	}

	if cat.Name == Warm {
		p.Warmth = 20 + rng.Float64()*30
	} else {
		p.Warmth = (rng.Float64() - 0.5) * 20
	}

	if cat.Name == Neon {
		p.Glow = 30 + rng.Float64()*40
	} else {
		p.Glow = rng.Float64() * 20
	}

	return filter.Clamp(p)
}

// New generates the default catalog from a seeded source.
func New(seed int64) *Catalog {
	return Generate(DefaultCategories, rand.New(rand.NewSource(seed)))
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog, generated on first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New(time.Now().UnixNano())
	})
	return defaultCatalog
}

// Len returns the total number of presets.
func (c *Catalog) Len() int {
	return len(c.presets)
}

// All returns every preset in catalog order. The slice must not be modified.
func (c *Catalog) All() []Preset {
	return c.presets
}

// Categories lists categories in declaration order.
func (c *Catalog) Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(c.categories))
	copy(out, c.categories)
	return out
}

// Presets returns the presets of one category.
func (c *Catalog) Presets(category string) ([]Preset, error) {
	presets, ok := c.byCategory[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return presets, nil
}

// Lookup finds a preset by its name.
func (c *Catalog) Lookup(name string) (Preset, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Preset{}, false
	}
	return c.presets[idx], true
}

// Page returns the zero-based page of a category. size <= 0 uses DefaultPageSize.
// Pages past the end are empty rather than an error.
func (c *Catalog) Page(category string, page, size int) (Page, error) {
	presets, err := c.Presets(category)
	if err != nil {
		return Page{}, err
	}
	if page < 0 {
		return Page{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(presets)
	result := Page{
		Category:   category,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
		Total:      total,
		Presets:    []Preset{},
	}

	start := page * size
	if start >= total {
		return result, nil
	}
	end := min(start+size, total)
	result.Presets = presets[start:end:end]

	return result, nil
}

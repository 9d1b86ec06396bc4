package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no source knows a recipe id.
var ErrNotFound = errors.New("recipe not found")

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Recipe is a full recipe record.
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	PrepTimeMin  int          `json:"prep_time_min"`
	CookTimeMin  int          `json:"cook_time_min"`
	Servings     int          `json:"servings"`
	Calories     float64      `json:"calories"`
	ProteinG     float64      `json:"protein_g"`
	CarbsG       float64      `json:"carbs_g"`
	FatG         float64      `json:"fat_g"`
	FiberG       float64      `json:"fiber_g"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	SourceURL    string       `json:"source_url,omitempty"`
}

// Resolver looks up a recipe by id. Any error, including ErrNotFound, means
// the recipe is unavailable; callers do not distinguish causes.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Recipe, error)
}

// Source is a queryable collection of recipes.
type Source interface {
	Resolver
	List(ctx context.Context) ([]Recipe, error)
	ListByCategory(ctx context.Context, category string) ([]Recipe, error)
}

// Catalog concatenates several sources, the hosted catalog first and the
// household's own recipes after it.
type Catalog struct {
	sources []Source
}

// NewCatalog creates a Catalog over sources, queried in order.
func NewCatalog(sources ...Source) *Catalog {
	return &Catalog{sources: sources}
}

// Resolve returns the first source's hit for id.
func (c *Catalog) Resolve(ctx context.Context, id string) (*Recipe, error) {
	var errs []error
	for _, s := range c.sources {
		rec, err := s.Resolve(ctx, id)
		if err == nil && rec != nil {
			return rec, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to resolve recipe %s: %w", id, errors.Join(errs...))
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns every recipe from every source.
func (c *Catalog) List(ctx context.Context) ([]Recipe, error) {
	var all []Recipe
	for _, s := range c.sources {
		recipes, err := s.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list recipes: %w", err)
		}
		all = append(all, recipes...)
	}
	return all, nil
}

// ListByCategory returns the recipes of one category from every source.
func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]Recipe, error) {
	var all []Recipe
	for _, s := range c.sources {
		recipes, err := s.ListByCategory(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s recipes: %w", category, err)
		}
		all = append(all, recipes...)
	}
	return all, nil
}

// Search returns the recipes whose name, tags or ingredient items contain
// query, case-insensitively. An empty query matches everything.
func (c *Catalog) Search(ctx context.Context, query string) ([]Recipe, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var matches []Recipe
	for _, r := range all {
		if r.matches(q) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func (r Recipe) matches(q string) bool {
	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Item), q) {
			return true
		}
	}
	return false
}

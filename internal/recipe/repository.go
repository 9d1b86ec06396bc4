package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	db "household-meal-planner/internal/recipe/db"
)

// Repository is a database-backed Source holding the household's own
// recipes.
type Repository struct {
	queries *db.Queries
	db      *sql.DB
	logger  *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		queries: db.New(d),
		db:      d,
		logger:  logger,
	}
}

// Save inserts or updates a recipe. A recipe without an id gets a fresh one,
// which is returned.
func (r *Repository) Save(ctx context.Context, rec Recipe) (string, error) {
	if strings.TrimSpace(rec.Name) == "" {
		return "", errors.New("recipe name is required")
	}
	if rec.ID == "" {
		rec.ID = "user-" + uuid.NewString()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	err = r.queries.UpsertRecipe(ctx, db.UpsertRecipeParams{
		ID:        rec.ID,
		Name:      rec.Name,
		Category:  rec.Category,
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save recipe %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// Resolve retrieves a recipe by its id.
func (r *Repository) Resolve(ctx context.Context, id string) (*Recipe, error) {
	row, err := r.queries.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(row.Data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// List retrieves all recipes ordered by name.
func (r *Repository) List(ctx context.Context) ([]Recipe, error) {
	rows, err := r.queries.ListAllRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return r.decode(rows), nil
}

// ListByCategory retrieves the recipes of one category, ignoring case.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]Recipe, error) {
	rows, err := r.queries.ListRecipesByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes by category: %w", err)
	}
	return r.decode(rows), nil
}

// Delete removes a recipe. Meals already planned with it keep their snapshot.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.queries.DeleteRecipe(ctx, id)
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	count, err := r.queries.CountRecipes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return int(count), nil
}

func (r *Repository) decode(rows []db.Recipe) []Recipe {
	recipes := make([]Recipe, 0, len(rows))
	for _, row := range rows {
		var rec Recipe
		if err := json.Unmarshal([]byte(row.Data), &rec); err != nil {
			r.logger.Warn("skipping unreadable recipe", zap.String("recipe_id", row.ID), zap.Error(err))
			continue
		}
		recipes = append(recipes, rec)
	}
	return recipes
}

// Package recipeapi is a client for the hosted recipe database.
package recipeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"household-meal-planner/internal/config"
	"household-meal-planner/internal/recipe"
)

// ingredientDTO mirrors the hosted schema, where amounts are free text.
type ingredientDTO struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Item   string `json:"item"`
}

type recipeDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	PrepTimeMin  int             `json:"prep_time_min"`
	CookTimeMin  int             `json:"cook_time_min"`
	Servings     int             `json:"servings"`
	Calories     float64         `json:"calories"`
	ProteinG     float64         `json:"protein_g"`
	CarbsG       float64         `json:"carbs_g"`
	FatG         float64         `json:"fat_g"`
	FiberG       float64         `json:"fiber_g"`
	Ingredients  []ingredientDTO `json:"ingredients"`
	Instructions []string        `json:"instructions"`
	Notes        string          `json:"notes"`
	Tags         []string        `json:"tags"`
}

// recipesResponse is the top-level structure of list responses.
type recipesResponse struct {
	Recipes []recipeDTO `json:"recipes"`
}

func (d recipeDTO) toRecipe() recipe.Recipe {
	ingredients := make([]recipe.Ingredient, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		ingredients = append(ingredients, recipe.Ingredient{
			Item:     ing.Item,
			Quantity: recipe.ParseAmount(ing.Amount),
			Unit:     ing.Unit,
		})
	}
	return recipe.Recipe{
		ID:           d.ID,
		Name:         d.Name,
		Category:     d.Category,
		PrepTimeMin:  d.PrepTimeMin,
		CookTimeMin:  d.CookTimeMin,
		Servings:     d.Servings,
		Calories:     d.Calories,
		ProteinG:     d.ProteinG,
		CarbsG:       d.CarbsG,
		FatG:         d.FatG,
		FiberG:       d.FiberG,
		Ingredients:  ingredients,
		Instructions: d.Instructions,
		Notes:        d.Notes,
		Tags:         d.Tags,
	}
}

// Client implements recipe.Source against the hosted REST API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     *config.Config
}

// NewClient creates a new hosted recipe database client.
func NewClient(cfg *config.Config) *Client {
	rps := cfg.RecipeAPIRPS
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		config:     cfg,
	}
}

// Resolve fetches a single recipe. A 404 maps to recipe.ErrNotFound.
func (c *Client) Resolve(ctx context.Context, id string) (*recipe.Recipe, error) {
	var dto recipeDTO
	status, err := c.get(ctx, "/recipes/"+url.PathEscape(id), nil, &dto)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", recipe.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	rec := dto.toRecipe()
	return &rec, nil
}

// List fetches every hosted recipe.
func (c *Client) List(ctx context.Context) ([]recipe.Recipe, error) {
	return c.list(ctx, nil)
}

// ListByCategory fetches the hosted recipes of one category.
func (c *Client) ListByCategory(ctx context.Context, category string) ([]recipe.Recipe, error) {
	return c.list(ctx, url.Values{"category": {category}})
}

func (c *Client) list(ctx context.Context, query url.Values) ([]recipe.Recipe, error) {
	var resp recipesResponse
	if _, err := c.get(ctx, "/recipes", query, &resp); err != nil {
		return nil, err
	}
	recipes := make([]recipe.Recipe, 0, len(resp.Recipes))
	for _, dto := range resp.Recipes {
		recipes = append(recipes, dto.toRecipe())
	}
	return recipes, nil
}

// get performs an authenticated GET and decodes a 200 response into dst.
// The HTTP status is returned whenever a response was received.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.config.RecipeAPIURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.RecipeAPIKey != "" {
		req.Header.Set("apikey", c.config.RecipeAPIKey)
	}
	if c.config.RecipeAPISecret != "" {
		token, err := c.createAccessToken()
		if err != nil {
			return 0, fmt.Errorf("failed to create access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("recipe api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// createAccessToken generates a short-lived read-only JWT.
func (c *Client) createAccessToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat":  now.Unix(),
		"exp":  now.Add(5 * time.Minute).Unix(),
		"aud":  "recipes",
		"role": "reader",
	})
	return token.SignedString([]byte(c.config.RecipeAPISecret))
}

package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"household-meal-planner/internal/recipe"
)

// ErrNoRecipe is returned when a page carries no schema.org Recipe markup.
var ErrNoRecipe = errors.New("no recipe markup found")

// RecipeSaver persists an imported recipe and returns its id.
type RecipeSaver interface {
	Save(ctx context.Context, rec recipe.Recipe) (string, error)
}

// Clipper imports recipes from web pages into the household's own
// collection.
type Clipper struct {
	httpClient *http.Client
	saver      RecipeSaver
	logger     *zap.Logger
}

// NewClipper creates a new Clipper instance.
func NewClipper(saver RecipeSaver, logger *zap.Logger) *Clipper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		saver:      saver,
		logger:     logger,
	}
}

// ClipURL fetches the page, extracts its recipe and saves it.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	rec, err := extract(doc)
	if err != nil {
		return nil, err
	}
	rec.SourceURL = url

	id, err := c.saver.Save(ctx, *rec)
	if err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}
	rec.ID = id

	c.logger.Info("recipe imported",
		zap.String("id", id),
		zap.String("name", rec.Name),
		zap.Int("ingredients", len(rec.Ingredients)),
		zap.String("url", url),
	)
	return rec, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// ldRecipe is the subset of schema.org/Recipe we read. Several properties
// appear in the wild either as a scalar or as a list, hence json.RawMessage.
type ldRecipe struct {
	Type               json.RawMessage `json:"@type"`
	Name               string          `json:"name"`
	RecipeCategory     json.RawMessage `json:"recipeCategory"`
	RecipeYield        json.RawMessage `json:"recipeYield"`
	PrepTime           string          `json:"prepTime"`
	CookTime           string          `json:"cookTime"`
	RecipeIngredient   []string        `json:"recipeIngredient"`
	RecipeInstructions json.RawMessage `json:"recipeInstructions"`
	Keywords           json.RawMessage `json:"keywords"`
	Description        string          `json:"description"`
	Nutrition          struct {
		Calories            string `json:"calories"`
		ProteinContent      string `json:"proteinContent"`
		CarbohydrateContent string `json:"carbohydrateContent"`
		FatContent          string `json:"fatContent"`
		FiberContent        string `json:"fiberContent"`
	} `json:"nutrition"`
}

func extract(doc *goquery.Document) (*recipe.Recipe, error) {
	var found *ldRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = findRecipe([]byte(s.Text()))
		return found == nil
	})
	if found == nil || strings.TrimSpace(found.Name) == "" {
		return nil, ErrNoRecipe
	}

	rec := &recipe.Recipe{
		Name:         strings.TrimSpace(found.Name),
		PrepTimeMin:  isoMinutes(found.PrepTime),
		CookTimeMin:  isoMinutes(found.CookTime),
		Servings:     int(recipe.ParseAmount(firstString(found.RecipeYield))),
		Calories:     recipe.ParseAmount(firstToken(found.Nutrition.Calories)),
		ProteinG:     recipe.ParseAmount(firstToken(found.Nutrition.ProteinContent)),
		CarbsG:       recipe.ParseAmount(firstToken(found.Nutrition.CarbohydrateContent)),
		FatG:         recipe.ParseAmount(firstToken(found.Nutrition.FatContent)),
		FiberG:       recipe.ParseAmount(firstToken(found.Nutrition.FiberContent)),
		Instructions: instructions(found.RecipeInstructions),
		Notes:        strings.TrimSpace(found.Description),
	}
	if cats := stringList(found.RecipeCategory); len(cats) > 0 {
		rec.Category = cats[0]
	}
	for _, kw := range stringList(found.Keywords) {
		for _, tag := range strings.Split(kw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				rec.Tags = append(rec.Tags, tag)
			}
		}
	}
	for _, line := range found.RecipeIngredient {
		ing := recipe.ParseIngredientLine(line)
		if ing.Item != "" {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	return rec, nil
}

// findRecipe looks for a Recipe node in a JSON-LD block, which may be a
// single object, an array of objects or an object with an @graph.
func findRecipe(data []byte) *ldRecipe {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		var single json.RawMessage
		if err := json.Unmarshal(data, &single); err != nil {
			return nil
		}
		nodes = []json.RawMessage{single}
	}

	for _, raw := range nodes {
		var graph struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(raw, &graph); err == nil && len(graph.Graph) > 0 {
			if r := findRecipe(mustJSON(graph.Graph)); r != nil {
				return r
			}
			continue
		}

		var node ldRecipe
		if err := json.Unmarshal(raw, &node); err != nil {
			continue
		}
		for _, t := range stringList(node.Type) {
			if t == "Recipe" {
				return &node
			}
		}
	}
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// stringList accepts a JSON string, number or array of those.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}
	var out []string
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n.String())
		}
	}
	return out
}

func firstString(raw json.RawMessage) string {
	if l := stringList(raw); len(l) > 0 {
		return firstToken(l[0])
	}
	return ""
}

func firstToken(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// instructions flattens plain strings, HowToStep objects and HowToSection
// objects into a list of steps.
func instructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		var steps []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				steps = append(steps, line)
			}
		}
		return steps
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var steps []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
			continue
		}
		var step struct {
			Text            string          `json:"text"`
			ItemListElement json.RawMessage `json:"itemListElement"`
		}
		if err := json.Unmarshal(item, &step); err != nil {
			continue
		}
		if len(step.ItemListElement) > 0 {
			steps = append(steps, instructions(step.ItemListElement)...)
			continue
		}
		if t := strings.TrimSpace(step.Text); t != "" {
			steps = append(steps, t)
		}
	}
	return steps
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:\d+S)?)?$`)

// isoMinutes converts an ISO 8601 duration such as "PT1H30M" to minutes.
func isoMinutes(s string) int {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	total := 0
	for i, mult := range []int{24 * 60, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * mult
	}
	return total
}

package shopping

import (
	"strings"

	"household-meal-planner/internal/recipe"
)

type lineKey struct {
	item string
	unit string
}

// Aggregate merges the ingredient lines of recipes into one line per
// (item, unit) pair, summing quantities. Items match case-insensitively and
// units by recipe.CanonicalUnit, so "cup" and "cups" merge while "g" and
// "cup" stay two lines. Each recipe
// counts once however many times it is planned, so a recipe repeated in the
// input by id is only counted the first time. Lines keep the order and
// spelling (item and unit) in which they first appeared.
func Aggregate(recipes []recipe.Recipe) []recipe.Ingredient {
	seenRecipes := make(map[string]struct{}, len(recipes))
	index := make(map[lineKey]int)
	var lines []recipe.Ingredient

	for _, rec := range recipes {
		if rec.ID != "" {
			if _, dup := seenRecipes[rec.ID]; dup {
				continue
			}
			seenRecipes[rec.ID] = struct{}{}
		}

		for _, ing := range rec.Ingredients {
			k := lineKey{item: strings.ToLower(ing.Item), unit: recipe.CanonicalUnit(ing.Unit)}
			if i, ok := index[k]; ok {
				lines[i].Quantity += ing.Quantity
				continue
			}
			index[k] = len(lines)
			lines = append(lines, ing)
		}
	}
	return lines
}

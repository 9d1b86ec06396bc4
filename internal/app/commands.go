package app

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"household-meal-planner/internal/metrics"
	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
	"household-meal-planner/internal/shopping"
)

// weekOrCurrent normalizes week to its Monday, defaulting to this week.
func (a *App) weekOrCurrent(week civil.Date) civil.Date {
	if week.IsZero() {
		return a.Plans.CurrentWeekStart()
	}
	return planner.WeekStartOf(week)
}

// SetMeal plans recipeID into a slot, snapshotting its name and macros.
func (a *App) SetMeal(ctx context.Context, personID string, date civil.Date, slot planner.Slot, recipeID string) error {
	rec, err := a.Catalog.Resolve(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("failed to look up recipe %s: %w", recipeID, err)
	}

	meal := planner.PlannedMeal{
		Date:       date,
		Slot:       slot,
		RecipeID:   rec.ID,
		RecipeName: rec.Name,
	}
	if rec.Calories > 0 {
		meal.Calories = &rec.Calories
		meal.Protein = &rec.ProteinG
		meal.Carbs = &rec.CarbsG
		meal.Fat = &rec.FatG
	}
	if err := a.Plans.SetMeal(ctx, personID, meal); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Planned %s for %s %s.\n", rec.Name, date, slot)
	return nil
}

// RemoveMeal clears one slot.
func (a *App) RemoveMeal(ctx context.Context, personID string, date civil.Date, slot planner.Slot) error {
	if err := a.Plans.RemoveMeal(ctx, personID, date, slot); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cleared %s %s.\n", date, slot)
	return nil
}

// ShowWeek prints the week's meals.
func (a *App) ShowWeek(ctx context.Context, personID string, week civil.Date) error {
	week = a.weekOrCurrent(week)
	meals := a.Plans.GetMeals(ctx, personID, week)
	fmt.Fprint(a.out, FormatWeek(week, meals, a.Plans.WeekSummary(ctx, personID, week)))
	return nil
}

// ClearWeek removes every meal of the week.
func (a *App) ClearWeek(ctx context.Context, personID string, week civil.Date) error {
	week = a.weekOrCurrent(week)
	if err := a.Plans.ClearWeek(ctx, personID, week); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cleared week of %s.\n", week)
	return nil
}

// CopyWeek replaces the target week with the source week's meals. The
// source defaults to this week and the target to the week after the source.
func (a *App) CopyWeek(ctx context.Context, personID string, source, target civil.Date) error {
	source = a.weekOrCurrent(source)
	if target.IsZero() {
		target = planner.GetNextMonday(source)
	}
	if !a.Plans.ExistsForWeek(ctx, personID, source) {
		return fmt.Errorf("nothing planned for week of %s", source)
	}
	if err := a.Plans.CopyWeek(ctx, personID, source, target); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Copied week of %s to week of %s.\n", source, planner.WeekStartOf(target))
	return nil
}

// GenerateList rebuilds and prints the shopping list for a week.
func (a *App) GenerateList(ctx context.Context, personID string, week civil.Date) error {
	week = a.weekOrCurrent(week)
	if !a.Plans.ExistsForWeek(ctx, personID, week) {
		fmt.Fprintf(a.out, "Nothing planned for week of %s.\n", week)
	}
	list, err := a.Lists.Generate(ctx, personID, week)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, FormatShoppingList(list))
	return nil
}

// ShowList prints the stored shopping list.
func (a *App) ShowList(ctx context.Context, personID string) error {
	fmt.Fprint(a.out, FormatShoppingList(a.Lists.Get(ctx, personID)))
	return nil
}

// ToggleItem flips an item's checked flag.
func (a *App) ToggleItem(ctx context.Context, personID, itemID string) error {
	if err := a.Lists.ToggleItem(ctx, personID, itemID); err != nil {
		return err
	}
	return a.ShowList(ctx, personID)
}

// AddItem parses text such as "2 cans chickpeas" and appends it to the list.
func (a *App) AddItem(ctx context.Context, personID, text, category string) error {
	ing := recipe.ParseIngredientLine(text)
	id, err := a.Lists.AddCustomItem(ctx, personID, shopping.CustomItem{
		Name:     ing.Item,
		Quantity: ing.Quantity,
		Unit:     ing.Unit,
		Category: category,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s (%s).\n", ing.Item, id)
	return nil
}

// RemoveItem deletes one item from the list.
func (a *App) RemoveItem(ctx context.Context, personID, itemID string) error {
	if err := a.Lists.RemoveItem(ctx, personID, itemID); err != nil {
		return err
	}
	return a.ShowList(ctx, personID)
}

// ClearChecked drops every checked item.
func (a *App) ClearChecked(ctx context.Context, personID string) error {
	if err := a.Lists.ClearChecked(ctx, personID); err != nil {
		return err
	}
	return a.ShowList(ctx, personID)
}

// ClearList deletes the list.
func (a *App) ClearList(ctx context.Context, personID string) error {
	if err := a.Lists.ClearAll(ctx, personID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Shopping list cleared.")
	return nil
}

// ListRecipes prints the catalog, optionally restricted to a category.
func (a *App) ListRecipes(ctx context.Context, category string) error {
	var (
		recipes []recipe.Recipe
		err     error
	)
	if category != "" {
		recipes, err = a.Catalog.ListByCategory(ctx, category)
	} else {
		recipes, err = a.Catalog.List(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, FormatRecipes(recipes))
	return nil
}

// SearchRecipes prints recipes matching query.
func (a *App) SearchRecipes(ctx context.Context, query string) error {
	recipes, err := a.Catalog.Search(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, FormatRecipes(recipes))
	return nil
}

// ImportRecipe clips a recipe page into the household collection.
func (a *App) ImportRecipe(ctx context.Context, url string) error {
	rec, err := a.Clipper.ClipURL(ctx, url)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %s as %s (%d ingredients).\n", rec.Name, rec.ID, len(rec.Ingredients))
	return nil
}

// DeleteRecipe removes a household recipe. Meals already planned with it
// keep their snapshot; hosted recipes are not touched.
func (a *App) DeleteRecipe(ctx context.Context, id string) error {
	if _, err := a.Recipes.Resolve(ctx, id); err != nil {
		return err
	}
	if err := a.Recipes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	fmt.Fprintf(a.out, "Deleted recipe %s.\n", id)
	return nil
}

// Stats prints recent generation activity and system health.
func (a *App) Stats(ctx context.Context, days int) error {
	daily, err := a.Metrics.GetDailyStats(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to load generation stats: %w", err)
	}
	count, err := a.Recipes.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, FormatStats(daily, metrics.GetSysHealth(a.DataPath()), count))
	return nil
}

// CleanupMetrics removes generation runs older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) error {
	n, err := a.Metrics.Cleanup(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Successfully removed %d old generation records.\n", n)
	return nil
}

// FormatStats renders the stats report.
func FormatStats(daily []metrics.DailyStats, health metrics.SysHealth, householdRecipes int) string {
	var sb strings.Builder
	sb.WriteString("Recent shopping-list generations\n")
	if len(daily) == 0 {
		sb.WriteString("  no data yet\n")
	}
	for _, d := range daily {
		sb.WriteString(fmt.Sprintf("  %s: %d runs, %d recipes resolved, %d unresolved, avg %dms\n",
			d.Date, d.Runs, d.Resolved, d.Unresolved, d.AvgLatencyMS))
	}
	sb.WriteString(fmt.Sprintf("\nHousehold recipes: %d\n", householdRecipes))
	sb.WriteString("\nSystem health\n")
	sb.WriteString(fmt.Sprintf("  RAM: %s (alloc) / %s (sys)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("  Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("  Disk data: %s\n", health.DataDiskSize))
	return sb.String()
}

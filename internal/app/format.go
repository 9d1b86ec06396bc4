package app

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dustin/go-humanize"

	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
	"household-meal-planner/internal/shopping"
)

// FormatQuantity renders an amount with at most two decimals; zero renders
// as an empty string.
func FormatQuantity(q float64, unit string) string {
	if q == 0 {
		return ""
	}
	s := humanize.FtoaWithDigits(q, 2)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// FormatWeek renders a week's meals day by day with macro totals.
func FormatWeek(weekStart civil.Date, meals []planner.PlannedMeal, totals [7]planner.DayTotals) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Week of %s\n", weekStart))

	byDay := make(map[civil.Date][]planner.PlannedMeal)
	for _, m := range meals {
		byDay[m.Date] = append(byDay[m.Date], m)
	}

	for i, day := range planner.DatesOfWeek(weekStart) {
		sb.WriteString(fmt.Sprintf("\n%s %s", day.In(time.UTC).Weekday().String()[:3], day))
		if totals[i].Calories > 0 {
			sb.WriteString(fmt.Sprintf("  (%s kcal, P %sg / C %sg / F %sg)",
				humanize.FtoaWithDigits(totals[i].Calories, 0),
				humanize.FtoaWithDigits(totals[i].Protein, 1),
				humanize.FtoaWithDigits(totals[i].Carbs, 1),
				humanize.FtoaWithDigits(totals[i].Fat, 1)))
		}
		sb.WriteString("\n")
		if len(byDay[day]) == 0 {
			sb.WriteString("  -\n")
			continue
		}
		for _, m := range byDay[day] {
			sb.WriteString(fmt.Sprintf("  %-9s %s [%s]\n", m.Slot, m.RecipeName, m.RecipeID))
		}
	}
	return sb.String()
}

// FormatShoppingList renders a list grouped under category headings.
func FormatShoppingList(list *shopping.ShoppingListData) string {
	if list == nil {
		return "No shopping list.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Shopping list for week of %s (generated %s)\n",
		list.WeekStart, list.GeneratedAt.Format("2006-01-02 15:04")))
	if len(list.Items) == 0 {
		sb.WriteString("\n  (empty)\n")
		return sb.String()
	}

	category := ""
	for i, it := range list.Items {
		if i == 0 || it.Category != category {
			category = it.Category
			sb.WriteString(fmt.Sprintf("\n%s\n", category))
		}
		box := "[ ]"
		if it.Checked {
			box = "[x]"
		}
		line := it.Name
		if q := FormatQuantity(it.Quantity, it.Unit); q != "" {
			line = q + " " + it.Name
		}
		sb.WriteString(fmt.Sprintf("  %s %s  (%s)\n", box, line, it.ID))
	}
	return sb.String()
}

// FormatRecipes renders one line per recipe.
func FormatRecipes(recipes []recipe.Recipe) string {
	if len(recipes) == 0 {
		return "No recipes found.\n"
	}
	var sb strings.Builder
	for _, r := range recipes {
		sb.WriteString(fmt.Sprintf("%-24s %s", r.ID, r.Name))
		if r.Category != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Category))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

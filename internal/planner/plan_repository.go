package planner

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"household-meal-planner/internal/kvstore"
)

// maxWriteAttempts bounds the re-read/re-apply loop on version conflicts.
const maxWriteAttempts = 3

// PlanRepository stores every person's weekly meal plans. All weeks of one
// person live in a single blob; people never see each other's plans.
//
// Reads degrade to empty results when storage is unavailable or the blob is
// corrupt. Writes that fail for any reason other than a lost race are logged
// and dropped.
type PlanRepository struct {
	store  kvstore.Store
	clock  Clock
	logger *zap.Logger
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(store kvstore.Store, clock Clock, logger *zap.Logger) *PlanRepository {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanRepository{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// CurrentWeekStart returns the Monday of the repository clock's current week.
func (r *PlanRepository) CurrentWeekStart() civil.Date {
	return CurrentWeekStart(r.clock)
}

// GetPlan returns the plan for the week containing weekStart, or nil.
func (r *PlanRepository) GetPlan(ctx context.Context, personID string, weekStart civil.Date) *WeeklyMealPlan {
	plans, _, _ := r.load(ctx, personID)
	idx := findWeek(plans, WeekStartOf(weekStart))
	if idx < 0 {
		return nil
	}
	plan := plans[idx]
	return &plan
}

// ExistsForWeek reports whether any meal is planned for the week.
func (r *PlanRepository) ExistsForWeek(ctx context.Context, personID string, weekStart civil.Date) bool {
	return len(r.GetMeals(ctx, personID, weekStart)) > 0
}

// GetMeals returns the week's meals ordered by date, then slot.
func (r *PlanRepository) GetMeals(ctx context.Context, personID string, weekStart civil.Date) []PlannedMeal {
	plan := r.GetPlan(ctx, personID, weekStart)
	if plan == nil {
		return nil
	}
	meals := append([]PlannedMeal(nil), plan.Meals...)
	sort.SliceStable(meals, func(i, j int) bool {
		if meals[i].Date != meals[j].Date {
			return meals[i].Date.Before(meals[j].Date)
		}
		return meals[i].Slot.order() < meals[j].Slot.order()
	})
	return meals
}

// GetMeal returns the meal planned for date and slot, or nil.
func (r *PlanRepository) GetMeal(ctx context.Context, personID string, date civil.Date, slot Slot) *PlannedMeal {
	for _, m := range r.GetMeals(ctx, personID, WeekStartOf(date)) {
		if m.Date == date && m.Slot == slot {
			meal := m
			return &meal
		}
	}
	return nil
}

// SetMeal plans meal for its date and slot, replacing whatever was there.
// The week's plan is created on first use.
func (r *PlanRepository) SetMeal(ctx context.Context, personID string, meal PlannedMeal) error {
	if err := validate(personID, meal.Date, meal.Slot); err != nil {
		return err
	}
	weekStart := WeekStartOf(meal.Date)

	return r.mutate(ctx, personID, "set_meal", func(plans []WeeklyMealPlan) ([]WeeklyMealPlan, bool) {
		idx := findWeek(plans, weekStart)
		if idx < 0 {
			plans = append(plans, WeeklyMealPlan{WeekStart: weekStart, PersonID: personID})
			idx = len(plans) - 1
		}
		week := &plans[idx]
		week.Meals = append(withoutSlot(week.Meals, meal.Date, meal.Slot), meal)
		week.UpdatedAt = r.clock().UTC()
		return plans, true
	})
}

// RemoveMeal clears one slot. Removing an empty slot does nothing.
func (r *PlanRepository) RemoveMeal(ctx context.Context, personID string, date civil.Date, slot Slot) error {
	if err := validate(personID, date, slot); err != nil {
		return err
	}
	weekStart := WeekStartOf(date)

	return r.mutate(ctx, personID, "remove_meal", func(plans []WeeklyMealPlan) ([]WeeklyMealPlan, bool) {
		idx := findWeek(plans, weekStart)
		if idx < 0 {
			return plans, false
		}
		week := &plans[idx]
		remaining := withoutSlot(week.Meals, date, slot)
		if len(remaining) == len(week.Meals) {
			return plans, false
		}
		week.Meals = remaining
		week.UpdatedAt = r.clock().UTC()
		return plans, true
	})
}

// ClearWeek deletes the week's plan entirely.
func (r *PlanRepository) ClearWeek(ctx context.Context, personID string, weekStart civil.Date) error {
	if personID == "" {
		return ErrEmptyPersonID
	}
	weekStart = WeekStartOf(weekStart)

	return r.mutate(ctx, personID, "clear_week", func(plans []WeeklyMealPlan) ([]WeeklyMealPlan, bool) {
		idx := findWeek(plans, weekStart)
		if idx < 0 {
			return plans, false
		}
		return append(plans[:idx], plans[idx+1:]...), true
	})
}

// CopyWeek replaces the target week with the source week's meals, moved
// day-for-day: a Monday meal lands on the target Monday and so on. Meals
// already planned in the target week are discarded. An empty source week
// leaves the target untouched.
func (r *PlanRepository) CopyWeek(ctx context.Context, personID string, sourceWeekStart, targetWeekStart civil.Date) error {
	if personID == "" {
		return ErrEmptyPersonID
	}
	source := WeekStartOf(sourceWeekStart)
	target := WeekStartOf(targetWeekStart)
	targetDates := DatesOfWeek(target)

	return r.mutate(ctx, personID, "copy_week", func(plans []WeeklyMealPlan) ([]WeeklyMealPlan, bool) {
		idx := findWeek(plans, source)
		if idx < 0 || len(plans[idx].Meals) == 0 {
			return plans, false
		}

		copied := make([]PlannedMeal, 0, len(plans[idx].Meals))
		for _, m := range plans[idx].Meals {
			day := weekdayIndex(source, m.Date)
			if day < 0 {
				r.logger.Warn("skipping meal outside its week",
					zap.String("person", personID),
					zap.Stringer("week_start", source),
					zap.Stringer("date", m.Date),
				)
				continue
			}
			m.Date = targetDates[day]
			copied = append(copied, m)
		}

		if t := findWeek(plans, target); t >= 0 {
			plans = append(plans[:t], plans[t+1:]...)
		}
		plans = append(plans, WeeklyMealPlan{
			WeekStart: target,
			PersonID:  personID,
			Meals:     copied,
			UpdatedAt: r.clock().UTC(),
		})
		return plans, true
	})
}

// DistinctRecipeIDs returns each recipe id referenced in the week once,
// sorted, however many slots use it.
func (r *PlanRepository) DistinctRecipeIDs(ctx context.Context, personID string, weekStart civil.Date) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range r.GetMeals(ctx, personID, weekStart) {
		if _, ok := seen[m.RecipeID]; ok {
			continue
		}
		seen[m.RecipeID] = struct{}{}
		ids = append(ids, m.RecipeID)
	}
	sort.Strings(ids)
	return ids
}

// WeekSummary totals the macro snapshots for each day of the week. Meals
// without a snapshot value count as zero for that macro.
func (r *PlanRepository) WeekSummary(ctx context.Context, personID string, weekStart civil.Date) [7]DayTotals {
	dates := DatesOfWeek(weekStart)
	var totals [7]DayTotals
	for i, d := range dates {
		totals[i].Date = d
	}
	for _, m := range r.GetMeals(ctx, personID, weekStart) {
		day := weekdayIndex(dates[0], m.Date)
		if day < 0 {
			continue
		}
		t := &totals[day]
		t.Meals++
		t.Calories += deref(m.Calories)
		t.Protein += deref(m.Protein)
		t.Carbs += deref(m.Carbs)
		t.Fat += deref(m.Fat)
	}
	return totals
}

func (r *PlanRepository) key(personID string) kvstore.Key {
	return kvstore.NewKey(kvstore.NamespaceMealPlan, personID)
}

// load reads all of a person's weeks. Unavailable and corrupt storage both
// come back as an empty slice.
func (r *PlanRepository) load(ctx context.Context, personID string) ([]WeeklyMealPlan, int64, kvstore.Status) {
	var plans []WeeklyMealPlan
	version, status := kvstore.LoadJSON(ctx, r.store, r.key(personID), &plans)
	switch status {
	case kvstore.StatusOK:
		return plans, version, status
	case kvstore.StatusUnavailable, kvstore.StatusCorrupt:
		r.logger.Warn("meal plans unreadable, treating as empty",
			zap.String("person", personID),
			zap.Stringer("key", r.key(personID)),
			zap.Stringer("status", status),
		)
	}
	return nil, version, status
}

// mutate runs a read-modify-write cycle. apply must derive its result only
// from the plans it is given because it is re-run after a lost race.
func (r *PlanRepository) mutate(ctx context.Context, personID, op string, apply func([]WeeklyMealPlan) ([]WeeklyMealPlan, bool)) error {
	key := r.key(personID)
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		plans, version, status := r.load(ctx, personID)
		if status == kvstore.StatusUnavailable {
			r.logger.Warn("meal plan write skipped, storage unavailable",
				zap.String("person", personID), zap.String("op", op))
			return nil
		}

		next, changed := apply(plans)
		if !changed {
			return nil
		}

		err := kvstore.SaveJSON(ctx, r.store, key, next, version)
		if err == nil {
			return nil
		}
		if errors.Is(err, kvstore.ErrVersionConflict) {
			r.logger.Debug("meal plan write lost a race, retrying",
				zap.String("person", personID), zap.String("op", op), zap.Int("attempt", attempt))
			continue
		}
		r.logger.Warn("meal plan write failed, change dropped",
			zap.String("person", personID), zap.String("op", op), zap.Error(err))
		return nil
	}
	return ErrConcurrentUpdate
}

func validate(personID string, date civil.Date, slot Slot) error {
	if personID == "" {
		return ErrEmptyPersonID
	}
	if !date.IsValid() {
		return ErrInvalidDate
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	return nil
}

func findWeek(plans []WeeklyMealPlan, weekStart civil.Date) int {
	for i, p := range plans {
		if p.WeekStart == weekStart {
			return i
		}
	}
	return -1
}

func withoutSlot(meals []PlannedMeal, date civil.Date, slot Slot) []PlannedMeal {
	kept := make([]PlannedMeal, 0, len(meals))
	for _, m := range meals {
		if m.Date == date && m.Slot == slot {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

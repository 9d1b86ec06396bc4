package planner

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var (
	ErrInvalidSlot   = errors.New("invalid meal slot")
	ErrInvalidDate   = errors.New("invalid meal date")
	ErrEmptyPersonID = errors.New("person id is required")
	// ErrConcurrentUpdate is returned when a write keeps losing to concurrent
	// writers for the same person.
	ErrConcurrentUpdate = errors.New("meal plan was modified concurrently")
)

// Slot is one of the four meal slots of a day.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
	SlotSnack     Slot = "snack"
)

// Slots lists every slot in the order they occur in a day.
var Slots = []Slot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	return s.order() >= 0
}

func (s Slot) order() int {
	for i, known := range Slots {
		if s == known {
			return i
		}
	}
	return -1
}

// ParseSlot converts user input into a Slot.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(s)
	if !slot.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return slot, nil
}

// PlannedMeal is a recipe assigned to one slot of one day. Name and macros
// are copied from the recipe when the meal is planned and are not refreshed
// if the recipe changes afterwards.
type PlannedMeal struct {
	Date       civil.Date `json:"date"`
	Slot       Slot       `json:"slot"`
	RecipeID   string     `json:"recipe_id"`
	RecipeName string     `json:"recipe_name"`
	Calories   *float64   `json:"calories,omitempty"`
	Protein    *float64   `json:"protein,omitempty"`
	Carbs      *float64   `json:"carbs,omitempty"`
	Fat        *float64   `json:"fat,omitempty"`
}

// WeeklyMealPlan holds one person's meals for the week starting WeekStart,
// which is always a Monday.
type WeeklyMealPlan struct {
	WeekStart civil.Date    `json:"week_start"`
	PersonID  string        `json:"person_id"`
	Meals     []PlannedMeal `json:"meals"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DayTotals sums the macro snapshots of one day's planned meals.
type DayTotals struct {
	Date     civil.Date
	Meals    int
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

package shopping

import (
	"time"

	"cloud.google.com/go/civil"
)

// ShoppingItem is one line of a shopping list. Checked is owned by the user
// and changes independently of the other fields.
type ShoppingItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Checked  bool    `json:"checked"`
	Category string  `json:"category"`
}

// ShoppingListData is a snapshot derived from a week's meal plan. It does
// not follow later changes to the plan; it has to be regenerated.
type ShoppingListData struct {
	WeekStart   civil.Date     `json:"week_start"`
	PersonID    string         `json:"person_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Items       []ShoppingItem `json:"items"`
}

// CustomItem is a caller-authored addition to a list. An empty Category is
// filled in by the categorizer.
type CustomItem struct {
	Name     string
	Quantity float64
	Unit     string
	Category string
	Checked  bool
}

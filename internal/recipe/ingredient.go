package recipe

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var unicodeFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

// knownUnits maps every recognised spelling of a unit to its canonical
// form. Plurals and long names fold to the singular or abbreviated form.
var knownUnits = map[string]string{
	"cup": "cup", "cups": "cup",
	"tbsp": "tbsp", "tbsps": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"tsp": "tsp", "tsps": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"g": "g", "gram": "g", "grams": "g",
	"kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"jar": "jar", "jars": "jar",
	"slice": "slice", "slices": "slice",
	"pinch": "pinch", "pinches": "pinch",
	"bunch": "bunch", "bunches": "bunch",
	"piece": "piece", "pieces": "piece",
	"whole": "whole",
}

// CanonicalUnit folds a unit to the form used to decide whether two
// ingredient lines measure the same thing: "Cups", "cup" and "cups." all
// become "cup". Unknown units are only trimmed and lower-cased, so "g" and
// "cup" never merge.
func CanonicalUnit(unit string) string {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), ".")
	if c, ok := knownUnits[u]; ok {
		return c
	}
	return u
}

// ParseAmount converts a free-form amount such as "2", "1.5", "1/2",
// "1 1/2", "1½" or "2-3" into a number. Ranges resolve to their upper bound
// so the list never comes up short. Unparsable input yields 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0
	}
	for _, sep := range []string{"-", "–", " to "} {
		if i := strings.LastIndex(s, sep); i > 0 {
			return ParseAmount(s[i+len(sep):])
		}
	}

	var total float64
	parsed := false
	for _, field := range strings.Fields(s) {
		v, ok := parseAmountField(field)
		if !ok {
			return 0
		}
		total += v
		parsed = true
	}
	if !parsed {
		return 0
	}
	return total
}

func parseAmountField(f string) (float64, bool) {
	if v, err := strconv.ParseFloat(f, 64); err == nil {
		// ParseFloat accepts "inf" and "nan"; neither is an amount.
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	if num, den, ok := strings.Cut(f, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}

	// Trailing unicode fraction, optionally after a whole number: "1½".
	runes := []rune(f)
	last := runes[len(runes)-1]
	frac, ok := unicodeFractions[last]
	if !ok {
		return 0, false
	}
	if len(runes) == 1 {
		return frac, true
	}
	whole, err := strconv.ParseFloat(string(runes[:len(runes)-1]), 64)
	if err != nil {
		return 0, false
	}
	return whole + frac, true
}

// ParseIngredientLine splits a line such as "2 cups plain flour" into
// quantity, unit and item. A recognised unit keeps its spelling, lower-cased;
// CanonicalUnit decides which spellings are the same unit. Lines without a
// leading amount keep the whole text as the item with quantity 0.
func ParseIngredientLine(line string) Ingredient {
	fields := strings.Fields(strings.TrimSpace(line))

	i := 0
	for i < len(fields) && isAmountToken(fields[i]) {
		i++
	}
	quantity := 0.0
	if i > 0 {
		quantity = ParseAmount(strings.Join(fields[:i], " "))
	}

	unit := ""
	if i < len(fields) && i > 0 {
		word := strings.TrimSuffix(strings.ToLower(fields[i]), ".")
		if _, ok := knownUnits[word]; ok {
			unit = word
			i++
		}
	}

	item := strings.TrimSpace(strings.TrimPrefix(strings.Join(fields[i:], " "), "of "))
	return Ingredient{Item: item, Quantity: quantity, Unit: unit}
}

func isAmountToken(f string) bool {
	for _, r := range f {
		if unicode.IsDigit(r) || r == '/' || r == '.' || r == '-' || r == '–' {
			continue
		}
		if _, ok := unicodeFractions[r]; ok {
			continue
		}
		return false
	}
	return f != ""
}

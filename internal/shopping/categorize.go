package shopping

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryOther is assigned when no keyword matches.
const CategoryOther = "Other"

// Rule maps an ingredient keyword to a shopping-aisle category.
type Rule struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

// DefaultRules is the built-in keyword table. Order matters: the first
// keyword found anywhere in an item name decides its category, so "tomato"
// shadows the later "tomatoes".
var DefaultRules = []Rule{
	// Proteins
	{"chicken", "Proteins"}, {"beef", "Proteins"}, {"pork", "Proteins"},
	{"fish", "Proteins"}, {"salmon", "Proteins"}, {"tuna", "Proteins"},
	{"shrimp", "Proteins"}, {"turkey", "Proteins"}, {"bacon", "Proteins"},
	{"sausage", "Proteins"}, {"eggs", "Proteins"}, {"tofu", "Proteins"},

	// Dairy
	{"milk", "Dairy"}, {"cheese", "Dairy"}, {"yogurt", "Dairy"},
	{"butter", "Dairy"}, {"cream", "Dairy"}, {"sour", "Dairy"},

	// Produce
	{"lettuce", "Produce"}, {"tomato", "Produce"}, {"onion", "Produce"},
	{"garlic", "Produce"}, {"pepper", "Produce"}, {"carrot", "Produce"},
	{"celery", "Produce"}, {"broccoli", "Produce"}, {"spinach", "Produce"},
	{"kale", "Produce"}, {"avocado", "Produce"}, {"cucumber", "Produce"},
	{"zucchini", "Produce"}, {"mushroom", "Produce"}, {"potato", "Produce"},
	{"apple", "Produce"}, {"banana", "Produce"}, {"lemon", "Produce"},
	{"lime", "Produce"}, {"orange", "Produce"}, {"berry", "Produce"},
	{"strawberry", "Produce"}, {"blueberry", "Produce"},

	// Grains
	{"rice", "Grains"}, {"pasta", "Grains"}, {"bread", "Grains"},
	{"flour", "Grains"}, {"oats", "Grains"}, {"quinoa", "Grains"},
	{"tortilla", "Grains"}, {"noodle", "Grains"},

	// Pantry
	{"oil", "Pantry"}, {"vinegar", "Pantry"}, {"sauce", "Pantry"},
	{"broth", "Pantry"}, {"stock", "Pantry"}, {"sugar", "Pantry"},
	{"honey", "Pantry"}, {"syrup", "Pantry"}, {"salt", "Pantry"},
	{"spice", "Pantry"}, {"herb", "Pantry"},

	// Canned
	{"beans", "Canned"}, {"tomatoes", "Canned"}, {"corn", "Canned"},
	{"coconut", "Canned"},
}

// Categorizer assigns shopping categories by ordered substring matching.
// Matches inside longer words count ("rice" in "licorice"); that is the
// accepted price of a cheap heuristic.
type Categorizer struct {
	rules []Rule
}

// NewCategorizer builds a Categorizer from rules, or DefaultRules when rules
// is empty.
func NewCategorizer(rules []Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		normalized = append(normalized, Rule{Keyword: kw, Category: r.Category})
	}
	return &Categorizer{rules: normalized}
}

// Classify returns the category of the first keyword contained in itemName.
func (c *Categorizer) Classify(itemName string) string {
	name := strings.ToLower(itemName)
	for _, r := range c.rules {
		if strings.Contains(name, r.Keyword) {
			return r.Category
		}
	}
	return CategoryOther
}

// LoadRules reads an ordered rule table from a YAML file shaped as a list of
// {keyword, category} mappings.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category rules %s: %w", path, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse category rules %s: %w", path, err)
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("category rule %d in %s needs both keyword and category", i+1, path)
		}
	}
	return rules, nil
}

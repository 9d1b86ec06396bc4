package shopping

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"household-meal-planner/internal/kvstore"
	"household-meal-planner/internal/metrics"
	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
)

const (
	maxWriteAttempts   = 3
	defaultConcurrency = 4
)

var (
	// ErrConcurrentUpdate is returned when a change kept losing races with
	// other writers to the same list.
	ErrConcurrentUpdate = errors.New("shopping list was modified concurrently")
	// ErrEmptyItemName is returned when a custom item has no name.
	ErrEmptyItemName = errors.New("item name is required")
)

// PlanSource provides the recipes planned for a week.
type PlanSource interface {
	DistinctRecipeIDs(ctx context.Context, personID string, weekStart civil.Date) []string
}

// RunRecorder persists generation statistics.
type RunRecorder interface {
	RecordGeneration(ctx context.Context, run metrics.GenerationRun) error
}

// Option configures a Repository.
type Option func(*Repository)

// WithConcurrency bounds how many recipes are resolved in parallel.
func WithConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunRecorder records a GenerationRun after every generation.
func WithRunRecorder(rec RunRecorder) Option {
	return func(r *Repository) { r.recorder = rec }
}

// Repository keeps one shopping list per person. Generation derives a list
// from the person's meal plan; every other operation edits the stored list.
//
// Storage failures never surface as errors: reads degrade to "no list" and
// failed writes are logged and dropped.
type Repository struct {
	store       kvstore.Store
	plans       PlanSource
	resolver    recipe.Resolver
	categorizer *Categorizer
	recorder    RunRecorder
	clock       planner.Clock
	concurrency int
	logger      *zap.Logger
}

// NewRepository creates a new shopping list repository.
func NewRepository(store kvstore.Store, plans PlanSource, resolver recipe.Resolver, categorizer *Categorizer, clock planner.Clock, logger *zap.Logger, opts ...Option) *Repository {
	if categorizer == nil {
		categorizer = NewCategorizer(nil)
	}
	if clock == nil {
		clock = planner.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		store:       store,
		plans:       plans,
		resolver:    resolver,
		categorizer: categorizer,
		clock:       clock,
		concurrency: defaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the person's current list, or nil when there is none.
func (r *Repository) Get(ctx context.Context, personID string) *ShoppingListData {
	list, _, _ := r.load(ctx, personID)
	return list
}

// Generate rebuilds the person's list from the meals planned for the week
// containing weekStart, or the current week when weekStart is the zero date.
// The previous list, checked state and custom items included, is replaced.
//
// Recipes that cannot be resolved are left out. Generation runs to
// completion even if ctx is cancelled so that a caller walking away never
// leaves a half-written list behind.
func (r *Repository) Generate(ctx context.Context, personID string, weekStart civil.Date) (*ShoppingListData, error) {
	if personID == "" {
		return nil, planner.ErrEmptyPersonID
	}
	if weekStart.IsZero() {
		weekStart = planner.CurrentWeekStart(r.clock)
	} else {
		weekStart = planner.WeekStartOf(weekStart)
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	ids := r.plans.DistinctRecipeIDs(ctx, personID, weekStart)
	resolved := r.resolveAll(ctx, ids)

	lines := Aggregate(resolved)
	items := make([]ShoppingItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, ShoppingItem{
			ID:       "item-" + uuid.NewString(),
			Name:     line.Item,
			Quantity: line.Quantity,
			Unit:     line.Unit,
			Category: r.categorizer.Classify(line.Item),
		})
	}
	sortItems(items)

	list := &ShoppingListData{
		WeekStart:   weekStart,
		PersonID:    personID,
		GeneratedAt: r.clock().UTC(),
		Items:       items,
	}

	err := r.mutate(ctx, personID, "generate", func(*ShoppingListData) (*ShoppingListData, bool) {
		return list, true
	})

	latency := time.Since(start)
	r.logger.Info("shopping list generated",
		zap.String("person", personID),
		zap.Stringer("week", weekStart),
		zap.Int("recipes_planned", len(ids)),
		zap.Int("recipes_resolved", len(resolved)),
		zap.Int("items", len(items)),
		zap.Duration("latency", latency),
	)
	if r.recorder != nil {
		run := metrics.GenerationRun{
			PersonID:        personID,
			WeekStart:       weekStart,
			RecipesPlanned:  len(ids),
			RecipesResolved: len(resolved),
			Items:           len(items),
			Latency:         latency,
		}
		if recErr := r.recorder.RecordGeneration(ctx, run); recErr != nil {
			r.logger.Warn("failed to record generation run", zap.Error(recErr))
		}
	}

	return list, err
}

// resolveAll looks up every id with bounded parallelism. Results keep the
// order of ids; failed lookups are logged and dropped.
func (r *Repository) resolveAll(ctx context.Context, ids []string) []recipe.Recipe {
	found := make([]*recipe.Recipe, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := r.resolver.Resolve(gctx, id)
			if err != nil {
				r.logger.Warn("skipping unresolvable recipe",
					zap.String("recipe_id", id), zap.Error(err))
				return nil
			}
			found[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	resolved := make([]recipe.Recipe, 0, len(ids))
	for _, rec := range found {
		if rec != nil {
			resolved = append(resolved, *rec)
		}
	}
	return resolved
}

// ToggleItem flips the checked flag of one item. Unknown ids are ignored.
func (r *Repository) ToggleItem(ctx context.Context, personID, itemID string) error {
	return r.mutate(ctx, personID, "toggle", func(list *ShoppingListData) (*ShoppingListData, bool) {
		if list == nil {
			return nil, false
		}
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items[i].Checked = !list.Items[i].Checked
				return list, true
			}
		}
		return nil, false
	})
}

// AddCustomItem appends a caller-authored item and returns its id. A person
// without a list gets a new one for the current week.
func (r *Repository) AddCustomItem(ctx context.Context, personID string, item CustomItem) (string, error) {
	if personID == "" {
		return "", planner.ErrEmptyPersonID
	}
	if strings.TrimSpace(item.Name) == "" {
		return "", ErrEmptyItemName
	}

	category := item.Category
	if category == "" {
		category = r.categorizer.Classify(item.Name)
	}
	added := ShoppingItem{
		ID:       "custom-" + uuid.NewString(),
		Name:     item.Name,
		Quantity: item.Quantity,
		Unit:     item.Unit,
		Checked:  item.Checked,
		Category: category,
	}

	err := r.mutate(ctx, personID, "add", func(list *ShoppingListData) (*ShoppingListData, bool) {
		if list == nil {
			list = &ShoppingListData{
				WeekStart:   planner.CurrentWeekStart(r.clock),
				PersonID:    personID,
				GeneratedAt: r.clock().UTC(),
			}
		}
		list.Items = append(list.Items, added)
		return list, true
	})
	return added.ID, err
}

// RemoveItem deletes one item. Unknown ids are ignored.
func (r *Repository) RemoveItem(ctx context.Context, personID, itemID string) error {
	return r.mutate(ctx, personID, "remove", func(list *ShoppingListData) (*ShoppingListData, bool) {
		if list == nil {
			return nil, false
		}
		kept := list.Items[:0]
		for _, it := range list.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(list.Items) {
			return nil, false
		}
		list.Items = kept
		return list, true
	})
}

// ClearChecked removes every checked item, keeping the rest in order.
func (r *Repository) ClearChecked(ctx context.Context, personID string) error {
	return r.mutate(ctx, personID, "clear-checked", func(list *ShoppingListData) (*ShoppingListData, bool) {
		if list == nil {
			return nil, false
		}
		kept := make([]ShoppingItem, 0, len(list.Items))
		for _, it := range list.Items {
			if !it.Checked {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(list.Items) {
			return nil, false
		}
		list.Items = kept
		return list, true
	})
}

// ClearAll deletes the person's list.
func (r *Repository) ClearAll(ctx context.Context, personID string) error {
	if err := r.store.Delete(ctx, r.key(personID)); err != nil {
		r.logger.Warn("shopping list delete failed",
			zap.String("person", personID), zap.Error(err))
	}
	return nil
}

// UncheckedCount returns how many items are still to buy.
func (r *Repository) UncheckedCount(ctx context.Context, personID string) int {
	list := r.Get(ctx, personID)
	if list == nil {
		return 0
	}
	n := 0
	for _, it := range list.Items {
		if !it.Checked {
			n++
		}
	}
	return n
}

func (r *Repository) key(personID string) kvstore.Key {
	return kvstore.NewKey(kvstore.NamespaceShoppingList, personID)
}

func (r *Repository) load(ctx context.Context, personID string) (*ShoppingListData, int64, kvstore.Status) {
	var list ShoppingListData
	version, status := kvstore.LoadJSON(ctx, r.store, r.key(personID), &list)
	switch status {
	case kvstore.StatusOK:
		return &list, version, status
	case kvstore.StatusUnavailable, kvstore.StatusCorrupt:
		r.logger.Warn("shopping list unreadable, treating as absent",
			zap.String("person", personID),
			zap.Stringer("key", r.key(personID)),
			zap.Stringer("status", status),
		)
	}
	return nil, version, status
}

// mutate runs a read-modify-write cycle. apply receives a freshly loaded
// list (nil when there is none) and is re-run after a lost race.
func (r *Repository) mutate(ctx context.Context, personID, op string, apply func(*ShoppingListData) (*ShoppingListData, bool)) error {
	key := r.key(personID)
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		list, version, status := r.load(ctx, personID)
		if status == kvstore.StatusUnavailable {
			r.logger.Warn("shopping list write skipped, storage unavailable",
				zap.String("person", personID), zap.String("op", op))
			return nil
		}

		next, changed := apply(list)
		if !changed {
			return nil
		}

		err := kvstore.SaveJSON(ctx, r.store, key, next, version)
		if err == nil {
			return nil
		}
		if errors.Is(err, kvstore.ErrVersionConflict) {
			r.logger.Debug("shopping list write lost a race, retrying",
				zap.String("person", personID), zap.String("op", op), zap.Int("attempt", attempt))
			continue
		}
		r.logger.Warn("shopping list write failed, change dropped",
			zap.String("person", personID), zap.String("op", op), zap.Error(err))
		return nil
	}
	return ErrConcurrentUpdate
}

// sortItems orders items by category, then name, ignoring case. Ties keep
// their aggregation order.
func sortItems(items []ShoppingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := strings.ToLower(items[i].Category), strings.ToLower(items[j].Category)
		if ci != cj {
			return ci < cj
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"household-meal-planner/internal/clipper"
	"household-meal-planner/internal/config"
	"household-meal-planner/internal/database"
	"household-meal-planner/internal/kvstore"
	"household-meal-planner/internal/metrics"
	"household-meal-planner/internal/planner"
	"household-meal-planner/internal/recipe"
	"household-meal-planner/internal/recipeapi"
	"household-meal-planner/internal/shopping"
)

// App holds the application's dependencies.
type App struct {
	Plans   *planner.PlanRepository
	Lists   *shopping.Repository
	Catalog *recipe.Catalog
	Recipes *recipe.Repository
	Clipper *clipper.Clipper
	Metrics *metrics.Store

	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	db      *database.DB
	closers []func(context.Context) error
}

// New opens storage according to cfg and wires every component.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		db:     db,
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	store, err := a.openStore()
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	rules := shopping.DefaultRules
	if cfg.CategoryRulesPath != "" {
		rules, err = shopping.LoadRules(cfg.CategoryRulesPath)
		if err != nil {
			_ = a.Close(context.Background())
			return nil, err
		}
	}

	a.Recipes = recipe.NewRepository(db.SQL, logger)
	var sources []recipe.Source
	if cfg.RecipeAPIURL != "" {
		sources = append(sources, recipeapi.NewClient(cfg))
	}
	sources = append(sources, a.Recipes)
	a.Catalog = recipe.NewCatalog(sources...)

	a.Metrics = metrics.NewStore(db.SQL)
	a.Clipper = clipper.NewClipper(a.Recipes, logger)
	a.Plans = planner.NewPlanRepository(store, planner.SystemClock, logger)
	a.Lists = shopping.NewRepository(store, a.Plans, a.Catalog,
		shopping.NewCategorizer(rules), planner.SystemClock, logger,
		shopping.WithConcurrency(cfg.ResolveConcurrency),
		shopping.WithRunRecorder(a.Metrics),
	)

	logger.Info("application initialized",
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("recipe_api", cfg.RecipeAPIURL != ""),
		zap.Int("category_rules", len(rules)),
	)
	return a, nil
}

func (a *App) openStore() (kvstore.Store, error) {
	switch a.cfg.StoreBackend {
	case config.BackendSQLite, "":
		return kvstore.NewSQLiteStore(a.db.SQL, a.logger), nil
	case config.BackendFile:
		return kvstore.NewFileStore(a.cfg.StoreDir, a.logger)
	case config.BackendMemory:
		return kvstore.NewMemoryStore(), nil
	case config.BackendMongo:
		s, err := kvstore.NewMongoStore(kvstore.MongoConfig{
			URI:      a.cfg.MongoURI,
			Database: a.cfg.MongoDB,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}
}

// SetOutput redirects command output, which goes to stdout by default.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// DataPath is the on-disk location reported by health checks.
func (a *App) DataPath() string {
	if a.cfg.StoreBackend == config.BackendFile {
		return a.cfg.StoreDir
	}
	return a.cfg.DatabasePath
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger. "debug" selects the human-readable
// development encoder; any other level uses the JSON production encoder.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"household-meal-planner/internal/app"
	"household-meal-planner/internal/config"
	"household-meal-planner/internal/planner"
)

func main() {
	if len(os.Args) < 3 && !(len(os.Args) == 2 && os.Args[1] == "stats") {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx := context.Background()
	runErr := run(ctx, application, os.Args[1:])
	if err := application.Close(ctx); err != nil {
		logger.Warn("failed to close storage", zap.Error(err))
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	person string
	week   string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fs.StringVar(&c.person, "person", "", "Household member the command applies to")
	fs.StringVar(&c.week, "week", "", "Any date within the week (yyyy-mm-dd); defaults to this week")
	return fs, c
}

func (c *commonFlags) weekStart() (civil.Date, error) {
	return parseOptionalDate(c.week)
}

func parseOptionalDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
	}
	return d, nil
}

func requirePerson(c *commonFlags) error {
	if c.person == "" {
		return fmt.Errorf("--person is required")
	}
	return nil
}

func run(ctx context.Context, a *app.App, args []string) error {
	group := args[0]
	if group == "stats" {
		fs := flag.NewFlagSet("stats", flag.ExitOnError)
		days := fs.Int("days", 7, "Report the last N days")
		cleanup := fs.Int("cleanup", 0, "Also remove generation records older than N days")
		fs.Parse(args[1:])
		if *cleanup > 0 {
			if err := a.CleanupMetrics(ctx, *cleanup); err != nil {
				return err
			}
		}
		return a.Stats(ctx, *days)
	}

	sub := args[1]
	fs, common := newFlagSet(group + " " + sub)
	switch group {
	case "plan":
		return runPlan(ctx, a, sub, fs, common, args[2:])
	case "list":
		return runList(ctx, a, sub, fs, common, args[2:])
	case "recipes":
		return runRecipes(ctx, a, sub, fs, args[2:])
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", group)
	}
}

func runPlan(ctx context.Context, a *app.App, sub string, fs *flag.FlagSet, c *commonFlags, args []string) error {
	date := fs.String("date", "", "Day of the meal (yyyy-mm-dd)")
	slot := fs.String("slot", "", "Meal slot: breakfast, lunch, dinner or snack")
	recipeID := fs.String("recipe", "", "Recipe id")
	to := fs.String("to", "", "Any date within the target week (copy); defaults to the week after --week")
	fs.Parse(args)

	if err := requirePerson(c); err != nil {
		return err
	}
	week, err := c.weekStart()
	if err != nil {
		return err
	}

	switch sub {
	case "set", "remove":
		d, err := parseOptionalDate(*date)
		if err != nil {
			return err
		}
		if d.IsZero() {
			return fmt.Errorf("--date is required")
		}
		s, err := planner.ParseSlot(*slot)
		if err != nil {
			return err
		}
		if sub == "remove" {
			return a.RemoveMeal(ctx, c.person, d, s)
		}
		if *recipeID == "" {
			return fmt.Errorf("--recipe is required")
		}
		return a.SetMeal(ctx, c.person, d, s, *recipeID)
	case "show":
		return a.ShowWeek(ctx, c.person, week)
	case "clear":
		return a.ClearWeek(ctx, c.person, week)
	case "copy":
		target, err := parseOptionalDate(*to)
		if err != nil {
			return err
		}
		return a.CopyWeek(ctx, c.person, week, target)
	default:
		return fmt.Errorf("unknown plan command: %s", sub)
	}
}

func runList(ctx context.Context, a *app.App, sub string, fs *flag.FlagSet, c *commonFlags, args []string) error {
	itemID := fs.String("item", "", "Shopping item id")
	category := fs.String("category", "", "Category for an added item; guessed when empty")
	fs.Parse(args)

	if err := requirePerson(c); err != nil {
		return err
	}

	switch sub {
	case "generate":
		week, err := c.weekStart()
		if err != nil {
			return err
		}
		return a.GenerateList(ctx, c.person, week)
	case "show":
		return a.ShowList(ctx, c.person)
	case "toggle":
		return a.ToggleItem(ctx, c.person, *itemID)
	case "add":
		text := strings.Join(fs.Args(), " ")
		if text == "" {
			return fmt.Errorf("usage: list add --person NAME [--category CAT] 2 cans chickpeas")
		}
		return a.AddItem(ctx, c.person, text, *category)
	case "remove":
		return a.RemoveItem(ctx, c.person, *itemID)
	case "clear-checked":
		return a.ClearChecked(ctx, c.person)
	case "clear":
		return a.ClearList(ctx, c.person)
	default:
		return fmt.Errorf("unknown list command: %s", sub)
	}
}

func runRecipes(ctx context.Context, a *app.App, sub string, fs *flag.FlagSet, args []string) error {
	category := fs.String("category", "", "Only list recipes in this category")
	fs.Parse(args)

	switch sub {
	case "list":
		return a.ListRecipes(ctx, *category)
	case "search":
		return a.SearchRecipes(ctx, strings.Join(fs.Args(), " "))
	case "import":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: recipes import URL")
		}
		return a.ImportRecipe(ctx, fs.Arg(0))
	case "delete":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: recipes delete ID")
		}
		return a.DeleteRecipe(ctx, fs.Arg(0))
	default:
		return fmt.Errorf("unknown recipes command: %s", sub)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> <subcommand> [flags]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan set      --person P --date D --slot S --recipe R   Plan a meal")
	fmt.Println("  plan remove   --person P --date D --slot S              Clear a slot")
	fmt.Println("  plan show     --person P [--week D]                     Show a week")
	fmt.Println("  plan clear    --person P [--week D]                     Clear a week")
	fmt.Println("  plan copy     --person P [--week D] [--to D]            Copy a week (default: this week to next)")
	fmt.Println("  list generate --person P [--week D]                     Rebuild the shopping list")
	fmt.Println("  list show     --person P                                Show the shopping list")
	fmt.Println("  list toggle   --person P --item ID                      Check or uncheck an item")
	fmt.Println("  list add      --person P [--category C] TEXT            Add an item")
	fmt.Println("  list remove   --person P --item ID                      Remove an item")
	fmt.Println("  list clear-checked --person P                           Drop checked items")
	fmt.Println("  list clear    --person P                                Delete the list")
	fmt.Println("  recipes list  [--category C]                            List recipes")
	fmt.Println("  recipes search QUERY                                    Search recipes")
	fmt.Println("  recipes import URL                                      Import a recipe page")
	fmt.Println("  recipes delete ID                                       Delete a household recipe")
	fmt.Println("  stats         [--days N] [--cleanup N]                  Generation stats and health")
}

package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/pantrylens/backend/internal/app"
	"github.com/pantrylens/backend/internal/domain"
)

type optimizeCmd struct {
	listID    string
	file      string
	maxDays   int
	maxStores int
}

func (*optimizeCmd) Name() string     { return "optimize" }
func (*optimizeCmd) Synopsis() string { return "pick the stores to visit for a shopping list" }
func (*optimizeCmd) Usage() string {
	return `optimize [-list <id> | -file <items.json> | <item>[:<quantity>] ...] [-max-days <n>] [-max-stores <n>]:
  Ranks stores by how much of the list they cover and selects the cheapest
  small set of stores that buys everything with known prices.
`
}

func (c *optimizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listID, "list", "", "Stored shopping list id")
	f.StringVar(&c.file, "file", "", "JSON file holding an array of shopping list items")
	f.IntVar(&c.maxDays, "max-days", 0, "Lookback in days (0 uses the configured default)")
	f.IntVar(&c.maxStores, "max-stores", 0, "Maximum stores to visit (0 uses the configured default)")
}

func (c *optimizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sources := 0
	for _, set := range []bool{c.listID != "", c.file != "", f.NArg() > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprintln(os.Stderr, "Error: give exactly one of -list, -file or item arguments")
		return subcommands.ExitUsageError
	}

	var items []domain.ShoppingListItem
	if c.listID == "" {
		var err error
		if c.file != "" {
			items, err = readItemsFile(c.file)
		} else {
			items, err = parseItemArgs(f.Args())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	return withApp(ctx, func(a *app.App) error {
		var (
			result *domain.OptimalStoresResult
			err    error
		)
		if c.listID != "" {
			result, err = a.Pricing.OptimalStoresForList(ctx, c.listID, c.maxDays, c.maxStores)
		} else {
			result, err = a.Pricing.OptimalStores(ctx, items, c.maxDays, c.maxStores)
		}
		if err != nil {
			return err
		}
		if *jsonOutput {
			return printJSON(result)
		}
		return printPlan(result)
	})
}

// parseItemArgs turns "Rice" or "Milk:2" arguments into list items
func parseItemArgs(args []string) ([]domain.ShoppingListItem, error) {
	items := make([]domain.ShoppingListItem, 0, len(args))
	for i, arg := range args {
		name, qty := arg, 1
		if idx := strings.LastIndex(arg, ":"); idx >= 0 {
			n, err := strconv.Atoi(arg[idx+1:])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", arg)
			}
			name, qty = arg[:idx], n
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty item name in %q", arg)
		}
		items = append(items, domain.ShoppingListItem{
			ID:       strconv.Itoa(i + 1),
			Name:     name,
			Quantity: qty,
		})
	}
	return items, nil
}

func readItemsFile(path string) ([]domain.ShoppingListItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading items file: %w", err)
	}
	var items []domain.ShoppingListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing items file %s: %w", path, err)
	}
	return items, nil
}

func printPlan(result *domain.OptimalStoresResult) error {
	s := result.Summary
	fmt.Fprintf(stdout, "%d items, %d with price data, %d without\n",
		s.TotalItems, s.ItemsWithPriceData, s.ItemsWithoutPriceData)
	fmt.Fprintf(stdout, "Estimated %s, optimized %s, saving %s\n",
		formatMoney(s.EstimatedTotal, *currency), formatMoney(s.OptimizedTotal, *currency), formatMoney(s.EstimatedSavings, *currency))

	plan := result.OptimalStoreVisit
	if plan.Type == domain.PlanNone {
		fmt.Fprintln(stdout, "No store has recent prices for this list")
		return nil
	}
	fmt.Fprintf(stdout, "Visit %d store(s), covering %s for %s\n\n",
		len(plan.Stores), formatPercent(plan.TotalCoverage), formatMoney(plan.TotalCost, *currency))

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tITEM\tQTY\tUNIT PRICE\tLINE TOTAL")
	for _, store := range plan.Stores {
		for _, item := range store.AssignedItems {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				store.Store, item.Name, item.Quantity,
				formatMoney(item.UnitPrice, *currency), formatMoney(item.LineTotal, *currency))
		}
		fmt.Fprintf(w, "\t\t\t\t%s\n", formatMoney(store.StoreTotalCost, *currency))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(result.ItemsWithoutPrices) > 0 {
		names := make([]string, len(result.ItemsWithoutPrices))
		for i, item := range result.ItemsWithoutPrices {
			names[i] = item.Name
		}
		fmt.Fprintf(stdout, "\nNo recent prices for: %s\n", strings.Join(names, ", "))
	}
	return nil
}

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/pantrylens/backend/internal/app"
	"github.com/pantrylens/backend/internal/domain"
)

type cheapestCmd struct {
	maxDays int
}

func (*cheapestCmd) Name() string     { return "cheapest" }
func (*cheapestCmd) Synopsis() string { return "show the cheapest store for an item" }
func (*cheapestCmd) Usage() string {
	return `cheapest [-max-days <n>] <item name>:
  Lists the lowest recent price of the item at every store, cheapest first.
`
}

func (c *cheapestCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.maxDays, "max-days", 0, "Lookback in days (0 uses the configured default)")
}

func (c *cheapestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	item := strings.TrimSpace(strings.Join(f.Args(), " "))
	if item == "" {
		fmt.Fprintln(os.Stderr, "Error: an item name is required")
		return subcommands.ExitUsageError
	}

	return withApp(ctx, func(a *app.App) error {
		result, err := a.Pricing.CheapestStore(ctx, item, c.maxDays)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return printJSON(result)
		}
		return printCheapest(result)
	})
}

func printCheapest(result *domain.CheapestStoreResult) error {
	fmt.Fprintf(stdout, "Cheapest %s: %s at %s\n",
		result.ItemName, formatMoney(result.CheapestStore.Price, *currency), result.CheapestStore.Store)
	if result.Savings != nil {
		fmt.Fprintf(stdout, "Save up to %s (%s) against the most expensive store\n",
			formatMoney(result.Savings.Amount, *currency), formatPercent(result.Savings.Percentage))
	}
	fmt.Fprintln(stdout)

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tPRICE\tUNIT\tREPORTS\tVERIFIED\tOBSERVED")
	for _, entry := range result.AllStores {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
			entry.Store, formatMoney(entry.Price, *currency), entry.Unit,
			entry.ReportCount, entry.Verified, entry.ObservedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/pantrylens/backend/internal/app"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

type recordCmd struct {
	item     string
	category string
	store    string
	price    string
	unit     string
	reporter string
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record an observed price for an item at a store" }
func (*recordCmd) Usage() string {
	return `record -item <name> -category <category> -store <store> -price <amount> [-unit <unit>] [-reporter <id>]:
  Adds a price report to the ledger. Repeated reports for the same item and
  store within the ledger window update one record and eventually verify it.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.item, "item", "", "Item name")
	f.StringVar(&c.category, "category", "", "Item category")
	f.StringVar(&c.store, "store", "", "Store name")
	f.StringVar(&c.price, "price", "", "Observed price, e.g. 4.80")
	f.StringVar(&c.unit, "unit", "", "Unit of sale (defaults to each)")
	f.StringVar(&c.reporter, "reporter", "", "Reporter identifier")
}

// report builds the price report from the flags
func (c *recordCmd) report() (*domain.PriceReport, error) {
	report := &domain.PriceReport{
		ItemName:   c.item,
		Category:   c.category,
		Store:      c.store,
		Unit:       c.unit,
		ReporterID: c.reporter,
	}
	if c.price != "" {
		price, err := decimal.NewFromString(c.price)
		if err != nil {
			return nil, fmt.Errorf("invalid -price %q: %w", c.price, err)
		}
		report.Price = &price
	}
	return report, nil
}

func (c *recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	report, err := c.report()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withApp(ctx, func(a *app.App) error {
		obs, err := a.Pricing.RecordPrice(ctx, report)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return printJSON(obs)
		}

		status := "unverified"
		if obs.Verified {
			status = "verified"
		}
		fmt.Fprintf(stdout, "Recorded %s at %s: %s per %s (%d reports, %s)\n",
			obs.ItemName, obs.Store, formatMoney(obs.Price, *currency), obs.Unit, obs.ReportCount, status)
		return nil
	})
}

// Package cli implements the pricectl command line tool: recording prices,
// querying the cheapest store and planning shopping trips from a terminal.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/app"
	"github.com/pantrylens/backend/internal/logx"
)

// Register adds the pricectl subcommands to the commander
func Register(c *subcommands.Commander) {
	c.Register(&recordCmd{}, "prices")
	c.Register(&cheapestCmd{}, "prices")

	c.Register(&optimizeCmd{}, "shopping lists")
	c.Register(&importListCmd{}, "shopping lists")
}

// as a CLI application, it has a very short lived lifecycle, so global flags are fine.

var (
	storageDriver = flag.String("driver", "", "Storage driver (memory, postgres, sqlite); overrides PANTRYLENS_STORAGE_DRIVER")
	storageDSN    = flag.String("dsn", "", "Storage DSN; overrides PANTRYLENS_STORAGE_DSN")
	currency      = flag.String("currency", "USD", "ISO currency code used to display amounts")
	jsonOutput    = flag.Bool("json", false, "Print results as JSON")
)

// stdout is where command output goes
var stdout io.Writer = os.Stdout

// openApp loads configuration, applies the command-line overrides and wires the service
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if *storageDriver != "" {
		cfg.Storage.Driver = *storageDriver
	}
	if *storageDSN != "" {
		cfg.Storage.DSN = *storageDSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Log.Level
	if level == "" {
		level = "warn"
	}
	logx.Init(logx.Options{Environment: cfg.Server.Environment, Level: level})

	return app.New(ctx, cfg)
}

// withApp opens the application, runs fn and maps its error to an exit status
func withApp(ctx context.Context, fn func(*app.App) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/pantrylens/backend/internal/app"
)

type importListCmd struct {
	listID string
	file   string
}

func (*importListCmd) Name() string     { return "import-list" }
func (*importListCmd) Synopsis() string { return "store a shopping list so optimize -list can use it" }
func (*importListCmd) Usage() string {
	return `import-list -list <id> -file <items.json>:
  Replaces the stored shopping list with the items in the JSON file.
`
}

func (c *importListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listID, "list", "", "Shopping list id")
	f.StringVar(&c.file, "file", "", "JSON file holding an array of shopping list items")
}

func (c *importListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.listID == "" || c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -list and -file are required")
		return subcommands.ExitUsageError
	}

	items, err := readItemsFile(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withApp(ctx, func(a *app.App) error {
		writer, ok := a.ListWriter()
		if !ok {
			return errors.New("configured storage does not accept shopping lists")
		}
		if err := writer.ReplaceList(ctx, c.listID, items); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Stored list %s with %d items\n", c.listID, len(items))
		return nil
	})
}

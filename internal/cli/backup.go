package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/prodhelper/internal/surface"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *ExportCommand) run(ctx context.Context, rt *runtime) error {
	sink, err := rt.sink(ctx, c.Dir)
	if err != nil {
		return fmt.Errorf("open backup sink: %w", err)
	}

	jsonOut := c.globals != nil && c.globals.JSON
	loc, st := rt.options(console{json: jsonOut}).Export(ctx, sink)
	if err := statusErr(st); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"exported": true, "location": loc, "driver": sink.Driver()})
	}
	fmt.Println(loc)
	return nil
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if (c.File == "") == (c.Backup == "") {
		return fmt.Errorf("import requires exactly one of --file or --backup")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *ImportCommand) run(ctx context.Context, rt *runtime) error {
	data, err := c.read(ctx, rt)
	if err != nil {
		return err
	}

	var confirm surface.ConfirmFunc
	var promptErr error
	if !c.Force {
		confirm = func(prompt string) bool {
			fmt.Println(prompt)
			fmt.Println()
			answer, err := readLine(c.in, "Type \"yes\" to continue: ")
			if err != nil {
				promptErr = err
				return false
			}
			return strings.EqualFold(answer, "yes") || strings.EqualFold(answer, "y")
		}
	}

	jsonOut := c.globals != nil && c.globals.JSON
	st := rt.options(console{json: jsonOut, showStats: true}).Import(ctx, data, confirm)
	if st == (surface.Status{}) {
		if promptErr != nil {
			return promptErr
		}
		return fmt.Errorf("aborted: import not confirmed")
	}
	if err := statusErr(st); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"imported": true})
	}
	return nil
}

func (c *ImportCommand) read(ctx context.Context, rt *runtime) ([]byte, error) {
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read backup file: %w", err)
		}
		return data, nil
	}
	sink, err := rt.sink(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("open backup sink: %w", err)
	}
	data, err := sink.Get(ctx, c.Backup)
	if err != nil {
		return nil, fmt.Errorf("fetch backup %s: %w", c.Backup, err)
	}
	return data, nil
}

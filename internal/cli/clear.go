package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/prodhelper/internal/surface"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *ClearCommand) run(ctx context.Context, rt *runtime) error {
	var confirm surface.ConfirmFunc
	var promptErr error
	if !c.Force {
		confirm = func(prompt string) bool {
			fmt.Println("⚠ WARNING: " + prompt)
			fmt.Println()
			input, err := readLine(c.in, `Type "CLEAR" to confirm: `)
			if err != nil {
				promptErr = err
				return false
			}
			if input != "CLEAR" {
				promptErr = fmt.Errorf("aborted: confirmation text did not match")
				return false
			}
			return true
		}
	}

	jsonOut := c.globals != nil && c.globals.JSON
	st := rt.options(console{json: jsonOut}).ClearAll(ctx, confirm)
	if st == (surface.Status{}) {
		return promptErr
	}
	if err := statusErr(st); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"cleared": true,
			"message": "all data deleted",
		})
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/prodhelper/internal/surface"
)

// pruneJSON is the JSON output structure for the prune command.
type pruneJSON struct {
	DryRun bool    `json:"dry_run"`
	Pruned int     `json:"pruned"`
	IDs    []int64 `json:"ids"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.OlderThan != "" {
		if _, err := parseDuration(c.OlderThan); err != nil {
			return err
		}
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt, time.Now())
}

func (c *PruneCommand) run(ctx context.Context, rt *runtime, now time.Time) error {
	var cutoff time.Time
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return err
		}
		cutoff = now.Add(-d)
	}

	tasks, err := loadItems(ctx, rt.store, collTasks)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	var victims []item
	for _, t := range tasks {
		if t.Completed == nil || !*t.Completed {
			continue
		}
		if !cutoff.IsZero() && !t.Timestamp.Before(cutoff) {
			continue
		}
		victims = append(victims, t)
	}

	out := pruneJSON{DryRun: c.DryRun, IDs: []int64{}}
	popup := rt.popup()
	for _, t := range victims {
		if !c.DryRun {
			st := popup.Dispatch(ctx, surface.Action{Kind: surface.ActionDeleteTask, ID: t.ID})
			if err := popupErr(st); err != nil {
				return fmt.Errorf("prune task %d: %w", t.ID, err)
			}
		}
		out.IDs = append(out.IDs, t.ID)
	}
	out.Pruned = len(out.IDs)

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}

	scope := "completed tasks"
	if !cutoff.IsZero() {
		scope = fmt.Sprintf("completed tasks older than %s", formatDurationHuman(now.Sub(cutoff)))
	}
	if c.DryRun {
		fmt.Printf("Would prune %d %s:\n", out.Pruned, scope)
		for _, t := range victims {
			fmt.Printf("  %d  %s\n", t.ID, truncate(t.Text, 70))
		}
		return nil
	}
	fmt.Printf("Pruned %d %s.\n", out.Pruned, scope)
	return nil
}

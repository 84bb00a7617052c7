package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	name, err := normalizeCollection(c.Args.Collection)
	if err != nil {
		return err
	}
	if c.Since != "" {
		if _, err := parseDuration(c.Since); err != nil {
			return err
		}
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt, name, time.Now())
}

func (c *ListCommand) run(ctx context.Context, rt *runtime, name string, now time.Time) error {
	items, err := loadItems(ctx, rt.store, name)
	if err != nil {
		return fmt.Errorf("list %s: %w", name, err)
	}

	var cutoff time.Time
	if c.Since != "" {
		d, err := parseDuration(c.Since)
		if err != nil {
			return err
		}
		cutoff = now.Add(-d)
	}

	results := make([]item, 0, len(items))
	for _, it := range items {
		if !cutoff.IsZero() && it.Timestamp.Before(cutoff) {
			continue
		}
		if !it.matches(c.Query) {
			continue
		}
		results = append(results, it)
		if c.Limit > 0 && len(results) == c.Limit {
			break
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(results)
	}

	if len(results) == 0 {
		fmt.Printf("No %s found.\n", name)
		return nil
	}
	for _, it := range results {
		printListLine(it)
	}
	return nil
}

func printListLine(it item) {
	date := it.Timestamp.Local().Format("2006-01-02")
	switch it.Collection {
	case collTasks:
		mark := " "
		if it.Completed != nil && *it.Completed {
			mark = "x"
		}
		fmt.Printf("[%s] %d  %s  %s\n", mark, it.ID, date, truncate(it.Text, 70))
	case collLinks:
		fmt.Printf("%d  %s  %s\n", it.ID, date, truncate(it.headline(), 70))
		fmt.Printf("    %s\n", it.URL)
	default:
		fmt.Printf("%d  %s  %s\n", it.ID, date, truncate(it.headline(), 70))
		if it.URL != "" {
			fmt.Printf("    %s\n", it.URL)
		}
	}
}

package cli

import (
	"context"
	"fmt"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID <= 0 {
		return fmt.Errorf("--id is required for open command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *OpenCommand) run(ctx context.Context, rt *runtime) error {
	it, ok, err := findItem(ctx, rt.store, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item not found: %d", c.ID)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(it)
	}

	switch c.Format {
	case "url":
		if it.URL == "" {
			return fmt.Errorf("%s %d has no URL", it.Collection, it.ID)
		}
		fmt.Println(it.URL)
	case "text":
		fmt.Println(it.headline())
	case "json":
		return printJSON(it)
	case "md":
		outputMarkdown(it)
	case "full", "":
		outputFull(it)
	default:
		return fmt.Errorf("unknown format %q (full, md, json, url, text)", c.Format)
	}
	return nil
}

func outputFull(it item) {
	fmt.Printf("%s %d\n", it.Collection, it.ID)
	if it.Title != "" {
		fmt.Printf("Title:     %s\n", it.Title)
	}
	if it.URL != "" {
		fmt.Printf("URL:       %s\n", it.URL)
	}
	if it.PageTitle != "" {
		fmt.Printf("Page:      %s\n", it.PageTitle)
	}
	fmt.Printf("Saved:     %s\n", it.Timestamp.Local().Format("2006-01-02 15:04:05"))
	if it.Source != "" {
		fmt.Printf("Source:    %s\n", it.Source)
	}
	if it.Completed != nil {
		fmt.Printf("Completed: %t\n", *it.Completed)
	}
	if it.Text != "" {
		fmt.Println()
		fmt.Println(it.Text)
	}
}

func outputMarkdown(it item) {
	fmt.Println("---")
	fmt.Printf("id: %d\n", it.ID)
	fmt.Printf("collection: %s\n", it.Collection)
	if it.Title != "" {
		fmt.Printf("title: %s\n", it.Title)
	}
	if it.URL != "" {
		fmt.Printf("url: %s\n", it.URL)
	}
	if it.PageTitle != "" {
		fmt.Printf("page_title: %s\n", it.PageTitle)
	}
	fmt.Printf("saved: %s\n", it.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	if it.Source != "" {
		fmt.Printf("source: %s\n", it.Source)
	}
	if it.Completed != nil {
		fmt.Printf("completed: %t\n", *it.Completed)
	}
	fmt.Println("---")
	if it.Text != "" {
		fmt.Println()
		fmt.Println(it.Text)
	}
}

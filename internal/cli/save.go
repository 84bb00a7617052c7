package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/prodhelper/internal/surface"
)

// savedJSON reports a newly created item.
type savedJSON struct {
	Collection string `json:"collection"`
	ID         int64  `json:"id"`
}

func printSaved(globals *GlobalFlags, name string, id int64) error {
	if globals != nil && globals.JSON {
		return printJSON(savedJSON{Collection: name, ID: id})
	}
	fmt.Printf("Saved %s %d\n", strings.TrimSuffix(name, "s"), id)
	return nil
}

// Execute implements the go-flags Commander interface for SaveLinkCommand.
func (c *SaveLinkCommand) Execute(args []string) error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("--url is required for save-link command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *SaveLinkCommand) run(ctx context.Context, rt *runtime) error {
	st := rt.popup().SaveCurrentLink(ctx, surface.Page{Title: c.Title, URL: c.URL})
	if err := popupErr(st); err != nil {
		return err
	}
	return printSaved(c.globals, collLinks, st.ID)
}

// Execute implements the go-flags Commander interface for SaveNoteCommand.
func (c *SaveNoteCommand) Execute(args []string) error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("--text is required for save-note command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *SaveNoteCommand) run(ctx context.Context, rt *runtime) error {
	st := rt.popup().SavePageNote(ctx, c.Text, surface.Page{Title: c.PageTitle, URL: c.URL})
	if err := popupErr(st); err != nil {
		return err
	}
	return printSaved(c.globals, collNotes, st.ID)
}

// Execute implements the go-flags Commander interface for AddTaskCommand.
func (c *AddTaskCommand) Execute(args []string) error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("--text is required for add-task command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *AddTaskCommand) run(ctx context.Context, rt *runtime) error {
	st := rt.popup().AddTask(ctx, c.Text)
	if err := popupErr(st); err != nil {
		return err
	}
	return printSaved(c.globals, collTasks, st.ID)
}

// Execute implements the go-flags Commander interface for ToggleTaskCommand.
func (c *ToggleTaskCommand) Execute(args []string) error {
	if c.ID <= 0 {
		return fmt.Errorf("--id is required for toggle-task command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *ToggleTaskCommand) run(ctx context.Context, rt *runtime) error {
	st := rt.popup().Dispatch(ctx, surface.Action{Kind: surface.ActionToggleTask, ID: c.ID})
	if err := popupErr(st); err != nil {
		return err
	}

	it, ok, err := findItem(ctx, rt.store, c.ID)
	if err != nil {
		return err
	}
	if !ok || it.Collection != collTasks {
		return fmt.Errorf("task not found: %d", c.ID)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(it)
	}
	state := "pending"
	if *it.Completed {
		state = "completed"
	}
	fmt.Printf("Task %d marked %s\n", it.ID, state)
	return nil
}

// Execute implements the go-flags Commander interface for RemoveCommand.
func (c *RemoveCommand) Execute(args []string) error {
	name, err := normalizeCollection(c.Args.Collection)
	if err != nil {
		return err
	}
	if c.ID <= 0 {
		return fmt.Errorf("--id is required for rm command")
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt, name)
}

func (c *RemoveCommand) run(ctx context.Context, rt *runtime, name string) error {
	// Deleting an absent id is a silent no-op in the coordinator; say so here.
	it, ok, err := findItem(ctx, rt.store, c.ID)
	if err != nil {
		return err
	}
	if !ok || it.Collection != name {
		return fmt.Errorf("no %s with id %d", strings.TrimSuffix(name, "s"), c.ID)
	}

	st := rt.popup().Dispatch(ctx, surface.Action{Kind: deleteAction(name), ID: c.ID})
	if err := popupErr(st); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"deleted": true, "collection": name, "id": c.ID})
	}
	fmt.Printf("Deleted %s %d\n", strings.TrimSuffix(name, "s"), c.ID)
	return nil
}

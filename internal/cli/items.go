package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/storage"
	"github.com/runnerr0/prodhelper/internal/surface"
)

// Collection names accepted on the command line.
const (
	collLinks = "links"
	collNotes = "notes"
	collTasks = "tasks"
)

var collectionNames = []string{collLinks, collNotes, collTasks}

// normalizeCollection maps singular and plural spellings to a collection name.
func normalizeCollection(name string) (string, error) {
	switch strings.ToLower(name) {
	case "link", "links":
		return collLinks, nil
	case "note", "notes":
		return collNotes, nil
	case "task", "tasks", "todo", "todos":
		return collTasks, nil
	case "":
		return "", fmt.Errorf("collection is required (%s)", strings.Join(collectionNames, ", "))
	default:
		return "", fmt.Errorf("unknown collection %q (%s)", name, strings.Join(collectionNames, ", "))
	}
}

// item is a flattened view over links, notes and tasks for printing.
type item struct {
	Collection string    `json:"collection"`
	ID         int64     `json:"id"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	Text       string    `json:"text,omitempty"`
	PageTitle  string    `json:"pageTitle,omitempty"`
	Source     string    `json:"source,omitempty"`
	Completed  *bool     `json:"completed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func fromLink(l collection.Link) item {
	return item{Collection: collLinks, ID: l.ID, Title: l.Title, URL: l.URL, Source: string(l.Source), Timestamp: l.Timestamp}
}

func fromNote(n collection.Note) item {
	return item{Collection: collNotes, ID: n.ID, Text: n.Text, URL: n.URL, PageTitle: n.PageTitle, Source: string(n.Source), Timestamp: n.Timestamp}
}

func fromTask(t collection.Task) item {
	done := t.Completed
	return item{Collection: collTasks, ID: t.ID, Text: t.Text, Completed: &done, Timestamp: t.Timestamp}
}

// loadItems reads one collection straight from the store, newest first.
func loadItems(ctx context.Context, store storage.Store, name string) ([]item, error) {
	var out []item
	switch name {
	case collLinks:
		links, err := collection.Links(store).List(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			out = append(out, fromLink(l))
		}
	case collNotes:
		notes, err := collection.Notes(store).List(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			out = append(out, fromNote(n))
		}
	case collTasks:
		tasks, err := collection.Tasks(store).List(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			out = append(out, fromTask(t))
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return out, nil
}

// findItem looks id up in every collection. Ids are unique across all of
// them, so the first match is the only one.
func findItem(ctx context.Context, store storage.Store, id int64) (item, bool, error) {
	for _, name := range collectionNames {
		items, err := loadItems(ctx, store, name)
		if err != nil {
			return item{}, false, err
		}
		for _, it := range items {
			if it.ID == id {
				return it, true, nil
			}
		}
	}
	return item{}, false, nil
}

// matches reports whether it contains query in any of its text fields.
func (it item) matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range []string{it.Title, it.URL, it.Text, it.PageTitle} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// headline is the one-line summary used by list output.
func (it item) headline() string {
	switch it.Collection {
	case collLinks:
		return it.Title
	default:
		return it.Text
	}
}

func deleteAction(name string) surface.ActionKind {
	switch name {
	case collLinks:
		return surface.ActionDeleteLink
	case collNotes:
		return surface.ActionDeleteNote
	default:
		return surface.ActionDeleteTask
	}
}

package surface

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// Page is the tab a surface is acting on.
type Page struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ActionKind names a per-item popup action.
type ActionKind string

const (
	ActionDeleteLink ActionKind = "delete-link"
	ActionDeleteNote ActionKind = "delete-note"
	ActionDeleteTask ActionKind = "delete-task"
	ActionToggleTask ActionKind = "toggle-task"
)

// Action is an item-level event raised by the rendered lists.
type Action struct {
	Kind ActionKind `json:"kind"`
	ID   int64      `json:"id"`
}

// PopupRenderer draws the popup lists.
type PopupRenderer interface {
	StatusRenderer
	RenderLinks([]collection.Link)
	RenderNotes([]collection.Note)
	RenderTasks([]collection.Task)
}

// Popup controls the toolbar popup.
type Popup struct {
	store  settings.Reader
	sender messaging.Sender
	view   PopupRenderer
	logger *slog.Logger
}

// NewPopup wires a popup to its store, channel and renderer.
func NewPopup(store settings.Reader, sender messaging.Sender, view PopupRenderer, logger *slog.Logger) *Popup {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Popup{store: store, sender: sender, view: view, logger: logger}
}

// Refresh re-renders all three lists from the store.
func (p *Popup) Refresh(ctx context.Context) error {
	if err := p.renderLinks(ctx); err != nil {
		return err
	}
	if err := p.renderNotes(ctx); err != nil {
		return err
	}
	return p.renderTasks(ctx)
}

// SaveCurrentLink saves the active tab.
func (p *Popup) SaveCurrentLink(ctx context.Context, page Page) Status {
	data := messaging.LinkData{Title: page.Title, URL: page.URL, Source: string(collection.SourcePopup)}
	st := p.mutate(ctx, messaging.TypeSaveLink, data, "Link saved!", "Error saving link")
	if !st.OK() {
		return st
	}
	return p.after(ctx, p.renderLinks, st)
}

// SaveNote saves a free-form note. Blank text is ignored.
func (p *Popup) SaveNote(ctx context.Context, text string) Status {
	return p.SavePageNote(ctx, text, Page{})
}

// SavePageNote saves a note attached to page. Blank text is ignored.
func (p *Popup) SavePageNote(ctx context.Context, text string, page Page) Status {
	text = strings.TrimSpace(text)
	if text == "" {
		return p.show(warning("Nothing to save"))
	}
	data := messaging.NoteData{
		Text:      text,
		URL:       page.URL,
		PageTitle: page.Title,
		Source:    string(collection.SourcePopup),
	}
	st := p.mutate(ctx, messaging.TypeSaveNote, data, "Note saved!", "Error saving note")
	if !st.OK() {
		return st
	}
	return p.after(ctx, p.renderNotes, st)
}

// AddTask adds an open task. Blank text is ignored.
func (p *Popup) AddTask(ctx context.Context, text string) Status {
	text = strings.TrimSpace(text)
	if text == "" {
		return p.show(warning("Nothing to add"))
	}
	st := p.mutate(ctx, messaging.TypeAddTask, messaging.TaskData{Text: text}, "Task added!", "Error adding task")
	if !st.OK() {
		return st
	}
	return p.after(ctx, p.renderTasks, st)
}

// Ping checks that the coordinator answers.
func (p *Popup) Ping(ctx context.Context) Status {
	var pong messaging.Pong
	if err := p.sender.Send(ctx, messaging.TypePing, nil, &pong); err != nil || !pong.OK {
		p.logger.Warn("ping failed", "error", err)
		return p.show(failure("Ping failed"))
	}
	return p.show(success(fmt.Sprintf("Pong! %s", pong.Time)))
}

// Dispatch runs an item action and re-renders the affected list.
func (p *Popup) Dispatch(ctx context.Context, a Action) Status {
	var (
		t      messaging.Type
		render func(context.Context) error
		done   string
	)
	switch a.Kind {
	case ActionDeleteLink:
		t, render, done = messaging.TypeDeleteLink, p.renderLinks, "Link deleted!"
	case ActionDeleteNote:
		t, render, done = messaging.TypeDeleteNote, p.renderNotes, "Note deleted!"
	case ActionDeleteTask:
		t, render, done = messaging.TypeDeleteTask, p.renderTasks, "Task deleted!"
	case ActionToggleTask:
		t, render, done = messaging.TypeToggleTask, p.renderTasks, ""
	default:
		return p.show(failure(fmt.Sprintf("Unknown action %q", a.Kind)))
	}

	st := p.mutate(ctx, t, messaging.IDData{ID: a.ID}, done, "Action failed")
	if !st.OK() {
		return st
	}
	return p.after(ctx, render, st)
}

func (p *Popup) mutate(ctx context.Context, t messaging.Type, data any, ok, fail string) Status {
	var res messaging.Result
	if err := p.sender.Send(ctx, t, data, &res); err != nil {
		p.logger.Error("request failed", "type", t, "error", err)
		return p.show(failure(fail))
	}
	if !res.Success {
		p.logger.Error("request rejected", "type", t, "error", res.Error)
		return p.show(failure(fail))
	}
	st := success(ok)
	st.ID = res.ID
	return st
}

// after re-fetches the list touched by a mutation and shows done.
func (p *Popup) after(ctx context.Context, render func(context.Context) error, done Status) Status {
	if err := render(ctx); err != nil {
		p.logger.Error("refresh failed", "error", err)
		return p.show(failure("Could not reload list"))
	}
	if done.Message != "" {
		p.view.RenderStatus(done)
	}
	return done
}

func (p *Popup) show(st Status) Status {
	p.view.RenderStatus(st)
	return st
}

func (p *Popup) renderLinks(ctx context.Context) error {
	items, err := readList[collection.Link](ctx, p.store, storage.KeySavedLinks)
	if err != nil {
		return err
	}
	p.view.RenderLinks(items)
	return nil
}

func (p *Popup) renderNotes(ctx context.Context) error {
	items, err := readList[collection.Note](ctx, p.store, storage.KeySavedNotes)
	if err != nil {
		return err
	}
	p.view.RenderNotes(items)
	return nil
}

func (p *Popup) renderTasks(ctx context.Context) error {
	items, err := readList[collection.Task](ctx, p.store, storage.KeyTasks)
	if err != nil {
		return err
	}
	p.view.RenderTasks(items)
	return nil
}

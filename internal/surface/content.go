package surface

import (
	"context"
	"log/slog"
	"strings"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
)

// Content controls the page-injected script: the floating button and the
// keyboard shortcuts.
type Content struct {
	store  settings.Reader
	sender messaging.Sender
	view   StatusRenderer
	logger *slog.Logger
}

// NewContent wires a content script controller.
func NewContent(store settings.Reader, sender messaging.Sender, view StatusRenderer, logger *slog.Logger) *Content {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Content{store: store, sender: sender, view: view, logger: logger}
}

// FloatingButtonEnabled reports whether the page button should be shown.
func (c *Content) FloatingButtonEnabled(ctx context.Context) bool {
	s, err := settings.Load(ctx, c.store)
	if err != nil {
		return true
	}
	return s.FloatingButtonEnabled
}

// SavePage saves the current page as a link.
func (c *Content) SavePage(ctx context.Context, page Page) Status {
	data := messaging.LinkData{Title: page.Title, URL: page.URL, Source: string(collection.SourceContentScript)}
	var res messaging.Result
	if err := c.sender.Send(ctx, messaging.TypeSaveLink, data, &res); err != nil || !res.Success {
		c.logger.Error("save page failed", "url", page.URL, "error", errOr(err, res.Error))
		return c.show(failure("Error saving page"))
	}
	return c.show(success("Page saved!"))
}

// SaveSelection saves selected text as a note. An empty selection is a
// warning and sends nothing.
func (c *Content) SaveSelection(ctx context.Context, text string, page Page) Status {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.show(warning("No text selected"))
	}
	data := messaging.NoteData{
		Text:      text,
		URL:       page.URL,
		PageTitle: page.Title,
		Source:    string(collection.SourceContentScript),
	}
	var res messaging.Result
	if err := c.sender.Send(ctx, messaging.TypeSaveNote, data, &res); err != nil || !res.Success {
		c.logger.Error("save selection failed", "url", page.URL, "error", errOr(err, res.Error))
		return c.show(failure("Error saving note"))
	}
	return c.show(success("Text saved as note!"))
}

func (c *Content) show(st Status) Status {
	if c.view != nil {
		c.view.RenderStatus(st)
	}
	return st
}

package coordinator

import (
	"context"
	"log/slog"
	"strconv"
)

// BadgeColor is the badge background.
const BadgeColor = "#3b82f6"

// Badge is the toolbar label derived from the collection sizes.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
	Total int    `json:"total"`
}

// BadgeFor derives the badge for the given counts. Zero renders as "".
func BadgeFor(links, notes, tasks int) Badge {
	total := links + notes + tasks
	b := Badge{Color: BadgeColor, Total: total}
	if total > 0 {
		b.Text = strconv.Itoa(total)
	}
	return b
}

// BadgeSink receives every recomputed badge.
type BadgeSink interface {
	SetBadge(ctx context.Context, b Badge) error
}

// Notification is a user-visible message raised after a menu save.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier shows notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a logger. Used when no desktop
// notifier is attached.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, note Notification) error {
	if n.Logger != nil {
		n.Logger.Info("notification", "title", note.Title, "message", note.Message)
	}
	return nil
}

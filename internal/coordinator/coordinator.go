// Package coordinator is the long-lived owner of every store mutation. It
// runs the install lifecycle, keeps the context menus in sync with the
// settings, and recomputes the badge whenever the store changes.
//
// Mutations are queued and applied one at a time by Run, so two concurrent
// adds to the same collection can never overwrite each other.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runnerr0/prodhelper/internal/backup"
	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

var (
	// ErrInstallTimeMissing is returned by Stats when installTime was never
	// written or was removed from the store.
	ErrInstallTimeMissing = fmt.Errorf("install time missing: %w", storage.ErrStoreUnavailable)
	// ErrStopped is returned for work submitted after Run has returned.
	ErrStopped = errors.New("coordinator stopped")
	// ErrUnknownMenuItem is returned for a click on an entry that is not ours.
	ErrUnknownMenuItem = errors.New("unknown menu item")
)

// Reason says why Install ran.
type Reason string

const (
	ReasonInstall Reason = "install"
	ReasonUpdate  Reason = "update"
	ReasonReset   Reason = "reset"
	ReasonStartup Reason = "startup"
)

const dayMillis = 86_400_000

// CountsObserver receives collection sizes after every recomputation.
type CountsObserver interface {
	SetCounts(links, notes, tasks int)
}

// Options configures a Coordinator. Every field is optional.
type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
	Badge    BadgeSink
	Counts   CountsObserver
	Menus    *MenuRegistry
	Now      func() time.Time
}

type job struct {
	name string
	fn   func(ctx context.Context) error
	done chan error
}

// Coordinator owns the store's write side.
type Coordinator struct {
	store   storage.Store
	version string
	logger  *slog.Logger
	notify  Notifier
	sink    BadgeSink
	counts  CountsObserver
	menus   *MenuRegistry
	now     func() time.Time

	links *collection.Repository[collection.Link]
	notes *collection.Repository[collection.Note]
	tasks *collection.Repository[collection.Task]

	jobs    chan job
	running atomic.Bool
	stopped chan struct{}

	badgeMu sync.RWMutex
	badge   Badge
}

// New creates a coordinator for store. Run must be started before any
// mutation is submitted.
func New(store storage.Store, version string, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	menus := opts.Menus
	if menus == nil {
		menus = NewMenuRegistry()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	return &Coordinator{
		store:   store,
		version: version,
		logger:  logger,
		notify:  notifier,
		sink:    opts.Badge,
		counts:  opts.Counts,
		menus:   menus,
		now:     now,
		links:   collection.Links(store).WithClock(now),
		notes:   collection.Notes(store).WithClock(now),
		tasks:   collection.Tasks(store).WithClock(now),
		jobs:    make(chan job),
		stopped: make(chan struct{}),
		badge:   BadgeFor(0, 0, 0),
	}
}

// Version returns the extension version this coordinator writes.
func (c *Coordinator) Version() string {
	return c.version
}

// Menus returns the context-menu registry.
func (c *Coordinator) Menus() *MenuRegistry {
	return c.menus
}

// Run applies queued mutations one at a time and recomputes the badge after
// every store change. It returns when ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	defer close(c.stopped)

	changes := c.store.Watch(ctx)
	c.refreshBadge(ctx)
	c.logger.Debug("coordinator running", "version", c.version)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("coordinator stopped")
			return nil
		case j := <-c.jobs:
			err := j.fn(context.WithoutCancel(ctx))
			if err != nil {
				c.logger.Error("mutation failed", "op", j.name, "error", err)
			}
			j.done <- err
		case cs, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if cs.Touches(storage.KeySavedLinks, storage.KeySavedNotes, storage.KeyTasks) {
				c.refreshBadge(ctx)
			}
		}
	}
}

// do submits fn to the Run loop and waits for it. Once accepted, fn runs to
// completion even if ctx is cancelled.
func (c *Coordinator) do(ctx context.Context, name string, fn func(context.Context) error) error {
	j := job{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case c.jobs <- j:
	case <-c.stopped:
		return fmt.Errorf("%s: %w", name, ErrStopped)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}

// Boot runs the lifecycle transition for this process start: a fresh
// install when no version is stored, an update when it differs, and
// otherwise (ReasonStartup) only re-registers the menus.
func (c *Coordinator) Boot(ctx context.Context) (Reason, error) {
	vals, err := c.store.Get(ctx, storage.KeyVersion)
	if err != nil {
		return "", err
	}
	var stored string
	if _, err := vals.Decode(storage.KeyVersion, &stored); err != nil {
		return "", err
	}

	switch {
	case stored == "":
		return ReasonInstall, c.Install(ctx, ReasonInstall)
	case stored != c.version:
		c.logger.Info("version changed", "from", stored, "to", c.version)
		return ReasonUpdate, c.Install(ctx, ReasonUpdate)
	default:
		return ReasonStartup, c.do(ctx, "sync menus", c.syncMenus)
	}
}

// Install initializes absent collections, stamps installTime when missing,
// refreshes version and re-registers the menus. Existing data is kept, so
// repeated calls are safe.
func (c *Coordinator) Install(ctx context.Context, reason Reason) error {
	return c.do(ctx, "install", func(ctx context.Context) error {
		keys := []string{storage.KeySavedLinks, storage.KeySavedNotes, storage.KeyTasks, storage.KeyInstallTime}
		err := c.store.Update(ctx, keys, func(vals storage.Values) (map[string]any, error) {
			update := map[string]any{storage.KeyVersion: c.version}
			if !vals.Has(storage.KeySavedLinks) {
				update[storage.KeySavedLinks] = []collection.Link{}
			}
			if !vals.Has(storage.KeySavedNotes) {
				update[storage.KeySavedNotes] = []collection.Note{}
			}
			if !vals.Has(storage.KeyTasks) {
				update[storage.KeyTasks] = []collection.Task{}
			}
			if !vals.Has(storage.KeyInstallTime) {
				update[storage.KeyInstallTime] = c.now().UnixMilli()
			}
			return update, nil
		})
		if err != nil {
			return err
		}

		c.logger.Info("installed", "reason", reason, "version", c.version)
		return c.syncMenus(ctx)
	})
}

// syncMenus removes every entry and, when the context menu is enabled,
// creates the default ones. Runs on the Run goroutine.
func (c *Coordinator) syncMenus(ctx context.Context) error {
	s, err := settings.Load(ctx, c.store)
	if err != nil {
		return err
	}
	c.menus.RemoveAll()
	if !s.ContextMenuEnabled {
		return nil
	}
	for _, item := range DefaultMenus() {
		if err := c.menus.Create(item); err != nil {
			return err
		}
	}
	return nil
}

// SaveLink prepends a link. An empty source means content_script.
func (c *Coordinator) SaveLink(ctx context.Context, link collection.Link) (collection.Link, error) {
	link.URL = strings.TrimSpace(link.URL)
	if link.URL == "" {
		return collection.Link{}, errors.New("link url required")
	}
	if link.Source == "" {
		link.Source = collection.SourceContentScript
	}
	if link.Title == "" {
		link.Title = link.URL
	}

	var saved collection.Link
	err := c.do(ctx, "save link", func(ctx context.Context) error {
		var err error
		saved, err = c.links.Add(ctx, link)
		return err
	})
	return saved, err
}

// SaveNote prepends a note. An empty source means content_script.
func (c *Coordinator) SaveNote(ctx context.Context, note collection.Note) (collection.Note, error) {
	if strings.TrimSpace(note.Text) == "" {
		return collection.Note{}, errors.New("note text required")
	}
	if note.Source == "" {
		note.Source = collection.SourceContentScript
	}

	var saved collection.Note
	err := c.do(ctx, "save note", func(ctx context.Context) error {
		var err error
		saved, err = c.notes.Add(ctx, note)
		return err
	})
	return saved, err
}

// AddTask prepends an open task.
func (c *Coordinator) AddTask(ctx context.Context, text string) (collection.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return collection.Task{}, errors.New("task text required")
	}

	var saved collection.Task
	err := c.do(ctx, "add task", func(ctx context.Context) error {
		var err error
		saved, err = c.tasks.Add(ctx, collection.Task{Text: text})
		return err
	})
	return saved, err
}

// ToggleTask flips a task's completed flag. An unknown id is a no-op.
func (c *Coordinator) ToggleTask(ctx context.Context, id int64) error {
	return c.do(ctx, "toggle task", func(ctx context.Context) error {
		return c.tasks.UpdateByID(ctx, id, collection.ToggleCompleted)
	})
}

// DeleteLink removes a link. An unknown id is a no-op.
func (c *Coordinator) DeleteLink(ctx context.Context, id int64) error {
	return c.do(ctx, "delete link", func(ctx context.Context) error {
		return c.links.RemoveByID(ctx, id)
	})
}

// DeleteNote removes a note. An unknown id is a no-op.
func (c *Coordinator) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, "delete note", func(ctx context.Context) error {
		return c.notes.RemoveByID(ctx, id)
	})
}

// DeleteTask removes a task. An unknown id is a no-op.
func (c *Coordinator) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, "delete task", func(ctx context.Context) error {
		return c.tasks.RemoveByID(ctx, id)
	})
}

// SetSetting writes one preference. Changing the context-menu flag
// re-syncs the menus.
func (c *Coordinator) SetSetting(ctx context.Context, key string, value bool) error {
	key, err := settings.Normalize(key)
	if err != nil {
		return err
	}
	return c.do(ctx, "set setting", func(ctx context.Context) error {
		if err := c.store.Set(ctx, map[string]any{key: value}); err != nil {
			return err
		}
		if key == storage.KeyContextMenuEnabled {
			return c.syncMenus(ctx)
		}
		return nil
	})
}

// HandleMenuClick saves the link or selection behind a context-menu click
// and raises a notification unless notifications are disabled.
func (c *Coordinator) HandleMenuClick(ctx context.Context, click Click) (int64, error) {
	var (
		id      int64
		message string
	)
	switch click.MenuItemID {
	case MenuSaveLink:
		title := click.LinkText
		if title == "" {
			title = click.PageTitle
		}
		link, err := c.SaveLink(ctx, collection.Link{
			Title:  title,
			URL:    click.LinkURL,
			Source: collection.SourceContextMenu,
		})
		if err != nil {
			return 0, err
		}
		id, message = link.ID, "Link saved!"
	case MenuSaveSelection:
		note, err := c.SaveNote(ctx, collection.Note{
			Text:      click.SelectionText,
			URL:       click.PageURL,
			PageTitle: click.PageTitle,
			Source:    collection.SourceContextMenu,
		})
		if err != nil {
			return 0, err
		}
		id, message = note.ID, "Selection saved as note!"
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMenuItem, click.MenuItemID)
	}

	s, err := settings.Load(ctx, c.store)
	if err != nil {
		return id, err
	}
	if s.NotificationsEnabled {
		if err := c.notify.Notify(ctx, Notification{Title: "Productivity Helper", Message: message}); err != nil {
			c.logger.Warn("notification failed", "error", err)
		}
	}
	return id, nil
}

// ClearAll replaces the store with a fresh default state in one
// transaction. A failure leaves the previous data in place.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	return c.do(ctx, "clear", func(ctx context.Context) error {
		defaults := settings.Defaults().Map()
		defaults[storage.KeyInstallTime] = c.now().UnixMilli()
		defaults[storage.KeyVersion] = c.version
		defaults[storage.KeySavedLinks] = []collection.Link{}
		defaults[storage.KeySavedNotes] = []collection.Note{}
		defaults[storage.KeyTasks] = []collection.Task{}
		if err := c.store.Reset(ctx, defaults); err != nil {
			return err
		}
		c.logger.Info("all data cleared", "reason", ReasonReset)
		return c.syncMenus(ctx)
	})
}

// Import validates data and, only if it is well formed, replaces the
// collections and settings in one write.
func (c *Coordinator) Import(ctx context.Context, data []byte) (backup.Summary, error) {
	plan, err := backup.Parse(data)
	if err != nil {
		return backup.Summary{}, err
	}
	err = c.do(ctx, "import", func(ctx context.Context) error {
		if err := c.store.Set(ctx, plan.Values(c.version)); err != nil {
			return err
		}
		return c.syncMenus(ctx)
	})
	if err != nil {
		return backup.Summary{}, err
	}
	sum := plan.Summary()
	c.logger.Info("data imported", "links", sum.Links, "notes", sum.Notes, "tasks", sum.Tasks)
	return sum, nil
}

// Export reads the current state into a backup document.
func (c *Coordinator) Export(ctx context.Context) (*backup.Document, error) {
	return backup.Export(ctx, c.store, c.version, c.now())
}

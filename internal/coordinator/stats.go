package coordinator

import (
	"context"
	"encoding/json"

	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// Stats counts the collections and the whole days since install.
func (c *Coordinator) Stats(ctx context.Context) (messaging.Stats, error) {
	vals, err := c.store.Get(ctx,
		storage.KeySavedLinks, storage.KeySavedNotes, storage.KeyTasks, storage.KeyInstallTime)
	if err != nil {
		return messaging.Stats{}, err
	}

	var installTime int64
	found, err := vals.Decode(storage.KeyInstallTime, &installTime)
	if err != nil {
		return messaging.Stats{}, err
	}
	if !found {
		return messaging.Stats{}, ErrInstallTimeMissing
	}

	links, notes, tasks := countAll(vals)
	return messaging.Stats{
		LinksCount:       links,
		NotesCount:       notes,
		TasksCount:       tasks,
		InstallTime:      installTime,
		DaysSinceInstall: daysBetween(installTime, c.now().UnixMilli()),
	}, nil
}

// daysBetween floors (to - from) / one day.
func daysBetween(from, to int64) int {
	diff := to - from
	days := diff / dayMillis
	if diff < 0 && diff%dayMillis != 0 {
		days--
	}
	return int(days)
}

// countAll returns the array lengths under the three collection keys.
// Values that are not arrays count as empty.
func countAll(vals storage.Values) (links, notes, tasks int) {
	return count(vals, storage.KeySavedLinks), count(vals, storage.KeySavedNotes), count(vals, storage.KeyTasks)
}

func count(vals storage.Values, key string) int {
	var items []json.RawMessage
	if _, err := vals.Decode(key, &items); err != nil {
		return 0
	}
	return len(items)
}

// Badge returns the most recently computed badge.
func (c *Coordinator) Badge() Badge {
	c.badgeMu.RLock()
	defer c.badgeMu.RUnlock()
	return c.badge
}

func (c *Coordinator) refreshBadge(ctx context.Context) {
	vals, err := c.store.Get(ctx, storage.KeySavedLinks, storage.KeySavedNotes, storage.KeyTasks)
	if err != nil {
		c.logger.Error("badge update failed", "error", err)
		return
	}
	links, notes, tasks := countAll(vals)
	b := BadgeFor(links, notes, tasks)

	c.badgeMu.Lock()
	c.badge = b
	c.badgeMu.Unlock()

	if c.counts != nil {
		c.counts.SetCounts(links, notes, tasks)
	}
	if c.sink != nil {
		if err := c.sink.SetBadge(ctx, b); err != nil {
			c.logger.Warn("badge sink failed", "error", err)
		}
	}
}

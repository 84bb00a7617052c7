package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
)

// Register installs a handler for every request type on r. PING answers
// synchronously; everything else responds once the store work is done.
func (c *Coordinator) Register(r *messaging.Router) {
	r.Handle(messaging.TypePing, func(context.Context, json.RawMessage) (any, error) {
		return messaging.Pong{
			OK:      true,
			Time:    c.now().UTC().Format(time.RFC3339Nano),
			Version: c.version,
		}, nil
	})

	r.HandleAsync(messaging.TypeGetStats, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return c.Stats(ctx)
	})

	r.HandleAsync(messaging.TypeSaveLink, mutation(func(ctx context.Context, d messaging.LinkData) (int64, error) {
		link, err := c.SaveLink(ctx, collection.Link{Title: d.Title, URL: d.URL, Source: collection.Source(d.Source)})
		return link.ID, err
	}))
	r.HandleAsync(messaging.TypeSaveNote, mutation(func(ctx context.Context, d messaging.NoteData) (int64, error) {
		note, err := c.SaveNote(ctx, collection.Note{
			Text:      d.Text,
			URL:       d.URL,
			PageTitle: d.PageTitle,
			Source:    collection.Source(d.Source),
		})
		return note.ID, err
	}))
	r.HandleAsync(messaging.TypeAddTask, mutation(func(ctx context.Context, d messaging.TaskData) (int64, error) {
		task, err := c.AddTask(ctx, d.Text)
		return task.ID, err
	}))

	r.HandleAsync(messaging.TypeToggleTask, byID(c.ToggleTask))
	r.HandleAsync(messaging.TypeDeleteLink, byID(c.DeleteLink))
	r.HandleAsync(messaging.TypeDeleteNote, byID(c.DeleteNote))
	r.HandleAsync(messaging.TypeDeleteTask, byID(c.DeleteTask))

	r.HandleAsync(messaging.TypeSetSetting, mutation(func(ctx context.Context, d messaging.SettingData) (int64, error) {
		return 0, c.SetSetting(ctx, d.Key, d.Value)
	}))
	r.HandleAsync(messaging.TypeImportData, func(ctx context.Context, data json.RawMessage) (any, error) {
		if _, err := c.Import(ctx, data); err != nil {
			return messaging.Failed(err), nil
		}
		return messaging.Result{Success: true}, nil
	})
	r.HandleAsync(messaging.TypeClearData, func(ctx context.Context, _ json.RawMessage) (any, error) {
		if err := c.ClearAll(ctx); err != nil {
			return messaging.Failed(err), nil
		}
		return messaging.Result{Success: true}, nil
	})
}

// mutation adapts a typed write into a handler answering {success, error?, id?}.
func mutation[D any](fn func(ctx context.Context, d D) (int64, error)) messaging.HandlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, error) {
		var d D
		if len(data) > 0 {
			if err := json.Unmarshal(data, &d); err != nil {
				return messaging.Failed(fmt.Errorf("decode payload: %w", err)), nil
			}
		}
		id, err := fn(ctx, d)
		if err != nil {
			return messaging.Failed(err), nil
		}
		return messaging.Result{Success: true, ID: id}, nil
	}
}

func byID(fn func(ctx context.Context, id int64) error) messaging.HandlerFunc {
	return mutation(func(ctx context.Context, d messaging.IDData) (int64, error) {
		return 0, fn(ctx, d.ID)
	})
}

// Package surface holds the UI-facing controllers: the popup, the options
// page and the content script. Controllers read the store directly but
// send every write to the coordinator, and report each outcome as a
// transient Status instead of failing.
package surface

import (
	"context"

	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// Kind classifies a status message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
)

// Status is a transient, user-visible outcome. ID names the record a
// successful save created, when there is one.
type Status struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

func success(msg string) Status { return Status{Kind: KindSuccess, Message: msg} }
func failure(msg string) Status { return Status{Kind: KindError, Message: msg} }
func warning(msg string) Status { return Status{Kind: KindWarning, Message: msg} }

// OK reports whether s is a success.
func (s Status) OK() bool { return s.Kind == KindSuccess }

// StatusRenderer shows a status to the user.
type StatusRenderer interface {
	RenderStatus(Status)
}

// readList decodes one collection straight from the store. Absent keys read
// as empty.
func readList[T any](ctx context.Context, r settings.Reader, key string) ([]T, error) {
	vals, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	items := []T{}
	if _, err := vals.Decode(key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func readString(ctx context.Context, r settings.Reader, key string) (string, error) {
	vals, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var s string
	if _, err := vals.Decode(key, &s); err != nil {
		return "", err
	}
	return s, nil
}

var _ settings.Reader = (storage.Store)(nil)

package collection

import "time"

// Source records which surface created a link or note.
type Source string

const (
	SourceContentScript Source = "content_script"
	SourceContextMenu   Source = "context_menu"
	SourcePopup         Source = "popup"
)

// Link is a saved page.
type Link struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`
}

// Note is a captured text selection or a free-form note.
type Note struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	PageTitle string    `json:"pageTitle,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`
}

// Task is a short to-do item.
type Task struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is implemented by every collection element. Stamped returns a copy
// carrying the assigned id, with the timestamp filled in when it is zero.
type Record[T any] interface {
	RecordID() int64
	Stamped(id int64, now time.Time) T
}

func (l Link) RecordID() int64 { return l.ID }

func (l Link) Stamped(id int64, now time.Time) Link {
	l.ID = id
	if l.Timestamp.IsZero() {
		l.Timestamp = now.UTC()
	}
	return l
}

func (n Note) RecordID() int64 { return n.ID }

func (n Note) Stamped(id int64, now time.Time) Note {
	n.ID = id
	if n.Timestamp.IsZero() {
		n.Timestamp = now.UTC()
	}
	return n
}

func (t Task) RecordID() int64 { return t.ID }

func (t Task) Stamped(id int64, now time.Time) Task {
	t.ID = id
	if t.Timestamp.IsZero() {
		t.Timestamp = now.UTC()
	}
	return t
}

// ToggleCompleted flips a task's completion flag.
func ToggleCompleted(t Task) Task {
	t.Completed = !t.Completed
	return t
}

// Package backup produces and validates the JSON backup document and moves
// it to and from a backup sink.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// ErrInvalidImportPayload marks a backup document rejected before any write.
var ErrInvalidImportPayload = errors.New("invalid import payload")

// ImportError explains why a document was rejected.
type ImportError struct {
	Field  string
	Reason string
}

func (e *ImportError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid import payload: %s", e.Reason)
	}
	return fmt.Sprintf("invalid import payload: %s: %s", e.Field, e.Reason)
}

func (e *ImportError) Is(target error) bool {
	return target == ErrInvalidImportPayload
}

// Document is the exported backup file.
type Document struct {
	SavedLinks            []collection.Link `json:"savedLinks"`
	SavedNotes            []collection.Note `json:"savedNotes"`
	Tasks                 []collection.Task `json:"tasks"`
	InstallTime           *int64            `json:"installTime,omitempty"`
	FloatingButtonEnabled bool              `json:"floatingButtonEnabled"`
	NotificationsEnabled  bool              `json:"notificationsEnabled"`
	ContextMenuEnabled    bool              `json:"contextMenuEnabled"`
	ExportDate            string            `json:"exportDate"`
	Version               string            `json:"version"`
}

// Filename returns the conventional backup file name for now.
func Filename(now time.Time) string {
	return fmt.Sprintf("productivity-helper-backup-%s.json", now.UTC().Format("2006-01-02"))
}

// Export reads the current state into a Document. It only reads.
func Export(ctx context.Context, r settings.Reader, version string, now time.Time) (*Document, error) {
	vals, err := r.Get(ctx,
		storage.KeySavedLinks, storage.KeySavedNotes, storage.KeyTasks, storage.KeyInstallTime,
		storage.KeyFloatingButtonEnabled, storage.KeyNotificationsEnabled, storage.KeyContextMenuEnabled,
	)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		SavedLinks: []collection.Link{},
		SavedNotes: []collection.Note{},
		Tasks:      []collection.Task{},
		ExportDate: now.UTC().Format(time.RFC3339Nano),
		Version:    version,
	}
	if _, err := vals.Decode(storage.KeySavedLinks, &doc.SavedLinks); err != nil {
		return nil, err
	}
	if _, err := vals.Decode(storage.KeySavedNotes, &doc.SavedNotes); err != nil {
		return nil, err
	}
	if _, err := vals.Decode(storage.KeyTasks, &doc.Tasks); err != nil {
		return nil, err
	}
	var installTime int64
	if found, err := vals.Decode(storage.KeyInstallTime, &installTime); err != nil {
		return nil, err
	} else if found {
		doc.InstallTime = &installTime
	}

	s := settings.FromValues(vals)
	doc.FloatingButtonEnabled = s.FloatingButtonEnabled
	doc.NotificationsEnabled = s.NotificationsEnabled
	doc.ContextMenuEnabled = s.ContextMenuEnabled
	return doc, nil
}

// Encode renders doc as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return buf.Bytes(), nil
}

// Plan is a validated import, ready to be applied.
type Plan struct {
	Links    []collection.Link
	Notes    []collection.Note
	Tasks    []collection.Task
	Settings settings.Settings
}

// Summary counts what an import would write, for the confirmation prompt.
type Summary struct {
	Links int `json:"links"`
	Notes int `json:"notes"`
	Tasks int `json:"tasks"`
}

// Parse validates a backup document. The collections, when present, must be
// arrays of well-formed records; anything else is rejected with an
// ImportError. Missing collections import as empty, and a setting is only
// disabled by a literal false.
func Parse(data []byte) (*Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ImportError{Reason: "document must be a JSON object"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ImportError{Reason: err.Error()}
	}
	vals := storage.Values(raw)

	plan := &Plan{
		Links:    []collection.Link{},
		Notes:    []collection.Note{},
		Tasks:    []collection.Task{},
		Settings: settings.FromValues(vals),
	}
	if err := decodeArray(vals, storage.KeySavedLinks, &plan.Links); err != nil {
		return nil, err
	}
	if err := decodeArray(vals, storage.KeySavedNotes, &plan.Notes); err != nil {
		return nil, err
	}
	if err := decodeArray(vals, storage.KeyTasks, &plan.Tasks); err != nil {
		return nil, err
	}
	return plan, nil
}

func decodeArray[T any](vals storage.Values, key string, dst *[]T) error {
	if !vals.Has(key) {
		return nil
	}
	raw := bytes.TrimSpace(vals[key])
	if raw[0] != '[' {
		return &ImportError{Field: key, Reason: "must be an array"}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return &ImportError{Field: key, Reason: err.Error()}
	}
	if items != nil {
		*dst = items
	}
	return nil
}

// Summary returns the record counts.
func (p *Plan) Summary() Summary {
	return Summary{Links: len(p.Links), Notes: len(p.Notes), Tasks: len(p.Tasks)}
}

// Values returns everything the import writes, as one store update. The id
// sequence is moved past every imported id.
func (p *Plan) Values(version string) map[string]any {
	var ids []int64
	for _, l := range p.Links {
		ids = append(ids, l.ID)
	}
	for _, n := range p.Notes {
		ids = append(ids, n.ID)
	}
	for _, t := range p.Tasks {
		ids = append(ids, t.ID)
	}

	out := p.Settings.Map()
	out[storage.KeySavedLinks] = p.Links
	out[storage.KeySavedNotes] = p.Notes
	out[storage.KeyTasks] = p.Tasks
	out[storage.KeyVersion] = version
	out[storage.KeyIDSequence] = collection.MaxID(ids)
	return out
}

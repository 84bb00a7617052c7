package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Top-level keys persisted by the extension.
const (
	KeyInstallTime = "installTime"
	KeyVersion     = "version"
	KeySavedLinks  = "savedLinks"
	KeySavedNotes  = "savedNotes"
	KeyTasks       = "tasks"
	KeyIDSequence  = "idSequence"

	KeyFloatingButtonEnabled = "floatingButtonEnabled"
	KeyNotificationsEnabled  = "notificationsEnabled"
	KeyContextMenuEnabled    = "contextMenuEnabled"
)

// Values maps store keys to their raw JSON values. Missing keys are absent.
type Values map[string]json.RawMessage

// Has reports whether key holds a non-null value.
func (v Values) Has(key string) bool {
	raw, ok := v[key]
	return ok && !isNull(raw)
}

// Decode unmarshals the value stored under key into dst. It returns false
// without touching dst when the key is absent or null.
func (v Values) Decode(key string, dst any) (bool, error) {
	if !v.Has(key) {
		return false, nil
	}
	if err := json.Unmarshal(v[key], dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Change describes a single key transition. A nil New means the key was removed.
type Change struct {
	Old json.RawMessage `json:"oldValue,omitempty"`
	New json.RawMessage `json:"newValue,omitempty"`
}

// ChangeSet is delivered to watchers after every successful Set or Clear.
type ChangeSet map[string]Change

// Keys returns the changed keys.
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Touches reports whether any of keys changed.
func (c ChangeSet) Touches(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c[k]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Package settings reads the extension's boolean preferences. Each flag is
// its own store key and defaults to true when absent.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/runnerr0/prodhelper/internal/storage"
)

// ErrUnknownSetting is returned for a key that is not a known preference.
var ErrUnknownSetting = errors.New("unknown setting")

// Settings holds the three user preferences.
type Settings struct {
	FloatingButtonEnabled bool `json:"floatingButtonEnabled"`
	NotificationsEnabled  bool `json:"notificationsEnabled"`
	ContextMenuEnabled    bool `json:"contextMenuEnabled"`
}

// Defaults returns every flag enabled.
func Defaults() Settings {
	return Settings{
		FloatingButtonEnabled: true,
		NotificationsEnabled:  true,
		ContextMenuEnabled:    true,
	}
}

// Keys lists the store keys of every preference.
func Keys() []string {
	return []string{
		storage.KeyFloatingButtonEnabled,
		storage.KeyNotificationsEnabled,
		storage.KeyContextMenuEnabled,
	}
}

// labels are the human names shown in status messages.
var labels = map[string]string{
	storage.KeyFloatingButtonEnabled: "Floating button",
	storage.KeyNotificationsEnabled:  "Notifications",
	storage.KeyContextMenuEnabled:    "Context menu",
}

// aliases accept the short form used by the options page ids.
var aliases = map[string]string{
	"floatingButton": storage.KeyFloatingButtonEnabled,
	"notifications":  storage.KeyNotificationsEnabled,
	"contextMenu":    storage.KeyContextMenuEnabled,
}

// Normalize resolves key or its short alias to a store key.
func Normalize(key string) (string, error) {
	if _, ok := labels[key]; ok {
		return key, nil
	}
	if full, ok := aliases[key]; ok {
		return full, nil
	}
	names := make([]string, 0, len(aliases))
	for k := range aliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return "", fmt.Errorf("%w %q (expected one of %v)", ErrUnknownSetting, key, names)
}

// Label returns the display name for key.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// Reader is the read side of the store.
type Reader interface {
	Get(ctx context.Context, keys ...string) (storage.Values, error)
}

// Load reads the preferences, applying defaults for absent keys.
func Load(ctx context.Context, r Reader) (Settings, error) {
	vals, err := r.Get(ctx, Keys()...)
	if err != nil {
		return Settings{}, err
	}
	return FromValues(vals), nil
}

// FromValues derives preferences from raw store values. Only a literal
// false disables a flag.
func FromValues(vals storage.Values) Settings {
	return Settings{
		FloatingButtonEnabled: enabled(vals, storage.KeyFloatingButtonEnabled),
		NotificationsEnabled:  enabled(vals, storage.KeyNotificationsEnabled),
		ContextMenuEnabled:    enabled(vals, storage.KeyContextMenuEnabled),
	}
}

// Map returns the preferences keyed by store key, ready for Set.
func (s Settings) Map() map[string]any {
	return map[string]any{
		storage.KeyFloatingButtonEnabled: s.FloatingButtonEnabled,
		storage.KeyNotificationsEnabled:  s.NotificationsEnabled,
		storage.KeyContextMenuEnabled:    s.ContextMenuEnabled,
	}
}

// Get returns the flag stored under a normalized key.
func (s Settings) Get(key string) bool {
	switch key {
	case storage.KeyFloatingButtonEnabled:
		return s.FloatingButtonEnabled
	case storage.KeyNotificationsEnabled:
		return s.NotificationsEnabled
	case storage.KeyContextMenuEnabled:
		return s.ContextMenuEnabled
	}
	return false
}

func enabled(vals storage.Values, key string) bool {
	var b bool
	found, err := vals.Decode(key, &b)
	if !found || err != nil {
		return true
	}
	return b
}

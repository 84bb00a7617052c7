package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/prodhelper/internal/storage"
)

type fakeReader storage.Values

func (f fakeReader) Get(_ context.Context, keys ...string) (storage.Values, error) {
	out := storage.Values{}
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func TestLoad_DefaultsToTrue(t *testing.T) {
	s, err := Load(context.Background(), fakeReader{})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoad_OnlyLiteralFalseDisables(t *testing.T) {
	s, err := Load(context.Background(), fakeReader{
		storage.KeyFloatingButtonEnabled: json.RawMessage(`false`),
		storage.KeyNotificationsEnabled:  json.RawMessage(`"no"`),
		storage.KeyContextMenuEnabled:    json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.False(t, s.FloatingButtonEnabled)
	assert.True(t, s.NotificationsEnabled)
	assert.True(t, s.ContextMenuEnabled)
}

func TestNormalize(t *testing.T) {
	k, err := Normalize("contextMenu")
	require.NoError(t, err)
	assert.Equal(t, storage.KeyContextMenuEnabled, k)

	k, err = Normalize(storage.KeyNotificationsEnabled)
	require.NoError(t, err)
	assert.Equal(t, storage.KeyNotificationsEnabled, k)

	_, err = Normalize("darkMode")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestMapAndGet(t *testing.T) {
	s := Settings{NotificationsEnabled: true}
	m := s.Map()
	assert.Equal(t, false, m[storage.KeyFloatingButtonEnabled])
	assert.True(t, s.Get(storage.KeyNotificationsEnabled))
	assert.Equal(t, "Context menu", Label(storage.KeyContextMenuEnabled))
}

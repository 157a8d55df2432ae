package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, ok, err := store.GetSetting(ctx, "ROM_DIRECTORY")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetSetting(ctx, "ROM_DIRECTORY", "/roms"))
	v, ok, err := store.GetSetting(ctx, "ROM_DIRECTORY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/roms", v)

	require.NoError(t, store.SetSetting(ctx, "ROM_DIRECTORY", "/roms2"))
	v, _, err = store.GetSetting(ctx, "ROM_DIRECTORY")
	require.NoError(t, err)
	assert.Equal(t, "/roms2", v)

	list, err := store.ListSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ROM_DIRECTORY": "/roms2"}, list)

	require.NoError(t, store.UnsetSetting(ctx, "ROM_DIRECTORY"))
	_, ok, err = store.GetSetting(ctx, "ROM_DIRECTORY")
	require.NoError(t, err)
	assert.False(t, ok)
}

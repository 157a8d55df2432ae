package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/elect"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(filepath.Join(t.TempDir(), "oxyromon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	store := openTestStore(t)
	s, err := Load(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Workers)
	assert.True(t, s.RegionsOneStrict)
	assert.Equal(t, elect.PreferRegionsNone, s.PreferRegions)
	assert.Empty(t, s.RegionsOne)
}

func TestLoadReadsStoredValues(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, Set(ctx, store, KeyWorkers, "8"))
	require.NoError(t, Set(ctx, store, KeyPreferParents, "true"))
	require.NoError(t, Set(ctx, store, KeyRegionsOne, "US|EU"))

	s, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Workers)
	assert.True(t, s.PreferParents)
	assert.Equal(t, []string{"US", "EU"}, s.RegionsOne)
}

func TestLoadOptionsOverrideStoredValues(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, Set(ctx, store, KeyWorkers, "8"))

	s, err := Load(ctx, store, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workers)
}

func TestSetRejectsUnknownKey(t *testing.T) {
	store := openTestStore(t)
	err := Set(context.Background(), store, "NOT_A_KEY", "x")
	assert.Error(t, err)
}

func TestAppendAndRemoveListValues(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, Append(ctx, store, KeyRegionsOne, "US"))
	require.NoError(t, Append(ctx, store, KeyRegionsOne, "EU"))
	require.NoError(t, Append(ctx, store, KeyRegionsOne, "US")) // idempotent

	s, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "EU"}, s.RegionsOne)

	require.NoError(t, Remove(ctx, store, KeyRegionsOne, "US"))
	s, err = Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"EU"}, s.RegionsOne)
}

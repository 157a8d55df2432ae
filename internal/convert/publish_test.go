package convert

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
)

func TestPublishMovesEncodedFileToTarget(t *testing.T) {
	src := filepath.Join(t.TempDir(), "staged.zip")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	j := NewJob(1, "original.zip")
	require.NoError(t, j.transitionTo(StateStaged))
	require.NoError(t, j.transitionTo(StateEncoded))
	j.EncodedPath = src

	target := filepath.Join(t.TempDir(), "out", "game.zip")
	require.NoError(t, Publish(j, target))

	assert.Equal(t, StatePublished, j.State)
	assert.FileExists(t, target)
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestVerifyDetectsMismatch(t *testing.T) {
	engine := hash.New()
	encoded := filepath.Join(t.TempDir(), "staged.bin")
	require.NoError(t, os.WriteFile(encoded, []byte("actual"), 0o644))

	j := NewJob(1, "original.bin")
	require.NoError(t, j.transitionTo(StateStaged))
	require.NoError(t, j.transitionTo(StateEncoded))
	j.EncodedPath = encoded

	want, err := engine.Sum(context.Background(), mustOpen(t, encoded))
	require.NoError(t, err)
	want.SHA1[0] ^= 0xFF // corrupt so Verify sees a mismatch

	err = Verify(context.Background(), engine, j, want)
	assert.ErrorIs(t, err, ErrVerifyMismatch)
	assert.Equal(t, StateFailed, j.State)
}

func TestVerifyAcceptsMatchingDigest(t *testing.T) {
	engine := hash.New()
	encoded := filepath.Join(t.TempDir(), "staged.bin")
	require.NoError(t, os.WriteFile(encoded, []byte("actual"), 0o644))

	j := NewJob(1, "original.bin")
	require.NoError(t, j.transitionTo(StateStaged))
	require.NoError(t, j.transitionTo(StateEncoded))
	j.EncodedPath = encoded

	want, err := engine.Sum(context.Background(), mustOpen(t, encoded))
	require.NoError(t, err)

	require.NoError(t, Verify(context.Background(), engine, j, want))
	assert.Equal(t, StateVerified, j.State)
}

func TestReconcileAttachesRomfile(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	root := t.TempDir()

	sys, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "NES"}, false)
	require.NoError(t, err)
	_, err = store.SyncGames(ctx, sys, slices.Values([]catalog.ParsedGame{
		{Name: "Game", Roms: []catalog.ParsedRom{{Name: "game.rom"}}},
	}))
	require.NoError(t, err)

	roms, err := store.RomsOfGame(ctx, gameIDByName(ctx, t, store, sys, "Game"))
	require.NoError(t, err)
	require.Len(t, roms, 1)

	target := filepath.Join(root, "NES", "game.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))

	j := NewJob(roms[0].ID, "original.rom")
	require.NoError(t, j.transitionTo(StateStaged))
	require.NoError(t, j.transitionTo(StateEncoded))
	require.NoError(t, j.transitionTo(StatePublished))
	j.TargetPath = target

	require.NoError(t, Reconcile(ctx, store, j, "NES/game.zip"))
	assert.Equal(t, StateReconciled, j.State)

	missing, err := store.Missing(ctx, sys)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func gameIDByName(ctx context.Context, t *testing.T, store *catalog.Store, sys catalog.SystemID, name string) catalog.GameID {
	t.Helper()
	games, err := store.GamesOfSystem(ctx, sys)
	require.NoError(t, err)
	for _, g := range games {
		if g.Name == name {
			return g.ID
		}
	}
	t.Fatalf("game %q not found", name)
	return 0
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

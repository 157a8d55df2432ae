package convert

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(filepath.Join(t.TempDir(), "oxyromon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	w, err := archive.NewZipWriter(path)
	require.NoError(t, err)
	for name, content := range members {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

// setupArcadeFixture builds an "arcade" System with a BIOS Game, a parent
// Game and a clone that only carries its own unique ROM, wired the way a
// non-merged/full-non-merged Rebuilder expects to find it.
func setupArcadeFixture(t *testing.T, root string) (*catalog.Store, catalog.SystemID, catalog.GameID) {
	t.Helper()
	ctx := context.Background()
	store := openTestStore(t)

	sys, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "Arcade", Arcade: true}, false)
	require.NoError(t, err)

	games := []catalog.ParsedGame{
		{Name: "neogeo", Roms: []catalog.ParsedRom{{Name: "bios.bin"}}},
		{Name: "kof98", Roms: []catalog.ParsedRom{{Name: "shared.bin"}}},
		{Name: "kof98h", Parent: "kof98", Bios: "neogeo", Roms: []catalog.ParsedRom{{Name: "unique.bin"}}},
	}
	_, err = store.SyncGames(ctx, sys, slices.Values(games))
	require.NoError(t, err)

	biosRoms, err := findRomsByGameName(ctx, store, sys, "neogeo")
	require.NoError(t, err)
	parentRoms, err := findRomsByGameName(ctx, store, sys, "kof98")
	require.NoError(t, err)
	cloneID, cloneRoms, err := findGameAndRoms(ctx, store, sys, "kof98h")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "Arcade"), 0o755))
	writeZip(t, filepath.Join(root, "Arcade", "neogeo.zip"), map[string]string{"bios.bin": "B"})
	writeZip(t, filepath.Join(root, "Arcade", "kof98.zip"), map[string]string{"shared.bin": "S"})
	writeZip(t, filepath.Join(root, "Arcade", "kof98h.zip"), map[string]string{"unique.bin": "U"})

	_, err = store.AttachRomfile(ctx, biosRoms[0].ID, "Arcade/neogeo.zip", 1)
	require.NoError(t, err)
	_, err = store.AttachRomfile(ctx, parentRoms[0].ID, "Arcade/kof98.zip", 1)
	require.NoError(t, err)
	_, err = store.AttachRomfile(ctx, cloneRoms[0].ID, "Arcade/kof98h.zip", 1)
	require.NoError(t, err)

	return store, sys, cloneID
}

func findGameAndRoms(ctx context.Context, store *catalog.Store, sys catalog.SystemID, name string) (catalog.GameID, []catalog.Rom, error) {
	games, err := store.GamesOfSystem(ctx, sys)
	if err != nil {
		return 0, nil, err
	}
	for _, g := range games {
		if g.Name == name {
			roms, err := store.RomsOfGame(ctx, g.ID)
			return g.ID, roms, err
		}
	}
	return 0, nil, nil
}

func findRomsByGameName(ctx context.Context, store *catalog.Store, sys catalog.SystemID, name string) ([]catalog.Rom, error) {
	_, roms, err := findGameAndRoms(ctx, store, sys, name)
	return roms, err
}

func TestRebuilderNonMergedBorrowsParentRom(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, _, cloneID := setupArcadeFixture(t, root)

	tmp, err := archive.NewTmpScope(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { tmp.Close() })

	r := &Rebuilder{Store: store, Engine: hash.New(), Tmp: tmp, Root: root}

	clone, err := store.GameByID(ctx, cloneID)
	require.NoError(t, err)
	require.NotNil(t, clone.ParentID)

	plan, err := r.Plan(ctx, clone, catalog.MergingNonMerged)
	require.NoError(t, err)
	require.Len(t, plan.Members, 2)

	require.NoError(t, r.Execute(ctx, plan))

	out, err := archive.Open(plan.Target)
	require.NoError(t, err)
	defer out.Close()
	names := make([]string, 0, len(out.Files()))
	for _, e := range out.Files() {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"unique.bin", "shared.bin"}, names)
}

func TestRebuilderSecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, _, cloneID := setupArcadeFixture(t, root)

	tmp, err := archive.NewTmpScope(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { tmp.Close() })

	r := &Rebuilder{Store: store, Engine: hash.New(), Tmp: tmp, Root: root}
	clone, err := store.GameByID(ctx, cloneID)
	require.NoError(t, err)

	plan, err := r.Plan(ctx, clone, catalog.MergingNonMerged)
	require.NoError(t, err)
	require.NoError(t, r.Execute(ctx, plan))

	before, err := os.Stat(plan.Target)
	require.NoError(t, err)

	plan2, err := r.Plan(ctx, clone, catalog.MergingNonMerged)
	require.NoError(t, err)
	require.NoError(t, r.Execute(ctx, plan2))

	after, err := os.Stat(plan.Target)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestRebuilderSplitKeepsOwnRomOnly(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, _, cloneID := setupArcadeFixture(t, root)

	tmp, err := archive.NewTmpScope(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { tmp.Close() })

	r := &Rebuilder{Store: store, Engine: hash.New(), Tmp: tmp, Root: root}
	clone, err := store.GameByID(ctx, cloneID)
	require.NoError(t, err)

	plan, err := r.Plan(ctx, clone, catalog.MergingSplit)
	require.NoError(t, err)
	require.Len(t, plan.Members, 1)
	assert.Equal(t, "unique.bin", plan.Members[0].Name)
}

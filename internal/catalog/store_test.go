package catalog

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxyromon.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertSystemInsertsThenKeepsOlderVersion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sega - Mega Drive - Genesis", Version: "20260101"}, false)
	require.NoError(t, err)

	id2, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sega - Mega Drive - Genesis", Version: "20250101"}, false)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	id3, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sega - Mega Drive - Genesis", Version: "20270101"}, false)
	require.NoError(t, err)
	assert.Equal(t, id, id3)
}

func TestUpsertSystemForceOverridesVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.UpsertSystem(ctx, ParsedSystem{Name: "NES", Version: "2"}, false)
	require.NoError(t, err)

	_, err = s.UpsertSystem(ctx, ParsedSystem{Name: "NES", Version: "1", Description: "forced"}, true)
	require.NoError(t, err)

	got, err := s.SystemByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Version)
	assert.Equal(t, "forced", got.Description)

	roms, err := s.FindRomsByHashes(ctx, HashQuery{SHA1: "deadbeef"})
	require.NoError(t, err)
	assert.Empty(t, roms)
	_ = id
}

func sampleGames() []ParsedGame {
	size := int64(1024)
	return []ParsedGame{
		{
			Name:    "Sonic the Hedgehog (USA)",
			Regions: []string{"US"},
			Roms: []ParsedRom{
				{Name: "Sonic the Hedgehog (USA).bin", Size: &size, CRC32: "b519e1e8", SHA1: "e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3"},
			},
		},
		{
			Name:    "Sonic the Hedgehog (Europe)",
			Regions: []string{"EU"},
			Roms: []ParsedRom{
				{Name: "Sonic the Hedgehog (Europe).bin", Size: &size, CRC32: "b519e1e8", SHA1: "e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3"},
			},
		},
	}
}

func TestSyncGamesAddsUpdatesAndRemoves(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sega - Mega Drive - Genesis"}, false)
	require.NoError(t, err)

	games := sampleGames()
	summary, err := s.SyncGames(ctx, sys, slices.Values(games))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GamesAdded)

	roms, err := s.FindRomsByHashes(ctx, HashQuery{SHA1: "e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3"})
	require.NoError(t, err)
	require.Len(t, roms, 2)

	_, err = s.AttachRomfile(ctx, roms[0].ID, "Sega - Mega Drive - Genesis/Sonic the Hedgehog (USA).zip", 1024)
	require.NoError(t, err)

	missing, err := s.Missing(ctx, sys)
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	onlyOne := []ParsedGame{games[0]}
	summary, err = s.SyncGames(ctx, sys, slices.Values(onlyOne))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GamesUpdated)
	assert.Equal(t, 1, summary.GamesRemoved)

	orphans, err := s.Orphans(ctx, sys)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestForeignReportsUnknownPaths(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "NES"}, false)
	require.NoError(t, err)

	games := sampleGames()
	_, err = s.SyncGames(ctx, sys, slices.Values(games))
	require.NoError(t, err)

	roms, err := s.FindRomsByHashes(ctx, HashQuery{SHA1: "e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3"})
	require.NoError(t, err)
	require.NotEmpty(t, roms)

	_, err = s.AttachRomfile(ctx, roms[0].ID, "NES/known.zip", 1024)
	require.NoError(t, err)

	foreign, err := s.Foreign(ctx, sys, []string{"NES/known.zip", "NES/unexpected.zip"})
	require.NoError(t, err)
	assert.Equal(t, []string{"NES/unexpected.zip"}, foreign)
}

func TestSyncGamesResolvesParentAndBiosByName(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Arcade", Arcade: true}, false)
	require.NoError(t, err)

	games := []ParsedGame{
		{Name: "neogeo", Category: "BIOS"},
		{
			Name: "kof98",
			Roms: []ParsedRom{{Name: "kof98.bin"}},
		},
		{
			Name:   "kof98h",
			Parent: "kof98",
			Bios:   "neogeo",
			Roms:   []ParsedRom{{Name: "kof98h.bin"}},
		},
	}
	_, err = s.SyncGames(ctx, sys, slices.Values(games))
	require.NoError(t, err)

	var cloneID, parentID, biosID GameID
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT id FROM games WHERE name = ?`, "kof98h").Scan(&cloneID))
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT id FROM games WHERE name = ?`, "kof98").Scan(&parentID))
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT id FROM games WHERE name = ?`, "neogeo").Scan(&biosID))

	clone, err := s.GameByID(ctx, cloneID)
	require.NoError(t, err)
	require.NotNil(t, clone.ParentID)
	require.NotNil(t, clone.BiosID)
	assert.Equal(t, parentID, *clone.ParentID)
	assert.Equal(t, biosID, *clone.BiosID)
}

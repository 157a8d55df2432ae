package catalog

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiDiscGames() []ParsedGame {
	size := int64(2048)
	return []ParsedGame{
		{
			Name:      "Final Fantasy VII (USA) (Disc 1)",
			DiscIndex: 1,
			Roms:      []ParsedRom{{Name: "Final Fantasy VII (USA) (Disc 1).bin", Size: &size, SHA1: "aaaa"}},
		},
		{
			Name:      "Final Fantasy VII (USA) (Disc 2)",
			DiscIndex: 2,
			Roms:      []ParsedRom{{Name: "Final Fantasy VII (USA) (Disc 2).bin", Size: &size, SHA1: "bbbb"}},
		},
	}
}

func TestCreatePlaylistRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sony - PlayStation"}, false)
	require.NoError(t, err)

	_, err = s.SyncGames(ctx, sys, slices.Values(multiDiscGames()))
	require.NoError(t, err)

	games, err := s.GamesOfSystem(ctx, sys)
	require.NoError(t, err)
	require.Len(t, games, 2)

	ids := []GameID{games[0].ID, games[1].ID}
	id, err := s.CreatePlaylist(ctx, "Sony - PlayStation/Final Fantasy VII (USA).m3u", 64, ids)
	require.NoError(t, err)
	assert.NotZero(t, id)

	playlists, err := s.PlaylistsOfSystem(ctx, sys)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, "m3u", playlists[0].Kind)
	assert.ElementsMatch(t, ids, playlists[0].Games)
}

func TestCreatePlaylistReplacesExistingAtSamePath(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sony - PlayStation"}, false)
	require.NoError(t, err)

	_, err = s.SyncGames(ctx, sys, slices.Values(multiDiscGames()))
	require.NoError(t, err)

	games, err := s.GamesOfSystem(ctx, sys)
	require.NoError(t, err)

	path := "Sony - PlayStation/Final Fantasy VII (USA).m3u"
	id, err := s.CreatePlaylist(ctx, path, 64, []GameID{games[0].ID})
	require.NoError(t, err)

	id2, err := s.CreatePlaylist(ctx, path, 70, []GameID{games[0].ID, games[1].ID})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	playlists, err := s.PlaylistsOfSystem(ctx, sys)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Len(t, playlists[0].Games, 2)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

func TestClusterGamesGroupsByParent(t *testing.T) {
	parentID := catalog.GameID(1)
	games := []catalog.Game{
		{ID: 1, Name: "Super Mario Bros. (USA)"},
		{ID: 2, Name: "Super Mario Bros. (Europe)", ParentID: &parentID},
		{ID: 3, Name: "Super Mario Bros. (Japan)", ParentID: &parentID},
		{ID: 4, Name: "Tetris (USA)"},
	}

	clusters := clusterGames(games)
	assert.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 3)
	assert.Len(t, clusters[1], 1)
}

func TestClusterGamesFallsBackToSingletonOnDanglingParent(t *testing.T) {
	missing := catalog.GameID(99)
	games := []catalog.Game{
		{ID: 1, Name: "Clone Game", ParentID: &missing},
	}

	clusters := clusterGames(games)
	require := assert.New(t)
	require.Len(clusters, 1)
	require.Len(clusters[0], 1)
}

func TestOverlapsIsCaseInsensitiveAndEmptyMeansAny(t *testing.T) {
	assert.True(t, overlaps([]string{"US"}, nil))
	assert.True(t, overlaps([]string{"us"}, []string{"US", "EU"}))
	assert.False(t, overlaps([]string{"JP"}, []string{"US", "EU"}))
}

func TestParseRevisionExtractsLeadingDigits(t *testing.T) {
	assert.Equal(t, 1, parseRevision("1"))
	assert.Equal(t, 2, parseRevision("Rev 2"))
	assert.Equal(t, 1, parseRevision("1.3"))
	assert.Equal(t, 0, parseRevision(""))
	assert.Equal(t, 0, parseRevision("Beta"))
}

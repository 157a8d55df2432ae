package dat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixdatOmitsCompleteGames(t *testing.T) {
	sys := System{Name: "Sega - Mega Drive - Genesis", Version: "20260101"}

	size := int64(524288)
	missing := map[string][]Rom{
		"Sonic the Hedgehog (USA)": {
			{Name: "Sonic the Hedgehog (USA).bin", Size: &size, CRC32: "b519e1e8"},
		},
		"Complete Game (USA)": {},
	}

	fd := NewFixdat(sys, missing)
	require.Len(t, fd.Game, 1)
	assert.Equal(t, "Sonic the Hedgehog (USA)", fd.Game[0].Name)
	require.Len(t, fd.Game[0].ROM, 1)
	assert.Equal(t, "b519e1e8", fd.Game[0].ROM[0].CRC32)

	b, err := fd.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `<rom name="Sonic the Hedgehog (USA).bin"`))
	assert.False(t, strings.Contains(string(b), "Complete Game"))
}

func TestNewFixdatEmpty(t *testing.T) {
	fd := NewFixdat(System{Name: "Test"}, map[string][]Rom{})
	assert.Empty(t, fd.Game)

	b, err := fd.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(b), "<datafile>")
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/dat"
)

func TestPatchStemStripsDirectoryAndExtension(t *testing.T) {
	assert.Equal(t, "Sonic the Hedgehog (USA)", patchStem("/roms/patches/Sonic the Hedgehog (USA).ips"))
	assert.Equal(t, "game", patchStem("game.bps"))
	assert.Equal(t, "no_extension", patchStem("no_extension"))
}

func TestDatToParsedGameConvertsRoms(t *testing.T) {
	size := int64(1024)
	g := dat.Game{
		Name:    "Example (USA)",
		Regions: []string{"US"},
		Roms: []dat.Rom{
			{Name: "Example.bin", Size: &size, CRC32: "deadbeef", Status: "baddump"},
		},
	}

	parsed := datToParsedGame(g)
	assert.Equal(t, "Example (USA)", parsed.Name)
	assert.Len(t, parsed.Roms, 1)
	assert.Equal(t, catalog.RomStatus("baddump"), parsed.Roms[0].Status)
}

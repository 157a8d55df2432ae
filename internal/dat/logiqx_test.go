package dat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDat = `<?xml version="1.0"?>
<datafile>
	<header>
		<name>Sega - Mega Drive - Genesis</name>
		<description>Sega - Mega Drive - Genesis</description>
		<version>20260101</version>
	</header>
	<game name="Sonic the Hedgehog (USA)">
		<rom name="Sonic the Hedgehog (USA).bin" size="524288" crc="b519e1e8" sha1="e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3" />
	</game>
	<game name="Sonic the Hedgehog (Europe)">
		<rom name="Sonic the Hedgehog (Europe).bin" size="524288" crc="b519e1e8" sha1="e083f00f5b0e0a26f3e7f6ba3f6e4a0a3d67c1c3" />
	</game>
</datafile>`

func TestParseLogiqx(t *testing.T) {
	parsed, err := ParseLogiqx(strings.NewReader(sampleDat))
	require.NoError(t, err)
	assert.Equal(t, "Sega - Mega Drive - Genesis", parsed.System.Name)
	assert.False(t, parsed.System.Arcade)

	var games []Game
	for g := range parsed.Games {
		games = append(games, g)
	}

	require.Len(t, games, 2)
	assert.Equal(t, []string{"US"}, games[0].Regions)
	assert.Equal(t, []string{"EU"}, games[1].Regions)
	require.Len(t, games[0].Roms, 1)
	assert.EqualValues(t, 524288, *games[0].Roms[0].Size)
	assert.Equal(t, "b519e1e8", games[0].Roms[0].CRC32)
	assert.Equal(t, 0, parsed.Summary.GamesSkipped)
}

const romOfDat = `<?xml version="1.0"?>
<datafile>
	<header><name>MAME</name></header>
	<machine name="neogeo">
		<rom name="neogeo.bin" size="131072" crc="00000000" />
	</machine>
	<machine name="kof98" cloneof="kof97" romof="kof97">
		<rom name="kof98.bin" size="4096" crc="11111111" />
	</machine>
	<machine name="kof98h" romof="neogeo">
		<rom name="kof98h.bin" size="4096" crc="22222222" />
	</machine>
</datafile>`

func TestParseLogiqxRomOfDistinguishesBiosFromParent(t *testing.T) {
	parsed, err := ParseLogiqx(strings.NewReader(romOfDat))
	require.NoError(t, err)

	var games []Game
	for g := range parsed.Games {
		games = append(games, g)
	}
	require.Len(t, games, 3)

	byName := make(map[string]Game, len(games))
	for _, g := range games {
		byName[g.Name] = g
	}

	// cloneof set: a parent-clone relationship, not a BIOS dependency.
	assert.Equal(t, "kof97", byName["kof98"].Parent)
	assert.Equal(t, "", byName["kof98"].Bios)

	// cloneof empty, romof set: a BIOS dependency, not a parent.
	assert.Equal(t, "", byName["kof98h"].Parent)
	assert.Equal(t, "neogeo", byName["kof98h"].Bios)
}

const arcadeDat = `<?xml version="1.0"?>
<datafile>
	<header><name>MAME</name></header>
	<machine name="pacman">
		<rom name="pacman.6e" size="4096" crc="c1e6ab10" />
	</machine>
</datafile>`

func TestParseLogiqxArcadeAutoDetect(t *testing.T) {
	parsed, err := ParseLogiqx(strings.NewReader(arcadeDat))
	require.NoError(t, err)
	assert.True(t, parsed.System.Arcade)

	var games []Game
	for g := range parsed.Games {
		games = append(games, g)
	}
	require.Len(t, games, 1)
	assert.Equal(t, "pacman", games[0].Name)
}

const clrmameproDat = `<?xml version="1.0"?>
<datafile>
	<header><name>MAME</name></header>
	<clrmamepro name="MAME" />
	<game name="pacman">
		<rom name="pacman.6e" size="4096" crc="c1e6ab10" />
	</game>
</datafile>`

func TestParseLogiqxClrmameproArcadeSignature(t *testing.T) {
	parsed, err := ParseLogiqx(strings.NewReader(clrmameproDat))
	require.NoError(t, err)
	assert.True(t, parsed.System.Arcade)

	for range parsed.Games {
	}
}

const clrmameproNonArcadeDat = `<?xml version="1.0"?>
<datafile>
	<header><name>Redump</name></header>
	<clrmamepro name="Redump" />
	<game name="Some Game (USA)">
		<rom name="Some Game (USA).bin" size="4096" crc="c1e6ab10" />
	</game>
</datafile>`

func TestParseLogiqxClrmameproNonArcade(t *testing.T) {
	parsed, err := ParseLogiqx(strings.NewReader(clrmameproNonArcadeDat))
	require.NoError(t, err)
	assert.False(t, parsed.System.Arcade)

	for range parsed.Games {
	}
}

func TestParseLogiqxUnparseableNameSkipped(t *testing.T) {
	badDat := `<datafile><header><name>x</name></header><game name="(Proto)"><rom name="a" size="1" crc="00000000"/></game></datafile>`

	parsed, err := ParseLogiqx(strings.NewReader(badDat))
	require.NoError(t, err)

	var games []Game
	for g := range parsed.Games {
		games = append(games, g)
	}
	assert.Empty(t, games)
	assert.Equal(t, 1, parsed.Summary.GamesSkipped)
}

package catalog

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePatchStacksInOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "Sega - Mega Drive - Genesis"}, false)
	require.NoError(t, err)

	_, err = s.SyncGames(ctx, sys, slices.Values(sampleGames()))
	require.NoError(t, err)

	rom, err := s.RomByName(ctx, "Sonic the Hedgehog (USA).bin")
	require.NoError(t, err)

	_, err = s.CreatePatch(ctx, rom.ID, 0, "Sonic the Hedgehog (USA) [T-Eng].ips", 512)
	require.NoError(t, err)
	_, err = s.CreatePatch(ctx, rom.ID, 1, "Sonic the Hedgehog (USA) [Hack].ips", 256)
	require.NoError(t, err)

	patches, err := s.PatchesOfRom(ctx, rom.ID)
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, 0, patches[0].Idx)
	assert.Equal(t, 1, patches[1].Idx)
}

func TestCreatePatchReplacesSamePosition(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sys, err := s.UpsertSystem(ctx, ParsedSystem{Name: "NES"}, false)
	require.NoError(t, err)

	_, err = s.SyncGames(ctx, sys, slices.Values(sampleGames()))
	require.NoError(t, err)

	rom, err := s.RomByName(ctx, "Sonic the Hedgehog (USA).bin")
	require.NoError(t, err)

	id, err := s.CreatePatch(ctx, rom.ID, 0, "v1.ips", 100)
	require.NoError(t, err)

	id2, err := s.CreatePatch(ctx, rom.ID, 0, "v2.ips", 200)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	patches, err := s.PatchesOfRom(ctx, rom.ID)
	require.NoError(t, err)
	require.Len(t, patches, 1)
}

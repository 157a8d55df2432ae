package match

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/prompt"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(filepath.Join(t.TempDir(), "oxyromon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeSample(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestMatchResolvesUniqueHashHit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := hash.New()

	content := []byte("a test rom payload")
	digest, err := engine.Sum(ctx, bytes.NewReader(content))
	require.NoError(t, err)

	sys, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "Sega - Mega Drive - Genesis"}, false)
	require.NoError(t, err)

	size := int64(len(content))
	game := catalog.ParsedGame{
		Name: "Sample Game (USA)",
		Roms: []catalog.ParsedRom{
			{Name: "Sample Game (USA).bin", Size: &size, CRC32: digest.CRC32Hex(), SHA1: digest.SHA1Hex()},
		},
	}
	_, err = store.SyncGames(ctx, sys, slices.Values([]catalog.ParsedGame{game}))
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeSample(t, dir, "Sample Game (USA).bin", content)

	m := New(store, engine, prompt.Unattended{})
	bindings, residuals, err := m.Match(ctx, []string{path}, Options{})
	require.NoError(t, err)
	assert.Empty(t, residuals)
	require.Len(t, bindings, 1)
	assert.Equal(t, "Sample Game (USA).bin", bindings[0].Rom.Name)
}

func TestMatchNoCandidateIsResidual(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := hash.New()
	m := New(store, engine, prompt.Unattended{})

	dir := t.TempDir()
	path := writeSample(t, dir, "unknown.bin", []byte("nothing matches this"))

	bindings, residuals, err := m.Match(ctx, []string{path}, Options{})
	require.NoError(t, err)
	assert.Empty(t, bindings)
	require.Len(t, residuals, 1)
	assert.ErrorIs(t, residuals[0].Err, ErrNoCandidate)
}

// writeChdFixture writes a minimal CHD v5 header carrying dataSHA1 at the
// fixed offset archive.NewChdSource reads, with no real track payload -
// matching never needs to decompress a CHD, only conversion does.
func writeChdFixture(t *testing.T, dir, name string, dataSHA1 [20]byte) string {
	t.Helper()
	header := make([]byte, 124)
	copy(header[0:8], "MComprHD")
	header[15] = 5 // version, big-endian uint32 at [12:16]
	copy(header[84:104], dataSHA1[:])
	return writeSample(t, dir, name, header)
}

func TestMatchChdUsesDeclaredDigestWithoutStreaming(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := hash.New()

	var dataSHA1 [20]byte
	copy(dataSHA1[:], []byte("01234567890123456789"))
	sha1Hex := "3031323334353637383930313233343536373839"

	sys, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "Arcade", Arcade: true}, false)
	require.NoError(t, err)

	size := int64(12345)
	game := catalog.ParsedGame{
		Name: "pacman",
		Roms: []catalog.ParsedRom{
			{Name: "pacman.chd", Size: &size, SHA1: sha1Hex},
		},
	}
	_, err = store.SyncGames(ctx, sys, slices.Values([]catalog.ParsedGame{game}))
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeChdFixture(t, dir, "pacman.chd", dataSHA1)

	m := New(store, engine, prompt.Unattended{})
	bindings, residuals, err := m.Match(ctx, []string{path}, Options{})
	require.NoError(t, err)
	assert.Empty(t, residuals)
	require.Len(t, bindings, 1)
	assert.Equal(t, "pacman.chd", bindings[0].Rom.Name)
	assert.False(t, bindings[0].Stripped)
}

func TestMatchAmbiguousFallsBackToPromptThenResidual(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := hash.New()

	content := []byte("shared payload across two systems")
	digest, err := engine.Sum(ctx, bytes.NewReader(content))
	require.NoError(t, err)
	size := int64(len(content))

	sysA, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "System A"}, false)
	require.NoError(t, err)
	sysB, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "System B"}, false)
	require.NoError(t, err)

	gameA := catalog.ParsedGame{Name: "Zzz Totally Unrelated Name", Roms: []catalog.ParsedRom{
		{Name: "rom-a.bin", Size: &size, CRC32: digest.CRC32Hex(), SHA1: digest.SHA1Hex()},
	}}
	gameB := catalog.ParsedGame{Name: "Qqq Also Unrelated Name", Roms: []catalog.ParsedRom{
		{Name: "rom-b.bin", Size: &size, CRC32: digest.CRC32Hex(), SHA1: digest.SHA1Hex()},
	}}
	_, err = store.SyncGames(ctx, sysA, slices.Values([]catalog.ParsedGame{gameA}))
	require.NoError(t, err)
	_, err = store.SyncGames(ctx, sysB, slices.Values([]catalog.ParsedGame{gameB}))
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeSample(t, dir, "totally-different-basename.bin", content)

	m := New(store, engine, prompt.Unattended{})
	bindings, residuals, err := m.Match(ctx, []string{path}, Options{})
	require.NoError(t, err)
	assert.Empty(t, bindings)
	require.Len(t, residuals, 1)
	assert.ErrorIs(t, residuals[0].Err, ErrAmbiguous)
}


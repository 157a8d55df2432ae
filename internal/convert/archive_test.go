package convert

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/hash"
)

func newConverter(t *testing.T) *ArchiveConverter {
	t.Helper()
	tmp, err := archive.NewTmpScope(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { tmp.Close() })
	return &ArchiveConverter{Engine: hash.New(), Tmp: tmp}
}

func TestArchiveConverterRawToZip(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "game.rom")
	require.NoError(t, os.WriteFile(raw, []byte("super mario"), 0o644))

	c := newConverter(t)
	job := NewJob(1, raw)

	digests, err := c.Convert(context.Background(), job, FormatZip)
	require.NoError(t, err)
	require.Contains(t, digests, "game.rom")
	assert.Equal(t, StateEncoded, job.State)
	assert.FileExists(t, job.EncodedPath)

	out, err := archive.Open(job.EncodedPath)
	require.NoError(t, err)
	defer out.Close()

	r, err := out.Open("game.rom")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "super mario", string(data))
}

func TestArchiveConverterRawToTorrentZip(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "game.rom")
	require.NoError(t, os.WriteFile(raw, []byte("zelda"), 0o644))

	c := newConverter(t)
	job := NewJob(2, raw)

	digests, err := c.Convert(context.Background(), job, FormatTorrentZip)
	require.NoError(t, err)
	assert.Len(t, digests, 1)
	assert.Equal(t, StateEncoded, job.State)
}

func TestArchiveConverterFailCleansTmp(t *testing.T) {
	c := newConverter(t)
	job := NewJob(3, filepath.Join(t.TempDir(), "does-not-exist.rom"))

	_, err := c.Convert(context.Background(), job, FormatZip)
	assert.Error(t, err)
	assert.Equal(t, StateFailed, job.State)
}

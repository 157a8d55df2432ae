package sorter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

func TestScanOnDiskSkipsTrash(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Trash"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Trash", "old.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Known.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Unknown.zip"), []byte("x"), 0o644))

	entries, err := ScanOnDisk(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Known.zip", "Unknown.zip"}, entries)
}

func TestForeignReportsUnknownFiles(t *testing.T) {
	ctx := context.Background()
	store := newExecTestStore(t)

	sys, err := store.UpsertSystem(ctx, catalog.ParsedSystem{Name: "Test System"}, false)
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Unknown.zip"), []byte("x"), 0o644))

	foreign, err := Foreign(ctx, store, sys, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown.zip"}, foreign)

	require.NoError(t, DeleteForeign(root, foreign))
	_, err = os.Stat(filepath.Join(root, "Unknown.zip"))
	assert.True(t, os.IsNotExist(err))
}

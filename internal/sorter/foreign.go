package sorter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

// ScanOnDisk walks sysDir (SYSTEM_DIR under ROM_DIRECTORY) and returns
// every regular file's path relative to sysDir, POSIX-normalized. The
// Trash subdirectory is skipped entirely: its contents are already
// accounted for per spec.md §3 invariant 6c, not candidates for the
// foreign report. Grounded on
// uwedeportivo-romba/service/diffdat.go's godirwalk.Walk usage.
func ScanOnDisk(sysDir string) ([]string, error) {
	var out []string

	err := godirwalk.Walk(sysDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == sysDir {
				return nil
			}

			rel, err := filepath.Rel(sysDir, path)
			if err != nil {
				return err
			}

			if de.IsDir() {
				if rel == string(BucketTrash) {
					return filepath.SkipDir
				}
				return nil
			}

			out = append(out, normalizePath(rel))
			return nil
		},
		ErrorCallback: func(_ string, err error) godirwalk.ErrorAction {
			if os.IsNotExist(err) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Foreign reports which on-disk paths under sysDir are not known to the
// Catalog Store, per spec.md §4.7 ("files under the System's directory
// not known to C1 are reported"). Each path is looked up as SYSTEM_DIR/path,
// the ROM_DIRECTORY-relative form Romfile paths take, and reported relative
// to sysDir, the form DeleteForeign takes.
func Foreign(ctx context.Context, store *catalog.Store, sys catalog.SystemID, sysDir string) ([]string, error) {
	onDisk, err := ScanOnDisk(sysDir)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(sysDir)
	byPath := make(map[string]string, len(onDisk))
	paths := make([]string, 0, len(onDisk))
	for _, p := range onDisk {
		full := normalizePath(filepath.Join(prefix, p))
		byPath[full] = p
		paths = append(paths, full)
	}
	foreign, err := store.Foreign(ctx, sys, paths)
	if err != nil {
		return nil, err
	}
	for i, p := range foreign {
		foreign[i] = byPath[p]
	}
	return foreign, nil
}

// DeleteForeign implements the `-f foreign` disposal policy: permanently
// removes every reported foreign path from sysDir.
func DeleteForeign(sysDir string, foreign []string) error {
	for _, rel := range foreign {
		if err := os.RemoveAll(filepath.Join(sysDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

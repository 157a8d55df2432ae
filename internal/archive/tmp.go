package archive

import (
	"os"
	"path/filepath"
)

// TmpScope is a per-operation isolated subtree of TMP_DIRECTORY. Every
// top-level command allocates exactly one (spec.md §5); its lifetime is
// scoped to that command and it is removed on every exit path, the same
// "always clean up" idiom the teacher's readers/writers apply to their own
// Close() methods (reader.go, writer.go), just applied to a directory
// instead of a single file.
type TmpScope struct {
	root string
}

// NewTmpScope creates a fresh, empty subdirectory of tmpDir.
func NewTmpScope(tmpDir string) (*TmpScope, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(tmpDir, "oxyromon-*")
	if err != nil {
		return nil, err
	}

	return &TmpScope{root: dir}, nil
}

// Dir returns the scope's root directory.
func (s *TmpScope) Dir() string {
	return s.root
}

// Path joins name onto the scope's root.
func (s *TmpScope) Path(name string) string {
	return filepath.Join(s.root, name)
}

// Close removes the entire scope, regardless of why the caller is exiting.
func (s *TmpScope) Close() error {
	return os.RemoveAll(s.root)
}

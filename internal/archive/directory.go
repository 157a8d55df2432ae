package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/plumbing"
	"github.com/karrick/godirwalk"
)

// DirectorySource reads a directory tree and exposes every regular file
// inside it with logical names relative to the directory root. This is the
// spec.md §4.4 "JB folder" container used for PS3 IRD matching, and
// generalizes github.com/bodgit/rom's DirectoryReader (which only looked at
// the immediate directory) into a full recursive walk via
// github.com/karrick/godirwalk, grounded on
// uwedeportivo-romba/worker/worker.go's directory-walk usage.
type DirectorySource struct {
	directory string
	files     map[string]int64
	rx        plumbing.WriteCounter
}

// NewDirectorySource returns a DirectorySource for directory.
func NewDirectorySource(directory string) (*DirectorySource, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	s := &DirectorySource{
		directory: directory,
		files:     make(map[string]int64),
	}

	err = godirwalk.Walk(directory, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(directory, path)
			if err != nil {
				return err
			}
			if strings.HasPrefix(filepath.Base(rel), ".") {
				return nil
			}
			info, err := os.Lstat(path)
			if err != nil {
				return err
			}
			s.files[filepath.ToSlash(rel)] = info.Size()
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *DirectorySource) Name() string { return s.directory }

func (s *DirectorySource) Files() []Entry {
	out := make([]Entry, 0, len(s.files))
	for name, size := range s.files {
		out = append(out, Entry{Name: name, Size: size})
	}
	return out
}

func (s *DirectorySource) Open(name string) (io.ReadCloser, error) {
	if _, ok := s.files[name]; !ok {
		return nil, ErrFileNotFound
	}
	f, err := os.Open(filepath.Join(s.directory, filepath.FromSlash(name)))
	if err != nil {
		return nil, err
	}
	return plumbing.TeeReadCloser(f, &s.rx), nil
}

func (s *DirectorySource) Peek(name string, n int) ([]byte, error) {
	r, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, n)
	m, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:m], nil
}

func (s *DirectorySource) Rx() uint64 { return s.rx.Count() }
func (s *DirectorySource) Close() error {
	return nil
}

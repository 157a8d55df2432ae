package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/plumbing"
)

// FileSource reads a single regular file and presents it as a one-member
// container, generalized from github.com/bodgit/rom's FileReader.
type FileSource struct {
	directory string
	filename  string
	size      int64
	rx        plumbing.WriteCounter
}

// NewFileSource returns a FileSource for filename.
func NewFileSource(filename string) (*FileSource, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFile
	}

	return &FileSource{
		directory: filepath.Dir(filename),
		filename:  filepath.Base(filename),
		size:      info.Size(),
	}, nil
}

func (s *FileSource) Name() string { return filepath.Join(s.directory, s.filename) }

func (s *FileSource) Files() []Entry {
	return []Entry{{Name: s.filename, Size: s.size}}
}

func (s *FileSource) Open(name string) (io.ReadCloser, error) {
	if name != s.filename {
		return nil, ErrFileNotFound
	}
	f, err := os.Open(filepath.Join(s.directory, name))
	if err != nil {
		return nil, err
	}
	return plumbing.TeeReadCloser(f, &s.rx), nil
}

func (s *FileSource) Peek(name string, n int) ([]byte, error) {
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

func (s *FileSource) Rx() uint64 { return s.rx.Count() }
func (s *FileSource) Close() error {
	return nil
}

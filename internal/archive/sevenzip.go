package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/plumbing"
	"github.com/bodgit/sevenzip"
)

// SevenZipSource reads a 7Z archive, generalized from
// github.com/bodgit/rom's SevenZipReader.
type SevenZipSource struct {
	file    *os.File
	reader  *sevenzip.Reader
	entries map[string]*sevenzip.File
	rx      plumbing.WriteCounter
}

// NewSevenZipSource returns a SevenZipSource for filename.
func NewSevenZipSource(filename string) (s *SevenZipSource, err error) {
	s = &SevenZipSource{entries: make(map[string]*sevenzip.File)}

	s.file, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.file.Close()
		}
	}()

	info, err := s.file.Stat()
	if err != nil {
		return nil, err
	}

	s.reader, err = sevenzip.NewReader(plumbing.TeeReaderAt(s.file, &s.rx), info.Size())
	if err != nil {
		return nil, err
	}

	for _, f := range s.reader.File {
		if !f.Mode().IsRegular() || strings.HasPrefix(filepath.Base(f.Name), ".") || filepath.Dir(f.Name) != "." {
			continue
		}
		s.entries[f.Name] = f
	}

	return s, nil
}

func (s *SevenZipSource) Name() string { return s.file.Name() }

func (s *SevenZipSource) Files() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for name, f := range s.entries {
		crc := f.CRC32
		out = append(out, Entry{Name: name, Size: int64(f.UncompressedSize), TrustedCRC32: &crc})
	}
	return out
}

func (s *SevenZipSource) Open(name string) (io.ReadCloser, error) {
	f, ok := s.entries[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return f.Open()
}

func (s *SevenZipSource) Peek(name string, n int) ([]byte, error) {
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

func (s *SevenZipSource) Rx() uint64   { return s.rx.Count() }
func (s *SevenZipSource) Close() error { return s.file.Close() }

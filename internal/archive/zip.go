package archive

import (
	"archive/zip"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/plumbing"
)

// ZipSource reads a ZIP archive, generalized from github.com/bodgit/rom's
// ZipReader. Unlike the teacher, member names containing '=' are explicitly
// accepted (spec.md §4.4/§8 boundary case) - no filtering by name content is
// performed at all, only by mode/hidden/nesting.
type ZipSource struct {
	file    *os.File
	reader  *zip.Reader
	entries map[string]*zip.File
	rx      plumbing.WriteCounter
}

// NewZipSource returns a ZipSource for filename.
func NewZipSource(filename string) (s *ZipSource, err error) {
	s = &ZipSource{entries: make(map[string]*zip.File)}

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

	s.reader, err = zip.NewReader(plumbing.TeeReaderAt(s.file, &s.rx), info.Size())
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

func (s *ZipSource) Name() string { return s.file.Name() }

func (s *ZipSource) Files() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for name, f := range s.entries {
		crc := f.CRC32
		out = append(out, Entry{Name: name, Size: int64(f.UncompressedSize64), TrustedCRC32: &crc})
	}
	return out
}

func (s *ZipSource) Open(name string) (io.ReadCloser, error) {
	f, ok := s.entries[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return f.Open()
}

func (s *ZipSource) Peek(name string, n int) ([]byte, error) {
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

func (s *ZipSource) Rx() uint64   { return s.rx.Count() }
func (s *ZipSource) Close() error { return s.file.Close() }

const (
	torrentZipCommentPrefix        = "TORRENTZIPPED-"
	torrentZipLocalHeaderLength    = 30
	torrentZipCentralHeaderLength  = 46
)

// TorrentZipSource is a ZipSource that additionally validates the TorrentZip
// comment checksum, generalized from github.com/bodgit/rom's
// TorrentZipReader.
type TorrentZipSource struct {
	*ZipSource
	valid bool
}

// NewTorrentZipSource returns a TorrentZipSource for filename, or
// ErrNotTorrentZip if it is a plain ZIP without the TorrentZip comment.
func NewTorrentZipSource(filename string) (s *TorrentZipSource, err error) {
	s = new(TorrentZipSource)

	s.ZipSource, err = NewZipSource(filename)
	if err != nil {
		return nil, err
	}

	reader := s.ZipSource.reader
	if !strings.HasPrefix(reader.Comment, torrentZipCommentPrefix) {
		return nil, ErrNotTorrentZip
	}

	var startCentralDir, endCentralDir int64
	for _, f := range reader.File {
		startCentralDir += int64(torrentZipLocalHeaderLength + len(f.Name) + int(f.CompressedSize64))
		endCentralDir += int64(torrentZipCentralHeaderLength + len(f.Name))
	}

	h := crc32.NewIEEE()
	sr := io.NewSectionReader(plumbing.TeeReaderAt(s.ZipSource.file, &s.ZipSource.rx), startCentralDir, endCentralDir)
	if _, err := io.Copy(h, sr); err != nil {
		return nil, err
	}

	s.valid = strings.TrimPrefix(reader.Comment, torrentZipCommentPrefix) == fmt.Sprintf("%X", h.Sum(nil))

	return s, nil
}

// Valid reports whether the archive comment's checksum matches the central
// directory.
func (s *TorrentZipSource) Valid() bool { return s.valid }

// Package archive implements the uniform container adapter (spec.md C4):
// raw files, directories, ZIP/TorrentZip/7Z archives, RAR archives, CHD
// virtual entries and delegated CSO/ZSO/RVZ/NSZ/CIA streams are all exposed
// through one ContentSource interface.
//
// It generalizes github.com/bodgit/rom's Reader interface (reader.go):
// Checksum is dropped from the interface because hashing policy (header
// stripping, multi-algorithm fan-out) now belongs to internal/hash, keeping
// C4 "pure" the way spec.md §4.5 requires of the Matcher that consumes it.
package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotFile       = errors.New("archive: not a file")
	ErrNotDirectory  = errors.New("archive: not a directory")
	ErrFileNotFound  = errors.New("archive: file not found")
	ErrNotTorrentZip = errors.New("archive: not a torrent zip")
	ErrUnsupported   = errors.New("archive: unsupported container")
)

// Entry describes one logical member of a ContentSource.
type Entry struct {
	Name string
	// Size is the declared uncompressed size, when known. -1 when the
	// container cannot report it without reading the whole stream (for
	// example a CHD track whose size is only known from its metadata
	// chunk).
	Size int64
	// TrustedCRC32, when non-nil, is the CRC recorded in a trustworthy
	// central directory (ZIP/7Z) rather than computed by streaming.
	TrustedCRC32 *uint32
}

// ContentSource is the uniform interface every container implementation
// satisfies.
type ContentSource interface {
	// Name is the path to the underlying container on disk.
	Name() string
	// Files lists every logical entry accessible through Open.
	Files() []Entry
	// Open returns a stream for the named entry.
	Open(name string) (io.ReadCloser, error)
	// Peek returns up to n bytes from the start of the named entry
	// without consuming a full Open/Close cycle, used by C3's
	// header-rule probe window.
	Peek(name string, n int) ([]byte, error)
	// Rx is the number of bytes actually read from the underlying
	// container so far.
	Rx() uint64
	// Close releases any held file descriptors.
	Close() error
}

// Validator is optionally implemented by containers that can assert their
// own internal integrity (TorrentZip's comment checksum).
type Validator interface {
	Valid() bool
}

// Open uses magic-number sniffing, falling back to extension, to pick the
// right ContentSource implementation for path - the same dispatch
// github.com/bodgit/rom's NewReader performs in reader.go, extended with
// RAR, CHD and the delegated lossy-container formats.
func Open(path string) (ContentSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return NewDirectorySource(path)
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}

	switch mime.Extension() {
	case ".7z":
		return NewSevenZipSource(path)
	case ".zip":
		r, err := NewTorrentZipSource(path)
		if err != nil && !errors.Is(err, ErrNotTorrentZip) {
			return nil, err
		}
		if err == nil {
			return r, nil
		}
		return NewZipSource(path)
	case ".rar":
		return NewRarSource(path)
	}

	switch filepath.Ext(path) {
	case ".chd":
		return NewChdSource(path)
	case ".cso", ".zso", ".rvz", ".nsz", ".cia":
		return NewDelegatedSource(path)
	}

	return NewFileSource(path)
}

func baseOnly(name string) bool {
	return name == filepath.Base(name)
}

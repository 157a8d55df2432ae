package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/plumbing"
	"github.com/uwedeportivo/torrentzip"
)

// ErrDirectoryNotSupported is returned when a Writer implementation that can
// only ever hold one member is asked to create a differently-named one.
var ErrDirectoryNotSupported = errors.New("archive: directories not supported")

// Writer is the output-side counterpart of ContentSource, generalized from
// github.com/bodgit/rom's Writer interface (writer.go).
type Writer interface {
	Create(name string) (io.WriteCloser, error)
	Name() string
	Tx() uint64
	Close() error
}

// FileWriter writes a single regular file.
type FileWriter struct {
	filename string
	tx       plumbing.WriteCounter
}

// NewFileWriter returns a FileWriter for filename, removing anything already
// at that path.
func NewFileWriter(filename string) (*FileWriter, error) {
	if err := os.RemoveAll(filename); err != nil {
		return nil, err
	}
	return &FileWriter{filename: filename}, nil
}

func (w *FileWriter) Name() string { return w.filename }
func (w *FileWriter) Tx() uint64   { return w.tx.Count() }
func (w *FileWriter) Close() error { return nil }

func (w *FileWriter) Create(name string) (io.WriteCloser, error) {
	if name != filepath.Base(w.filename) {
		return nil, ErrDirectoryNotSupported
	}
	f, err := os.Create(w.filename)
	if err != nil {
		return nil, err
	}
	return plumbing.MultiWriteCloser(f, plumbing.NopWriteCloser(&w.tx)), nil
}

// DirectoryWriter creates new files inside a (freshly emptied) directory.
type DirectoryWriter struct {
	directory string
	tx        plumbing.WriteCounter
}

// NewDirectoryWriter returns a DirectoryWriter for directory, clearing any
// existing contents.
func NewDirectoryWriter(directory string) (*DirectoryWriter, error) {
	if err := os.MkdirAll(directory, os.ModePerm); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(directory, e.Name())); err != nil {
			return nil, err
		}
	}

	return &DirectoryWriter{directory: directory}, nil
}

func (w *DirectoryWriter) Name() string { return w.directory }
func (w *DirectoryWriter) Tx() uint64   { return w.tx.Count() }
func (w *DirectoryWriter) Close() error { return nil }

func (w *DirectoryWriter) Create(name string) (io.WriteCloser, error) {
	if name != filepath.Base(name) {
		return nil, ErrDirectoryNotSupported
	}
	f, err := os.Create(filepath.Join(w.directory, name))
	if err != nil {
		return nil, err
	}
	return plumbing.MultiWriteCloser(f, plumbing.NopWriteCloser(&w.tx)), nil
}

// ZipWriter creates a plain (non-TorrentZip) ZIP archive.
type ZipWriter struct {
	file   *os.File
	writer *zip.Writer
	tx     plumbing.WriteCounter
}

// NewZipWriter returns a ZipWriter for filename.
func NewZipWriter(filename string) (*ZipWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := &ZipWriter{file: f}
	w.writer = zip.NewWriter(io.MultiWriter(f, &w.tx))
	return w, nil
}

func (w *ZipWriter) Name() string { return w.file.Name() }
func (w *ZipWriter) Tx() uint64   { return w.tx.Count() }

func (w *ZipWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *ZipWriter) Create(name string) (io.WriteCloser, error) {
	if name != filepath.Base(name) {
		return nil, ErrDirectoryNotSupported
	}
	wr, err := w.writer.Create(name)
	if err != nil {
		return nil, err
	}
	return plumbing.NopWriteCloser(wr), nil
}

// TorrentZipWriter creates a deterministic TorrentZip archive, used by C8
// for raw<->ZIP conversions and by the arcade Rebuilder.
type TorrentZipWriter struct {
	file   *os.File
	writer *torrentzip.Writer
	tx     plumbing.WriteCounter
}

// NewTorrentZipWriter returns a TorrentZipWriter for filename.
func NewTorrentZipWriter(filename string) (*TorrentZipWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := &TorrentZipWriter{file: f}
	w.writer, err = torrentzip.NewWriterWithTemp(io.MultiWriter(f, &w.tx), filepath.Dir(filename))
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *TorrentZipWriter) Name() string { return w.file.Name() }
func (w *TorrentZipWriter) Tx() uint64   { return w.tx.Count() }

func (w *TorrentZipWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *TorrentZipWriter) Create(name string) (io.WriteCloser, error) {
	wr, err := w.writer.Create(name)
	if err != nil {
		return nil, err
	}
	return plumbing.NopWriteCloser(wr), nil
}

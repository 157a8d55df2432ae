package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/plumbing"
)

// Decompressor turns a container C4 cannot read natively (CSO/ZSO/RVZ/NSZ/
// CIA) into a raw file under dstDir. DelegatedSource depends on this narrow
// interface instead of importing internal/tool directly, so C4 has no
// compile-time dependency on C9; the caller injects the implementation via
// Configure. internal/tool's Adapter does not implement it.
type Decompressor interface {
	Decompress(ctx context.Context, src, dstDir string) (dst string, err error)
}

// DelegatedSource represents a CSO/ZSO/RVZ/NSZ/CIA file whose single member
// is produced by decompressing the whole container into a scratch
// directory via a Decompressor the first time it is opened.
type DelegatedSource struct {
	filename string
	scope    *TmpScope
	dec      Decompressor
	extract  string // populated once Open has run
	rx       plumbing.WriteCounter
}

// NewDelegatedSource returns a DelegatedSource for filename. Extraction does
// not happen until Open (or Peek) is called.
func NewDelegatedSource(filename string) (*DelegatedSource, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}
	return &DelegatedSource{filename: filename}, nil
}

// Configure wires the scratch scope and decompressor a DelegatedSource needs
// before it can be opened; callers that only need Name()/Files() (e.g. a
// dry-run plan) can skip this.
func (s *DelegatedSource) Configure(scope *TmpScope, dec Decompressor) {
	s.scope = scope
	s.dec = dec
}

func (s *DelegatedSource) Name() string { return s.filename }

func (s *DelegatedSource) Files() []Entry {
	return []Entry{{Name: filepath.Base(s.filename), Size: -1}}
}

func (s *DelegatedSource) Open(name string) (io.ReadCloser, error) {
	if name != filepath.Base(s.filename) {
		return nil, ErrFileNotFound
	}

	if s.extract == "" {
		if s.scope == nil || s.dec == nil {
			return nil, errors.New("archive: delegated source not configured with a decompressor")
		}
		dst, err := s.dec.Decompress(context.Background(), s.filename, s.scope.Dir())
		if err != nil {
			return nil, err
		}
		s.extract = dst
	}

	f, err := os.Open(s.extract)
	if err != nil {
		return nil, err
	}
	return plumbing.TeeReadCloser(f, &s.rx), nil
}

func (s *DelegatedSource) Peek(name string, n int) ([]byte, error) {
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

func (s *DelegatedSource) Rx() uint64   { return s.rx.Count() }
func (s *DelegatedSource) Close() error { return nil }

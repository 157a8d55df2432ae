package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/tool"
)

// Format is one member of the {raw, 7Z, ZIP, TorrentZip} equivalence class
// spec.md §4.8 names for the Converter/Exporter's in-process path. CHD and
// the delegated lossy formats are not Formats: they always go through
// internal/tool (disc.go).
type Format string

const (
	FormatRaw        Format = "raw"
	FormatSevenZip   Format = "7z"
	FormatZip        Format = "zip"
	FormatTorrentZip Format = "torrentzip"
)

func extensionFor(f Format) string {
	switch f {
	case FormatSevenZip:
		return ".7z"
	case FormatZip, FormatTorrentZip:
		return ".zip"
	default:
		return ""
	}
}

// ArchiveConverter implements the {raw ↔ 7Z/ZIP} leg of the Converter
// directly, reusing C4's ContentSource for reading and C4's Writer
// implementations (or, for 7Z, the external tool) for writing - the
// teacher's reader.go/writer.go pair, now one pipeline stage instead of
// the whole program.
type ArchiveConverter struct {
	Engine *hash.Engine
	Tmp    *archive.TmpScope
	// SevenZip is the external tool used to write 7Z, since C4's 7Z
	// reader (bodgit/sevenzip) has no writer counterpart.
	SevenZip tool.Adapter
}

// Convert reads every entry of job's source container and re-encodes it
// into a freshly created container in format, staged inside the
// ArchiveConverter's TmpScope. It returns the digest computed for each
// entry name, for the caller to reconcile against the catalog - the same
// digests a plain read of the final published file would produce, since
// container re-encoding never touches member content.
func (c *ArchiveConverter) Convert(ctx context.Context, job *Job, format Format) (map[string]hash.Digest, error) {
	if err := job.transitionTo(StateStaged); err != nil {
		return nil, err
	}

	src, err := archive.Open(job.SourcePath)
	if err != nil {
		return nil, job.Fail(err)
	}
	defer src.Close()
	job.StagedPath = job.SourcePath

	staged := c.Tmp.Path(fmt.Sprintf("job-%d%s", job.Rom, extensionFor(format)))
	job.stage(staged)

	if format == FormatSevenZip {
		digests, err := c.convertToSevenZip(ctx, src, staged)
		if err != nil {
			return nil, job.Fail(err)
		}
		job.EncodedPath = staged
		if err := job.transitionTo(StateEncoded); err != nil {
			return nil, job.Fail(err)
		}
		return digests, nil
	}

	w, err := newContainerWriter(staged, format)
	if err != nil {
		return nil, job.Fail(err)
	}

	digests, err := c.stream(ctx, src, w)
	if err != nil {
		w.Close()
		return nil, job.Fail(err)
	}
	if err := w.Close(); err != nil {
		return nil, job.Fail(err)
	}

	job.EncodedPath = staged
	if err := job.transitionTo(StateEncoded); err != nil {
		return nil, job.Fail(err)
	}

	return digests, nil
}

func (c *ArchiveConverter) stream(ctx context.Context, src archive.ContentSource, w archive.Writer) (map[string]hash.Digest, error) {
	digests := make(map[string]hash.Digest, len(src.Files()))

	for _, entry := range src.Files() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		d, err := c.copyEntry(ctx, src, w, entry.Name)
		if err != nil {
			return nil, err
		}
		digests[entry.Name] = d
	}

	return digests, nil
}

// copyEntry streams one entry straight from src to w, hashing the same
// bytes as they pass through - a single read loop drives both the digest
// and the write, so no intermediate buffer holds a whole entry in memory.
func (c *ArchiveConverter) copyEntry(ctx context.Context, src archive.ContentSource, w archive.Writer, name string) (hash.Digest, error) {
	r, err := src.Open(name)
	if err != nil {
		return hash.Digest{}, err
	}
	defer r.Close()

	out, err := w.Create(name)
	if err != nil {
		return hash.Digest{}, err
	}
	defer out.Close()

	d, err := c.Engine.Sum(ctx, io.TeeReader(r, out))
	if err != nil {
		return hash.Digest{}, err
	}
	return d, nil
}

// convertToSevenZip stages every entry of src into a scratch directory,
// then shells out to the 7z adapter to pack it, since C4 has no 7Z writer.
func (c *ArchiveConverter) convertToSevenZip(ctx context.Context, src archive.ContentSource, dest string) (map[string]hash.Digest, error) {
	scratch := c.Tmp.Path(fmt.Sprintf("stage-%s", filepath.Base(dest)))
	dw, err := archive.NewDirectoryWriter(scratch)
	if err != nil {
		return nil, err
	}

	digests, err := c.stream(ctx, src, dw)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, err
	}
	args := []string{"a", "-mx=9", dest}
	for _, e := range entries {
		args = append(args, filepath.Join(scratch, e.Name()))
	}

	result, err := c.SevenZip.Run(ctx, args, nil)
	if err != nil {
		return nil, err
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("convert: 7z: exit %d: %s", result.Code, result.Stderr)
	}

	return digests, nil
}

func newContainerWriter(path string, format Format) (archive.Writer, error) {
	switch format {
	case FormatRaw:
		return archive.NewFileWriter(path)
	case FormatZip:
		return archive.NewZipWriter(path)
	case FormatTorrentZip:
		return archive.NewTorrentZipWriter(path)
	default:
		return nil, fmt.Errorf("convert: unsupported archive format %q", format)
	}
}

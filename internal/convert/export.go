package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/tool"
)

// LossyFormat is one of the out-of-tree-only formats spec.md §4.8 names
// for the Exporter: "Supports lossy outputs (WBFS, NSZ, ISO via bchunk)."
type LossyFormat string

const (
	LossyWBFS LossyFormat = "wbfs"
	LossyNSZ  LossyFormat = "nsz"
	LossyISO  LossyFormat = "iso"
)

// Exporter is like the Converter but always writes to an out-of-tree
// target directory and never touches the original Romfile: it runs the
// same Stage->Encode->Publish legs, but stops at Published since there is
// no catalog row for a file outside ROM_DIRECTORY to Reconcile onto.
type Exporter struct {
	Engine *hash.Engine
	Tmp    *archive.TmpScope
	Bchunk tool.Adapter
	NSZ    tool.Adapter
	Wit    tool.Adapter
}

// ExportArchive re-encodes job's source container into format inside
// destDir, reusing ArchiveConverter's in-process path (raw/ZIP/7Z), then
// publishes straight to the export target instead of ROM_DIRECTORY.
func (e *Exporter) ExportArchive(ctx context.Context, ac *ArchiveConverter, job *Job, format Format, destDir, name string) error {
	if _, err := ac.Convert(ctx, job, format); err != nil {
		return err
	}
	target := filepath.Join(destDir, name+extensionFor(format))
	return Publish(job, target)
}

// ExportLossy shells out to the adapter matching format and publishes the
// result under destDir, leaving the source Romfile untouched.
func (e *Exporter) ExportLossy(ctx context.Context, job *Job, format LossyFormat, destDir, name string) error {
	if err := job.transitionTo(StateStaged); err != nil {
		return err
	}
	job.StagedPath = job.SourcePath

	staged := e.Tmp.Path(fmt.Sprintf("export-%d%s", job.Rom, lossyExtension(format)))
	job.stage(staged)

	adapter, args, err := e.commandFor(format, job.StagedPath, staged)
	if err != nil {
		return job.Fail(err)
	}

	result, err := adapter.Run(ctx, args, nil)
	if err != nil {
		return job.Fail(err)
	}
	if result.Code != 0 {
		return job.Fail(fmt.Errorf("convert: export: exit %d: %s", result.Code, result.Stderr))
	}
	if _, err := os.Stat(staged); err != nil {
		return job.Fail(err)
	}

	job.EncodedPath = staged
	if err := job.transitionTo(StateEncoded); err != nil {
		return job.Fail(err)
	}

	target := filepath.Join(destDir, name+lossyExtension(format))
	return Publish(job, target)
}

func (e *Exporter) commandFor(format LossyFormat, src, dst string) (tool.Adapter, []string, error) {
	switch format {
	case LossyWBFS:
		return e.Wit, []string{"copy", src, "--dest", dst, "--wbfs"}, nil
	case LossyNSZ:
		return e.NSZ, []string{"-o", filepath.Dir(dst), src}, nil
	case LossyISO:
		return e.Bchunk, []string{src, dst}, nil
	default:
		return tool.Adapter{}, nil, fmt.Errorf("convert: unsupported export format %q", format)
	}
}

func lossyExtension(f LossyFormat) string {
	switch f {
	case LossyWBFS:
		return ".wbfs"
	case LossyNSZ:
		return ".nsz"
	case LossyISO:
		return ".iso"
	default:
		return ""
	}
}

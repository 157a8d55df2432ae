package convert

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
)

// ErrVerifyMismatch is returned by Verify when the published file's digest
// no longer matches what Convert computed, per spec.md §4.8's optional
// `-c` verification.
var ErrVerifyMismatch = errors.New("convert: verify mismatch")

// Publish moves job's encoded tmp file to target (an absolute path),
// falling back to copy+delete across filesystem boundaries, for the
// Converter/Exporter's tmp->final leg. internal/sorter's Executor uses the
// same rename-or-copy fallback for the Mover but compares digests before
// deleting the source; Publish does not.
func Publish(job *Job, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return job.Fail(err)
	}

	if err := os.Rename(job.EncodedPath, target); err != nil {
		if !isCrossDevice(err) {
			return job.Fail(err)
		}
		if err := copyFile(job.EncodedPath, target); err != nil {
			return job.Fail(err)
		}
		if err := os.Remove(job.EncodedPath); err != nil {
			return job.Fail(err)
		}
	}

	job.TargetPath = target
	if err := job.transitionTo(StatePublished); err != nil {
		return job.Fail(err)
	}
	return nil
}

// Verify re-digests job's still-staged EncodedPath and compares it against
// want, the digest Convert/Encode reported earlier, per spec.md §4.8's
// optional `-c` flag. Core never trusts an external tool's output without
// an independent C3 recheck.
func Verify(ctx context.Context, engine *hash.Engine, job *Job, want hash.Digest) error {
	f, err := os.Open(job.EncodedPath)
	if err != nil {
		return job.Fail(err)
	}
	defer f.Close()

	got, err := engine.Sum(ctx, f)
	if err != nil {
		return job.Fail(err)
	}

	if got.SHA1Hex() != want.SHA1Hex() || got.Size != want.Size {
		return job.Fail(ErrVerifyMismatch)
	}

	return job.transitionTo(StateVerified)
}

// Reconcile attaches job's published file to its Rom in the catalog and
// moves the job to Reconciled, the terminal state spec.md §4.8 requires
// before a Failed rollback is no longer possible.
func Reconcile(ctx context.Context, store *catalog.Store, job *Job, relPath string) error {
	info, err := os.Stat(job.TargetPath)
	if err != nil {
		return job.Fail(err)
	}

	if _, err := store.AttachRomfile(ctx, job.Rom, relPath, info.Size()); err != nil {
		return job.Fail(err)
	}

	return job.transitionTo(StateReconciled)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dst)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return false
}

package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/tool"
)

// DiscFormat is one member of the {CUE/BIN, CHD, ISO, CSO, RVZ, ZSO}
// equivalence classes spec.md §4.8 delegates entirely to C9 adapters.
type DiscFormat string

const (
	DiscFormatCueBin DiscFormat = "cuebin"
	DiscFormatChd    DiscFormat = "chd"
	DiscFormatIso    DiscFormat = "iso"
	DiscFormatCso    DiscFormat = "cso"
	DiscFormatRvz    DiscFormat = "rvz"
	DiscFormatZso    DiscFormat = "zso"
)

// DiscConverter drives chdman/maxcso/dolphin-tool to move a disc image
// between formats; commandFor maps no pair onto Wit. It never embeds format-specific knowledge of its own:
// every byte it reports a digest for passed through the external tool and
// back through C3, per spec.md §4.9 ("core never embeds format-specific
// knowledge it can't independently verify").
type DiscConverter struct {
	Engine      *hash.Engine
	Tmp         *archive.TmpScope
	Chdman      tool.Adapter
	MaxCSO      tool.Adapter
	DolphinTool tool.Adapter
	Wit         tool.Adapter
}

// Convert stages job's source, runs the adapter matching the from->to
// pair, and digests the result, leaving job in Encoded.
func (c *DiscConverter) Convert(ctx context.Context, job *Job, from, to DiscFormat) (hash.Digest, error) {
	if err := job.transitionTo(StateStaged); err != nil {
		return hash.Digest{}, err
	}
	job.StagedPath = job.SourcePath

	staged := c.Tmp.Path(fmt.Sprintf("job-%d%s", job.Rom, discExtension(to)))
	job.stage(staged)

	adapter, args, err := c.commandFor(from, to, job.StagedPath, staged)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}

	result, err := adapter.Run(ctx, args, nil)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}
	if result.Code != 0 {
		return hash.Digest{}, job.Fail(fmt.Errorf("convert: %s: exit %d: %s", adapter.Names, result.Code, result.Stderr))
	}

	f, err := os.Open(staged)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}
	defer f.Close()

	d, err := c.Engine.Sum(ctx, f)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}

	job.EncodedPath = staged
	if err := job.transitionTo(StateEncoded); err != nil {
		return hash.Digest{}, job.Fail(err)
	}

	return d, nil
}

// LinkChdParent compresses childSrc as a CHD delta against parentChd - the
// CHD_PARENTS behavior of spec.md §4.8 ("additional discs are compressed
// with the first disc as parent"). The parent-child link itself is not
// recorded in the catalog; Reconcile only attaches the resulting Romfile.
func (c *DiscConverter) LinkChdParent(ctx context.Context, job *Job, childSrc, parentChd string) (hash.Digest, error) {
	if err := job.transitionTo(StateStaged); err != nil {
		return hash.Digest{}, err
	}
	job.StagedPath = childSrc

	staged := c.Tmp.Path(fmt.Sprintf("job-%d.chd", job.Rom))
	job.stage(staged)

	args := []string{"createcd", "-i", childSrc, "-o", staged, "-op", parentChd}
	result, err := c.Chdman.Run(ctx, args, nil)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}
	if result.Code != 0 {
		return hash.Digest{}, job.Fail(fmt.Errorf("convert: chdman: exit %d: %s", result.Code, result.Stderr))
	}

	f, err := os.Open(staged)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}
	defer f.Close()

	d, err := c.Engine.Sum(ctx, f)
	if err != nil {
		return hash.Digest{}, job.Fail(err)
	}

	job.EncodedPath = staged
	if err := job.transitionTo(StateEncoded); err != nil {
		return hash.Digest{}, job.Fail(err)
	}

	return d, nil
}

func (c *DiscConverter) commandFor(from, to DiscFormat, src, dst string) (tool.Adapter, []string, error) {
	switch {
	case (from == DiscFormatCueBin || from == DiscFormatIso) && to == DiscFormatChd:
		return c.Chdman, []string{"createcd", "-i", src, "-o", dst}, nil
	case from == DiscFormatChd && (to == DiscFormatCueBin || to == DiscFormatIso):
		return c.Chdman, []string{"extractcd", "-i", src, "-o", dst}, nil
	case from == DiscFormatIso && to == DiscFormatCso:
		return c.MaxCSO, []string{"-o", dst, src}, nil
	case from == DiscFormatCso && to == DiscFormatIso:
		return c.MaxCSO, []string{"--decompress", "-o", dst, src}, nil
	case from == DiscFormatIso && to == DiscFormatRvz:
		return c.DolphinTool, []string{"convert", "-f", "rvz", "-b", "131072", "-c", "zstd", "-i", src, "-o", dst}, nil
	case from == DiscFormatRvz && to == DiscFormatIso:
		return c.DolphinTool, []string{"convert", "-f", "iso", "-i", src, "-o", dst}, nil
	default:
		return tool.Adapter{}, nil, fmt.Errorf("convert: unsupported disc conversion %s -> %s", from, to)
	}
}

func discExtension(f DiscFormat) string {
	switch f {
	case DiscFormatChd:
		return ".chd"
	case DiscFormatIso:
		return ".iso"
	case DiscFormatCso:
		return ".cso"
	case DiscFormatRvz:
		return ".rvz"
	case DiscFormatZso:
		return ".zso"
	default:
		return ".bin"
	}
}

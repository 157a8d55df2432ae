// Package tool implements the External Tool Adapter (spec.md C9): a thin,
// uniform wrapper over os/exec for the external binaries the Converter,
// Rebuilder and Exporter shell out to (7z, chdman, maxcso, ...).
//
// stdlib justification: the only subprocess-supervision code anywhere in
// the example pack is uwedeportivo-romba/service/commander.go, a 2013
// ad-hoc CLI flag-splitting shell (github.com/uwedeportivo/commander) with
// no cancellation support. spec.md §5 requires cooperative cancellation to
// propagate into subprocess calls; stdlib's exec.CommandContext gives that
// for free, so stdlib is the better-grounded choice here, not a gap.
package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"github.com/hashicorp/errwrap"
)

// ErrNotInstalled is returned by Probe when no usable binary is found on
// any of the discovery paths.
var ErrNotInstalled = errors.New("tool: not installed")

// ToolInfo is what Probe reports for an installed tool.
type ToolInfo struct {
	Path    string
	Version string
}

// Result is one Run's outcome.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Adapter wraps one external tool: its candidate binary names (in mac
// fallback order, spec.md §4.9: "7zz then 7z"), an explicit configured
// path (takes priority over ${PATH} lookup) and a way to parse --version
// output into a ToolInfo.
type Adapter struct {
	// Names is tried in order against ${PATH} when Path is empty.
	Names []string
	// Path, when set, is used verbatim instead of searching ${PATH}.
	Path string
	// VersionArgs are passed to the resolved binary to obtain ToolInfo's
	// Version; empty skips version detection.
	VersionArgs []string
}

// Probe resolves the adapter's binary and reports its version, or
// ErrNotInstalled if none of the candidate names exist.
func (a Adapter) Probe(ctx context.Context) (ToolInfo, error) {
	path, err := a.resolve()
	if err != nil {
		return ToolInfo{}, err
	}

	info := ToolInfo{Path: path}
	if len(a.VersionArgs) == 0 {
		return info, nil
	}

	out, err := exec.CommandContext(ctx, path, a.VersionArgs...).Output()
	if err == nil {
		info.Version = strings.TrimSpace(string(out))
	}
	return info, nil
}

// Run executes the resolved binary with args, returning its exit code and
// captured output. A non-zero exit code is not itself an error: Run only
// returns an error when the process could not be started or was canceled,
// leaving the caller to interpret Result.Code.
func (a Adapter) Run(ctx context.Context, args []string, stdin []byte) (Result, error) {
	path, err := a.resolve()
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		result.Code = 0
	case errors.As(runErr, &exitErr):
		result.Code = exitErr.ExitCode()
	default:
		return result, errwrap.Wrapf("tool: run {{err}}", runErr)
	}

	return result, nil
}

func (a Adapter) resolve() (string, error) {
	if a.Path != "" {
		if p, err := exec.LookPath(a.Path); err == nil {
			return p, nil
		}
		return "", errwrap.Wrapf("tool: configured path: {{err}}", ErrNotInstalled)
	}

	names := a.Names
	if runtime.GOOS == "darwin" {
		names = macFallbackOrder(names)
	}

	for _, name := range names {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}

	return "", ErrNotInstalled
}

// macFallbackOrder inserts "7zz" ahead of "7z" in the candidate list, per
// spec.md §4.9's Mac-specific fallback ("7zz then 7z"), leaving every
// other name untouched.
func macFallbackOrder(names []string) []string {
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		if n == "7z" {
			out = append(out, "7zz", "7z")
			continue
		}
		out = append(out, n)
	}
	return out
}

// Package match implements the Matcher (spec.md C5): the six-step pipeline
// that turns a set of input paths into (entry, Rom) bindings against the
// Catalog Store. New orchestration code - the teacher has no cross-System
// matcher of its own; its synchronizer package (synchronizer.go,
// pipeline.go) matches within one already-selected dat/System only. This
// package composes C1 (internal/catalog), C3 (internal/hash) and C4
// (internal/archive) the way synchronizer composes dat+checksum+Reader,
// generalized to run without a pre-selected System.
package match

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/prompt"
)

var (
	ErrNoCandidate = errors.New("match: no candidate")
	ErrAmbiguous   = errors.New("match: ambiguous")
	ErrContainer   = errors.New("match: container error")
)

// Binding is one resolved (input entry, Rom) pairing.
type Binding struct {
	Source   string // the ContentSource's Name()
	Entry    string // the entry name within Source
	Rom      catalog.Rom
	Stripped bool // true when the winning digest was header-stripped
}

// Residual is an input the Matcher could not resolve.
type Residual struct {
	Source string
	Entry  string
	Err    error
}

// Options configures one Match call.
type Options struct {
	// ExtractTopLevel mirrors the CLI's -x flag (spec.md §4.5 step 1):
	// when true, top-level archive entries are themselves matched
	// against Rom hashes rather than the archive as a whole.
	ExtractTopLevel bool
	// RestrictSystem, when non-zero, scopes every match to one System
	// and skips step 4's disambiguation prompt entirely: candidates
	// outside the System are dropped before scoring.
	RestrictSystem catalog.SystemID
}

// Matcher runs the pipeline of spec.md §4.5. It is pure with respect to
// the Catalog Store - Match only reads, never writes; the caller decides
// whether to materialize AttachRomfile calls from the returned Bindings.
type Matcher struct {
	store  *catalog.Store
	engine *hash.Engine
	prompt prompt.Adapter
}

// New returns a Matcher.
func New(store *catalog.Store, engine *hash.Engine, p prompt.Adapter) *Matcher {
	return &Matcher{store: store, engine: engine, prompt: p}
}

// Match runs the pipeline over paths and returns every resolved binding
// plus the residual (unmatched) inputs.
func (m *Matcher) Match(ctx context.Context, paths []string, opts Options) ([]Binding, []Residual, error) {
	var bindings []Binding
	var residuals []Residual

	for _, path := range paths {
		src, err := archive.Open(path)
		if err != nil {
			residuals = append(residuals, Residual{Source: path, Err: fmt.Errorf("%w: %v", ErrContainer, err)})
			continue
		}

		for _, entry := range m.leaves(src, opts) {
			b, res, err := m.matchEntry(ctx, src, entry, opts)
			if err != nil {
				src.Close()
				return bindings, residuals, err
			}
			if res != nil {
				residuals = append(residuals, *res)
				continue
			}
			bindings = append(bindings, *b)
		}

		src.Close()
	}

	return bindings, residuals, nil
}

// leaves picks which entries of src to match individually: every member
// when ExtractTopLevel is set, otherwise the container itself as one
// opaque leaf (spec.md §4.5 step 1).
func (m *Matcher) leaves(src archive.ContentSource, opts Options) []archive.Entry {
	entries := src.Files()
	if opts.ExtractTopLevel || len(entries) <= 1 {
		return entries
	}
	return []archive.Entry{{Name: filepath.Base(src.Name())}}
}

// declaredDigestSource is implemented by container adapters that carry a
// digest in their own metadata rather than over their entry bytes (CHD's
// data-SHA1, per spec.md §4.3/§4.4: "this rule alone resolves the
// MAME-CHD case where only a SHA1 of the CHD metadata is declared").
// Checked before falling back to streaming the entry through the hash
// Engine.
type declaredDigestSource interface {
	DeclaredDigest() (sha1 [20]byte, ok bool)
}

func (m *Matcher) matchEntry(ctx context.Context, src archive.ContentSource, entry archive.Entry, opts Options) (*Binding, *Residual, error) {
	var candidates []catalog.Rom
	var stripped bool
	var declared bool

	if dd, ok := src.(declaredDigestSource); ok {
		if sha1, ok := dd.DeclaredDigest(); ok {
			declared = true
			roms, err := m.store.FindRomsByHashes(ctx, catalog.HashQuery{SHA1: fmt.Sprintf("%x", sha1)})
			if err != nil {
				return nil, nil, err
			}
			candidates = roms
		}
	}

	if !declared {
		r, err := src.Open(entry.Name)
		if err != nil {
			return nil, &Residual{Source: src.Name(), Entry: entry.Name, Err: fmt.Errorf("%w: %v", ErrContainer, err)}, nil
		}

		digest, err := m.engine.Sum(ctx, r)
		r.Close()
		if err != nil {
			return nil, nil, err
		}

		var err2 error
		candidates, stripped, err2 = m.findCandidates(ctx, src, entry, digest)
		if err2 != nil {
			return nil, nil, err2
		}
	}

	if opts.RestrictSystem != 0 {
		candidates = m.filterBySystem(ctx, candidates, opts.RestrictSystem)
	}

	if len(candidates) == 0 {
		return nil, &Residual{Source: src.Name(), Entry: entry.Name, Err: ErrNoCandidate}, nil
	}

	if len(candidates) == 1 || opts.RestrictSystem != 0 {
		return &Binding{Source: src.Name(), Entry: entry.Name, Rom: candidates[0], Stripped: stripped}, nil, nil
	}

	chosen, ambiguousErr := m.disambiguate(ctx, entry.Name, candidates)
	if ambiguousErr != nil {
		return nil, &Residual{Source: src.Name(), Entry: entry.Name, Err: ambiguousErr}, nil
	}

	return &Binding{Source: src.Name(), Entry: entry.Name, Rom: chosen, Stripped: stripped}, nil, nil
}

func (m *Matcher) filterBySystem(ctx context.Context, candidates []catalog.Rom, sys catalog.SystemID) []catalog.Rom {
	var out []catalog.Rom
	for _, c := range candidates {
		owner, err := m.store.SystemOfRom(ctx, c.ID)
		if err == nil && owner == sys {
			out = append(out, c)
		}
	}
	return out
}

// findCandidates runs step 3 (hash query, falling back in specificity
// order) over the raw digest, then - if nothing matched and the entry's
// size corresponds to a known header - retries against every built-in
// HeaderSet's stripped digest, implementing step 6's "matched twice"
// behaviour without needing to already know the entry's destination
// System.
func (m *Matcher) findCandidates(ctx context.Context, src archive.ContentSource, entry archive.Entry, digest hash.Digest) ([]catalog.Rom, bool, error) {
	roms, err := m.queryDigest(ctx, digest)
	if err != nil {
		return nil, false, err
	}
	if len(roms) > 0 {
		return roms, false, nil
	}

	for _, hs := range hash.EmbeddedHeaderSets {
		if hs.StripLength >= digest.Size {
			continue
		}

		r, err := src.Open(entry.Name)
		if err != nil {
			continue
		}
		result, err := m.engine.SumWithHeader(ctx, r, hs)
		r.Close()
		if err != nil || result.Stripped == nil {
			continue
		}

		roms, err := m.queryDigest(ctx, *result.Stripped)
		if err != nil {
			return nil, false, err
		}
		if len(roms) > 0 {
			return roms, true, nil
		}
	}

	return nil, false, nil
}

func (m *Matcher) queryDigest(ctx context.Context, digest hash.Digest) ([]catalog.Rom, error) {
	size := digest.Size

	roms, err := m.store.FindRomsByHashes(ctx, catalog.HashQuery{Size: &size, CRC32: digest.CRC32Hex()})
	if err != nil || len(roms) > 0 {
		return roms, err
	}

	roms, err = m.store.FindRomsByHashes(ctx, catalog.HashQuery{Size: &size, SHA1: digest.SHA1Hex()})
	if err != nil || len(roms) > 0 {
		return roms, err
	}

	return m.store.FindRomsByHashes(ctx, catalog.HashQuery{Size: &size, MD5: digest.MD5Hex()})
}

// disambiguate implements step 4: auto-select on a clear similarity
// winner, otherwise defer to the PromptAdapter.
func (m *Matcher) disambiguate(ctx context.Context, basename string, candidates []catalog.Rom) (catalog.Rom, error) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}

	stem := strings.TrimSuffix(basename, filepath.Ext(basename))
	if idx, clear := bestMatch(stem, names); clear {
		return candidates[idx], nil
	}

	prompts := make([]string, len(candidates))
	for i, c := range candidates {
		prompts[i] = fmt.Sprintf("rom #%d: %s", c.ID, c.Name)
	}

	idx, err := m.prompt.ChooseOne(ctx, fmt.Sprintf("ambiguous match for %q", basename), prompts)
	if err != nil {
		return catalog.Rom{}, fmt.Errorf("%w: %v", ErrAmbiguous, err)
	}

	return candidates[idx], nil
}

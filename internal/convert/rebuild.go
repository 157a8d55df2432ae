package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
)

// Rebuilder rewrites each arcade Game's archive to carry exactly the ROM
// set its System's MergingStrategy requires, sourcing ROMs the Game
// doesn't hold itself from its parent or BIOS Game, per spec.md §4.8.
type Rebuilder struct {
	Store  *catalog.Store
	Engine *hash.Engine
	Tmp    *archive.TmpScope
	Root   string // ROM_DIRECTORY
}

// RequiredRoms returns every Rom strategy requires game's archive to carry:
// game's own Roms under split/none, plus its parent's under non-merged and
// full-non-merged, plus its BIOS's under full-non-merged only.
func (r *Rebuilder) RequiredRoms(ctx context.Context, game catalog.Game, strategy catalog.MergingStrategy) ([]catalog.Rom, error) {
	own, err := r.Store.RomsOfGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if strategy == catalog.MergingSplit || strategy == catalog.MergingNone {
		return own, nil
	}

	required := append([]catalog.Rom(nil), own...)

	if game.ParentID != nil {
		parentRoms, err := r.Store.RomsOfGame(ctx, *game.ParentID)
		if err != nil {
			return nil, err
		}
		required = mergeRoms(required, parentRoms)
	}

	if strategy == catalog.MergingFullNonMerged && game.BiosID != nil {
		biosRoms, err := r.Store.RomsOfGame(ctx, *game.BiosID)
		if err != nil {
			return nil, err
		}
		required = mergeRoms(required, biosRoms)
	}

	return required, nil
}

// mergeRoms appends every extra Rom not already present in base by name -
// the shared-ROM resolution non-merged/full-non-merged sets depend on.
func mergeRoms(base, extra []catalog.Rom) []catalog.Rom {
	seen := make(map[string]bool, len(base))
	for _, rom := range base {
		seen[rom.Name] = true
	}
	for _, rom := range extra {
		if !seen[rom.Name] {
			base = append(base, rom)
			seen[rom.Name] = true
		}
	}
	return base
}

// RebuildMember is one entry the rebuilt archive must contain.
type RebuildMember struct {
	Rom           catalog.RomID
	Name          string
	SourceArchive string
	SourceEntry   string
}

// RebuildPlan is one Game's resolved rebuild unit.
type RebuildPlan struct {
	Game    catalog.GameID
	Target  string
	Members []RebuildMember
}

// Plan resolves game's required Rom set (per strategy) into concrete
// on-disk source locations. A required Rom with no attached Romfile is
// skipped - Missing already reports it as an incomplete dump, and
// rebuilding can't source bytes that were never dumped. Target is the
// Game's own current archive path, taken from whichever of its own Roms
// (not a borrowed parent/BIOS one) already has a Romfile; a Game with no
// archive yet has nothing to rebuild.
func (r *Rebuilder) Plan(ctx context.Context, game catalog.Game, strategy catalog.MergingStrategy) (*RebuildPlan, error) {
	own, err := r.Store.RomsOfGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	var target string
	for _, rom := range own {
		if rom.RomfileID == nil {
			continue
		}
		rf, err := r.Store.RomfileByID(ctx, *rom.RomfileID)
		if err != nil {
			return nil, err
		}
		target = filepath.Join(r.Root, filepath.FromSlash(rf.Path))
		break
	}
	if target == "" {
		return &RebuildPlan{Game: game.ID}, nil
	}

	required, err := r.RequiredRoms(ctx, game, strategy)
	if err != nil {
		return nil, err
	}

	plan := &RebuildPlan{Game: game.ID, Target: target}
	for _, rom := range required {
		if rom.RomfileID == nil {
			continue
		}
		rf, err := r.Store.RomfileByID(ctx, *rom.RomfileID)
		if err != nil {
			return nil, err
		}
		plan.Members = append(plan.Members, RebuildMember{
			Rom:           rom.ID,
			Name:          rom.Name,
			SourceArchive: filepath.Join(r.Root, filepath.FromSlash(rf.Path)),
			SourceEntry:   rom.Name,
		})
	}

	sort.Slice(plan.Members, func(i, j int) bool { return plan.Members[i].Name < plan.Members[j].Name })
	return plan, nil
}

// Execute writes plan's member set into a fresh TorrentZip, replacing
// Target only if its current member set differs from what's required -
// spec.md §4.8's idempotency requirement ("a second invocation with the
// same strategy is a no-op").
func (r *Rebuilder) Execute(ctx context.Context, plan *RebuildPlan) error {
	if plan.Target == "" || len(plan.Members) == 0 {
		return nil
	}

	if same, err := sameMemberSet(plan.Target, plan.Members); err == nil && same {
		return nil
	}

	job := NewJob(plan.Members[0].Rom, plan.Target)
	if err := job.transitionTo(StateStaged); err != nil {
		return err
	}

	staged := r.Tmp.Path(fmt.Sprintf("rebuild-%d.zip", plan.Game))
	job.stage(staged)

	w, err := archive.NewTorrentZipWriter(staged)
	if err != nil {
		return job.Fail(err)
	}

	for _, m := range plan.Members {
		if err := r.copyMember(ctx, w, m); err != nil {
			w.Close()
			return job.Fail(err)
		}
	}
	if err := w.Close(); err != nil {
		return job.Fail(err)
	}

	job.EncodedPath = staged
	if err := job.transitionTo(StateEncoded); err != nil {
		return job.Fail(err)
	}

	if err := Publish(job, plan.Target); err != nil {
		return err
	}

	rel, err := filepath.Rel(r.Root, plan.Target)
	if err != nil {
		return job.Fail(err)
	}
	info, err := os.Stat(plan.Target)
	if err != nil {
		return job.Fail(err)
	}

	for _, m := range plan.Members {
		if m.SourceArchive != plan.Target {
			continue // borrowed from parent/BIOS: catalog keeps pointing at its own archive
		}
		if _, err := r.Store.AttachRomfile(ctx, m.Rom, rel, info.Size()); err != nil {
			return job.Fail(err)
		}
	}

	return job.transitionTo(StateReconciled)
}

func (r *Rebuilder) copyMember(ctx context.Context, w archive.Writer, m RebuildMember) error {
	src, err := archive.Open(m.SourceArchive)
	if err != nil {
		return err
	}
	defer src.Close()

	in, err := src.Open(m.SourceEntry)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := w.Create(m.Name)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = r.Engine.Sum(ctx, io.TeeReader(in, out))
	return err
}

// sameMemberSet reports whether target's existing archive already holds
// exactly members' names, in which case a rebuild is a no-op.
func sameMemberSet(target string, members []RebuildMember) (bool, error) {
	if _, err := os.Stat(target); err != nil {
		return false, err
	}

	existing, err := archive.Open(target)
	if err != nil {
		return false, err
	}
	defer existing.Close()

	have := make(map[string]bool, len(existing.Files()))
	for _, e := range existing.Files() {
		have[e.Name] = true
	}

	if len(have) != len(members) {
		return false, nil
	}
	for _, m := range members {
		if !have[m.Name] {
			return false, nil
		}
	}
	return true, nil
}

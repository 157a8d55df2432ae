// Package sorter implements the Sorter/Mover (spec.md C7): it lays out a
// System's Romfiles into the base/1G1R/Trash directory scheme and executes
// the moves via a two-phase commit, generalized from
// bodgit-rom/synchronizer's pipeline.go+synchronizer.go (which syncs one
// TorrentZip directory against one dat) to the full layout, subfolder
// schemes and cross-device fallback of spec.md §4.7.
package sorter

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

// SubfolderScheme buckets games inside a bucket directory by leading
// character.
type SubfolderScheme string

const (
	SubfolderNone  SubfolderScheme = "none"
	SubfolderAlpha SubfolderScheme = "alpha"
)

// Config is the subset of Settings the Sorter reads, decoupled from
// internal/settings the same way internal/elect.Settings is decoupled from
// internal/catalog - keeping this package a leaf with no import back into
// the CLI-facing settings snapshot.
type Config struct {
	GroupSubsystems  bool
	Subfolders       SubfolderScheme
	OneG1RSubfolders bool
}

// Bucket is which of the three System subdirectories a file belongs in.
type Bucket string

const (
	BucketBase  Bucket = ""
	Bucket1G1R  Bucket = "1G1R"
	BucketTrash Bucket = "Trash"
)

// PlannedGame is one Game's sort disposition, computed by the caller from
// C6's election results before calling Plan.
type PlannedGame struct {
	GameID   catalog.GameID
	Basename string // the target filename, e.g. "Sonic the Hedgehog (USA).zip"
	Bucket   Bucket
	// CurrentPath is the Romfile's existing path (relative to
	// ROM_DIRECTORY), "" when the Rom has no attached Romfile yet.
	CurrentPath string
}

// Move is one source -> destination step.
type Move struct {
	GameID     catalog.GameID
	SourcePath string
	DestPath   string
	SameDevice bool
}

// Plan is an ordered list of moves; executing it never loses or duplicates
// a file at any intermediate point, per spec.md §4.7.
type Plan struct {
	Moves []Move
}

// SystemDir derives SYSTEM_DIR per spec.md §4.7: custom_name if set,
// otherwise name.
func SystemDir(sys catalog.System) string {
	if sys.CustomName != "" {
		return sys.CustomName
	}
	return sys.Name
}

// subfolderOf returns the alpha bucket ("A".."Z" or "#") for basename under
// the alpha scheme, or "" under none.
func subfolderOf(basename string, scheme SubfolderScheme) string {
	if scheme != SubfolderAlpha || basename == "" {
		return ""
	}

	r := unicode.ToUpper(rune(basename[0]))
	if unicode.IsLetter(r) {
		return string(r)
	}
	return "#"
}

// BuildPlan computes the destination path for every PlannedGame under
// sysDir and returns the moves whose source and destination differ.
// Arcade Systems never use 1G1R (spec.md §4.7's "Arcade Systems never use
// 1G1R" is enforced by the caller never assigning Bucket1G1R/BucketTrash to
// an arcade Game's PlannedGame).
func BuildPlan(sysDir string, games []PlannedGame, cfg Config) Plan {
	var plan Plan

	for _, g := range games {
		if g.CurrentPath == "" {
			continue // nothing on disk yet to move
		}

		dest := destinationFor(sysDir, g, cfg)
		if dest == g.CurrentPath {
			continue
		}

		plan.Moves = append(plan.Moves, Move{
			GameID:     g.GameID,
			SourcePath: g.CurrentPath,
			DestPath:   dest,
		})
	}

	return plan
}

func destinationFor(sysDir string, g PlannedGame, cfg Config) string {
	parts := []string{sysDir}

	if g.Bucket != BucketBase {
		parts = append(parts, string(g.Bucket))
	}

	useSubfolders := cfg.Subfolders == SubfolderAlpha
	if g.Bucket == Bucket1G1R {
		useSubfolders = useSubfolders && cfg.OneG1RSubfolders
	}
	if useSubfolders {
		if sf := subfolderOf(g.Basename, cfg.Subfolders); sf != "" {
			parts = append(parts, sf)
		}
	}

	parts = append(parts, g.Basename)

	return normalizePath(filepath.Join(parts...))
}

// normalizePath POSIX-normalizes a relative path, per spec.md §3 invariant
// 1 ("every Romfile path is relative, POSIX-normalized, unique").
func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(strings.TrimPrefix(p, "/")))
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/match"
	"github.com/oxyromon/oxyromon/internal/prompt"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// importRomsCommand implements `import-roms [-s SYS|-t|-f|-a HASH|-u|-x]
// <PATHS...>`: it runs internal/match.Matcher's six-step pipeline over
// PATHS and materializes every resolved Binding with AttachRomfile,
// moving the matched container into place under ROM_DIRECTORY first -
// the step the pure, read-only Matcher deliberately leaves to its caller.
var importRomsCommand = &cli.Command{
	Name:      "import-roms",
	Usage:     "match and import rom files into the catalog",
	ArgsUsage: "<PATHS...>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "system", Aliases: []string{"s"}, Usage: "restrict matching to one system, skipping the disambiguation prompt"},
		&cli.BoolFlag{Name: "trash", Aliases: []string{"t"}, Usage: "move unmatched inputs to a Trash/ directory instead of leaving them in place"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "re-attach a rom even if it already has a romfile"},
		&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"}, Usage: "reserved; the matcher always hashes crc32/md5/sha1 together"},
		&cli.BoolFlag{Name: "unattended", Aliases: []string{"u"}, Usage: "never prompt; skip any ambiguous match"},
		&cli.BoolFlag{Name: "extract", Aliases: []string{"x"}, Usage: "match top-level archive entries individually instead of the archive as a whole"},
	},
	Action: runImportRoms,
}

func runImportRoms(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	if c.NArg() < 1 {
		return userErrorf("import-roms: no PATHS given")
	}

	store, cfg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.RomDirectory == "" {
		return userErrorf("import-roms: ROM_DIRECTORY is not set")
	}

	opts := match.Options{ExtractTopLevel: c.Bool("extract")}
	if name := c.String("system"); name != "" {
		sys, err := systemByName(ctx, store, name)
		if err != nil {
			return err
		}
		opts.RestrictSystem = sys.ID
	}

	if c.String("algorithm") != "" {
		logf("import-roms: -a is reserved and has no effect; every hash algorithm is always computed")
	}

	var promptAdapter prompt.Adapter = prompt.NewTerminal(os.Stdin, os.Stdout)
	if c.Bool("unattended") {
		promptAdapter = prompt.Unattended{}
	}

	matcher := match.New(store, hash.New(), promptAdapter)
	bindings, residuals, err := matcher.Match(ctx, c.Args().Slice(), opts)
	if err != nil {
		return err
	}

	moved := map[string]string{}
	for _, b := range bindings {
		if err := importBinding(ctx, store, b, cfg.RomDirectory, c.Bool("force"), moved); err != nil {
			logf("import-roms: %s: %v", b.Source, err)
		}
	}

	for _, r := range residuals {
		if c.Bool("trash") {
			trashResidual(cfg.RomDirectory, r.Source)
		}
		logf("import-roms: %s: unmatched (%v)", r.Source, r.Err)
	}
	return nil
}

func systemByName(ctx context.Context, store *catalog.Store, name string) (catalog.System, error) {
	all, err := store.ListSystems(ctx)
	if err != nil {
		return catalog.System{}, err
	}
	for _, sys := range all {
		if sys.Name == name {
			return sys, nil
		}
	}
	return catalog.System{}, userErrorf("import-roms: unknown system %q", name)
}

// importBinding attaches b's Rom to the file it resolved to. Every entry
// sharing one Source container is placed exactly once (tracked via moved,
// keyed by b.Source) and every Rom matched into it is then attached at
// that same relative path - the multi-member case -x/--extract exists for
// (spec.md §4.5 step 1), mirroring what internal/sorter/execute.go's
// reconcile already does for the Mover.
func importBinding(ctx context.Context, store *catalog.Store, b match.Binding, root string, force bool, moved map[string]string) error {
	if b.Rom.RomfileID != nil && !force {
		return nil
	}

	rel, ok := moved[b.Source]
	if !ok {
		var err error
		rel, err = placeContainer(ctx, store, b, root)
		if err != nil {
			return err
		}
		moved[b.Source] = rel
	}

	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	_, err = store.AttachRomfile(ctx, b.Rom.ID, rel, info.Size())
	return err
}

// placeContainer returns b.Source's path relative to root, moving it into
// place under its matched Rom's System directory first if it isn't
// already somewhere under root (a fresh import); if it's already in-tree
// - reached via a path already under ROM_DIRECTORY - it's left where it
// is and only its existing relative path is reported.
func placeContainer(ctx context.Context, store *catalog.Store, b match.Binding, root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absSource, err := filepath.Abs(b.Source)
	if err != nil {
		return "", err
	}

	if rel, err := filepath.Rel(absRoot, absSource); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(rel), nil
	}

	sys, err := store.SystemOfRom(ctx, b.Rom.ID)
	if err != nil {
		return "", err
	}
	system, err := store.SystemByID(ctx, sys)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(root, sorter.SystemDir(system))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filepath.Base(b.Source))

	if err := os.Rename(b.Source, dest); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(root, dest)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func trashResidual(root, path string) {
	dir := filepath.Join(root, "Trash")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}

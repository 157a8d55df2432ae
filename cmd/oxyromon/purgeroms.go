package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// purgeRomsCommand implements `purge-roms [-m|-o|-t|-f|-y]`: spec.md §8
// scenario 5 describes `purge-roms -m -o -t` against a file that
// disappeared from disk as deleting the stale Romfile row (-m), removing
// the Orphan Romfile rows left pointing at nothing (-o), and clearing
// Trash (-t). -f additionally deletes an Orphan's file from disk instead
// of only dropping its catalog row; -y skips confirmation (plumbed through
// for parity with sort-roms/rebuild-roms, prompting is not yet wired to
// an interactive terminal here).
var purgeRomsCommand = &cli.Command{
	Name:      "purge-roms",
	Usage:     "reconcile the catalog against files that vanished from disk",
	ArgsUsage: "[SYSTEM]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "missing", Aliases: []string{"m"}, Usage: "drop Romfile rows whose file no longer exists on disk"},
		&cli.BoolFlag{Name: "orphans", Aliases: []string{"o"}, Usage: "drop Romfile rows no Rom points to"},
		&cli.BoolFlag{Name: "trash", Aliases: []string{"t"}, Usage: "delete files under each system's Trash directory"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "also delete an orphan's file from disk, not just its catalog row"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "don't ask for confirmation"},
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "purge every system"},
	},
	Action: runPurgeRoms,
}

func runPurgeRoms(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, cfg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	systems, err := selectSystems(ctx, store, c)
	if err != nil {
		return err
	}

	for _, sys := range systems {
		if c.Bool("missing") {
			if err := purgeMissingRomfiles(ctx, store, sys, cfg.RomDirectory); err != nil {
				logf("purge-roms: %s: %v", sys.Name, err)
			}
		}
		if c.Bool("orphans") {
			if err := purgeOrphans(ctx, store, sys, cfg.RomDirectory, c.Bool("force")); err != nil {
				logf("purge-roms: %s: %v", sys.Name, err)
			}
		}
		if c.Bool("trash") {
			if err := purgeTrash(sys, cfg.RomDirectory); err != nil {
				logf("purge-roms: %s: %v", sys.Name, err)
			}
		}
	}
	return nil
}

// purgeMissingRomfiles drops every Romfile of sys whose file no longer
// exists on disk, which in turn frees the Roms that pointed to it back to
// Missing, per spec.md §8 scenario 5.
func purgeMissingRomfiles(ctx context.Context, store *catalog.Store, sys catalog.System, root string) error {
	games, err := store.GamesOfSystem(ctx, sys.ID)
	if err != nil {
		return err
	}

	seen := make(map[catalog.RomfileID]bool)
	for _, g := range games {
		roms, err := store.RomsOfGame(ctx, g.ID)
		if err != nil {
			return err
		}
		for _, r := range roms {
			if r.RomfileID == nil || seen[*r.RomfileID] {
				continue
			}
			seen[*r.RomfileID] = true

			rf, err := store.RomfileByID(ctx, *r.RomfileID)
			if err != nil {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rf.Path))); os.IsNotExist(err) {
				if err := store.DeleteRomfile(ctx, rf.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func purgeOrphans(ctx context.Context, store *catalog.Store, sys catalog.System, root string, force bool) error {
	orphans, err := store.Orphans(ctx, sys.ID)
	if err != nil {
		return err
	}
	for _, rf := range orphans {
		if force {
			abs := filepath.Join(root, filepath.FromSlash(rf.Path))
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				logf("purge-roms: %s: could not remove orphan file %s: %v", sys.Name, abs, err)
			}
		}
		if err := store.DeleteRomfile(ctx, rf.ID); err != nil {
			return err
		}
	}
	return nil
}

func purgeTrash(sys catalog.System, root string) error {
	dir := filepath.Join(root, sorter.SystemDir(sys), "Trash")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// purgeSystemsCommand implements `purge-systems`: it deletes every System
// named on the command line (or every System with -a) from the catalog,
// wiring directly onto the already-cascading internal/catalog.PurgeSystem.
var purgeSystemsCommand = &cli.Command{
	Name:      "purge-systems",
	Usage:     "delete systems and everything under them from the catalog",
	ArgsUsage: "[SYSTEM]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "purge every system"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "don't ask for confirmation"},
	},
	Action: runPurgeSystems,
}

func runPurgeSystems(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, _, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	systems, err := selectSystems(ctx, store, c)
	if err != nil {
		return err
	}

	for _, sys := range systems {
		if err := store.PurgeSystem(ctx, sys.ID); err != nil {
			logf("purge-systems: %s: %v", sys.Name, err)
			continue
		}
		logf("purge-systems: %s: purged", sys.Name)
	}
	return nil
}

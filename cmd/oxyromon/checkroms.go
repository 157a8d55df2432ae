package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// checkRomsCommand implements `check-roms [-a|-g GAME|-s]`: it reports the
// three catalog consistency rollups of spec.md §3 invariants 2/5/6
// (Missing, Orphans, Foreign) for one System or every System, tabled like
// info. -s additionally walks ROM_DIRECTORY to populate the Foreign check,
// since internal/catalog.Foreign needs the caller to supply what's
// actually on disk.
var checkRomsCommand = &cli.Command{
	Name:      "check-roms",
	Usage:     "report missing, orphaned and foreign roms",
	ArgsUsage: "[SYSTEM]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "check every system"},
		&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Usage: "restrict to one game, by name"},
		&cli.BoolFlag{Name: "scan", Aliases: []string{"s"}, Usage: "also walk ROM_DIRECTORY for files the catalog doesn't know about"},
	},
	Action: runCheckRoms,
}

func runCheckRoms(c *cli.Context) error {
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

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"System", "Missing", "Orphans", "Foreign"})

	for _, sys := range systems {
		missing, err := store.Missing(ctx, sys.ID)
		if err != nil {
			return err
		}
		if name := c.String("game"); name != "" {
			missing = filterMissingByGame(missing, store, ctx, name)
		}

		orphans, err := store.Orphans(ctx, sys.ID)
		if err != nil {
			return err
		}

		foreignCount := "-"
		if c.Bool("scan") && cfg.RomDirectory != "" {
			onDisk, err := walkSystemDir(cfg.RomDirectory, sys)
			if err != nil {
				return err
			}
			foreign, err := store.Foreign(ctx, sys.ID, onDisk)
			if err != nil {
				return err
			}
			foreignCount = strconv.Itoa(len(foreign))
		}

		table.Append([]string{sys.Name, strconv.Itoa(len(missing)), strconv.Itoa(len(orphans)), foreignCount})
	}

	table.Render()
	return nil
}

func filterMissingByGame(missing []catalog.Rom, store *catalog.Store, ctx context.Context, name string) []catalog.Rom {
	var out []catalog.Rom
	for _, r := range missing {
		g, err := store.GameByID(ctx, r.GameID)
		if err == nil && g.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func walkSystemDir(root string, sys catalog.System) ([]string, error) {
	var out []string
	dir := filepath.Join(root, sorter.SystemDir(sys))
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

package main

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/elect"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/settings"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// sortRomsCommand implements `sort-roms [-r REGIONS|--subfolders|-o
// ONE|--1g1r-subfolders|-w|-a|-y]`: it clusters each System's Games by
// parent/clone, runs C6's election over every cluster, and translates the
// result into a sorter.Plan it executes with sorter.Executor. No package
// in the corpus builds parent/clone clusters ahead of Elect - that glue is
// written fresh here, the CLI being the one layer allowed to couple C1,
// C6 and C7 together.
var sortRomsCommand = &cli.Command{
	Name:      "sort-roms",
	Usage:     "lay out a system's roms into base/1G1R/Trash",
	ArgsUsage: "[SYSTEM]",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "regions", Aliases: []string{"r"}, Usage: "restrict processing to games overlapping these regions"},
		&cli.StringFlag{Name: "subfolders", Usage: "subfolder scheme: none|alpha"},
		&cli.StringSliceFlag{Name: "regions-one", Aliases: []string{"o"}, Usage: "override REGIONS_ONE for this run"},
		&cli.BoolFlag{Name: "1g1r-subfolders", Usage: "apply the subfolder scheme inside 1G1R/ too"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "concurrent destination-directory workers"},
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "sort every system"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "don't ask for confirmation before moving files"},
	},
	Action: runSortRoms,
}

func runSortRoms(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	var opts []settings.Option
	if c.IsSet("regions-one") {
		opts = append(opts, settings.WithRegionsOne(c.StringSlice("regions-one")))
	}
	if c.IsSet("subfolders") {
		opts = append(opts, settings.WithSubfolders(sorter.SubfolderScheme(c.String("subfolders"))))
	}
	if c.IsSet("1g1r-subfolders") {
		opts = append(opts, settings.WithOneG1RSubfolders(c.Bool("1g1r-subfolders")))
	}
	if c.IsSet("workers") {
		opts = append(opts, settings.WithWorkers(c.Int("workers")))
	}

	store, cfg, err := bootstrap(ctx, opts...)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.RomDirectory == "" {
		return userErrorf("sort-roms: ROM_DIRECTORY is not set, run `config -s ROM_DIRECTORY <path>` first")
	}

	systems, err := selectSystems(ctx, store, c)
	if err != nil {
		return err
	}

	engine := hash.New()
	executor := sorter.NewExecutor(store, engine, cfg.RomDirectory)

	for _, sys := range systems {
		if err := sortSystem(ctx, store, executor, sys, cfg, c.StringSlice("regions")); err != nil {
			logf("sort-roms: %s: %v", sys.Name, err)
		}
	}
	return nil
}

// selectSystems resolves the positional SYSTEM argument or -a into the
// list of catalog.System rows to process.
func selectSystems(ctx context.Context, store *catalog.Store, c *cli.Context) ([]catalog.System, error) {
	all, err := store.ListSystems(ctx)
	if err != nil {
		return nil, err
	}

	if c.Bool("all") {
		return all, nil
	}

	name := c.Args().First()
	if name == "" {
		return nil, userErrorf("sort-roms: no SYSTEM given and -a not set")
	}
	for _, sys := range all {
		if sys.Name == name {
			return []catalog.System{sys}, nil
		}
	}
	return nil, userErrorf("sort-roms: unknown system %q", name)
}

func sortSystem(ctx context.Context, store *catalog.Store, executor *sorter.Executor, sys catalog.System, cfg *settings.Settings, regionsFilter []string) error {
	games, err := store.GamesOfSystem(ctx, sys.ID)
	if err != nil {
		return err
	}

	planned, err := planGames(ctx, store, sys, games, cfg, regionsFilter)
	if err != nil {
		return err
	}

	plan := sorter.BuildPlan(sorter.SystemDir(sys), planned, cfg.SorterConfig())
	if len(plan.Moves) == 0 {
		return nil
	}

	summary, err := executor.Execute(ctx, plan)
	logf("sort-roms: %s: %d/%d moves completed", sys.Name, summary.Completed, summary.Total)
	return err
}

// planGames builds one sorter.PlannedGame per Game in sys: Arcade systems
// (spec.md §4.7: "Arcade Systems never use 1G1R") and systems with no
// REGIONS_ONE configured are placed entirely in the base bucket; every
// other system is split into parent/clone clusters and run through
// internal/elect.Elect.
func planGames(ctx context.Context, store *catalog.Store, sys catalog.System, games []catalog.Game, cfg *settings.Settings, regionsFilter []string) ([]sorter.PlannedGame, error) {
	current := make(map[catalog.GameID]string, len(games))
	for _, g := range games {
		path, err := currentPathOf(ctx, store, g)
		if err != nil {
			return nil, err
		}
		current[g.ID] = path
	}

	if sys.Arcade || len(cfg.RegionsOne) == 0 {
		var out []sorter.PlannedGame
		for _, g := range games {
			if len(regionsFilter) > 0 && !overlaps(g.Regions, regionsFilter) {
				continue
			}
			out = append(out, sorter.PlannedGame{
				GameID:      g.ID,
				Basename:    filepath.Base(current[g.ID]),
				Bucket:      sorter.BucketBase,
				CurrentPath: current[g.ID],
			})
		}
		return out, nil
	}

	clusters := clusterGames(games)

	var out []sorter.PlannedGame
	for _, cluster := range clusters {
		if len(regionsFilter) > 0 {
			filtered := cluster[:0]
			for _, g := range cluster {
				if overlaps(g.Regions, regionsFilter) {
					filtered = append(filtered, g)
				}
			}
			cluster = filtered
		}
		if len(cluster) == 0 {
			continue
		}

		electGames := make([]elect.Game, len(cluster))
		for i, g := range cluster {
			electGames[i] = elect.Game{
				Name:          g.Name,
				IsParent:      g.ParentID == nil,
				Regions:       g.Regions,
				Languages:     g.Languages,
				Flags:         g.Flags,
				Revision:      parseRevision(g.Revision),
				AllRomsOnDisk: current[g.ID] != "",
			}
		}

		result := elect.Elect(electGames, cfg.ElectorSettings())

		for _, g := range cluster {
			bucket := sorter.BucketBase
			switch {
			case g.Name == result.Winner:
				bucket = sorter.Bucket1G1R
			case !overlaps(g.Regions, cfg.RegionsOne):
				bucket = sorter.BucketTrash
			}
			out = append(out, sorter.PlannedGame{
				GameID:      g.ID,
				Basename:    filepath.Base(current[g.ID]),
				Bucket:      bucket,
				CurrentPath: current[g.ID],
			})
		}
	}
	return out, nil
}

// clusterGames groups games into parent/clone clusters: every Game with no
// ParentID starts a cluster, and every clone joins its declared parent's
// cluster. A clone whose declared parent isn't present in games (a dat
// gap) falls back to its own single-member cluster.
func clusterGames(games []catalog.Game) [][]catalog.Game {
	byID := make(map[catalog.GameID]int, len(games))
	for i, g := range games {
		byID[g.ID] = i
	}

	clusterOf := make(map[catalog.GameID]catalog.GameID, len(games))
	for _, g := range games {
		root := g.ID
		if g.ParentID != nil {
			if _, ok := byID[*g.ParentID]; ok {
				root = *g.ParentID
			}
		}
		clusterOf[g.ID] = root
	}

	order := make([]catalog.GameID, 0, len(games))
	grouped := make(map[catalog.GameID][]catalog.Game, len(games))
	for _, g := range games {
		root := clusterOf[g.ID]
		if _, ok := grouped[root]; !ok {
			order = append(order, root)
		}
		grouped[root] = append(grouped[root], g)
	}

	out := make([][]catalog.Game, 0, len(order))
	for _, root := range order {
		out = append(out, grouped[root])
	}
	return out
}

// currentPathOf resolves the Romfile path shared by every Rom of g, or ""
// if g has no attached Romfile yet (nothing to move).
func currentPathOf(ctx context.Context, store *catalog.Store, g catalog.Game) (string, error) {
	roms, err := store.RomsOfGame(ctx, g.ID)
	if err != nil {
		return "", err
	}
	for _, r := range roms {
		if r.RomfileID == nil {
			return "", nil
		}
	}
	if len(roms) == 0 || roms[0].RomfileID == nil {
		return "", nil
	}
	rf, err := store.RomfileByID(ctx, *roms[0].RomfileID)
	if err != nil {
		return "", err
	}
	return rf.Path, nil
}

func overlaps(regions, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, r := range regions {
		for _, w := range wanted {
			if strings.EqualFold(r, w) {
				return true
			}
		}
	}
	return false
}

var leadingDigits = regexp.MustCompile(`[0-9]+`)

// parseRevision extracts the leading integer from a dat revision token
// ("1", "Rev 2", "1.3"), per internal/elect.Game's "parsed numeric
// revision; 0 when absent".
func parseRevision(s string) int {
	m := leadingDigits.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

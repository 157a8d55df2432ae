package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/archive"
	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/convert"
	"github.com/oxyromon/oxyromon/internal/hash"
	"github.com/oxyromon/oxyromon/internal/tool"
)

// archiveFormats is the subset of convert-roms' -f FMT this command drives
// through internal/convert.ArchiveConverter (raw<->7Z/ZIP/TorrentZip,
// spec.md §4.8's in-process leg). CUE/BIN<->CHD and ISO<->CHD/CSO/RVZ/ZSO
// always go through external tools (internal/tool), via discFormats below.
var archiveFormats = map[string]convert.Format{
	"raw":        convert.FormatRaw,
	"7z":         convert.FormatSevenZip,
	"zip":        convert.FormatZip,
	"torrentzip": convert.FormatTorrentZip,
}

var discFormats = map[string]convert.DiscFormat{
	"cuebin": convert.DiscFormatCueBin,
	"chd":    convert.DiscFormatChd,
	"iso":    convert.DiscFormatIso,
	"cso":    convert.DiscFormatCso,
	"rvz":    convert.DiscFormatRvz,
	"zso":    convert.DiscFormatZso,
}

// convertRomsCommand implements `convert-roms [-f FMT|-g GAME|-s SYS|-a|-r|
// -c|-p]`: it drives every in-tree Rom through the Converter's Stage ->
// Encode -> (Verify) -> Publish -> Reconcile pipeline (internal/convert),
// generalized from the teacher's single-purpose TorrentZip sync to the
// full format matrix of spec.md §4.8.
var convertRomsCommand = &cli.Command{
	Name:  "convert-roms",
	Usage: "convert roms between container/disc formats",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "target format: raw|7z|zip|torrentzip|cuebin|chd|iso|cso|rvz|zso", Required: true},
		&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Usage: "restrict to one game, by name"},
		&cli.StringFlag{Name: "system", Aliases: []string{"s"}, Usage: "restrict to one system, by name"},
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "convert every system"},
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"r"}, Usage: "report what would convert without writing anything"},
		&cli.BoolFlag{Name: "checksum", Aliases: []string{"c"}, Usage: "re-verify the encoded file's digest before publishing"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"p"}, Usage: "reserved for future parallel conversion; conversions run sequentially today"},
	},
	Action: runConvertRoms,
}

func runConvertRoms(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, cfg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.RomDirectory == "" {
		return userErrorf("convert-roms: ROM_DIRECTORY is not set")
	}

	games, err := gamesInScope(ctx, store, c)
	if err != nil {
		return err
	}

	tmp, err := archive.NewTmpScope(cfg.TmpDirectory)
	if err != nil {
		return err
	}
	defer tmp.Close()

	engine := hash.New()
	format := c.String("format")

	if af, ok := archiveFormats[format]; ok {
		ac := &convert.ArchiveConverter{Engine: engine, Tmp: tmp, SevenZip: tool.SevenZip}
		for _, g := range games {
			if err := convertGameArchive(ctx, store, ac, engine, g, af, cfg.RomDirectory, c.Bool("dry-run"), c.Bool("checksum")); err != nil {
				logf("convert-roms: %s: %v", g.Name, err)
			}
		}
		return nil
	}

	if df, ok := discFormats[format]; ok {
		dc := &convert.DiscConverter{Engine: engine, Tmp: tmp, Chdman: tool.Chdman, MaxCSO: tool.MaxCSO, DolphinTool: tool.DolphinTool, Wit: tool.Wit}
		for _, g := range games {
			if err := convertGameDisc(ctx, store, dc, g, df, cfg.RomDirectory, c.Bool("dry-run")); err != nil {
				logf("convert-roms: %s: %v", g.Name, err)
			}
		}
		return nil
	}

	return userErrorf("convert-roms: unknown format %q", format)
}

// gamesInScope resolves -g/-s/-a into the Games convert-roms/export-roms
// should operate over.
func gamesInScope(ctx context.Context, store *catalog.Store, c *cli.Context) ([]catalog.Game, error) {
	var systems []catalog.System
	if name := c.String("system"); name != "" {
		sys, err := systemByName(ctx, store, name)
		if err != nil {
			return nil, err
		}
		systems = []catalog.System{sys}
	} else {
		var err error
		systems, err = selectSystems(ctx, store, c)
		if err != nil {
			return nil, err
		}
	}

	var out []catalog.Game
	for _, sys := range systems {
		games, err := store.GamesOfSystem(ctx, sys.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, games...)
	}

	if name := c.String("game"); name != "" {
		for _, g := range out {
			if g.Name == name {
				return []catalog.Game{g}, nil
			}
		}
		return nil, userErrorf("convert-roms: unknown game %q", name)
	}
	return out, nil
}

// currentArchiveOf resolves the single source archive shared by every Rom
// of g (a Game with no Romfile, or Roms split across more than one
// archive, is skipped - nothing to convert as one unit).
func currentArchiveOf(ctx context.Context, store *catalog.Store, g catalog.Game, root string) (relPath, absPath string, roms []catalog.Rom, err error) {
	roms, err = store.RomsOfGame(ctx, g.ID)
	if err != nil {
		return "", "", nil, err
	}
	if len(roms) == 0 || roms[0].RomfileID == nil {
		return "", "", nil, nil
	}
	for _, r := range roms {
		if r.RomfileID == nil || *r.RomfileID != *roms[0].RomfileID {
			return "", "", nil, nil
		}
	}
	rf, err := store.RomfileByID(ctx, *roms[0].RomfileID)
	if err != nil {
		return "", "", nil, err
	}
	return rf.Path, filepath.Join(root, filepath.FromSlash(rf.Path)), roms, nil
}

func convertGameArchive(ctx context.Context, store *catalog.Store, ac *convert.ArchiveConverter, engine *hash.Engine, g catalog.Game, format convert.Format, root string, dryRun, checksum bool) error {
	rel, abs, roms, err := currentArchiveOf(ctx, store, g, root)
	if err != nil || abs == "" {
		return err
	}

	target := strings.TrimSuffix(abs, filepath.Ext(abs)) + extensionForFormat(format)
	if target == abs {
		return nil // already in the target format
	}
	if dryRun {
		fmt.Printf("convert-roms: %s: %s -> %s\n", g.Name, rel, target)
		return nil
	}

	job := convert.NewJob(roms[0].ID, abs)
	digests, err := ac.Convert(ctx, job, format)
	if err != nil {
		return err
	}

	if checksum && len(digests) == 1 {
		for _, d := range digests {
			if err := convert.Verify(ctx, engine, job, d); err != nil {
				return err
			}
		}
	}

	if err := convert.Publish(job, target); err != nil {
		return err
	}

	newRel, err := filepath.Rel(root, target)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	for _, r := range roms {
		if _, err := store.AttachRomfile(ctx, r.ID, newRel, info.Size()); err != nil {
			return err
		}
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		logf("convert-roms: %s: could not remove old archive %s: %v", g.Name, abs, err)
	}
	return nil
}

func convertGameDisc(ctx context.Context, store *catalog.Store, dc *convert.DiscConverter, g catalog.Game, to convert.DiscFormat, root string, dryRun bool) error {
	rel, abs, roms, err := currentArchiveOf(ctx, store, g, root)
	if err != nil || abs == "" {
		return err
	}

	from := discFormatFromExtension(abs)
	if from == to {
		return nil
	}
	if dryRun {
		fmt.Printf("convert-roms: %s: %s -> %s\n", g.Name, rel, to)
		return nil
	}

	job := convert.NewJob(roms[0].ID, abs)
	if _, err := dc.Convert(ctx, job, from, to); err != nil {
		return err
	}

	target := strings.TrimSuffix(abs, filepath.Ext(abs)) + "." + string(to)
	if err := convert.Publish(job, target); err != nil {
		return err
	}

	return convert.Reconcile(ctx, store, job, mustRel(root, target))
}

func mustRel(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return filepath.Base(target)
	}
	return filepath.ToSlash(rel)
}

func extensionForFormat(f convert.Format) string {
	switch f {
	case convert.FormatSevenZip:
		return ".7z"
	default:
		return ".zip"
	}
}

func discFormatFromExtension(path string) convert.DiscFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".chd":
		return convert.DiscFormatChd
	case ".cso":
		return convert.DiscFormatCso
	case ".rvz":
		return convert.DiscFormatRvz
	case ".zso":
		return convert.DiscFormatZso
	case ".iso":
		return convert.DiscFormatIso
	default:
		return convert.DiscFormatCueBin
	}
}

// exportRomsCommand implements `export-roms -d DIR [-f FMT|-g GAME|-s
// SYS|-o]`: unlike convert-roms it never touches the source Romfile,
// always writing to an out-of-tree target directory via
// internal/convert.Exporter, matching spec.md §4.8's "out-of-tree-only"
// scope for WBFS/NSZ/ISO.
var exportRomsCommand = &cli.Command{
	Name:  "export-roms",
	Usage: "export roms to an out-of-tree directory",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "destination directory", Required: true},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "export format: wbfs|nsz|iso", Required: true},
		&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Usage: "restrict to one game, by name"},
		&cli.StringFlag{Name: "system", Aliases: []string{"s"}, Usage: "restrict to one system, by name"},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"o"}, Usage: "overwrite an existing file at the destination"},
	},
	Action: runExportRoms,
}

var lossyFormats = map[string]convert.LossyFormat{
	"wbfs": convert.LossyWBFS,
	"nsz":  convert.LossyNSZ,
	"iso":  convert.LossyISO,
}

func runExportRoms(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, cfg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	format, ok := lossyFormats[c.String("format")]
	if !ok {
		return userErrorf("export-roms: unknown format %q", c.String("format"))
	}

	games, err := gamesInScope(ctx, store, c)
	if err != nil {
		return err
	}

	tmp, err := archive.NewTmpScope(cfg.TmpDirectory)
	if err != nil {
		return err
	}
	defer tmp.Close()

	engine := hash.New()
	exporter := &convert.Exporter{Engine: engine, Tmp: tmp, Bchunk: tool.Bchunk, NSZ: tool.NSZ, Wit: tool.Wit}
	destDir := c.String("directory")

	for _, g := range games {
		_, abs, roms, err := currentArchiveOf(ctx, store, g, cfg.RomDirectory)
		if err != nil || abs == "" || len(roms) == 0 {
			if err != nil {
				logf("export-roms: %s: %v", g.Name, err)
			}
			continue
		}

		name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
		if !c.Bool("overwrite") {
			if _, err := os.Stat(filepath.Join(destDir, name+lossyExt(format))); err == nil {
				continue
			}
		}

		job := convert.NewJob(roms[0].ID, abs)
		if err := exporter.ExportLossy(ctx, job, format, destDir, name); err != nil {
			logf("export-roms: %s: %v", g.Name, err)
		}
	}
	return nil
}

func lossyExt(f convert.LossyFormat) string {
	switch f {
	case convert.LossyWBFS:
		return ".wbfs"
	case convert.LossyNSZ:
		return ".nsz"
	default:
		return ".iso"
	}
}

// rebuildRomsCommand implements `rebuild-roms [-m MERGING|-a|-y]`: it
// rewrites every arcade Game's archive to the ROM set its MergingStrategy
// requires via internal/convert.Rebuilder, which already implements the
// full Plan/Execute/idempotency cycle - this command is pure wiring.
var rebuildRomsCommand = &cli.Command{
	Name:  "rebuild-roms",
	Usage: "rebuild arcade rom sets to match a merging strategy",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "merging", Aliases: []string{"m"}, Usage: "split|non-merged|full-non-merged|none"},
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "rebuild every arcade system"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "don't ask for confirmation"},
	},
	Action: runRebuildRoms,
}

func runRebuildRoms(c *cli.Context) error {
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

	tmp, err := archive.NewTmpScope(cfg.TmpDirectory)
	if err != nil {
		return err
	}
	defer tmp.Close()

	rebuilder := &convert.Rebuilder{Store: store, Engine: hash.New(), Tmp: tmp, Root: cfg.RomDirectory}

	flagStrategy := catalog.MergingStrategy(c.String("merging"))

	for _, sys := range systems {
		if !sys.Arcade {
			continue
		}
		strategy := flagStrategy
		if strategy == "" {
			strategy = sys.Merging
		}
		if strategy == "" {
			strategy = catalog.MergingSplit
		}
		games, err := store.GamesOfSystem(ctx, sys.ID)
		if err != nil {
			return err
		}
		for _, g := range games {
			plan, err := rebuilder.Plan(ctx, g, strategy)
			if err != nil {
				logf("rebuild-roms: %s: %v", g.Name, err)
				continue
			}
			if err := rebuilder.Execute(ctx, plan); err != nil {
				logf("rebuild-roms: %s: %v", g.Name, err)
			}
		}
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/dat"
)

// importDatsCommand implements `import-dats [-i|-s|-f|-a] <FILES...>`: it
// streams each Logiqx dat through internal/dat.ParseLogiqx and persists the
// result via the Catalog Store's UpsertSystem/SyncGames, matching the
// teacher's sync command's dat-to-store wiring (cmd/rom/main.go's sync)
// generalized from one positional dat to a batch of FILES.
var importDatsCommand = &cli.Command{
	Name:      "import-dats",
	Usage:     "import one or more Logiqx dat files",
	ArgsUsage: "<FILES...>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "info", Aliases: []string{"i"}, Usage: "print each dat's header only, without importing"},
		&cli.StringFlag{Name: "system", Aliases: []string{"s"}, Usage: "override the system name recorded from the dat header"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an existing system even on an equal-or-newer version"},
		&cli.BoolFlag{Name: "arcade", Aliases: []string{"a"}, Usage: "force-classify the system as arcade regardless of auto-detection"},
	},
	Action: runImportDats,
}

func runImportDats(c *cli.Context) error {
	if c.NArg() < 1 {
		return userErrorf("import-dats: no FILES given")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range c.Args().Slice() {
		if err := importOneDat(c, store, path); err != nil {
			logf("import-dats: %s: %v", path, err)
		}
	}
	return nil
}

func importOneDat(c *cli.Context, store *catalog.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := dat.ParseLogiqx(f)
	if err != nil {
		return err
	}

	if c.Bool("info") {
		fmt.Printf("%s: %s (%s)\n", path, parsed.System.Name, parsed.System.Version)
		for range parsed.Games { // drain, discarding
		}
		return nil
	}

	sys := parsed.System
	if name := c.String("system"); name != "" {
		sys.Name = name
	}
	if c.Bool("arcade") {
		sys.Arcade = true
	}

	sysID, err := store.UpsertSystem(c.Context, datToParsedSystem(sys), c.Bool("force"))
	if err != nil {
		return err
	}

	summary, err := store.SyncGames(c.Context, sysID, datGamesSeq(parsed.Games))
	if err != nil {
		return err
	}

	logf("import-dats: %s: +%d games, ~%d updated, -%d removed", path, summary.GamesAdded, summary.GamesUpdated, summary.GamesRemoved)
	for _, w := range parsed.Summary.SkippedWarnings {
		logf("import-dats: %s: %s", path, w)
	}
	return nil
}

func datToParsedSystem(s dat.System) catalog.ParsedSystem {
	return catalog.ParsedSystem{
		Name:        s.Name,
		Description: s.Description,
		Version:     s.Version,
		Arcade:      s.Arcade,
	}
}

// datGamesSeq adapts ParseLogiqx's streaming channel into the iter.Seq
// SyncGames consumes, converting each dat.Game (C2's shape) into a
// catalog.ParsedGame (C1's shape) as it is pulled - the conversion point
// the architecture deliberately keeps out of both packages.
func datGamesSeq(ch <-chan dat.Game) iter.Seq[catalog.ParsedGame] {
	return func(yield func(catalog.ParsedGame) bool) {
		for g := range ch {
			if !yield(datToParsedGame(g)) {
				return
			}
		}
	}
}

func datToParsedGame(g dat.Game) catalog.ParsedGame {
	roms := make([]catalog.ParsedRom, len(g.Roms))
	for i, r := range g.Roms {
		roms[i] = catalog.ParsedRom{
			Name:   r.Name,
			Size:   r.Size,
			CRC32:  r.CRC32,
			MD5:    r.MD5,
			SHA1:   r.SHA1,
			Status: catalog.RomStatus(r.Status),
			Parent: r.Parent,
			Bios:   r.Bios,
		}
	}
	return catalog.ParsedGame{
		Name:      g.Name,
		Category:  g.Category,
		Parent:    g.Parent,
		Bios:      g.Bios,
		Regions:   g.Regions,
		Languages: g.Languages,
		Flags:     g.Flags,
		Revision:  g.Revision,
		DiscIndex: g.DiscIndex,
		Roms:      roms,
	}
}

// downloadDatsCommand implements `download-dats [-n|-r|-u|-a|-f]`: it
// fetches one named source by URL and feeds it through the same
// parse/persist path as import-dats, reusing net/http.Client the way
// retronian-romu/internal/covers/covers.go fetches cover art - the only
// HTTP-client idiom anywhere in the example pack.
var downloadDatsCommand = &cli.Command{
	Name:  "download-dats",
	Usage: "download and import a dat file from a URL",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "system name to record, overriding the one in the dat header"},
		&cli.StringFlag{Name: "region", Aliases: []string{"r"}, Usage: "region hint; accepted but not applied to the import"},
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "dat URL to fetch", Required: true},
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "reserved for a future multi-source manifest; a single -u is required today"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an existing system even on an equal-or-newer version"},
	},
	Action: runDownloadDats,
}

func runDownloadDats(c *cli.Context) error {
	client := &http.Client{Timeout: 60 * time.Second}

	resp, err := client.Get(c.String("url"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return userErrorf("download-dats: %s: HTTP %d", c.String("url"), resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "oxyromon-dat-*.xml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	parsed, err := dat.ParseLogiqx(tmp)
	if err != nil {
		return err
	}

	sys := parsed.System
	if name := c.String("name"); name != "" {
		sys.Name = name
	}

	sysID, err := store.UpsertSystem(c.Context, datToParsedSystem(sys), c.Bool("force"))
	if err != nil {
		return err
	}

	summary, err := store.SyncGames(c.Context, sysID, datGamesSeq(parsed.Games))
	if err != nil {
		return err
	}

	logf("download-dats: %s: +%d games, ~%d updated, -%d removed", c.String("url"), summary.GamesAdded, summary.GamesUpdated, summary.GamesRemoved)
	return nil
}

// importIrdsCommand implements `import-irds [-i|-f] <FILES...>`: IRD v9
// binary sidecar files (PS3 disc images, which ship without embedded
// checksums) are parsed and each entry's SHA1 is looked up among the
// catalog's Roms. The command reports how many entries matched an existing
// Rom; it writes nothing to the catalog.
var importIrdsCommand = &cli.Command{
	Name:      "import-irds",
	Usage:     "import one or more IRD files",
	ArgsUsage: "<FILES...>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "info", Aliases: []string{"i"}, Usage: "print each IRD's entry count only, without importing"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "accepted; has no effect, since no Rom's SHA1 is written"},
	},
	Action: runImportIrds,
}

func runImportIrds(c *cli.Context) error {
	if c.NArg() < 1 {
		return userErrorf("import-irds: no FILES given")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range c.Args().Slice() {
		if err := importOneIrd(c, store, path); err != nil {
			logf("import-irds: %s: %v", path, err)
		}
	}
	return nil
}

func importOneIrd(c *cli.Context, store *catalog.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ird, err := dat.ParseIRD(f)
	if err != nil {
		return err
	}

	if c.Bool("info") {
		fmt.Printf("%s: %d entries\n", path, len(ird.Entries))
		return nil
	}

	matched := 0
	for _, entry := range ird.Entries {
		roms, err := store.FindRomsByHashes(c.Context, catalog.HashQuery{SHA1: entry.SHA1})
		if err != nil {
			return err
		}
		if len(roms) > 0 {
			matched++
		}
	}
	logf("import-irds: %s: %d/%d entries matched an existing rom", path, matched, len(ird.Entries))
	return nil
}

// importPatchesCommand implements `import-patches [-n|-f] <FILES...>`:
// each patch file is recorded against the Rom whose name matches its
// filename stem, stacked at the next free index via
// internal/catalog.CreatePatch; the patch format itself (IPS/BPS/xdelta)
// is never interpreted here, only its identity and position (C1's scope
// per spec.md's "Patches are regenerated deterministically from Rom
// content").
var importPatchesCommand = &cli.Command{
	Name:      "import-patches",
	Usage:     "import one or more patch files",
	ArgsUsage: "<FILES...>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "rom name to match, overriding the filename stem"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "replace an existing patch at the same position"},
	},
	Action: runImportPatches,
}

func runImportPatches(c *cli.Context) error {
	if c.NArg() < 1 {
		return userErrorf("import-patches: no FILES given")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range c.Args().Slice() {
		if err := importOnePatch(c, store, path); err != nil {
			logf("import-patches: %s: %v", path, err)
		}
	}
	return nil
}

func importOnePatch(c *cli.Context, store *catalog.Store, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	name := c.String("name")
	if name == "" {
		name = patchStem(path)
	}

	rom, err := store.RomByName(c.Context, name)
	if err != nil {
		return userErrorf("import-patches: %s: no rom named %q found", path, name)
	}

	existing, err := store.PatchesOfRom(c.Context, rom.ID)
	if err != nil {
		return err
	}

	idx := len(existing)
	if c.Bool("force") && idx > 0 {
		idx = existing[idx-1].Idx
	}

	if _, err := store.CreatePatch(c.Context, rom.ID, idx, path, info.Size()); err != nil {
		return err
	}
	logf("import-patches: %s: applied as patch %d over rom %q", path, idx, name)
	return nil
}

func patchStem(path string) string {
	base := path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func logf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/catalog"
	"github.com/oxyromon/oxyromon/internal/dat"
	"github.com/oxyromon/oxyromon/internal/sorter"
)

// generatePlaylistsCommand implements `generate-playlists [-a]`: it groups
// a System's multi-disc Games by base title (internal/dat.ParseName's
// grammar) and writes one M3U per group under the System's directory,
// then records it via internal/catalog.CreatePlaylist, matching the
// GLOSSARY's "Romfile of kind M3U generated from multi-disc game groups".
var generatePlaylistsCommand = &cli.Command{
	Name:      "generate-playlists",
	Usage:     "write M3U playlists for multi-disc games",
	ArgsUsage: "[SYSTEM]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "generate playlists for every system"},
	},
	Action: runGeneratePlaylists,
}

func runGeneratePlaylists(c *cli.Context) error {
	ctx, cancel := shutdownContext()
	defer cancel()

	store, cfg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.RomDirectory == "" {
		return userErrorf("generate-playlists: ROM_DIRECTORY is not set")
	}

	systems, err := selectSystems(ctx, store, c)
	if err != nil {
		return err
	}

	for _, sys := range systems {
		games, err := store.GamesOfSystem(ctx, sys.ID)
		if err != nil {
			return err
		}

		groups := make(map[string][]catalog.Game)
		var order []string
		for _, g := range games {
			if g.DiscIndex <= 0 {
				continue
			}
			parsed, err := dat.ParseName(g.Name)
			if err != nil {
				continue
			}
			key := parsed.BaseTitle + "|" + strings.Join(g.Regions, ",")
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], g)
		}

		for _, key := range order {
			members := groups[key]
			if len(members) < 2 {
				continue
			}
			if err := writePlaylist(ctx, store, sys, members, cfg.RomDirectory); err != nil {
				logf("generate-playlists: %s: %v", sys.Name, err)
			}
		}
	}
	return nil
}

func writePlaylist(ctx context.Context, store *catalog.Store, sys catalog.System, members []catalog.Game, root string) error {
	sort.Slice(members, func(i, j int) bool { return members[i].DiscIndex < members[j].DiscIndex })

	var lines []string
	var ids []catalog.GameID
	for _, g := range members {
		path, err := currentPathOf(ctx, store, g)
		if err != nil {
			return err
		}
		if path == "" {
			continue // not on disk yet, leave this disc out of the playlist
		}
		lines = append(lines, filepath.Base(path))
		ids = append(ids, g.ID)
	}
	if len(lines) < 2 {
		return nil
	}

	parsed, err := dat.ParseName(members[0].Name)
	if err != nil {
		return err
	}
	dir := filepath.Join(root, sorter.SystemDir(sys))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	m3uPath := filepath.Join(dir, sanitizeFilename(parsed.BaseTitle)+".m3u")

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(m3uPath, []byte(content), 0o644); err != nil {
		return err
	}

	rel, err := filepath.Rel(root, m3uPath)
	if err != nil {
		return err
	}
	_, err = store.CreatePlaylist(ctx, filepath.ToSlash(rel), int64(len(content)), ids)
	return err
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, name)
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Playlist is the persisted form of spec.md's GLOSSARY entry: "a Romfile of
// kind M3U generated from multi-disc game groups; back-referenced from each
// constituent Game."
type Playlist struct {
	ID        PlaylistID
	RomfileID RomfileID
	Kind      string
	Games     []GameID
}

// CreatePlaylist records path (an M3U file the caller has already written
// to disk, per spec.md §4.7's layout) as a Playlist spanning games,
// replacing any prior Playlist at that path. Grouping multi-disc Games by
// title belongs to the caller (C2's naming grammar, not C1), matching the
// existing split between internal/dat's parsing and internal/catalog's
// persistence.
func (s *Store) CreatePlaylist(ctx context.Context, path string, size int64, games []GameID) (PlaylistID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer tx.Rollback()

	rfID, err := upsertRomfile(ctx, tx, path, size)
	if err != nil {
		return 0, err
	}

	var id PlaylistID
	err = tx.QueryRowContext(ctx, `SELECT id FROM playlists WHERE romfile_id = ?`, rfID).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `INSERT INTO playlists (romfile_id, kind) VALUES (?, 'm3u')`, rfID)
		if err != nil {
			return 0, fmt.Errorf("%w: insert playlist: %v", ErrIo, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
		id = PlaylistID(lastID)
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_games WHERE playlist_id = ?`, id); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
	}

	for _, g := range games {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_games (playlist_id, game_id) VALUES (?, ?)`, id, g); err != nil {
			return 0, fmt.Errorf("%w: link playlist game %d: %v", ErrIo, g, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return id, nil
}

// PlaylistsOfSystem lists every Playlist whose constituent Games belong to
// sys, for display purposes.
func (s *Store) PlaylistsOfSystem(ctx context.Context, sys SystemID) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.romfile_id, p.kind
		FROM playlists p
		JOIN playlist_games pg ON pg.playlist_id = p.id
		JOIN games g ON g.id = pg.game_id
		WHERE g.system_id = ?
		ORDER BY p.id`, sys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.RomfileID, &p.Kind); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		gameRows, err := s.db.QueryContext(ctx, `SELECT game_id FROM playlist_games WHERE playlist_id = ?`, out[i].ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		for gameRows.Next() {
			var g GameID
			if err := gameRows.Scan(&g); err != nil {
				gameRows.Close()
				return nil, fmt.Errorf("%w: %v", ErrIo, err)
			}
			out[i].Games = append(out[i].Games, g)
		}
		if err := gameRows.Err(); err != nil {
			gameRows.Close()
			return nil, err
		}
		gameRows.Close()
	}
	return out, nil
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// SystemByID loads one System by id, for callers (the Rebuilder, the
// Exporter) that only have an id in hand from a prior query.
func (s *Store) SystemByID(ctx context.Context, id SystemID) (System, error) {
	var sys System
	var customName, description, version sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, custom_name, description, version, arcade, merging, completion
		FROM systems WHERE id = ?`, id).Scan(
		&sys.ID, &sys.Name, &customName, &description, &version, &sys.Arcade, &sys.Merging, &sys.Completion)
	if err == sql.ErrNoRows {
		return System{}, ErrNotFound
	}
	if err != nil {
		return System{}, fmt.Errorf("%w: %v", ErrIo, err)
	}
	sys.CustomName, sys.Description, sys.Version = customName.String, description.String, version.String
	return sys, nil
}

// ListSystems lists every System, in id order, for the CLI's system
// listing and selection and the server's JSON-RPC read queries (spec.md
// §6's "exposes read queries for Systems...").
func (s *Store) ListSystems(ctx context.Context) ([]System, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, custom_name, description, version, arcade, merging, completion
		FROM systems ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []System
	for rows.Next() {
		var sys System
		var customName, description, version sql.NullString
		if err := rows.Scan(&sys.ID, &sys.Name, &customName, &description, &version,
			&sys.Arcade, &sys.Merging, &sys.Completion); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		sys.CustomName, sys.Description, sys.Version = customName.String, description.String, version.String
		out = append(out, sys)
	}
	return out, rows.Err()
}

// GameByID loads one Game by id.
func (s *Store) GameByID(ctx context.Context, id GameID) (Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, system_id, name, category, parent_id, bios_id, regions, languages, flags,
		       revision, disc_index, completion, sorting
		FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return Game{}, ErrNotFound
	}
	if err != nil {
		return Game{}, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return g, nil
}

// GamesOfSystem lists every Game belonging to sys, in id order, for the
// Rebuilder's full-system sweep.
func (s *Store) GamesOfSystem(ctx context.Context, sys SystemID) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, system_id, name, category, parent_id, bios_id, regions, languages, flags,
		       revision, disc_index, completion, sorting
		FROM games WHERE system_id = ? ORDER BY id`, sys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row scanner) (Game, error) {
	var g Game
	var category, regions, languages, flags sql.NullString
	var parentID, biosID sql.NullInt64
	if err := row.Scan(&g.ID, &g.SystemID, &g.Name, &category, &parentID, &biosID,
		&regions, &languages, &flags, &g.Revision, &g.DiscIndex, &g.Completion, &g.Sorting); err != nil {
		return Game{}, err
	}
	g.Category = category.String
	g.Regions = splitList(regions.String)
	g.Languages = splitList(languages.String)
	g.Flags = splitList(flags.String)
	if parentID.Valid {
		id := GameID(parentID.Int64)
		g.ParentID = &id
	}
	if biosID.Valid {
		id := GameID(biosID.Int64)
		g.BiosID = &id
	}
	return g, nil
}

// RomByName returns the first Rom named name, for `import-patches`'s
// filename-stem matching (spec.md doesn't scope patches to a System, so
// this searches across every System's Roms).
func (s *Store) RomByName(ctx context.Context, name string) (Rom, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, name, size, crc32, md5, sha1, status, bios, romfile_id
		FROM roms WHERE name = ? LIMIT 1`, name)

	var r Rom
	var crc32, md5, sha1 sql.NullString
	var romfileID sql.NullInt64
	err := row.Scan(&r.ID, &r.GameID, &r.Name, &r.Size, &crc32, &md5, &sha1, &r.Status, &r.Bios, &romfileID)
	if err == sql.ErrNoRows {
		return Rom{}, ErrNotFound
	}
	if err != nil {
		return Rom{}, fmt.Errorf("%w: %v", ErrIo, err)
	}
	r.CRC32, r.MD5, r.SHA1 = crc32.String, md5.String, sha1.String
	if romfileID.Valid {
		id := RomfileID(romfileID.Int64)
		r.RomfileID = &id
	}
	return r, nil
}

// DeleteRomfile removes one Romfile row, which via the schema's ON DELETE
// SET NULL frees any Rom pointing at it back to Missing, per `purge-roms`'s
// -m/-o rollup (spec.md §8 scenario 5).
func (s *Store) DeleteRomfile(ctx context.Context, id RomfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM romfiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RomfileByID loads one Romfile by id, for resolving a Rom's RomfileID into
// the on-disk path the Converter/Rebuilder/Exporter read from.
func (s *Store) RomfileByID(ctx context.Context, id RomfileID) (Romfile, error) {
	var rf Romfile
	err := s.db.QueryRowContext(ctx, `SELECT id, path, size FROM romfiles WHERE id = ?`, id).Scan(&rf.ID, &rf.Path, &rf.Size)
	if err == sql.ErrNoRows {
		return Romfile{}, ErrNotFound
	}
	if err != nil {
		return Romfile{}, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return rf, nil
}

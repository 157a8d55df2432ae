package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Patch is the persisted form of a single IPS/BPS/xdelta file applied over
// rom's content at position idx (for Roms that ship as a base + an ordered
// stack of patches); C1 only tracks the patch file's identity and
// position, the patch format and its application belong to the UI/
// emulator layer, per spec.md's "Patches... are regenerated deterministically
// from Rom content" (C1 doesn't interpret patch bytes).
type Patch struct {
	ID        PatchID
	RomID     RomID
	Idx       int
	RomfileID RomfileID
}

// CreatePatch records path (already written under ROM_DIRECTORY) as the
// idx'th patch applied over rom, replacing any existing patch at that
// position.
func (s *Store) CreatePatch(ctx context.Context, rom RomID, idx int, path string, size int64) (PatchID, error) {
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

	var id PatchID
	err = tx.QueryRowContext(ctx, `SELECT id FROM patches WHERE rom_id = ? AND idx = ?`, rom, idx).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO patches (rom_id, idx, romfile_id) VALUES (?, ?, ?)`, rom, idx, rfID)
		if err != nil {
			return 0, fmt.Errorf("%w: insert patch: %v", ErrIo, err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
		id = PatchID(lastID)
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE patches SET romfile_id = ? WHERE id = ?`, rfID, id); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrIo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return id, nil
}

// PatchesOfRom lists rom's patches in application order (idx ascending).
func (s *Store) PatchesOfRom(ctx context.Context, rom RomID) ([]Patch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rom_id, idx, romfile_id FROM patches WHERE rom_id = ? ORDER BY idx`, rom)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	var out []Patch
	for rows.Next() {
		var p Patch
		if err := rows.Scan(&p.ID, &p.RomID, &p.Idx, &p.RomfileID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

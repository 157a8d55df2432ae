package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSetting returns the raw stored value for key, and ok=false when the
// key has never been set (the caller applies its own default).
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: %v", ErrIo, err)
	}
}

// SetSetting upserts key's raw value, per the `config -s KEY VALUE` CLI
// verb of spec.md §6.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// UnsetSetting removes key entirely, per `config -u KEY`.
func (s *Store) UnsetSetting(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

// ListSettings returns every stored key/value pair, per `config -l`.
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

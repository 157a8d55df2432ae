package catalog

import (
	"database/sql"
	"fmt"
)

// migration is one forward-only, idempotent schema step, applied in order
// on Open and tracked via the user_version pragma. Grounded on
// retronian-romu/internal/db/db.go's single inline CREATE TABLE IF NOT
// EXISTS schema block, split here into versioned steps per spec.md §4.1's
// "a forward-only ordered series, each idempotent, applied on open."
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS systems (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	custom_name     TEXT,
	description     TEXT,
	version         TEXT,
	arcade          INTEGER NOT NULL DEFAULT 0,
	merging         TEXT NOT NULL DEFAULT 'split',
	completion      TEXT NOT NULL DEFAULT 'none'
);

CREATE TABLE IF NOT EXISTS games (
	id              INTEGER PRIMARY KEY,
	system_id       INTEGER NOT NULL REFERENCES systems(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	category        TEXT,
	parent_id       INTEGER REFERENCES games(id) ON DELETE SET NULL,
	bios_id         INTEGER REFERENCES games(id) ON DELETE SET NULL,
	regions         TEXT NOT NULL DEFAULT '',
	languages       TEXT NOT NULL DEFAULT '',
	flags           TEXT NOT NULL DEFAULT '',
	revision        TEXT NOT NULL DEFAULT '',
	disc_index      INTEGER NOT NULL DEFAULT 0,
	completion      TEXT NOT NULL DEFAULT 'none',
	sorting         TEXT NOT NULL DEFAULT 'all-regions',
	UNIQUE(system_id, name)
);

CREATE TABLE IF NOT EXISTS roms (
	id              INTEGER PRIMARY KEY,
	game_id         INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	size            INTEGER,
	crc32           TEXT,
	md5             TEXT,
	sha1            TEXT,
	status          TEXT NOT NULL DEFAULT 'good',
	parent_id       INTEGER REFERENCES roms(id) ON DELETE SET NULL,
	bios            INTEGER NOT NULL DEFAULT 0,
	romfile_id      INTEGER REFERENCES romfiles(id) ON DELETE SET NULL,
	UNIQUE(game_id, name)
);

CREATE TABLE IF NOT EXISTS romfiles (
	id              INTEGER PRIMARY KEY,
	path            TEXT NOT NULL UNIQUE,
	size            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS headers (
	id              INTEGER PRIMARY KEY,
	system_id       INTEGER NOT NULL REFERENCES systems(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	version         TEXT
);

CREATE TABLE IF NOT EXISTS header_rules (
	id              INTEGER PRIMARY KEY,
	header_id       INTEGER NOT NULL REFERENCES headers(id) ON DELETE CASCADE,
	start_byte      INTEGER NOT NULL,
	length          INTEGER NOT NULL,
	hex_pattern     TEXT NOT NULL,
	operation       TEXT NOT NULL DEFAULT 'strip'
);

CREATE TABLE IF NOT EXISTS patches (
	id              INTEGER PRIMARY KEY,
	rom_id          INTEGER NOT NULL REFERENCES roms(id) ON DELETE CASCADE,
	idx             INTEGER NOT NULL,
	romfile_id      INTEGER REFERENCES romfiles(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS playlists (
	id              INTEGER PRIMARY KEY,
	romfile_id      INTEGER NOT NULL REFERENCES romfiles(id) ON DELETE CASCADE,
	kind            TEXT NOT NULL DEFAULT 'm3u'
);

CREATE TABLE IF NOT EXISTS playlist_games (
	playlist_id     INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	game_id         INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	PRIMARY KEY (playlist_id, game_id)
);

CREATE TABLE IF NOT EXISTS settings (
	key             TEXT PRIMARY KEY,
	value           TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_romfiles_path ON romfiles(path);
CREATE INDEX IF NOT EXISTS idx_roms_size_crc32 ON roms(size, crc32);
CREATE INDEX IF NOT EXISTS idx_roms_md5 ON roms(md5);
CREATE INDEX IF NOT EXISTS idx_roms_sha1 ON roms(sha1);
CREATE INDEX IF NOT EXISTS idx_games_completion_sorting ON games(completion, sorting);
CREATE UNIQUE INDEX IF NOT EXISTS idx_systems_name ON systems(name);
`,
	},
}

// applyMigrations runs every migration whose version exceeds the database's
// current user_version pragma, then advances the pragma. Forward-only and
// idempotent per spec.md §4.1; there is no down-migration path.
func applyMigrations(db *sql.DB) error {
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return err
		}
		// SQLite pragmas do not accept bound parameters; the value is an
		// int we generated ourselves, never user input.
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, m.version)); err != nil {
			return err
		}
	}

	return nil
}

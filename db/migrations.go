package db

import (
	"database/sql"
)

type migration struct {
	version int
	name    string
	stmts   []string
}

const sqlCreateMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

// migrations are applied in order; a version is never edited once released.
var migrations = []migration{
	{
		version: 1,
		name:    "events",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT NOT NULL PRIMARY KEY,
				pubkey TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				kind INTEGER NOT NULL,
				tags TEXT NOT NULL DEFAULT '[]',
				content TEXT NOT NULL DEFAULT '',
				sig TEXT NOT NULL DEFAULT '',
				target_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_kind_created_at ON events(kind, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_events_pubkey_kind ON events(pubkey, kind)`,
			`CREATE INDEX IF NOT EXISTS idx_events_target_id ON events(target_id)`,
		},
	},
	{
		version: 2,
		name:    "profiles",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS profiles (
				pubkey TEXT NOT NULL PRIMARY KEY,
				created_at INTEGER NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				display_name TEXT NOT NULL DEFAULT '',
				about TEXT NOT NULL DEFAULT '',
				picture TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
	{
		version: 3,
		name:    "outbox",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT NOT NULL PRIMARY KEY,
				event_id TEXT NOT NULL,
				event_json TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_created_at ON outbox(created_at)`,
		},
	},
}

// RunMigrations applies every migration newer than the recorded schema version.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateMigrationsTable); err != nil {
			return err
		}

		current, err := schemaVersion(tx)
		if err != nil {
			return err
		}

		for _, m := range migrations {
			if m.version <= current {
				continue
			}
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					db.log.Error().Err(err).Int("version", m.version).Str("migration", m.name).Msg("migration failed")
					return err
				}
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
				return err
			}
			db.log.Info().Int("version", m.version).Str("migration", m.name).Msg("applied migration")
		}
		return nil
	})
}

func schemaVersion(tx *sql.Tx) (int, error) {
	var version sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// SchemaVersion reports the newest applied migration.
func (db *DB) SchemaVersion() (int, error) {
	var version sql.NullInt64
	if err := db.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// Package sqlite implements the repository interfaces on SQLite.
//
// We use modernc.org/sqlite, a pure-Go translation of SQLite — no CGo, no C
// compiler, works everywhere Go works. The database is a single file (or
// ":memory:" in tests).
//
// All repository methods live on *DB; a single connection pool serves every
// table. Concurrent requests are serialized by SQLite itself (WAL mode allows
// reads during a write), so the application layer carries no locking.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas, and runs migrations.
// Use ":memory:" for an in-memory database (tests).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path surfaces here, not on
	// the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — needed
	// for a web server where requests overlap.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer it next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent, so
// this is safe on every start; columns added after the first release go
// through addColumnIfNotExists.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			external_id   TEXT UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			avatar_url    TEXT NOT NULL DEFAULT '',
			share_code    TEXT NOT NULL UNIQUE,
			created_at    DATETIME NOT NULL,
			last_login_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_share_code ON users(share_code);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Profile fields arrived after the first release; the checks keep the
	// migration idempotent on existing databases.
	for _, col := range []struct{ name, def string }{
		{"alias", "TEXT NOT NULL DEFAULT ''"},
		{"bio", "TEXT NOT NULL DEFAULT ''"},
		{"custom_avatar_path", "TEXT NOT NULL DEFAULT ''"},
	} {
		if err := db.addColumnIfNotExists("users", col.name, col.def); err != nil {
			return fmt.Errorf("adding %s to users: %w", col.name, err)
		}
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id             TEXT PRIMARY KEY,
			target_user_id TEXT NOT NULL REFERENCES users(id),
			author_user_id TEXT NOT NULL REFERENCES users(id),
			kind           TEXT NOT NULL CHECK (kind IN ('text', 'image', 'audio')),
			text_content   TEXT NOT NULL DEFAULT '',
			file_path      TEXT NOT NULL DEFAULT '',
			original_name  TEXT NOT NULL DEFAULT '',
			mime_type      TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_target_user ON entries(target_user_id);
		CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating entries table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scores (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE REFERENCES users(id),
			best_score INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scores_best_score ON scores(best_score DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating scores table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS allowed_emails (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating allowed_emails table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS access_requests (
			id           TEXT PRIMARY KEY,
			email        TEXT NOT NULL,
			external_id  TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL,
			avatar_url   TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			requested_at DATETIME NOT NULL,
			reviewed_at  DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_access_requests_email ON access_requests(email);
		CREATE INDEX IF NOT EXISTS idx_access_requests_status ON access_requests(status);
	`)
	if err != nil {
		return fmt.Errorf("creating access_requests table: %w", err)
	}

	return nil
}

// addColumnIfNotExists makes ALTER TABLE migrations idempotent; SQLite's
// ALTER TABLE errors if the column already exists.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

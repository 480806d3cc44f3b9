package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/taskr/internal/store/sqlstore"
)

// Dialect is the SQLite schema. Timestamps are stored as REAL epoch seconds.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS taskr_sessions(
			session_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			last_updated REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS taskr_todos(
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			content TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			PRIMARY KEY(session_id, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_taskr_todos_position ON taskr_todos(session_id, position);`,
		`CREATE TABLE IF NOT EXISTS taskr_meta(
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
	},
}

// New opens (creating if needed) a SQLite database at path using the CGO-free
// modernc.org/sqlite driver and ensures the schema. Use ":memory:" for tests.
func New(path string) (*sqlstore.DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// one connection: keeps ":memory:" databases alive and matches sqlite's single writer
	d.SetMaxOpenConns(1)
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	db := sqlstore.New(d, Dialect, p)
	if err := db.EnsureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

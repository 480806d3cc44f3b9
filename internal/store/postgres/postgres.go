package postgres

import (
	"context"
	"database/sql"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/taskr/internal/store/sqlstore"
)

var Dialect = sqlstore.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS taskr_sessions(
			session_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			last_updated DOUBLE PRECISION NOT NULL
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

// New opens a Postgres database through the pgx stdlib driver. sql.Open does
// not connect, so the schema is created lazily by EnsureSchema.
func New(dsn string) (*sqlstore.DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(d, Dialect, Redact(dsn)), nil
}

// Open is New followed by EnsureSchema.
func Open(ctx context.Context, dsn string) (*sqlstore.DB, error) {
	db, err := New(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Redact masks the password of a URL-form DSN.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

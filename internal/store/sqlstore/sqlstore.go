package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	Name string
	// Schema holds the CREATE statements run by EnsureSchema.
	Schema []string
	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
}

// DB persists snapshots into three tables. Save replaces their contents in a
// single transaction, so a reader never sees a half-written store.
type DB struct {
	db       *sql.DB
	dialect  Dialect
	location string
}

// New wraps an open database. location is what Stats reports as the storage
// file and must not carry credentials.
func New(db *sql.DB, dialect Dialect, location string) *DB {
	return &DB{db: db, dialect: dialect, location: location}
}

func (s *DB) Kind() string     { return s.dialect.Name }
func (s *DB) Location() string { return s.location }
func (s *DB) Close() error     { return s.db.Close() }

// SQL exposes the underlying handle for tests.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) EnsureSchema(ctx context.Context) error {
	for _, q := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// q rewrites "?" placeholders for dialects that number them.
func (s *DB) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *DB) Save(ctx context.Context, snap *store.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, q := range []string{`DELETE FROM taskr_todos`, `DELETE FROM taskr_sessions`} {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	for i, sess := range snap.Sessions {
		if _, err = tx.ExecContext(ctx, s.q(`INSERT INTO taskr_sessions(session_id, position, last_updated) VALUES(?, ?, ?)`),
			sess.Key, i, store.UnixSeconds(sess.LastUpdated)); err != nil {
			return fmt.Errorf("session %s: %w", sess.Key, err)
		}
		for j, r := range sess.Todos {
			if _, err = tx.ExecContext(ctx, s.q(`INSERT INTO taskr_todos(session_id, position, id, content, status, priority) VALUES(?, ?, ?, ?, ?, ?)`),
				sess.Key, j, r.ID, r.Content, string(r.Status), string(r.Priority)); err != nil {
				return fmt.Errorf("session %s todo %s: %w", sess.Key, r.ID, err)
			}
		}
	}
	if _, err = tx.ExecContext(ctx, s.q(`DELETE FROM taskr_meta WHERE k = ?`), "last_saved"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, s.q(`INSERT INTO taskr_meta(k, v) VALUES(?, ?)`),
		"last_saved", strconv.FormatFloat(store.UnixSeconds(snap.LastSaved), 'f', -1, 64)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *DB) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, last_updated FROM taskr_sessions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	for rows.Next() {
		var (
			key string
			ts  float64
		)
		if err := rows.Scan(&key, &ts); err != nil {
			_ = rows.Close()
			return nil, err
		}
		index[key] = len(snap.Sessions)
		snap.Sessions = append(snap.Sessions, store.Session{Key: key, Todos: []todo.Record{}, LastUpdated: store.FromUnixSeconds(ts)})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	trows, err := s.db.QueryContext(ctx, `SELECT session_id, id, content, status, priority FROM taskr_todos ORDER BY session_id, position`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = trows.Close() }()
	for trows.Next() {
		var (
			key    string
			r      todo.Record
			status string
			prio   string
		)
		if err := trows.Scan(&key, &r.ID, &r.Content, &status, &prio); err != nil {
			return nil, err
		}
		i, ok := index[key]
		if !ok {
			continue
		}
		r.Status, r.Priority = todo.Status(status), todo.Priority(prio)
		snap.Sessions[i].Todos = append(snap.Sessions[i].Todos, r)
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}

	var v string
	err = s.db.QueryRowContext(ctx, s.q(`SELECT v FROM taskr_meta WHERE k = ?`), "last_saved").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			snap.LastSaved = store.FromUnixSeconds(f)
		}
	}
	return snap, nil
}

package factory

import (
	"context"
	"strings"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/store/jsonfile"
	pg "github.com/loykin/taskr/internal/store/postgres"
	sq "github.com/loykin/taskr/internal/store/sqlite"
)

// NewFromDSN selects a persister based on DSN. It returns nil for an
// in-memory store.
// Supported:
//   - memory:   "" or "memory"
//   - json:     "file://<path>" or a bare path (default, the classic storage file)
//   - sqlite:   "sqlite://<path>", or a bare path ending in .db / .sqlite / .sqlite3
//   - postgres: DSN starting with "postgres://" or "postgresql://"
func NewFromDSN(ctx context.Context, dsn string) (store.Persister, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	switch {
	case ld == "" || ld == "memory":
		return nil, nil
	case strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://"):
		return wrap(pg.Open(ctx, d))
	case strings.HasPrefix(ld, "sqlite://"):
		return wrap(sq.New(d[len("sqlite://"):]))
	case strings.HasPrefix(ld, "file://"):
		return wrap(jsonfile.New(d[len("file://"):]))
	case strings.HasSuffix(ld, ".db") || strings.HasSuffix(ld, ".sqlite") || strings.HasSuffix(ld, ".sqlite3"):
		return wrap(sq.New(d))
	}
	// default to the json storage file
	return wrap(jsonfile.New(d))
}

// Redacted returns dsn with any Postgres password masked, fit for logs and
// error messages.
func Redacted(dsn string) string {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.Redact(d)
	}
	return d
}

// wrap keeps a failed constructor from leaking a typed nil through the interface.
func wrap[P store.Persister](p P, err error) (store.Persister, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

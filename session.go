package prefetch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"

	"github.com/Masterminds/squirrel"
)

// Session wraps a *sql.DB for the duration of one unit of work and counts
// every round trip issued through it. Query volume is the object of
// demonstration here, so the counter is the session's main product.
type Session struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	queries atomic.Int64
}

func NewSession(db *sql.DB, dialect Dialect) *Session {
	return &Session{db: db, dialect: dialect}
}

// WithLogger makes the session log every statement at debug level.
func (s *Session) WithLogger(logger *slog.Logger) *Session {
	s.logger = logger
	return s
}

// Queries returns the number of statements issued through the session so far.
func (s *Session) Queries() int64 {
	return s.queries.Load()
}

func (s *Session) Dialect() Dialect {
	return s.dialect
}

func (s *Session) PlaceholderFormat() squirrel.PlaceholderFormat {
	return s.dialect.Placeholder
}

func (s *Session) record(query string, args []any) {
	n := s.queries.Add(1)
	if s.logger != nil {
		s.logger.Debug("query", "n", n, "sql", query, "args", args)
	}
}

func (s *Session) Exec(query string, args ...any) (sql.Result, error) {
	s.record(query, args)
	return s.db.Exec(query, args...)
}

func (s *Session) Query(query string, args ...any) (*sql.Rows, error) {
	s.record(query, args)
	return s.db.Query(query, args...)
}

func (s *Session) QueryRow(query string, args ...any) *sql.Row {
	s.record(query, args)
	return s.db.QueryRow(query, args...)
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.record(query, args)
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	s.record(query, args)
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	s.record(query, args)
	return s.db.QueryRowContext(ctx, query, args...)
}

var (
	_ squirrel.BaseRunner = (*Session)(nil)
	_ squirrel.StdSqlCtx  = (*Session)(nil)
)

type placeholderProvider interface {
	PlaceholderFormat() squirrel.PlaceholderFormat
}

// baseSelect starts a SELECT on the given runner, picking up the runner's
// placeholder format when it carries one.
func baseSelect(db squirrel.BaseRunner) Q {
	q := squirrel.StatementBuilder.RunWith(db).Select()
	if p, ok := db.(placeholderProvider); ok {
		q = q.PlaceholderFormat(p.PlaceholderFormat())
	}
	return q
}

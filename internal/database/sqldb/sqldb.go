// Package sqldb adapts database/sql drivers to the database session model.
//
// Each session pins a single *sql.Conn so that prepared statements, the
// affected-row lookup and connection-scoped state (for example an SQLite
// in-memory database) all run on the same underlying connection.
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/errs"
)

// RowCounter recovers the affected-row count of a statement that produced
// no result set. Mark runs just before the statement, Count just after it,
// on the same connection.
type RowCounter interface {
	Mark(ctx context.Context, conn *sql.Conn) error
	Count(ctx context.Context, conn *sql.Conn) (int64, bool)
}

// ErrorMapper translates a backend-native error. fallback is the kind to use
// when err carries no backend-specific code.
type ErrorMapper func(err error, fallback errs.ErrKind, msg string) error

// Options describe one database/sql backend.
type Options struct {
	// DriverName is the name registered with database/sql.
	DriverName string

	// DSN is handed to sql.Open unchanged.
	DSN string

	// Dialect locates statement boundaries. A session runs exactly one
	// statement per Prepare.
	Dialect database.Dialect

	Counter  RowCounter
	MapError ErrorMapper
}

// Open opens a single-connection *sql.DB, pins its connection and pings it.
func Open(ctx context.Context, opts Options) (database.Session, error) {
	s := &session{dialect: opts.Dialect, counter: opts.Counter, mapErr: opts.MapError}

	db, err := sql.Open(opts.DriverName, opts.DSN)
	if err != nil {
		return nil, s.mapError(err, errs.ErrKindConnectionFailed, "invalid DSN")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, s.mapError(err, errs.ErrKindConnectionFailed, "failed to open connection")
	}
	s.db, s.conn = db, conn

	if err := s.Ping(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// --- database.Session ---

type session struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect database.Dialect
	counter RowCounter
	mapErr  ErrorMapper
}

// Prepare rejects text with no statement and text with more than one:
// drivers such as go-sqlite3 prepare only the first statement and drop the
// rest.
func (s *session) Prepare(ctx context.Context, query string) (database.Statement, error) {
	switch database.CountStatements(query, s.dialect) {
	case 0:
		return nil, database.ErrQuery("empty statement", nil)
	case 1:
	default:
		return nil, database.ErrQuery("multiple statements are not supported", nil)
	}
	stmt, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, s.mapError(err, errs.ErrKindQueryFailed, "prepare failed")
	}
	return &statement{sess: s, stmt: stmt}, nil
}

func (s *session) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return s.mapError(err, errs.ErrKindConnectionFailed, "ping failed")
	}
	return nil
}

func (s *session) Close(context.Context) error {
	cerr := s.conn.Close()
	derr := s.db.Close()
	if err := errors.Join(cerr, derr); err != nil {
		return s.mapError(err, errs.ErrKindConnectionFailed, "close failed")
	}
	return nil
}

func (s *session) mapError(err error, fallback errs.ErrKind, msg string) error {
	switch {
	case err == nil:
		return nil
	case database.IsContextErr(err):
		return database.ErrTimeout(msg, err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return database.ErrConnection(msg, err)
	case s.mapErr != nil:
		return s.mapErr(err, fallback, msg)
	}
	return errs.Wrap(fallback, msg, err)
}

// --- database.Statement ---

type statement struct {
	sess    *session
	stmt    *sql.Stmt
	count   int64
	counted bool
}

// Execute runs the statement through QueryContext so that both result-set
// and row-affecting statements go through one path; a result with no
// columns is treated as row-affecting and drained.
func (st *statement) Execute(ctx context.Context) (database.Cursor, error) {
	s := st.sess
	st.counted = false

	if s.counter != nil {
		if err := s.counter.Mark(ctx, s.conn); err != nil {
			return nil, s.mapError(err, errs.ErrKindQueryFailed, "row count setup failed")
		}
	}

	rows, err := st.stmt.QueryContext(ctx)
	if err != nil {
		return nil, s.mapError(err, errs.ErrKindQueryFailed, "execute failed")
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, s.mapError(err, errs.ErrKindQueryFailed, "failed to read column names")
	}

	if len(cols) > 0 {
		return &cursor{sess: s, rows: rows, cols: cols, scan: database.NewRowScanner(len(cols))}, nil
	}

	// One step runs the statement; a result without columns has no rows.
	_ = rows.Next()
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, s.mapError(err, errs.ErrKindQueryFailed, "execute failed")
	}

	if s.counter != nil {
		st.count, st.counted = s.counter.Count(ctx, s.conn)
	}
	return nil, nil
}

func (st *statement) RowCount(context.Context) (int64, bool) {
	return st.count, st.counted
}

func (st *statement) Close(context.Context) error {
	if err := st.stmt.Close(); err != nil {
		return st.sess.mapError(err, errs.ErrKindQueryFailed, "statement close failed")
	}
	return nil
}

// --- database.Cursor ---

type cursor struct {
	sess   *session
	rows   *sql.Rows
	cols   []string
	scan   *database.RowScanner
	closed bool
}

func (c *cursor) Columns() []string { return c.cols }

func (c *cursor) Fetch(_ context.Context, b *database.Batch) error {
	b.Reset()
	if c.closed {
		return nil
	}
	for !b.Full() {
		if !c.rows.Next() {
			return c.finish()
		}
		if err := c.rows.Scan(c.scan.Targets()...); err != nil {
			_ = c.finish()
			return c.sess.mapError(err, errs.ErrKindQueryFailed, "failed to scan row")
		}
		b.AppendRow(c.scan.Fields())
	}
	return nil
}

func (c *cursor) Close(context.Context) error {
	if c.closed {
		return nil
	}
	return c.finish()
}

func (c *cursor) finish() error {
	c.closed = true
	if err := errors.Join(c.rows.Err(), c.rows.Close()); err != nil {
		return c.sess.mapError(err, errs.ErrKindQueryFailed, "fetch failed")
	}
	return nil
}

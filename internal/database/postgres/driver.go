// Package postgres is the PostgreSQL backend, built on pgx.
//
// Statements are prepared unnamed on the session's pgconn and executed with
// text-format results, so every field arrives as the server prints it. A
// statement whose description has fields is cursor-bearing; otherwise the
// affected-row count is read from the command tag.
package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbstream/internal/database"
)

// Name is the backend name used in logs and metrics.
const Name = "postgres"

// Driver opens PostgreSQL sessions. It is stateless and safe for concurrent use.
type Driver struct{}

// New returns the PostgreSQL driver.
func New() *Driver { return &Driver{} }

func (*Driver) Name() string { return Name }

// Accepts routes postgres:// and postgresql:// URLs; the whole URL is the DSN.
func (*Driver) Accepts(connStr string) (string, bool) {
	if _, ok := database.TrimPrefix(connStr, "postgres://", "postgresql://"); ok {
		return connStr, true
	}
	return "", false
}

// Open connects one session and pings it before returning.
func (*Driver) Open(ctx context.Context, cfg *database.Config) (database.Session, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, database.ErrConnection("invalid postgres connection string", err)
	}
	if cfg.ConnectTimeout > 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, mapError(err, connectFailure, "failed to connect to postgres")
	}

	s := &session{conn: conn}
	if err := s.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

// --- database.Session ---

type session struct {
	conn *pgx.Conn
}

func (s *session) Prepare(ctx context.Context, sql string) (database.Statement, error) {
	// The server reports several commands itself; an empty query would
	// otherwise execute as a success with no command tag.
	if database.CountStatements(sql, database.DialectPostgres) == 0 {
		return nil, database.ErrQuery("empty statement", nil)
	}
	desc, err := s.conn.PgConn().Prepare(ctx, "", sql, nil)
	if err != nil {
		return nil, mapError(err, queryFailure, "prepare failed")
	}
	return &statement{pg: s.conn.PgConn(), desc: desc}, nil
}

func (s *session) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return mapError(err, connectFailure, "ping failed")
	}
	return nil
}

func (s *session) Close(ctx context.Context) error {
	if err := s.conn.Close(ctx); err != nil {
		return mapError(err, connectFailure, "close failed")
	}
	return nil
}

// --- database.Statement ---

type statement struct {
	pg   *pgconn.PgConn
	desc *pgconn.StatementDescription
	tag  pgconn.CommandTag
	done bool
}

func (st *statement) Execute(ctx context.Context) (database.Cursor, error) {
	rr := st.pg.ExecPrepared(ctx, st.desc.Name, nil, nil, nil)

	if len(st.desc.Fields) == 0 {
		tag, err := rr.Close()
		if err != nil {
			return nil, mapError(err, queryFailure, "execute failed")
		}
		st.tag, st.done = tag, true
		return nil, nil
	}

	cols := make([]string, len(st.desc.Fields))
	for i, f := range st.desc.Fields {
		cols[i] = f.Name
	}
	return &cursor{rr: rr, cols: cols}, nil
}

func (st *statement) RowCount(context.Context) (int64, bool) {
	if !st.done {
		return 0, false
	}
	return rowsAffected(st.tag)
}

// Close is a no-op: the unnamed statement is replaced by the next Prepare.
func (st *statement) Close(context.Context) error { return nil }

// rowsAffected reads the count from a command tag such as "INSERT 0 2" or
// "DELETE 3". Tags without a trailing number (e.g. "CREATE TABLE") have no count.
func rowsAffected(tag pgconn.CommandTag) (int64, bool) {
	s := strings.TrimSpace(tag.String())
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// --- database.Cursor ---

type cursor struct {
	rr     *pgconn.ResultReader
	cols   []string
	closed bool
}

func (c *cursor) Columns() []string { return c.cols }

func (c *cursor) Fetch(_ context.Context, b *database.Batch) error {
	b.Reset()
	if c.closed {
		return nil
	}
	for !b.Full() {
		if !c.rr.NextRow() {
			return c.finish()
		}
		b.AppendRow(c.rr.Values())
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
	if _, err := c.rr.Close(); err != nil {
		return mapError(err, queryFailure, "fetch failed")
	}
	return nil
}

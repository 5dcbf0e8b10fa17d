// Package mysql is the MySQL backend, built on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/database/sqldb"
)

// Name is the backend name used in logs and metrics.
const Name = "mysql"

const driverName = "mysql"

// Driver opens MySQL sessions.
type Driver struct{}

// New returns the MySQL driver.
func New() *Driver { return &Driver{} }

func (*Driver) Name() string { return Name }

// Accepts routes mysql://<dsn>, where <dsn> is a go-sql-driver DSN such as
// user:pass@tcp(localhost:3306)/db.
func (*Driver) Accepts(connStr string) (string, bool) {
	rest, ok := database.TrimPrefix(connStr, "mysql://")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// Open validates the DSN, applies the connect timeout to the dial and opens
// one pinned session.
func (*Driver) Open(ctx context.Context, cfg *database.Config) (database.Session, error) {
	dsn, err := withTimeout(cfg)
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, sqldb.Options{
		DriverName: driverName,
		DSN:        dsn,
		Dialect:    database.DialectMySQL,
		Counter:    rowCounter{},
		MapError:   mapError,
	})
}

func withTimeout(cfg *database.Config) (string, error) {
	mc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", database.ErrConnection("invalid mysql DSN", err)
	}
	if cfg.ConnectTimeout > 0 && mc.Timeout == 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	return mc.FormatDSN(), nil
}

// rowCounter asks the server for ROW_COUNT() of the previous statement.
// MySQL reports -1 for statements that do not affect rows.
type rowCounter struct{}

func (rowCounter) Mark(context.Context, *sql.Conn) error { return nil }

func (rowCounter) Count(ctx context.Context, conn *sql.Conn) (int64, bool) {
	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT ROW_COUNT()").Scan(&n); err != nil {
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

// Package sqlite is the SQLite backend, built on mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/database/sqldb"
	"github.com/koustreak/dbstream/internal/errs"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Name is the backend name used in logs and metrics.
const Name = "sqlite"

const driverName = "sqlite3"

// Driver opens SQLite sessions.
type Driver struct{}

// New returns the SQLite driver.
func New() *Driver { return &Driver{} }

func (*Driver) Name() string { return Name }

// Accepts routes sqlite://<path> (the path is the DSN) and SQLite URIs
// starting with file: (passed through whole).
func (*Driver) Accepts(connStr string) (string, bool) {
	if rest, ok := database.TrimPrefix(connStr, "sqlite://"); ok {
		return rest, rest != ""
	}
	if _, ok := database.TrimPrefix(connStr, "file:"); ok {
		return connStr, true
	}
	return "", false
}

func (*Driver) Open(ctx context.Context, cfg *database.Config) (database.Session, error) {
	return sqldb.Open(ctx, sqldb.Options{
		DriverName: driverName,
		DSN:        cfg.DSN,
		Dialect:    database.DialectSQLite,
		Counter:    &changeCounter{},
		MapError:   mapError,
	})
}

// changeCounter derives the affected rows from the total_changes() delta
// around one statement.
type changeCounter struct {
	before int64
}

func (c *changeCounter) Mark(ctx context.Context, conn *sql.Conn) error {
	return conn.QueryRowContext(ctx, "SELECT total_changes()").Scan(&c.before)
}

func (c *changeCounter) Count(ctx context.Context, conn *sql.Conn) (int64, bool) {
	var after int64
	if err := conn.QueryRowContext(ctx, "SELECT total_changes()").Scan(&after); err != nil {
		return 0, false
	}
	return after - c.before, true
}

// mapError classifies go-sqlite3 result codes.
func mapError(err error, fallback errs.ErrKind, msg string) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		full := fmt.Sprintf("%s: %s", msg, sqErr.Error())
		switch sqErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return database.ErrConnection(full, err)
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return database.ErrPermission(full, err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
			return database.ErrTimeout(full, err)
		}
		return errs.Wrap(fallback, full, err)
	}
	return errs.Wrap(fallback, msg, err)
}

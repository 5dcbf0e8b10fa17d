package database

import "context"

// Driver opens sessions for one database backend.
// All layers above this package talk only to these interfaces;
// they never import the postgres, mysql or sqlite packages directly.
type Driver interface {
	// Name identifies the backend in logs and metrics (e.g. "postgres").
	Name() string

	// Accepts reports whether connStr is routed to this backend and, if so,
	// returns the DSN to hand to the underlying driver.
	Accepts(connStr string) (dsn string, ok bool)

	// Open establishes one session. It must honour ctx for the dial.
	Open(ctx context.Context, cfg *Config) (Session, error)
}

// Session is one open connection to a database.
// It is not safe for concurrent use; callers serialize access.
type Session interface {
	// Prepare compiles sql without executing it. Syntax and permission
	// errors surface here when the backend checks them at prepare time.
	Prepare(ctx context.Context, sql string) (Statement, error)

	// Ping verifies the session is still usable.
	Ping(ctx context.Context) error

	// Close releases the session.
	Close(ctx context.Context) error
}

// Statement is a prepared statement bound to its Session.
type Statement interface {
	// Execute runs the statement with no parameters. A nil Cursor with a nil
	// error means the statement produced no result set (DML/DDL).
	Execute(ctx context.Context) (Cursor, error)

	// RowCount reports the rows affected by the last Execute that produced
	// no cursor. ok is false when the backend cannot tell.
	RowCount(ctx context.Context) (n int64, ok bool)

	// Close releases the statement. It is safe to call after a failure.
	Close(ctx context.Context) error
}

// Cursor iterates over a result set in batches.
type Cursor interface {
	// Columns returns the result column names in select-list order.
	Columns() []string

	// Fetch refills b with up to b.Cap() rows. Fetch never appends more rows
	// than b can hold; a batch left empty means the cursor is exhausted.
	Fetch(ctx context.Context, b *Batch) error

	// Close releases the cursor, discarding unread rows.
	Close(ctx context.Context) error
}

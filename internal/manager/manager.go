// Package manager opens database connections from connection strings.
//
// A Manager is a thin handle on the shared database.Environment. Every
// Connection it opens holds its own Environment reference, so the
// Environment is never torn down while a Connection is still alive.
package manager

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/database/mysql"
	"github.com/koustreak/dbstream/internal/database/postgres"
	"github.com/koustreak/dbstream/internal/database/sqlite"
	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/logger"
)

// NewEnvironment registers the postgres, mysql and sqlite backends. The
// caller owns the returned reference.
func NewEnvironment(connectTimeout time.Duration, log *logger.Logger) (*database.Environment, error) {
	return database.NewEnvironment(log, connectTimeout,
		postgres.New(),
		mysql.New(),
		sqlite.New(),
	)
}

// Manager opens Connections. It is safe for concurrent use.
type Manager struct {
	env    *database.Environment
	log    *logger.Logger
	closed atomic.Bool
}

// New acquires a reference on env for the Manager's lifetime.
func New(env *database.Environment) (*Manager, error) {
	if env == nil {
		return nil, errs.New(errs.ErrKindConnectionFailed, "no environment")
	}
	if err := env.Acquire(); err != nil {
		return nil, err
	}
	return &Manager{env: env, log: env.Logger()}, nil
}

// Connect opens a new session for connStr. Driver rejections surface as
// ConnectionFailed, PermissionDenied or Timeout errors. SQL is not touched.
func (m *Manager) Connect(ctx context.Context, connStr string) (*Connection, error) {
	if m.closed.Load() {
		return nil, errs.New(errs.ErrKindConnectionFailed, "manager is closed")
	}
	if err := m.env.Acquire(); err != nil {
		return nil, err
	}

	sess, backend, err := m.env.Open(ctx, connStr)
	if err != nil {
		m.env.Release()
		m.log.ErrorWith("connect failed", err, map[string]interface{}{"backend": backend})
		if errs.KindOf(err) == errs.ErrKindUnknown || errs.KindOf(err) == errs.ErrKindQueryFailed {
			return nil, errs.Wrap(errs.ErrKindConnectionFailed, "connect failed", err)
		}
		return nil, err
	}

	m.log.InfoWith("connected", map[string]interface{}{"backend": backend})
	return &Connection{env: m.env, session: sess, backend: backend}, nil
}

// Close releases the Manager's Environment reference. Connections already
// opened stay valid. Close is idempotent.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.env.Release()
}

// Connection is one open session. It is not safe for concurrent use.
type Connection struct {
	env     *database.Environment
	session database.Session
	backend string
	closed  bool
}

// Session returns the underlying database session.
func (c *Connection) Session() database.Session { return c.session }

// Backend returns the name of the backend serving the session.
func (c *Connection) Backend() string { return c.backend }

// Close closes the session, then releases the Environment reference.
// Calling Close again is a no-op.
func (c *Connection) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.session.Close(ctx)
	c.env.Release()
	return err
}

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/logger"
)

// Environment is the process-wide driver manager. It owns the registered
// backends and is reference counted: whoever creates it holds the first
// reference, and every manager and open session holds one more. Releasing
// the last reference tears it down for good; a torn-down Environment cannot
// be acquired again.
type Environment struct {
	log     *logger.Logger
	timeout time.Duration
	drivers []Driver

	mu     sync.Mutex
	refs   int
	closed bool
}

// NewEnvironment registers drivers in routing order. The caller owns the
// returned reference.
func NewEnvironment(log *logger.Logger, connectTimeout time.Duration, drivers ...Driver) (*Environment, error) {
	if len(drivers) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "environment needs at least one driver")
	}
	seen := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		if seen[d.Name()] {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("driver %q registered twice", d.Name()))
		}
		seen[d.Name()] = true
	}
	if log == nil {
		log = logger.Nop()
	}

	env := &Environment{
		log:     log,
		timeout: connectTimeout,
		drivers: drivers,
		refs:    1,
	}
	log.InfoWith("environment initialised", map[string]interface{}{
		"drivers":         len(drivers),
		"connect_timeout": connectTimeout.String(),
	})
	return env, nil
}

// Acquire takes one more reference.
func (e *Environment) Acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errs.New(errs.ErrKindConnectionFailed, "environment has been torn down")
	}
	e.refs++
	return nil
}

// Release drops one reference and tears the environment down when it was
// the last. Releasing a torn-down environment is a no-op.
func (e *Environment) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	e.closed = true
	e.log.Info("environment torn down")
}

// Closed reports whether the last reference has been released.
func (e *Environment) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Refs returns the number of live references.
func (e *Environment) Refs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refs
}

// Logger returns the environment's logger.
func (e *Environment) Logger() *logger.Logger { return e.log }

// Resolve routes connStr to the first driver that accepts it.
func (e *Environment) Resolve(connStr string) (Driver, *Config, error) {
	if connStr == "" {
		return nil, nil, errs.New(errs.ErrKindConnectionFailed, "empty connection string")
	}
	for _, d := range e.drivers {
		if dsn, ok := d.Accepts(connStr); ok {
			return d, &Config{Driver: d.Name(), DSN: dsn, ConnectTimeout: e.timeout}, nil
		}
	}
	return nil, nil, errs.New(errs.ErrKindConnectionFailed, "unrecognised connection string scheme")
}

// Open resolves connStr and opens one session, bounded by the connect
// timeout. The backend name is returned for logging.
func (e *Environment) Open(ctx context.Context, connStr string) (Session, string, error) {
	if e.Closed() {
		return nil, "", errs.New(errs.ErrKindConnectionFailed, "environment has been torn down")
	}

	d, cfg, err := e.Resolve(connStr)
	if err != nil {
		return nil, "", err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	sess, err := d.Open(ctx, cfg)
	if err != nil {
		return nil, d.Name(), err
	}
	return sess, d.Name(), nil
}

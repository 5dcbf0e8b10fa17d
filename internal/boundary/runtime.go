// Package boundary is the pure-Go side of the C ABI.
//
// Hosts hold integer handles into a process-wide table; no Go pointer ever
// crosses the boundary except the borrowed unit buffer passed to a callback
// for the duration of that call. Every entry point returns a Status and
// never lets a panic escape.
//
// Handle lifecycle:
//
//	Create  -> Fresh
//	Connect -> Connected (a failed connect leaves the handle as it was)
//	Execute -> Connected (requires Connected)
//	Free    -> gone; any further use reports StatusInvalidHandle
package boundary

import (
	"bytes"
	"context"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"unsafe"

	"github.com/koustreak/dbstream/internal/codec"
	"github.com/koustreak/dbstream/internal/config"
	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/executor"
	"github.com/koustreak/dbstream/internal/logger"
	"github.com/koustreak/dbstream/internal/manager"
	"github.com/koustreak/dbstream/internal/metrics"
	"github.com/koustreak/dbstream/internal/stream"
)

// UnitFunc receives one unit. data is only valid during the call. For text
// units data addresses a NUL-terminated string and n excludes the NUL.
type UnitFunc func(data unsafe.Pointer, n int)

// Option configures a Runtime.
type Option func(*Runtime)

// WithConfigLoader replaces config.Load.
func WithConfigLoader(load func() (*config.Config, error)) Option {
	return func(r *Runtime) {
		r.loadConfig = load
	}
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(r *Runtime) {
		r.logOut = w
	}
}

// WithMetrics records into m instead of a private collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

type entry struct {
	mgr  *manager.Manager
	conn *manager.Connection
}

// Runtime owns the handle table and the shared Environment. The
// Environment is created on the first Create, kept while any handle is
// live and torn down after the last Free; the next Create builds a fresh one.
type Runtime struct {
	loadConfig func() (*config.Config, error)
	logOut     io.Writer
	metrics    *metrics.Collector

	mu      sync.RWMutex
	handles map[Handle]*entry
	next    Handle
	env     *database.Environment
	log     *logger.Logger
	exec    *executor.Executor
}

// NewRuntime creates an empty Runtime. Configuration is read lazily by the
// first Create.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		loadConfig: config.Load,
		logOut:     os.Stderr,
		handles:    make(map[Handle]*entry),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	return r
}

// Create allocates a Fresh handle, or returns 0 when the Environment cannot
// be constructed.
func (r *Runtime) Create() (h Handle) {
	defer r.guard("create", nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	mgr, err := r.newManager()
	if err != nil {
		r.log.ErrorWith("create failed", err, nil)
		return 0
	}

	r.next++
	h = r.next
	r.handles[h] = &entry{mgr: mgr}
	r.metrics.HandleOpened()
	r.log.With().Uint64("handle", uint64(h)).Logger().Debug("handle created")
	return h
}

// newManager returns a Manager on the live Environment, building one if
// none exists or the previous one was torn down. Callers hold r.mu.
func (r *Runtime) newManager() (*manager.Manager, error) {
	if r.env == nil || r.env.Closed() {
		if err := r.initEnv(); err != nil {
			return nil, err
		}
	}
	mgr, err := manager.New(r.env)
	if err == nil {
		return mgr, nil
	}

	// Lost a race with teardown: rebuild once.
	if err := r.initEnv(); err != nil {
		return nil, err
	}
	return manager.New(r.env)
}

func (r *Runtime) initEnv() error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger(r.logOut))

	env, err := manager.NewEnvironment(cfg.Connect.Timeout, log)
	if err != nil {
		return err
	}

	r.env = env
	r.log = log
	r.exec = executor.New(executor.Options{
		BatchSize:  cfg.Fetch.BatchSize,
		BufferSize: cfg.Fetch.BufferSize,
		Logger:     log,
		Metrics:    r.metrics,
	})
	return nil
}

func (r *Runtime) lookup(h Handle) (*entry, *executor.Executor, *logger.Logger) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[h], r.exec, r.log
}

// Connect opens a connection for h from the NUL-terminated connStr. On
// success any previous connection of h is closed after the new one opened.
func (r *Runtime) Connect(h Handle, connStr unsafe.Pointer) (status Status) {
	defer r.guard("connect", &status)

	if h == 0 || connStr == nil {
		return StatusNullPointer
	}
	s, ok := goString(connStr)
	if !ok {
		return StatusStringConversionError
	}
	e, _, log := r.lookup(h)
	if e == nil {
		return StatusInvalidHandle
	}
	log = log.With().Uint64("handle", uint64(h)).Logger()

	ctx := context.Background()
	conn, err := e.mgr.Connect(ctx, s)
	r.metrics.IncConnect(backendOf(conn), err)
	if err != nil {
		return StatusConnectionError
	}

	r.mu.Lock()
	old := e.conn
	e.conn = conn
	r.mu.Unlock()

	if old != nil {
		if err := old.Close(ctx); err != nil {
			log.WarnWith("closing replaced connection failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return StatusSuccess
}

func backendOf(c *manager.Connection) string {
	if c == nil {
		return ""
	}
	return c.Backend()
}

// Execute runs the NUL-terminated sql on h's connection and passes every
// unit to fn synchronously. Any panic while executing, encoding or calling
// fn is reported as StatusPanic.
func (r *Runtime) Execute(h Handle, sql unsafe.Pointer, enc Encoding, fn UnitFunc) (status Status) {
	defer r.guard("execute", &status)

	if h == 0 || sql == nil || fn == nil {
		return StatusNullPointer
	}
	q, ok := goString(sql)
	if !ok {
		return StatusStringConversionError
	}

	r.mu.RLock()
	e := r.handles[h]
	var conn *manager.Connection
	if e != nil {
		conn = e.conn
	}
	exec, log := r.exec, r.log
	r.mu.RUnlock()
	if conn == nil {
		return StatusInvalidHandle
	}
	ctx := log.With().Uint64("handle", uint64(h)).Logger().WithContext(context.Background())

	var (
		encoder codec.Encoder = codec.Typed{}
		sink    stream.Consumer
	)
	switch enc {
	case EncodingText:
		encoder = codec.Text{}
		sink = &textSink{fn: fn}
	default:
		sink = binarySink(fn)
	}

	if err := exec.Execute(ctx, conn.Session(), q, encoder, sink); err != nil {
		return StatusExecutionError
	}
	return StatusSuccess
}

// binarySink passes unit payloads straight through.
func binarySink(fn UnitFunc) stream.ConsumerFunc {
	return func(u stream.Unit) {
		var p unsafe.Pointer
		if len(u.Data) > 0 {
			p = unsafe.Pointer(&u.Data[0])
		}
		fn(p, len(u.Data))
	}
}

// textSink NUL-terminates each line in a scratch buffer reused by every unit.
type textSink struct {
	fn  UnitFunc
	buf []byte
}

func (s *textSink) Consume(u stream.Unit) {
	s.buf = append(append(s.buf[:0], u.Data...), 0)
	s.fn(unsafe.Pointer(&s.buf[0]), len(u.Data))
}

// Free closes h's connection, releases its Manager and removes it from the
// table. After the last handle is freed the Environment is released.
func (r *Runtime) Free(h Handle) (status Status) {
	defer r.guard("free", &status)

	if h == 0 {
		return StatusInvalidHandle
	}

	r.mu.Lock()
	e, ok := r.handles[h]
	if !ok {
		r.mu.Unlock()
		return StatusInvalidHandle
	}
	delete(r.handles, h)
	var env *database.Environment
	if len(r.handles) == 0 {
		env, r.env = r.env, nil
	}
	log := r.log
	r.mu.Unlock()

	r.metrics.HandleClosed()
	if e.conn != nil {
		if err := e.conn.Close(context.Background()); err != nil {
			log.WarnWith("closing connection failed", map[string]interface{}{
				"handle": uint64(h),
				"error":  err.Error(),
			})
		}
	}
	e.mgr.Close()
	if env != nil {
		env.Release()
	}
	return StatusSuccess
}

// Metrics passes the Prometheus exposition of the runtime's counters to fn
// as one NUL-terminated text unit.
func (r *Runtime) Metrics(fn UnitFunc) (status Status) {
	defer r.guard("metrics", &status)

	if fn == nil {
		return StatusNullPointer
	}
	var buf bytes.Buffer
	r.metrics.WritePrometheus(&buf)
	n := buf.Len()
	buf.WriteByte(0)
	fn(unsafe.Pointer(&buf.Bytes()[0]), n)
	return StatusSuccess
}

// guard recovers a panic into StatusPanic and counts the final status.
// status is nil for Create, which reports failure as handle 0.
func (r *Runtime) guard(op string, status *Status) {
	if rec := recover(); rec != nil {
		r.mu.RLock()
		log := r.log
		r.mu.RUnlock()
		log.ErrorWith("recovered panic at boundary", nil, map[string]interface{}{
			"op":    op,
			"panic": rec,
			"stack": string(debug.Stack()),
		})
		if status != nil {
			*status = StatusPanic
		}
	}
	if status != nil {
		r.metrics.IncStatus(status.String())
	}
}

// Handles returns the number of live handles.
func (r *Runtime) Handles() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

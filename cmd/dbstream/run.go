package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/koustreak/dbstream/internal/codec"
	"github.com/koustreak/dbstream/internal/config"
	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/executor"
	"github.com/koustreak/dbstream/internal/filestore"
	"github.com/koustreak/dbstream/internal/filestore/minio"
	"github.com/koustreak/dbstream/internal/logger"
	"github.com/koustreak/dbstream/internal/manager"
	"github.com/koustreak/dbstream/internal/metrics"
	"github.com/koustreak/dbstream/internal/stream"
)

type options struct {
	conn    string
	query   string
	format  string
	out     string
	metrics bool
	timing  bool
}

func (o options) validate() error {
	switch {
	case o.conn == "":
		return errs.New(errs.ErrKindInvalidInput, "a connection string is required (-conn or $"+envConn+")")
	case o.query == "":
		return errs.New(errs.ErrKindInvalidInput, "a query is required (-query or first argument)")
	}
	return nil
}

// openStore connects to the object store for s3:// targets.
var openStore = func(ctx context.Context) (filestore.Store, error) {
	cfg, err := filestore.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return minio.New(ctx, cfg)
}

// loadConfig is replaced in tests.
var loadConfig = config.Load

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	if err := opts.validate(); err != nil {
		return err
	}
	enc, err := codec.ByName(opts.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger(stderr))
	col := metrics.New()

	env, err := manager.NewEnvironment(cfg.Connect.Timeout, log)
	if err != nil {
		return err
	}
	defer env.Release()

	mgr, err := manager.New(env)
	if err != nil {
		return err
	}
	defer mgr.Close()

	conn, err := mgr.Connect(ctx, opts.conn)
	if err != nil {
		col.IncConnect("", err)
		return err
	}
	col.IncConnect(conn.Backend(), nil)
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			log.WarnWith("closing connection failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	dst, finish, err := openOutput(ctx, opts.out, enc.Name(), stdout, log)
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := newUnitWriter(dst, enc.Name() == codec.TextName, cancel)
	exec := executor.New(executor.Options{
		BatchSize:  cfg.Fetch.BatchSize,
		BufferSize: cfg.Fetch.BufferSize,
		Logger:     log,
		Metrics:    col,
	})

	start := time.Now()
	err = exec.Execute(execCtx, conn.Session(), opts.query, enc, sink)
	if werr := sink.Flush(); werr != nil {
		// The write failure cancelled execCtx; report it instead of the
		// resulting context error.
		err = werr
	}
	err = finish(err)
	elapsed := time.Since(start)

	if opts.timing {
		fmt.Fprintf(stderr, "%d rows, %d units, %d bytes in %s\n", sink.rows, sink.units, sink.bytes, elapsed)
	}
	if opts.metrics {
		col.WritePrometheus(stderr)
	}
	return err
}

// openOutput resolves target to a writer. finish must be called exactly
// once with the outcome of the execute; it returns the final error.
func openOutput(ctx context.Context, target, encoding string, stdout io.Writer, log *logger.Logger) (io.Writer, func(error) error, error) {
	switch {
	case target == "" || target == "-":
		return stdout, func(err error) error { return err }, nil

	case filestore.IsObjectURL(target):
		bucket, key, err := filestore.ParseObjectURL(target)
		if err != nil {
			return nil, nil, err
		}
		store, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return upload(ctx, store, bucket, key, contentType(encoding), log)

	default:
		f, err := os.Create(target)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to create output file", err)
		}
		return f, func(err error) error {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = errs.Wrap(errs.ErrKindUnknown, "failed to close output file", cerr)
			}
			return err
		}, nil
	}
}

// upload streams everything written to the returned writer into
// bucket/key. A non-nil error passed to finish aborts the upload.
func upload(ctx context.Context, store filestore.Store, bucket, key, ct string, log *logger.Logger) (io.Writer, func(error) error, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		info, err := store.PutObject(ctx, bucket, key, pr, filestore.PutOptions{
			ContentType: ct,
			Size:        -1,
		})
		pr.CloseWithError(err)
		if err == nil {
			log.InfoWith("object uploaded", map[string]interface{}{
				"bucket": info.Bucket,
				"key":    info.Key,
				"size":   info.Size,
				"etag":   info.ETag,
			})
		}
		done <- err
	}()

	return pw, func(err error) error {
		pw.CloseWithError(err)
		uerr := <-done
		if cerr := store.Close(); uerr == nil {
			uerr = cerr
		}
		if err != nil {
			return err
		}
		return uerr
	}, nil
}

func contentType(encoding string) string {
	if encoding == codec.TextName {
		return "text/csv; charset=utf-8"
	}
	return "application/x-msgpack"
}

// unitWriter writes units through a buffer. The first write error cancels
// the execute and is reported by Flush.
type unitWriter struct {
	w       *bufio.Writer
	newline bool
	cancel  context.CancelFunc
	err     error

	units int
	rows  int
	bytes int64
}

func newUnitWriter(w io.Writer, newline bool, cancel context.CancelFunc) *unitWriter {
	return &unitWriter{w: bufio.NewWriterSize(w, 64<<10), newline: newline, cancel: cancel}
}

func (u *unitWriter) Consume(unit stream.Unit) {
	if u.err != nil {
		return
	}
	n, err := u.w.Write(unit.Data)
	u.bytes += int64(n)
	if err == nil && u.newline {
		err = u.w.WriteByte('\n')
		u.bytes++
	}
	if err != nil {
		u.fail(err)
		return
	}
	u.units++
	if unit.Kind == stream.KindRow {
		u.rows++
	}
}

// Flush writes buffered units and returns the first write error.
func (u *unitWriter) Flush() error {
	if u.err == nil {
		if err := u.w.Flush(); err != nil {
			u.fail(err)
		}
	}
	return u.err
}

// fail keeps classified errors, such as an upload failure surfacing through
// the pipe, and wraps the rest.
func (u *unitWriter) fail(err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		err = errs.Wrap(errs.ErrKindUnknown, "write failed", err)
	}
	u.err = err
	u.cancel()
}

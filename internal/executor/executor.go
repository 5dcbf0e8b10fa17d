// Package executor runs one SQL statement on a session and streams the
// encoded result to a consumer in fixed-size batches.
package executor

import (
	"context"
	"time"

	"github.com/koustreak/dbstream/internal/codec"
	"github.com/koustreak/dbstream/internal/config"
	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/logger"
	"github.com/koustreak/dbstream/internal/metrics"
	"github.com/koustreak/dbstream/internal/stream"
)

// Options bound the memory one execute may use.
type Options struct {
	// BatchSize is the number of rows fetched per round trip.
	BatchSize int

	// BufferSize caps each field, in bytes.
	BufferSize int

	Logger  *logger.Logger
	Metrics *metrics.Collector
}

// Executor is stateless between calls and safe for concurrent use on
// different sessions.
type Executor struct {
	batchSize  int
	bufferSize int
	log        *logger.Logger
	metrics    *metrics.Collector
}

// New creates an Executor. Non-positive sizes fall back to the defaults.
func New(opts Options) *Executor {
	e := &Executor{
		batchSize:  opts.BatchSize,
		bufferSize: opts.BufferSize,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	if e.batchSize <= 0 {
		e.batchSize = config.DefaultBatchSize
	}
	if e.bufferSize <= 0 {
		e.bufferSize = config.DefaultBufferSize
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	return e
}

// Execute prepares and runs sql on sess.
//
// A result set is delivered as one header unit followed by one row unit per
// row, in fetch order. A statement without a result set is delivered as a
// single metadata unit carrying the affected-row count, or "unknown".
// Errors abort the stream; units already delivered are not retracted.
// A logger stored in ctx with logger.WithContext replaces the Executor's.
func (e *Executor) Execute(ctx context.Context, sess database.Session, sql string, enc codec.Encoder, c stream.Consumer) (err error) {
	start := time.Now()
	em := stream.NewEmitter(c)
	log := logger.FromContext(ctx, e.log).With().Str("encoding", enc.Name()).Logger()

	log.Debug("execute started")
	defer func() {
		dur := time.Since(start)
		e.metrics.ObserveExecute(enc.Name(), dur, err)
		e.metrics.AddRows(int(em.Rows()))
		fields := map[string]interface{}{
			"rows":        em.Rows(),
			"units":       em.Units(),
			"duration_ms": dur.Milliseconds(),
		}
		if err != nil {
			log.ErrorWith("execute failed", err, fields)
			return
		}
		log.InfoWith("execute finished", fields)
	}()

	stmt, err := sess.Prepare(ctx, sql)
	if err != nil {
		return asQueryErr(err, "prepare failed")
	}
	defer stmt.Close(ctx)

	cur, err := stmt.Execute(ctx)
	if err != nil {
		return asQueryErr(err, "execute failed")
	}

	if cur == nil {
		n, ok := stmt.RowCount(ctx)
		em.Meta(enc.AppendMeta(nil, codec.AffectedText(n, ok)))
		e.metrics.AddUnits(stream.KindMeta.String(), 1)
		return nil
	}
	defer cur.Close(ctx)

	return e.streamRows(ctx, cur, enc, em, log)
}

func (e *Executor) streamRows(ctx context.Context, cur database.Cursor, enc codec.Encoder, em *stream.Emitter, log *logger.Logger) error {
	cols := cur.Columns()

	// One scratch buffer per execute, overwritten for every unit.
	buf := enc.AppendHeader(nil, cols)
	em.Header(buf)
	e.metrics.AddUnits(stream.KindHeader.String(), 1)

	batch := database.NewBatch(len(cols), e.batchSize, e.bufferSize)
	for {
		if err := cur.Fetch(ctx, batch); err != nil {
			return asQueryErr(err, "fetch failed")
		}
		n := batch.Len()
		if n == 0 {
			return nil
		}

		if t := batch.Truncated(); t > 0 {
			log.WarnWith("fields truncated to buffer size", map[string]interface{}{
				"fields":      t,
				"buffer_size": e.bufferSize,
			})
			e.metrics.AddTruncated(t)
		}

		for row := 0; row < n; row++ {
			buf = enc.AppendRow(buf[:0], cols, batch, row)
			em.Row(buf)
		}
		e.metrics.AddUnits(stream.KindRow.String(), n)
	}
}

// asQueryErr keeps classified errors and wraps the rest as QueryFailed.
func asQueryErr(err error, msg string) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
)

var ErrWriterClosed = errors.New("sqlite writer is closed")

// TxFn is one unit of work executed inside a write transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Writer serializes all writes on one goroutine. Each job commits or rolls back as a whole.
type Writer struct {
	db     *sql.DB
	jobs   chan job
	done   chan struct{}
	closed chan struct{}
}

func NewWriter(db *sql.DB) *Writer {
	w := &Writer{
		db:     db,
		jobs:   make(chan job, 256),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go w.loop()

	return w
}

// Close stops accepting jobs and waits until the queued ones are finished.
func (w *Writer) Close() {
	select {
	case <-w.closed:
		return
	default:
	}

	close(w.closed)
	close(w.jobs)
	<-w.done
}

// Do enqueues fn and waits for its result. If ctx expires while the job runs, the transaction
// still completes in the writer; its result is discarded.
func (w *Writer) Do(ctx context.Context, fn TxFn) (err error) {
	defer func() {
		// sending on the closed jobs channel
		if recover() != nil {
			err = ErrWriterClosed
		}
	}()

	ch := make(chan error, 1)

	select {
	case <-w.closed:
		return ErrWriterClosed
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Writer) run(j job) error {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return err
	}

	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

package ingest

import (
	"context"

	"github.com/docvault/docvault/pkg/types"
)

// Progress is one per-file update emitted while a batch task runs. Exactly
// one of Result and Err is set.
type Progress struct {
	Path   string
	Result *types.IngestResult
	Err    error
}

// Task is a handle on a running batch ingest. Files are processed
// sequentially under the single writer lock; the handle adds cancellation
// and progress reporting on top.
type Task struct {
	progress chan Progress
	cancel   context.CancelFunc
	done     chan struct{}

	results []types.IngestResult
	err     error
}

// Start begins ingesting paths in order and returns immediately. The lock
// is held for the lifetime of the task, so concurrent writers fail fast
// with ErrBusy.
func (ing *Ingester) Start(ctx context.Context, paths []string) (*Task, error) {
	if !ing.lock.TryAcquire() {
		return nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		progress: make(chan Progress, len(paths)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer ing.lock.Release()
		defer cancel()
		defer close(t.done)
		defer close(t.progress)

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				t.err = err
				return
			}
			result, err := ing.ingestLocked(ctx, path)
			if err != nil {
				t.progress <- Progress{Path: path, Err: err}
				if t.err == nil {
					t.err = err
				}
				continue
			}
			t.results = append(t.results, result)
			t.progress <- Progress{Path: path, Result: &result}
		}
	}()
	return t, nil
}

// Progress returns the per-file update stream. The channel is closed when
// the task finishes.
func (t *Task) Progress() <-chan Progress {
	return t.progress
}

// Cancel stops the task before the next file. The file currently being
// processed runs to completion so the stores stay consistent.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes and returns the successful results
// along with the first error encountered, if any.
func (t *Task) Wait() ([]types.IngestResult, error) {
	<-t.done
	return t.results, t.err
}

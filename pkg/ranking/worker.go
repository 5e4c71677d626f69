package ranking

import (
	"context"
	"sync"
	"sync/atomic"
)

// Worker runs ranking passes in the background, one at a time. Readers see
// either the previous complete ranking or the new one, never a partial one.
type Worker struct {
	root    string
	pattern string
	opts    Options

	running atomic.Bool
	latest  atomic.Pointer[Ranking]

	mu      sync.Mutex
	done    chan struct{}
	lastErr error
}

// NewWorker creates a worker that ranks the files named pattern below root.
func NewWorker(root, pattern string, opts Options) *Worker {
	return &Worker{root: root, pattern: pattern, opts: opts}
}

// Start launches a ranking pass. It returns false without doing anything
// while a pass is already in flight. The pass runs to completion under ctx.
func (w *Worker) Start(ctx context.Context) bool {
	if !w.running.CompareAndSwap(false, true) {
		return false
	}

	done := make(chan struct{})

	w.mu.Lock()
	w.done = done
	w.mu.Unlock()

	go w.run(ctx, done)

	return true
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	ranking, err := RankDir(ctx, w.root, w.pattern, w.opts)
	if err == nil {
		w.latest.Store(ranking)
	}

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	w.running.Store(false)
	close(done)
}

// Running reports whether a pass is in flight.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Latest returns the most recent complete ranking, or nil before the first
// successful pass.
func (w *Worker) Latest() *Ranking {
	return w.latest.Load()
}

// Wait blocks until the current pass finishes and returns its error. It
// returns immediately when no pass was started.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastErr
}

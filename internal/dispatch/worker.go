// Package dispatch runs work on dedicated worker goroutines and hands results
// back to callers through futures.
package dispatch

import (
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/ffierr"
)

// DefaultWarnDepth is the queue length above which a worker logs a warning.
const DefaultWarnDepth = 1024

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Name identifies the resource the worker serves in logs and errors.
	Name string `mapstructure:"-"`
	// WarnDepth is the queue length that triggers a backlog warning.
	// Zero means DefaultWarnDepth; a negative value disables the warning.
	WarnDepth int `mapstructure:"warn_queue_depth"`
}

// Worker drains a strictly FIFO queue on a single goroutine.
//
// Submit never blocks. Work items and externally triggered events share the
// queue, so observers see them in submission order.
type Worker struct {
	name      string
	warnDepth int
	logger    *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	warned bool

	wg        conc.WaitGroup
	closeOnce sync.Once
}

// NewWorker starts a worker goroutine.
func NewWorker(cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.WarnDepth == 0 {
		cfg.WarnDepth = DefaultWarnDepth
	}
	w := &Worker{
		name:      cfg.Name,
		warnDepth: cfg.WarnDepth,
		logger: logger.With(
			zap.String("component", "dispatch-worker"),
			zap.String("resource", cfg.Name),
		),
	}
	w.cond = sync.NewCond(&w.mu)
	w.wg.Go(w.loop)

	w.logger.Debug("Worker started")
	return w
}

// Submit enqueues fn. After Shutdown it fails with *ffierr.LifecycleError.
func (w *Worker) Submit(fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &ffierr.LifecycleError{Type: w.name, Op: "submit"}
	}
	w.queue = append(w.queue, fn)
	if w.warnDepth > 0 && len(w.queue) > w.warnDepth && !w.warned {
		w.warned = true
		w.logger.Warn("Worker queue is backing up", zap.Int("depth", len(w.queue)))
	}
	w.cond.Signal()
	return nil
}

// Len returns the number of queued items not yet started.
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Shutdown stops accepting work, runs everything already queued and joins
// the worker goroutine. It is idempotent. It must not be called from a work
// item running on this worker.
func (w *Worker) Shutdown() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		pending := len(w.queue)
		w.cond.Broadcast()
		w.mu.Unlock()

		w.wg.Wait()
		w.logger.Debug("Worker stopped", zap.Int("drained", pending))
	})
}

// IsClosed reports whether Shutdown has been called.
func (w *Worker) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Worker) loop() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		fn := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		if len(w.queue) == 0 {
			w.warned = false
		}
		w.mu.Unlock()

		w.run(fn)
	}
}

func (w *Worker) run(fn func()) {
	var pc panics.Catcher
	pc.Try(fn)
	if rec := pc.Recovered(); rec != nil {
		w.logger.Error("Work item panicked", zap.Error(rec.AsError()))
	}
}

// Run submits fn and returns a future for its result. A panic inside fn
// fails the future; the worker keeps running.
func Run[T any](w *Worker, op string, fn func() (T, error)) *Future[T] {
	p, f := NewPromise[T](op)
	err := w.Submit(func() {
		var (
			v   T
			err error
		)
		var pc panics.Catcher
		pc.Try(func() { v, err = fn() })
		if rec := pc.Recovered(); rec != nil {
			p.Reject(rec.AsError())
			return
		}
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	})
	if err != nil {
		p.Reject(err)
	}
	return f
}

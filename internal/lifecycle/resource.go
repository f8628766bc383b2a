// Package lifecycle owns native handles exposed as Go objects.
//
// Close is the primary release path. A cleanup registered with
// runtime.AddCleanup runs the destructor for resources that become
// unreachable without being closed and reports them as leaks; its timing is
// up to the garbage collector.
package lifecycle

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/ffierr"
)

// Destructor releases a native handle.
type Destructor func(ctx context.Context, handle uint64) error

// Config configures a Tracker.
type Config struct {
	// LeakWarnings logs a warning for every resource released by the garbage
	// collector instead of Close.
	LeakWarnings bool `mapstructure:"leak_warnings"`
}

// Stats counts resources over a tracker's lifetime.
type Stats struct {
	Created int64
	Closed  int64
	Leaked  int64
	Live    int64
}

// Tracker creates resources and counts how they are released.
type Tracker struct {
	cfg    Config
	logger *zap.Logger

	created atomic.Int64
	closed  atomic.Int64
	leaked  atomic.Int64
}

// NewTracker creates a tracker.
func NewTracker(cfg Config, logger *zap.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "lifecycle")),
	}
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	s := Stats{
		Created: t.created.Load(),
		Closed:  t.closed.Load(),
		Leaked:  t.leaked.Load(),
	}
	s.Live = s.Created - s.Closed - s.Leaked
	return s
}

// Track takes exclusive ownership of handle. destroy runs exactly once,
// either from Close or from the garbage collector.
func (t *Tracker) Track(typ string, handle uint64, destroy Destructor) *Resource {
	r := &Resource{typ: typ, handle: handle, destroy: destroy, tracker: t}
	r.cleanup = runtime.AddCleanup(r, leaked, leak{
		typ:     typ,
		handle:  handle,
		destroy: destroy,
		tracker: t,
	})
	t.created.Add(1)

	t.logger.Debug("Resource created",
		zap.String("type", typ),
		zap.Uint64("handle", handle),
	)
	return r
}

type leak struct {
	typ     string
	handle  uint64
	destroy Destructor
	tracker *Tracker
}

func leaked(l leak) {
	t := l.tracker
	t.leaked.Add(1)
	if t.cfg.LeakWarnings {
		t.logger.Warn("Resource was not closed before it became unreachable",
			zap.String("type", l.typ),
			zap.Uint64("handle", l.handle),
		)
	}
	if err := l.destroy(context.Background(), l.handle); err != nil {
		t.logger.Error("Failed to release leaked resource",
			zap.String("type", l.typ),
			zap.Error(err),
		)
	}
}

// Resource is a Go object that exclusively owns one native handle.
type Resource struct {
	typ     string
	destroy Destructor
	tracker *Tracker
	cleanup runtime.Cleanup

	mu      sync.Mutex
	handle  uint64
	closed  bool
	inUse   int
	pending context.Context // set when Close ran during a Use
}

// Type returns the resource's type name.
func (r *Resource) Type() string {
	return r.typ
}

// Use lends the handle to fn. After Close, Use fails with
// *ffierr.LifecycleError without calling fn.
//
// fn may close r, directly or from a callback it triggers. The destructor
// then runs once the last Use in progress returns.
func (r *Resource) Use(op string, fn func(handle uint64) error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return &ffierr.LifecycleError{Type: r.typ, Op: op}
	}
	r.inUse++
	h := r.handle
	r.mu.Unlock()

	defer r.done()
	return fn(h)
}

func (r *Resource) done() {
	r.mu.Lock()
	r.inUse--
	if r.inUse > 0 || r.pending == nil {
		r.mu.Unlock()
		return
	}
	ctx, h := r.pending, r.handle
	r.pending = nil
	r.handle = 0
	r.mu.Unlock()

	if err := r.destroy(ctx, h); err != nil {
		r.tracker.logger.Error("Failed to release resource after use",
			zap.String("type", r.typ),
			zap.Uint64("handle", h),
			zap.Error(err),
		)
	}
}

// Close runs the destructor. Later calls return nil.
//
// While a Use is in progress the destructor is deferred to the end of the
// last one and Close returns nil; its failure is logged.
func (r *Resource) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.cleanup.Stop()
	h := r.handle
	deferred := r.inUse > 0
	if deferred {
		r.pending = context.WithoutCancel(ctx)
	} else {
		r.handle = 0
	}
	r.mu.Unlock()

	r.tracker.closed.Add(1)
	r.tracker.logger.Debug("Resource closed",
		zap.String("type", r.typ),
		zap.Uint64("handle", h),
		zap.Bool("deferred", deferred),
	)
	if deferred {
		return nil
	}
	return r.destroy(ctx, h)
}

// IsClosed reports whether Close has been called.
func (r *Resource) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

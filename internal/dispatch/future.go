package dispatch

import (
	"context"
	"sync"

	"github.com/woxQAQ/oobridge/internal/ffierr"
)

// Future is the caller's view of a pending operation. Waiting is always the
// caller's choice; nothing blocks until Wait is called.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Promise settles a Future exactly once.
type Promise[T any] struct {
	op   string
	f    *Future[T]
	once sync.Once
}

// NewPromise creates a linked promise and future for the named operation.
func NewPromise[T any](op string) (*Promise[T], *Future[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return &Promise[T]{op: op, f: f}, f
}

// Resolve completes the future with v. It reports false if the future was
// already settled.
func (p *Promise[T]) Resolve(v T) bool {
	return p.settle(v, nil)
}

// Reject fails the future with err.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.settle(zero, err)
}

// Drop fails the future with *ffierr.DroppedError. It is a no-op once the
// future is settled, so it can be deferred by whoever owns the promise.
func (p *Promise[T]) Drop() bool {
	return p.Reject(&ffierr.DroppedError{Operation: p.op})
}

func (p *Promise[T]) settle(v T, err error) bool {
	settled := false
	p.once.Do(func() {
		p.f.val, p.f.err = v, err
		close(p.f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Settled reports whether the future has completed.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	p, f := NewPromise[T]("")
	p.Resolve(v)
	return f
}

// Failed returns a future already failed with err.
func Failed[T any](err error) *Future[T] {
	p, f := NewPromise[T]("")
	p.Reject(err)
	return f
}

package fooffi

import (
	"context"
	"fmt"
	"sync"

	"github.com/woxQAQ/oobridge/internal/dispatch"
	"github.com/woxQAQ/oobridge/internal/native"
)

// Operations of the thread class callbacks.
const (
	opValueChange uint32 = 0

	opComplete uint32 = 0
	opFailure  uint32 = 1

	opExecute uint32 = 0
)

// threadClass owns a worker goroutine. Its state is only touched by work
// items, which the worker runs one at a time in submission order.
type threadClass struct {
	l        *Library
	worker   *dispatch.Worker
	receiver uint64

	value   uint32
	errs    []uint32
	dropAdd bool

	closeOnce sync.Once
}

// shutdown runs every queued message, stops the worker and destroys the
// value change receiver. Safe to call multiple times.
func (tc *threadClass) shutdown(ctx context.Context) {
	tc.closeOnce.Do(func() {
		tc.worker.Shutdown()
		tc.l.destroy(ctx, tc.receiver)
	})
}

func (tc *threadClass) notify(ctx context.Context) {
	if _, status := tc.l.invoke(ctx, tc.receiver, opValueChange, 0, u32Arg(tc.value)); status != native.StatusOK {
		tc.l.log(ctx, native.LogWarn, fmt.Sprintf("value change listener failed with status %d", status))
	}
}

// submit queues fn on the worker. Work items run outside of any caller's
// call, so they get a fresh context.
func (tc *threadClass) submit(fn func(ctx context.Context)) error {
	return tc.worker.Submit(func() { fn(context.Background()) })
}

func (l *Library) threadClass(h uint64) (*threadClass, error) {
	return object[*threadClass](l, h)
}

func (l *Library) registerThreadClass() {
	// foo_thread_class_new(value, receiver) -> handle
	l.export("foo_thread_class_new", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc := &threadClass{
			l:        l,
			receiver: p[1],
			value:    uint32(p[0]),
			worker:   dispatch.NewWorker(l.workerConfig("ThreadClass"), l.logger),
		}
		return []uint64{l.store(tc)}, nil
	})

	l.export("foo_thread_class_destroy", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		tc, err := take[*threadClass](l, p[0])
		if err != nil {
			return nil, err
		}
		tc.shutdown(ctx)
		return nil, nil
	})

	l.export("foo_thread_class_update", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc, err := l.threadClass(p[0])
		if err != nil {
			return nil, err
		}
		value := uint32(p[1])
		return nil, tc.submit(func(ctx context.Context) {
			tc.value = value
			tc.notify(ctx)
		})
	})

	// foo_thread_class_add(instance, value, handler). The handler receives
	// on_complete with the new value or on_failure with a MathIsBroken
	// ordinal. A dropped add destroys the handler without invoking it.
	l.export("foo_thread_class_add", 3, func(ctx context.Context, p []uint64) ([]uint64, error) {
		handler := p[2]
		tc, err := l.threadClass(p[0])
		if err != nil {
			l.destroy(ctx, handler)
			return nil, err
		}
		value := uint32(p[1])
		err = tc.submit(func(ctx context.Context) {
			defer l.destroy(ctx, handler)

			switch {
			case tc.dropAdd:
				tc.dropAdd = false
			case len(tc.errs) > 0:
				code := tc.errs[len(tc.errs)-1]
				tc.errs = tc.errs[:len(tc.errs)-1]
				l.invoke(ctx, handler, opFailure, 0, u32Arg(code))
			default:
				tc.value += value
				tc.notify(ctx)
				l.invoke(ctx, handler, opComplete, 0, u32Arg(tc.value))
			}
		})
		if err != nil {
			l.destroy(ctx, handler)
		}
		return nil, err
	})

	// foo_thread_class_execute(instance, operation). The operation maps the
	// current value to a new one.
	l.export("foo_thread_class_execute", 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
		operation := p[1]
		tc, err := l.threadClass(p[0])
		if err != nil {
			l.destroy(ctx, operation)
			return nil, err
		}
		err = tc.submit(func(ctx context.Context) {
			defer l.destroy(ctx, operation)

			v, status := l.invoke(ctx, operation, opExecute, 4, u32Arg(tc.value))
			if status != native.StatusOK {
				l.log(ctx, native.LogWarn, fmt.Sprintf("operation failed with status %d", status))
				return
			}
			tc.value = uint32(v)
			tc.notify(ctx)
		})
		if err != nil {
			l.destroy(ctx, operation)
		}
		return nil, err
	})

	// foo_thread_class_queue_error(instance, code) makes a later add fail.
	// Queued errors are used last in, first out.
	l.export("foo_thread_class_queue_error", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc, err := l.threadClass(p[0])
		if err != nil {
			return nil, err
		}
		code := uint32(p[1])
		return nil, tc.submit(func(context.Context) {
			tc.errs = append(tc.errs, code)
		})
	})

	l.export("foo_thread_class_drop_next_add", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc, err := l.threadClass(p[0])
		if err != nil {
			return nil, err
		}
		return nil, tc.submit(func(context.Context) {
			tc.dropAdd = true
		})
	})
}

func (l *Library) workerConfig(name string) dispatch.WorkerConfig {
	cfg := l.workers
	cfg.Name = name
	return cfg
}

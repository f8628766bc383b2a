package fooffi

import (
	"context"
	"sync"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/native"
)

// Operations of callback_interface.
const (
	opOnValue uint32 = iota
	opOnDuration
)

type callbackSource struct {
	slot callback.Slot

	mu       sync.Mutex
	oneShots []uint64
	value    uint32
}

func (l *Library) registerCallbackSource() {
	l.export("foo_cbsource_new", 0, func(context.Context, []uint64) ([]uint64, error) {
		return []uint64{l.store(&callbackSource{})}, nil
	})

	l.export("foo_cbsource_destroy", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		src, err := take[*callbackSource](l, p[0])
		if err != nil {
			return nil, err
		}
		if cb, ok := src.slot.Clear(); ok {
			l.destroy(ctx, cb)
		}
		src.mu.Lock()
		pending := src.oneShots
		src.oneShots = nil
		src.mu.Unlock()
		for _, cb := range pending {
			l.destroy(ctx, cb)
		}
		return nil, nil
	})

	// foo_cbsource_set_interface(src, cb) replaces the persistent callback.
	l.export("foo_cbsource_set_interface", 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
		src, err := object[*callbackSource](l, p[0])
		if err != nil {
			return nil, err
		}
		if prev, ok := src.slot.Replace(p[1]); ok {
			l.destroy(ctx, prev)
		}
		return nil, nil
	})

	// foo_cbsource_add_one_shot(src, cb) queues a callback for the next value.
	l.export("foo_cbsource_add_one_shot", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		src, err := object[*callbackSource](l, p[0])
		if err != nil {
			return nil, err
		}
		src.mu.Lock()
		src.oneShots = append(src.oneShots, p[1])
		src.mu.Unlock()
		return nil, nil
	})

	// foo_cbsource_set_value(src, value) -> u32 returned by the persistent
	// callback, or 0 without one.
	l.export("foo_cbsource_set_value", 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
		src, err := object[*callbackSource](l, p[0])
		if err != nil {
			return nil, err
		}
		value := uint32(p[1])

		src.mu.Lock()
		src.value = value
		pending := src.oneShots
		src.oneShots = nil
		src.mu.Unlock()

		for _, cb := range pending {
			l.invoke(ctx, cb, opOnValue, 4, u32Arg(value))
			l.destroy(ctx, cb)
		}

		cb, ok := src.slot.Current()
		if !ok {
			return []uint64{0}, nil
		}
		ret, status := l.invoke(ctx, cb, opOnValue, 4, u32Arg(value))
		if status != native.StatusOK {
			return []uint64{0}, nil
		}
		return []uint64{ret}, nil
	})

	// foo_cbsource_set_duration(src, ms) -> ms returned by the persistent
	// callback, or 0 without one.
	l.export("foo_cbsource_set_duration", 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
		src, err := object[*callbackSource](l, p[0])
		if err != nil {
			return nil, err
		}
		cb, ok := src.slot.Current()
		if !ok {
			return []uint64{0}, nil
		}
		ret, status := l.invoke(ctx, cb, opOnDuration, 8, u64Arg(p[1]))
		if status != native.StatusOK {
			return []uint64{0}, nil
		}
		return []uint64{ret}, nil
	})
}

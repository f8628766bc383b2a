package fooffi

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Operations of defaulted_interface.
const (
	opGetU32Value uint32 = iota
	opGetDurationMs
)

func (l *Library) registerDefaults() {
	// foo_get_u32_value(cb) -> u32, or 0 if the callback fails.
	l.export("foo_get_u32_value", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		defer l.destroy(ctx, p[0])
		v, status := l.invoke(ctx, p[0], opGetU32Value, 4)
		if status != native.StatusOK {
			return []uint64{0}, nil
		}
		return []uint64{v}, nil
	})

	// foo_get_duration_value(cb) -> ms, or 0 if the callback fails.
	l.export("foo_get_duration_value", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		defer l.destroy(ctx, p[0])
		v, status := l.invoke(ctx, p[0], opGetDurationMs, 8)
		if status != native.StatusOK {
			return []uint64{0}, nil
		}
		return []uint64{v}, nil
	})
}

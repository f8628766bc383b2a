package fooffi

import (
	"context"
	"sync/atomic"
)

type testClass struct {
	value atomic.Uint32
}

func (l *Library) registerTestClass() {
	l.export("foo_testclass_new", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc := &testClass{}
		tc.value.Store(uint32(p[0]))
		l.constructed.Add(1)
		return []uint64{l.store(tc)}, nil
	})

	l.export("foo_testclass_destroy", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		if _, err := take[*testClass](l, p[0]); err != nil {
			return nil, err
		}
		l.constructed.Add(-1)
		return nil, nil
	})

	l.export("foo_testclass_get_value", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc, err := object[*testClass](l, p[0])
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(tc.value.Load())}, nil
	})

	l.export("foo_testclass_increment_value", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		tc, err := object[*testClass](l, p[0])
		if err != nil {
			return nil, err
		}
		tc.value.Add(1)
		return nil, nil
	})

	l.export("foo_testclass_construction_counter", 0, func(context.Context, []uint64) ([]uint64, error) {
		return []uint64{uint64(uint32(l.constructed.Load()))}, nil
	})
}

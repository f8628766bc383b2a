package fooffi

import (
	"context"
	"sync"
)

// stringClass keeps the last string it echoed.
type stringClass struct {
	mu  sync.Mutex
	buf block
}

func (l *Library) registerStringClass() {
	l.export("foo_string_class_new", 0, func(context.Context, []uint64) ([]uint64, error) {
		return []uint64{l.store(&stringClass{})}, nil
	})

	l.export("foo_string_class_destroy", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		sc, err := take[*stringClass](l, p[0])
		if err != nil {
			return nil, err
		}
		sc.mu.Lock()
		defer sc.mu.Unlock()
		if sc.buf.ptr != 0 {
			l.mem.release(sc.buf.ptr)
		}
		return nil, nil
	})

	// foo_string_class_echo(instance, ptr, len, out). The echoed string is
	// borrowed from the instance and stays valid until its next echo.
	l.export("foo_string_class_echo", 4, func(_ context.Context, p []uint64) ([]uint64, error) {
		sc, err := object[*stringClass](l, p[0])
		if err != nil {
			return nil, err
		}
		s, err := l.readString(p[1], p[2])
		if err != nil {
			return nil, err
		}

		sc.mu.Lock()
		defer sc.mu.Unlock()
		if sc.buf.ptr != 0 {
			l.mem.release(sc.buf.ptr)
		}
		sc.buf = l.ownString(s)
		return nil, l.writeStr(p[3], sc.buf.ptr, uint64(sc.buf.size))
	})
}

package fooffi

import (
	"context"
	"fmt"
	"sync"

	"github.com/woxQAQ/oobridge/internal/native"
)

// cursor produces fixed-size items into a single core-owned block that is
// rewritten on every step.
type cursor struct {
	mu   sync.Mutex
	item uint64
	size uint32
	next func() (uint64, bool)
}

func (l *Library) newCursor(size uint32, next func() (uint64, bool)) (uint64, *cursor) {
	c := &cursor{item: l.mem.alloc(size, size), size: size, next: next}
	return l.store(c), c
}

func (l *Library) step(h uint64) ([]uint64, error) {
	c, err := object[*cursor](l, h)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.next()
	if !ok {
		return []uint64{0}, nil
	}
	if err := native.WriteUint(l.mem, c.item, c.size, v); err != nil {
		return nil, err
	}
	return []uint64{c.item}, nil
}

// lend passes a fresh cursor to operation 0 of receiver, then drops the
// cursor and the receiver.
func (l *Library) lend(ctx context.Context, receiver uint64, size uint32, next func() (uint64, bool)) {
	h, c := l.newCursor(size, next)
	if _, status := l.invoke(ctx, receiver, 0, 0, u64Arg(h)); status != native.StatusOK {
		l.log(ctx, native.LogWarn, fmt.Sprintf("iterator receiver failed with status %d", status))
	}
	l.objects.Delete(h)
	l.mem.release(c.item)
	l.destroy(ctx, receiver)
}

func (l *Library) registerIterators() {
	// foo_invoke_string_callback(ptr, len, receiver): yields each byte.
	l.export("foo_invoke_string_callback", 3, func(ctx context.Context, p []uint64) ([]uint64, error) {
		s, err := l.readString(p[0], p[1])
		if err != nil {
			l.destroy(ctx, p[2])
			return nil, err
		}
		data := []byte(s)
		l.lend(ctx, p[2], 1, func() (uint64, bool) {
			if len(data) == 0 {
				return 0, false
			}
			b := data[0]
			data = data[1:]
			return uint64(b), true
		})
		return nil, nil
	})

	l.export("foo_string_iterator_next", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		return l.step(p[0])
	})

	// foo_invoke_int32_callback(receiver): yields 1, 2, 3.
	l.export("foo_invoke_int32_callback", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		next, last := int32(1), int32(3)
		l.lend(ctx, p[0], 4, func() (uint64, bool) {
			if next > last {
				return 0, false
			}
			v := next
			next++
			return uint64(uint32(v)), true
		})
		return nil, nil
	})

	l.export("foo_int32_iterator_next", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		return l.step(p[0])
	})

	// foo_invoke_chunked(ptr, len, size, receiver): pushes consecutive
	// chunks of at most size bytes. A zero size delivers one chunk.
	l.export("foo_invoke_chunked", 4, func(ctx context.Context, p []uint64) ([]uint64, error) {
		defer l.destroy(ctx, p[3])

		s, err := l.readString(p[0], p[1])
		if err != nil {
			return nil, err
		}
		size := int(uint32(p[2]))
		if size == 0 {
			size = len(s)
		}

		for start := 0; start < len(s); start += size {
			chunk := l.ownString(s[start:min(start+size, len(s))])
			_, status := l.invoke(ctx, p[3], 0, 0, strArg(chunk.ptr, uint64(chunk.size))...)
			l.mem.release(chunk.ptr)
			if status != native.StatusOK {
				l.log(ctx, native.LogWarn, fmt.Sprintf("chunk receiver failed with status %d", status))
				break
			}
		}
		return nil, nil
	})
}

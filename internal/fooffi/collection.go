package fooffi

import (
	"context"
	"fmt"
	"strings"

	"github.com/woxQAQ/oobridge/internal/native"
)

func (l *Library) registerCollections() {
	// foo_collection_size(col) -> u32
	l.export("foo_collection_size", 1, func(ctx context.Context, p []uint64) ([]uint64, error) {
		host := l.bound()
		if host == nil {
			return []uint64{0}, nil
		}
		return []uint64{uint64(host.CollectionSize(ctx, p[0]))}, nil
	})

	// foo_collection_get(col, idx, out). An out-of-range index yields an
	// empty string.
	l.export("foo_collection_get", 3, func(ctx context.Context, p []uint64) ([]uint64, error) {
		if err := l.collectionGet(ctx, p[0], uint32(p[1]), p[2]); err != nil {
			return nil, l.writeStr(p[2], 0, 0)
		}
		return nil, nil
	})

	// foo_collection_join(col, sep_ptr, sep_len, out). The caller frees the
	// joined string.
	l.export("foo_collection_join", 4, func(ctx context.Context, p []uint64) ([]uint64, error) {
		sep, err := l.readString(p[1], p[2])
		if err != nil {
			return nil, err
		}
		host := l.bound()
		if host == nil {
			return nil, l.writeStr(p[3], 0, 0)
		}

		tmp := l.mem.alloc(16, 8)
		defer l.mem.release(tmp)

		n := host.CollectionSize(ctx, p[0])
		parts := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			if err := l.collectionGet(ctx, p[0], i, tmp); err != nil {
				return nil, err
			}
			ptr, _ := native.ReadUint64(l.mem, tmp)
			length, _ := native.ReadUint64(l.mem, tmp+8)
			s, err := l.readString(ptr, length)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}

		return nil, l.give(p[3], strings.Join(parts, sep))
	})
}

type statusError uint32

func (s statusError) Error() string {
	return fmt.Sprintf("host returned status %d", uint32(s))
}

func (l *Library) collectionGet(ctx context.Context, col uint64, idx uint32, out uint64) error {
	host := l.bound()
	if host == nil {
		return statusError(native.StatusUnknownHandle)
	}
	if status := host.CollectionGet(ctx, l.mem, col, idx, out); status != native.StatusOK {
		return statusError(status)
	}
	return nil
}

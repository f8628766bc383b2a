package fooffi

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/native"
)

// magicID is the id of the opaque struct built by the core.
const magicID = 42

// Layout of universal_outer_struct: {inner {value i32}, delay_ms u64}.
const (
	outerInnerOffset = 0
	outerDelayOffset = 8
	outerSize        = 16
)

func (l *Library) registerOpaqueStruct() {
	// foo_opaque_struct_magic_init(out)
	l.export("foo_opaque_struct_magic_init", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		return nil, native.WriteUint64(l.mem, p[0], magicID)
	})

	// foo_opaque_struct_get_id(<flattened OpaqueStruct>) -> u64
	l.export("foo_opaque_struct_get_id", 1, identity)
}

func (l *Library) registerUniversalStruct() {
	// foo_invoke_universal_interface(inner_value, delay_ms, cb, out). The
	// value is passed through the callback; if the callback fails it is
	// returned unchanged.
	l.export("foo_invoke_universal_interface", 4, func(ctx context.Context, p []uint64) ([]uint64, error) {
		defer l.destroy(ctx, p[2])

		inner, delay := uint32(p[0]), p[1]
		l.invokeInto(ctx, p[2], 0, outerSize, func(ret uint64) error {
			v, err := native.ReadUint32(l.mem, ret+outerInnerOffset)
			if err != nil {
				return err
			}
			d, err := native.ReadUint64(l.mem, ret+outerDelayOffset)
			if err != nil {
				return err
			}
			inner, delay = v, d
			return nil
		}, i32Arg(int32(inner)), u64Arg(delay))

		if err := native.WriteUint32(l.mem, p[3]+outerInnerOffset, inner); err != nil {
			return nil, err
		}
		return nil, native.WriteUint64(l.mem, p[3]+outerDelayOffset, delay)
	})
}

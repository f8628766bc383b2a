package fooffi

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Layout of a primitive_pointers instance in core memory.
const (
	pointersBool   = 0
	pointersU8     = 1
	pointersFloat  = 4
	pointersDouble = 8
	pointersSize   = 16
)

// primitivePointers owns a block whose fields are returned by address.
type primitivePointers struct {
	ptr uint64
}

func (l *Library) registerPrimitivePointers() {
	l.export("foo_primitive_pointers_new", 0, func(context.Context, []uint64) ([]uint64, error) {
		return []uint64{l.store(&primitivePointers{ptr: l.mem.alloc(pointersSize, 8)})}, nil
	})

	l.export("foo_primitive_pointers_destroy", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		pp, err := take[*primitivePointers](l, p[0])
		if err != nil {
			return nil, err
		}
		l.mem.release(pp.ptr)
		return nil, nil
	})

	// Each getter stores value in the instance and returns the field's
	// address. The address stays valid until the instance is destroyed.
	getter := func(name string, offset uint64, size uint32) {
		l.export(name, 2, func(_ context.Context, p []uint64) ([]uint64, error) {
			pp, err := object[*primitivePointers](l, p[0])
			if err != nil {
				return nil, err
			}
			addr := pp.ptr + offset
			if err := native.WriteUint(l.mem, addr, size, p[1]); err != nil {
				return nil, err
			}
			return []uint64{addr}, nil
		})
	}

	getter("foo_primitive_pointers_get_bool", pointersBool, 1)
	getter("foo_primitive_pointers_get_u8", pointersU8, 1)
	getter("foo_primitive_pointers_get_float", pointersFloat, 4)
	getter("foo_primitive_pointers_get_double", pointersDouble, 8)
}

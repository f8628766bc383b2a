package marshal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Allocator hands out native memory for lowered values.
type Allocator interface {
	Alloc(ctx context.Context, size, align uint32) (uint64, error)
	Memory() native.Memory
}

// Encoder lowers validated Go values into call slots and native memory.
type Encoder struct {
	alloc       Allocator
	interfaces  Interfaces
	collections Collections

	registered []uint64
	exposed    []uint64
}

// NewEncoder returns an encoder allocating from alloc. Either registry may be
// nil if the values lowered never contain interfaces or collections.
func NewEncoder(alloc Allocator, interfaces Interfaces, collections Collections) *Encoder {
	return &Encoder{alloc: alloc, interfaces: interfaces, collections: collections}
}

// Lower converts v to call slots. Structs passed by reference are written to
// native memory and lowered to a single pointer slot.
func (e *Encoder) Lower(ctx context.Context, t Type, v Value, byRef bool) ([]uint64, error) {
	if byRef {
		l := t.Layout()
		ptr, err := e.alloc.Alloc(ctx, l.Size, l.Align)
		if err != nil {
			return nil, err
		}
		if err := e.Store(ctx, ptr, t, v); err != nil {
			return nil, err
		}
		return []uint64{ptr}, nil
	}

	switch tt := t.(type) {
	case *StructType:
		var slots []uint64
		for i, f := range tt.Fields {
			s, err := e.Lower(ctx, f.Type, v.Field(i), false)
			if err != nil {
				return nil, err
			}
			slots = append(slots, s...)
		}
		return slots, nil
	case *PointerType:
		return nil, fmt.Errorf("cannot lower %s", t)
	}

	if t.Kind() == KindString {
		ptr, err := e.allocString(ctx, v.Str())
		if err != nil {
			return nil, err
		}
		return []uint64{ptr, uint64(len(v.Str()))}, nil
	}

	slot, err := e.scalar(ctx, t, v)
	if err != nil {
		return nil, err
	}
	return []uint64{slot}, nil
}

// Store writes v at addr using t's layout.
func (e *Encoder) Store(ctx context.Context, addr uint64, t Type, v Value) error {
	mem := e.alloc.Memory()

	switch tt := t.(type) {
	case *StructType:
		for i, f := range tt.Fields {
			if err := e.Store(ctx, addr+uint64(tt.Offset(i)), f.Type, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	case *PointerType:
		return fmt.Errorf("cannot store %s", t)
	}

	if t.Kind() == KindString {
		ptr, err := e.allocString(ctx, v.Str())
		if err != nil {
			return err
		}
		if err := native.WriteUint64(mem, addr, ptr); err != nil {
			return err
		}
		return native.WriteUint64(mem, addr+8, uint64(len(v.Str())))
	}

	slot, err := e.scalar(ctx, t, v)
	if err != nil {
		return err
	}
	return native.WriteUint(mem, addr, t.Layout().Size, slot)
}

// AllocOut reserves an out-area for a value of type t.
func (e *Encoder) AllocOut(ctx context.Context, t Type) (uint64, error) {
	l := t.Layout()
	return e.alloc.Alloc(ctx, l.Size, l.Align)
}

// Rollback undoes registrations made for a call that never reached native code.
func (e *Encoder) Rollback(ctx context.Context) {
	for _, h := range e.registered {
		e.interfaces.ReleaseBinding(h)
	}
	e.registered = nil
	e.Finish(ctx)
}

// Finish retracts the collections exposed for a completed call.
func (e *Encoder) Finish(ctx context.Context) {
	for _, h := range e.exposed {
		e.collections.RetractCollection(ctx, h)
	}
	e.exposed = nil
}

func (e *Encoder) allocString(ctx context.Context, s string) (uint64, error) {
	if len(s) == 0 {
		return 0, nil
	}
	ptr, err := e.alloc.Alloc(ctx, uint32(len(s)), 1)
	if err != nil {
		return 0, err
	}
	if err := native.WriteBytes(e.alloc.Memory(), ptr, []byte(s)); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (e *Encoder) scalar(ctx context.Context, t Type, v Value) (uint64, error) {
	switch t.Kind() {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindEnum, KindHandle:
		return v.Uint(), nil
	case KindI8, KindI16, KindI32:
		return api.EncodeI32(int32(v.Int())), nil
	case KindI64:
		return api.EncodeI64(v.Int()), nil
	case KindF32:
		return api.EncodeF32(float32(v.Float())), nil
	case KindF64:
		return api.EncodeF64(v.Float()), nil
	case KindDuration:
		return encodeDuration(t.(*DurationType), v.Duration()), nil
	case KindCollection:
		if e.collections == nil {
			return 0, fmt.Errorf("no collection registry for %s", t)
		}
		h := e.collections.ExposeCollection(v.Collection(), t.(*CollectionType).Elem)
		e.exposed = append(e.exposed, h)
		return h, nil
	case KindInterface:
		if e.interfaces == nil {
			return 0, fmt.Errorf("no callback registry for %s", t)
		}
		h, err := e.interfaces.RegisterBinding(ctx, v.Binding())
		if err != nil {
			return 0, err
		}
		e.registered = append(e.registered, h)
		return h, nil
	}
	return 0, fmt.Errorf("cannot lower %s", t)
}

func encodeDuration(t *DurationType, d time.Duration) uint64 {
	switch t.Encoding {
	case Millis:
		return uint64(d / time.Millisecond)
	case Seconds:
		return uint64(d / time.Second)
	default:
		return api.EncodeF32(float32(d.Seconds()))
	}
}

func decodeDuration(t *DurationType, slot uint64) time.Duration {
	switch t.Encoding {
	case Millis:
		return time.Duration(slot) * time.Millisecond
	case Seconds:
		return time.Duration(slot) * time.Second
	default:
		secs := float64(api.DecodeF32(slot))
		return time.Duration(math.Round(secs * float64(time.Second)))
	}
}

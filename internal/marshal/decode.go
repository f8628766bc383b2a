package marshal

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/native"
)

// Resolver looks up native exports, used to advance iterators.
type Resolver func(symbol string) (native.Function, error)

// Decoder lifts native slots and memory into Go values.
//
// Iterators produced by a decoder borrow native state that only lives as
// long as the call or callback that delivered them; Invalidate ends that
// borrow.
type Decoder struct {
	mem        native.Memory
	resolve    Resolver
	interfaces Interfaces

	mu        sync.Mutex
	iterators []*Iterator
}

// NewDecoder returns a decoder reading from mem.
func NewDecoder(mem native.Memory, resolve Resolver, interfaces Interfaces) *Decoder {
	return &Decoder{mem: mem, resolve: resolve, interfaces: interfaces}
}

// Lift converts leading slots into a value of type t. It returns the number
// of slots consumed.
func (d *Decoder) Lift(ctx context.Context, t Type, slots []uint64) (Value, int, error) {
	need := SlotCount(t)
	if len(slots) < need {
		return Null(), 0, fmt.Errorf("lifting %s: need %d slots, have %d", t, need, len(slots))
	}

	switch tt := t.(type) {
	case *StructType:
		fields := make([]Value, len(tt.Fields))
		n := 0
		for i, f := range tt.Fields {
			v, used, err := d.Lift(ctx, f.Type, slots[n:])
			if err != nil {
				return Null(), 0, err
			}
			fields[i] = v
			n += used
		}
		return Struct(fields...), n, nil
	case *PointerType:
		return d.deref(ctx, tt, slots[0])
	}

	if t.Kind() == KindString {
		s, err := native.ReadString(d.mem, slots[0], uint32(slots[1]))
		if err != nil {
			return Null(), 0, err
		}
		return Str(s), 2, nil
	}

	v, err := d.scalar(ctx, t, slots[0])
	return v, 1, err
}

// Load reads a value of type t stored at addr.
func (d *Decoder) Load(ctx context.Context, addr uint64, t Type) (Value, error) {
	switch tt := t.(type) {
	case *StructType:
		fields := make([]Value, len(tt.Fields))
		for i, f := range tt.Fields {
			v, err := d.Load(ctx, addr+uint64(tt.Offset(i)), f.Type)
			if err != nil {
				return Null(), err
			}
			fields[i] = v
		}
		return Struct(fields...), nil
	case *PointerType:
		ptr, err := native.ReadUint64(d.mem, addr)
		if err != nil {
			return Null(), err
		}
		v, _, err := d.deref(ctx, tt, ptr)
		return v, err
	}

	if t.Kind() == KindString {
		ptr, err := native.ReadUint64(d.mem, addr)
		if err != nil {
			return Null(), err
		}
		n, err := native.ReadUint64(d.mem, addr+8)
		if err != nil {
			return Null(), err
		}
		s, err := native.ReadString(d.mem, ptr, uint32(n))
		if err != nil {
			return Null(), err
		}
		return Str(s), nil
	}

	raw, err := native.ReadUint(d.mem, addr, t.Layout().Size)
	if err != nil {
		return Null(), err
	}
	return d.scalar(ctx, t, raw)
}

func (d *Decoder) deref(ctx context.Context, t *PointerType, ptr uint64) (Value, int, error) {
	if ptr == 0 {
		return Null(), 1, nil
	}
	v, err := d.Load(ctx, ptr, t.Elem)
	if err != nil {
		return Null(), 0, err
	}
	return v, 1, nil
}

// Invalidate ends every iterator this decoder produced.
func (d *Decoder) Invalidate() {
	d.mu.Lock()
	its := d.iterators
	d.iterators = nil
	d.mu.Unlock()

	for _, it := range its {
		it.invalidate()
	}
}

func (d *Decoder) scalar(ctx context.Context, t Type, slot uint64) (Value, error) {
	switch t.Kind() {
	case KindBool:
		return Bool(uint8(slot) != 0), nil
	case KindU8:
		return U8(uint8(slot)), nil
	case KindU16:
		return U16(uint16(slot)), nil
	case KindU32:
		return U32(api.DecodeU32(slot)), nil
	case KindU64:
		return U64(slot), nil
	case KindI8:
		return I8(int8(slot)), nil
	case KindI16:
		return I16(int16(slot)), nil
	case KindI32:
		return I32(api.DecodeI32(slot)), nil
	case KindI64:
		return I64(int64(slot)), nil
	case KindF32:
		return F32(api.DecodeF32(slot)), nil
	case KindF64:
		return F64(api.DecodeF64(slot)), nil
	case KindHandle:
		return Handle(slot), nil
	case KindDuration:
		return Duration(decodeDuration(t.(*DurationType), slot)), nil
	case KindEnum:
		et := t.(*EnumType)
		ordinal := api.DecodeU32(slot)
		if _, ok := et.Lookup(ordinal); !ok {
			return Null(), &ffierr.EnumRangeError{Enum: et.Name, Ordinal: int64(ordinal)}
		}
		return Enum(ordinal), nil
	case KindIterator:
		return IteratorOf(d.newIterator(ctx, t.(*IteratorType), slot)), nil
	case KindInterface:
		if d.interfaces == nil {
			return Null(), fmt.Errorf("no callback registry for %s", t)
		}
		b, ok := d.interfaces.TakeBinding(slot)
		if !ok {
			return Null(), fmt.Errorf("unknown %s handle %d", t, slot)
		}
		return InterfaceOf(b), nil
	}
	return Null(), fmt.Errorf("cannot lift %s", t)
}

func (d *Decoder) newIterator(ctx context.Context, t *IteratorType, handle uint64) *Iterator {
	it := &Iterator{ctx: ctx, typ: t, handle: handle, dec: d, valid: true}

	d.mu.Lock()
	d.iterators = append(d.iterators, it)
	d.mu.Unlock()

	return it
}

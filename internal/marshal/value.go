// Package marshal converts values between Go and the native core.
//
// A Value is a tagged union; a Type describes how a value is laid out in
// native memory and in call slots. Validation runs before anything is
// lowered, so a native call never sees a null where a value is required.
package marshal

import (
	"fmt"
	"math"
	"time"
)

// Kind tags a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindString
	KindDuration
	KindEnum
	KindStruct
	KindHandle
	KindCollection
	KindIterator
	KindInterface
)

var kindNames = [...]string{
	KindNull:       "null",
	KindBool:       "bool",
	KindU8:         "u8",
	KindU16:        "u16",
	KindU32:        "u32",
	KindU64:        "u64",
	KindI8:         "i8",
	KindI16:        "i16",
	KindI32:        "i32",
	KindI64:        "i64",
	KindF32:        "f32",
	KindF64:        "f64",
	KindString:     "string",
	KindDuration:   "duration",
	KindEnum:       "enum",
	KindStruct:     "struct",
	KindHandle:     "handle",
	KindCollection: "collection",
	KindIterator:   "iterator",
	KindInterface:  "interface",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a marshalled value. The zero Value is null.
type Value struct {
	kind   Kind
	bits   uint64
	str    string
	fields []Value
	ref    any
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

func U8(x uint8) Value   { return Value{kind: KindU8, bits: uint64(x)} }
func U16(x uint16) Value { return Value{kind: KindU16, bits: uint64(x)} }
func U32(x uint32) Value { return Value{kind: KindU32, bits: uint64(x)} }
func U64(x uint64) Value { return Value{kind: KindU64, bits: x} }
func I8(x int8) Value    { return Value{kind: KindI8, bits: uint64(int64(x))} }
func I16(x int16) Value  { return Value{kind: KindI16, bits: uint64(int64(x))} }
func I32(x int32) Value  { return Value{kind: KindI32, bits: uint64(int64(x))} }
func I64(x int64) Value  { return Value{kind: KindI64, bits: uint64(x)} }

// F32 wraps a float32.
func F32(x float32) Value { return Value{kind: KindF32, bits: uint64(math.Float32bits(x))} }

// F64 wraps a float64.
func F64(x float64) Value { return Value{kind: KindF64, bits: math.Float64bits(x)} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Duration wraps a time.Duration.
func Duration(d time.Duration) Value { return Value{kind: KindDuration, bits: uint64(d)} }

// Enum wraps an enum ordinal.
func Enum(ordinal uint32) Value { return Value{kind: KindEnum, bits: uint64(ordinal)} }

// Struct wraps ordered field values.
func Struct(fields ...Value) Value { return Value{kind: KindStruct, fields: fields} }

// Handle wraps an opaque native handle.
func Handle(h uint64) Value { return Value{kind: KindHandle, bits: h} }

// CollectionOf wraps a sized, indexable sequence. A nil collection is null.
func CollectionOf(c Collection) Value {
	if c == nil {
		return Null()
	}
	return Value{kind: KindCollection, ref: c}
}

// IteratorOf wraps a native-produced cursor. A nil iterator is null.
func IteratorOf(it *Iterator) Value {
	if it == nil {
		return Null()
	}
	return Value{kind: KindIterator, ref: it}
}

// InterfaceOf wraps a capability interface implementation. A nil binding is null.
func InterfaceOf(b Binding) Value {
	if b == nil {
		return Null()
	}
	return Value{kind: KindInterface, ref: b}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.bits != 0 }

// Uint returns the payload of an unsigned integer, enum or handle.
func (v Value) Uint() uint64 { return v.bits }

// Int returns the payload of a signed integer.
func (v Value) Int() int64 { return int64(v.bits) }

// Float returns the payload of f32 and f64 values.
func (v Value) Float() float64 {
	if v.kind == KindF32 {
		return float64(math.Float32frombits(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Duration returns the duration payload.
func (v Value) Duration() time.Duration { return time.Duration(v.bits) }

// Ordinal returns the enum ordinal.
func (v Value) Ordinal() uint32 { return uint32(v.bits) }

// Fields returns the struct fields.
func (v Value) Fields() []Value { return v.fields }

// Field returns the i-th struct field, or null when out of range.
func (v Value) Field(i int) Value {
	if i < 0 || i >= len(v.fields) {
		return Null()
	}
	return v.fields[i]
}

// Collection returns the collection payload.
func (v Value) Collection() Collection {
	c, _ := v.ref.(Collection)
	return c
}

// Iterator returns the iterator payload.
func (v Value) Iterator() *Iterator {
	it, _ := v.ref.(*Iterator)
	return it
}

// Binding returns the interface payload.
func (v Value) Binding() Binding {
	b, _ := v.ref.(Binding)
	return b
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KindU8, KindU16, KindU32, KindU64, KindHandle:
		return fmt.Sprintf("%s(%d)", v.kind, v.bits)
	case KindI8, KindI16, KindI32, KindI64:
		return fmt.Sprintf("%s(%d)", v.kind, v.Int())
	case KindF32, KindF64:
		return fmt.Sprintf("%s(%g)", v.kind, v.Float())
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindDuration:
		return v.Duration().String()
	case KindEnum:
		return fmt.Sprintf("enum(%d)", v.bits)
	case KindStruct:
		return fmt.Sprintf("struct%v", v.fields)
	}
	return v.kind.String()
}

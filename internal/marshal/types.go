package marshal

import (
	"fmt"
	"sync"
)

// Layout is the size and alignment of a type in native memory.
type Layout struct {
	Size  uint32
	Align uint32
}

// Type describes a marshalled type.
type Type interface {
	Kind() Kind
	Layout() Layout
	String() string
}

type scalarType struct {
	kind   Kind
	layout Layout
}

func (t *scalarType) Kind() Kind     { return t.kind }
func (t *scalarType) Layout() Layout { return t.layout }
func (t *scalarType) String() string { return t.kind.String() }

// Scalar and reference types shared by every signature.
var (
	BoolType   Type = &scalarType{KindBool, Layout{1, 1}}
	U8Type     Type = &scalarType{KindU8, Layout{1, 1}}
	U16Type    Type = &scalarType{KindU16, Layout{2, 2}}
	U32Type    Type = &scalarType{KindU32, Layout{4, 4}}
	U64Type    Type = &scalarType{KindU64, Layout{8, 8}}
	I8Type     Type = &scalarType{KindI8, Layout{1, 1}}
	I16Type    Type = &scalarType{KindI16, Layout{2, 2}}
	I32Type    Type = &scalarType{KindI32, Layout{4, 4}}
	I64Type    Type = &scalarType{KindI64, Layout{8, 8}}
	F32Type    Type = &scalarType{KindF32, Layout{4, 4}}
	F64Type    Type = &scalarType{KindF64, Layout{8, 8}}
	StringType Type = &scalarType{KindString, Layout{16, 8}}
	HandleType Type = &scalarType{KindHandle, Layout{8, 8}}
)

// DurationEncoding selects the native representation of a duration.
type DurationEncoding uint8

const (
	// Millis is a u64 count of milliseconds.
	Millis DurationEncoding = iota
	// Seconds is a u64 count of whole seconds.
	Seconds
	// SecondsFloat is an f32 count of seconds.
	SecondsFloat
)

// DurationType is a duration with a fixed native encoding.
type DurationType struct {
	Encoding DurationEncoding
}

// Duration types.
var (
	DurationMillis       = &DurationType{Encoding: Millis}
	DurationSeconds      = &DurationType{Encoding: Seconds}
	DurationSecondsFloat = &DurationType{Encoding: SecondsFloat}
)

func (t *DurationType) Kind() Kind { return KindDuration }

func (t *DurationType) Layout() Layout {
	if t.Encoding == SecondsFloat {
		return Layout{4, 4}
	}
	return Layout{8, 8}
}

func (t *DurationType) String() string {
	switch t.Encoding {
	case Millis:
		return "duration(ms)"
	case Seconds:
		return "duration(s)"
	default:
		return "duration(f32 s)"
	}
}

// Variant is a declared enum member.
type Variant struct {
	Name    string
	Ordinal uint32
	Doc     string
}

// EnumType is an enum with a closed set of ordinals.
type EnumType struct {
	Name     string
	Variants []Variant
}

// NewEnum declares an enum whose variants take consecutive ordinals from start.
func NewEnum(name string, start uint32, names ...string) *EnumType {
	e := &EnumType{Name: name}
	for i, n := range names {
		e.Variants = append(e.Variants, Variant{Name: n, Ordinal: start + uint32(i)})
	}
	return e
}

// Document sets the docs of the variants in declaration order.
func (t *EnumType) Document(docs ...string) *EnumType {
	for i := range t.Variants {
		if i < len(docs) {
			t.Variants[i].Doc = docs[i]
		}
	}
	return t
}

func (t *EnumType) Kind() Kind     { return KindEnum }
func (t *EnumType) Layout() Layout { return Layout{4, 4} }
func (t *EnumType) String() string { return "enum " + t.Name }

// Lookup returns the variant with the given ordinal.
func (t *EnumType) Lookup(ordinal uint32) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Ordinal == ordinal {
			return v, true
		}
	}
	return Variant{}, false
}

// Ordinal returns the ordinal of the named variant.
func (t *EnumType) Ordinal(name string) (uint32, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v.Ordinal, true
		}
	}
	return 0, false
}

// Field is a named struct member.
type Field struct {
	Name string
	Type Type
}

// StructType is a plain struct laid out with C rules.
type StructType struct {
	Name   string
	Fields []Field

	once    sync.Once
	offsets []uint32
	layout  Layout
}

// NewStruct declares a struct type.
func NewStruct(name string, fields ...Field) *StructType {
	return &StructType{Name: name, Fields: fields}
}

func (t *StructType) Kind() Kind     { return KindStruct }
func (t *StructType) String() string { return "struct " + t.Name }

// Layout returns the C layout of the struct.
func (t *StructType) Layout() Layout {
	t.compute()
	return t.layout
}

// Offset returns the byte offset of field i.
func (t *StructType) Offset(i int) uint32 {
	t.compute()
	return t.offsets[i]
}

func (t *StructType) compute() {
	t.once.Do(func() {
		var off uint32
		maxAlign := uint32(1)
		t.offsets = make([]uint32, len(t.Fields))
		for i, f := range t.Fields {
			l := f.Type.Layout()
			off = alignUp(off, l.Align)
			t.offsets[i] = off
			off += l.Size
			if l.Align > maxAlign {
				maxAlign = l.Align
			}
		}
		t.layout = Layout{Size: alignUp(off, maxAlign), Align: maxAlign}
	})
}

// CollectionType is a sized, indexable sequence exposed to native code.
type CollectionType struct {
	Name string
	Elem Type
}

func (t *CollectionType) Kind() Kind     { return KindCollection }
func (t *CollectionType) Layout() Layout { return Layout{8, 8} }
func (t *CollectionType) String() string { return fmt.Sprintf("collection %s<%s>", t.Name, t.Elem) }

// IteratorType is a native cursor advanced by the Next export.
type IteratorType struct {
	Name string
	Item Type
	Next string
}

func (t *IteratorType) Kind() Kind     { return KindIterator }
func (t *IteratorType) Layout() Layout { return Layout{8, 8} }
func (t *IteratorType) String() string { return fmt.Sprintf("iterator %s<%s>", t.Name, t.Item) }

// InterfaceType is a capability interface passed to native code by handle.
type InterfaceType struct {
	Name string
}

func (t *InterfaceType) Kind() Kind     { return KindInterface }
func (t *InterfaceType) Layout() Layout { return Layout{8, 8} }
func (t *InterfaceType) String() string { return "interface " + t.Name }

// PointerType is a result read through a pointer into native memory. Its
// values have the pointee's kind; a null pointer lifts to Null. Pointers
// are produced by native code only.
type PointerType struct {
	Elem Type
}

// PointerTo returns a pointer to elem.
func PointerTo(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

func (t *PointerType) Kind() Kind     { return t.Elem.Kind() }
func (t *PointerType) Layout() Layout { return Layout{8, 8} }
func (t *PointerType) String() string { return "*" + t.Elem.String() }

func alignUp(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// SlotCount returns the number of call slots a by-value argument occupies.
func SlotCount(t Type) int {
	switch tt := t.(type) {
	case *StructType:
		n := 0
		for _, f := range tt.Fields {
			n += SlotCount(f.Type)
		}
		return n
	case *PointerType:
		return 1
	}
	if t.Kind() == KindString {
		return 2
	}
	return 1
}

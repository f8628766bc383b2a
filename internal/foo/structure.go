package foo

import (
	"context"
	"time"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// InnerStructure is nested inside Structure.
type InnerStructure struct {
	Test            uint16
	FirstEnumValue  StructureEnum
	Int1            int16
	Bool2           bool
	SecondEnumValue StructureEnum
}

// DefaultInnerStructure returns an InnerStructure with its declared defaults.
func DefaultInnerStructure() InnerStructure {
	return InnerStructure{
		Test:            41,
		FirstEnumValue:  StructureEnumVar2,
		Int1:            1,
		Bool2:           false,
		SecondEnumValue: StructureEnumVar2,
	}
}

// EmptyInterface is any Go value carried through a Structure by handle.
// The core never invokes it; echoes hand back the same value.
type EmptyInterface any

// Structure exercises every field kind the core supports.
type Structure struct {
	EnumValue       StructureEnum
	BooleanValue    bool
	BooleanValue2   bool
	EnumValue2      StructureEnum
	Uint8Value      uint8
	Int8Value       int8
	Uint16Value     uint16
	Int16Value      int16
	Uint32Value     uint32
	Int32Value      int32
	Uint64Value     uint64
	Int64Value      int64
	FloatValue      float32
	DoubleValue     float64
	StringValue     string
	StructureValue  InnerStructure
	EmptyInterface  EmptyInterface
	DurationMillis  time.Duration
	DurationSeconds time.Duration
}

// DefaultStructure returns a Structure with its declared defaults. The
// EmptyInterface field has no default and must be set before use.
func DefaultStructure() Structure {
	return Structure{
		EnumValue:       StructureEnumVar2,
		BooleanValue:    true,
		BooleanValue2:   true,
		EnumValue2:      StructureEnumVar2,
		Uint8Value:      1,
		Int8Value:       -1,
		Uint16Value:     2,
		Int16Value:      -2,
		Uint32Value:     3,
		Int32Value:      -3,
		Uint64Value:     4,
		Int64Value:      -4,
		FloatValue:      12.34,
		DoubleValue:     -56.78,
		StringValue:     "Hello",
		StructureValue:  DefaultInnerStructure(),
		DurationMillis:  4200 * time.Millisecond,
		DurationSeconds: 76 * time.Second,
	}
}

func (s InnerStructure) value() marshal.Value {
	return marshal.Struct(
		marshal.U16(s.Test),
		marshal.Enum(uint32(s.FirstEnumValue)),
		marshal.I16(s.Int1),
		marshal.Bool(s.Bool2),
		marshal.Enum(uint32(s.SecondEnumValue)),
	)
}

func innerStructureFrom(v marshal.Value) InnerStructure {
	return InnerStructure{
		Test:            uint16(v.Field(0).Uint()),
		FirstEnumValue:  StructureEnum(v.Field(1).Ordinal()),
		Int1:            int16(v.Field(2).Int()),
		Bool2:           v.Field(3).AsBool(),
		SecondEnumValue: StructureEnum(v.Field(4).Ordinal()),
	}
}

func emptyInterfaceValue(v EmptyInterface) marshal.Value {
	if v == nil {
		return marshal.Null()
	}
	return marshal.InterfaceOf(&callback.Binding{Interface: emptyInterface, Target: v})
}

func (s *Structure) value() marshal.Value {
	if s == nil {
		return marshal.Null()
	}
	return marshal.Struct(
		marshal.Enum(uint32(s.EnumValue)),
		marshal.Bool(s.BooleanValue),
		marshal.Bool(s.BooleanValue2),
		marshal.Enum(uint32(s.EnumValue2)),
		marshal.U8(s.Uint8Value),
		marshal.I8(s.Int8Value),
		marshal.U16(s.Uint16Value),
		marshal.I16(s.Int16Value),
		marshal.U32(s.Uint32Value),
		marshal.I32(s.Int32Value),
		marshal.U64(s.Uint64Value),
		marshal.I64(s.Int64Value),
		marshal.F32(s.FloatValue),
		marshal.F64(s.DoubleValue),
		marshal.Str(s.StringValue),
		s.StructureValue.value(),
		emptyInterfaceValue(s.EmptyInterface),
		marshal.Duration(s.DurationMillis),
		marshal.Duration(s.DurationSeconds),
	)
}

func structureFrom(v marshal.Value) Structure {
	var iface EmptyInterface
	if b, ok := v.Field(16).Binding().(*callback.Binding); ok {
		iface = b.Target
	}
	return Structure{
		EnumValue:       StructureEnum(v.Field(0).Ordinal()),
		BooleanValue:    v.Field(1).AsBool(),
		BooleanValue2:   v.Field(2).AsBool(),
		EnumValue2:      StructureEnum(v.Field(3).Ordinal()),
		Uint8Value:      uint8(v.Field(4).Uint()),
		Int8Value:       int8(v.Field(5).Int()),
		Uint16Value:     uint16(v.Field(6).Uint()),
		Int16Value:      int16(v.Field(7).Int()),
		Uint32Value:     uint32(v.Field(8).Uint()),
		Int32Value:      int32(v.Field(9).Int()),
		Uint64Value:     v.Field(10).Uint(),
		Int64Value:      v.Field(11).Int(),
		FloatValue:      float32(v.Field(12).Float()),
		DoubleValue:     v.Field(13).Float(),
		StringValue:     v.Field(14).Str(),
		StructureValue:  innerStructureFrom(v.Field(15)),
		EmptyInterface:  iface,
		DurationMillis:  v.Field(17).Duration(),
		DurationSeconds: v.Field(18).Duration(),
	}
}

// StructByValueEcho passes s field by field and returns the core's copy.
func (l *Library) StructByValueEcho(ctx context.Context, s *Structure) (Structure, error) {
	r, err := l.call(ctx, sigStructByValueEcho, s.value())
	if err != nil {
		return Structure{}, err
	}
	return structureFrom(r), nil
}

// StructByReferenceEcho passes a pointer to a native copy of s.
func (l *Library) StructByReferenceEcho(ctx context.Context, s *Structure) (Structure, error) {
	r, err := l.call(ctx, sigStructByReferenceEcho, s.value())
	if err != nil {
		return Structure{}, err
	}
	return structureFrom(r), nil
}

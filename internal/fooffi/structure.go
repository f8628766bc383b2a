package fooffi

import (
	"context"
	"fmt"

	"github.com/woxQAQ/oobridge/internal/marshal"
	"github.com/woxQAQ/oobridge/internal/native"
)

// C layouts of the structures the core echoes. Enums are u32, interfaces
// and durations are 64-bit.
var (
	innerStructure = marshal.NewStruct("InnerStructure",
		marshal.Field{Name: "test", Type: marshal.U16Type},
		marshal.Field{Name: "first_enum_value", Type: marshal.U32Type},
		marshal.Field{Name: "int1", Type: marshal.I16Type},
		marshal.Field{Name: "bool2", Type: marshal.BoolType},
		marshal.Field{Name: "second_enum_value", Type: marshal.U32Type},
	)

	structure = marshal.NewStruct("Structure",
		marshal.Field{Name: "enum_value", Type: marshal.U32Type},
		marshal.Field{Name: "boolean_value", Type: marshal.BoolType},
		marshal.Field{Name: "boolean_value2", Type: marshal.BoolType},
		marshal.Field{Name: "enum_value2", Type: marshal.U32Type},
		marshal.Field{Name: "uint8_value", Type: marshal.U8Type},
		marshal.Field{Name: "int8_value", Type: marshal.I8Type},
		marshal.Field{Name: "uint16_value", Type: marshal.U16Type},
		marshal.Field{Name: "int16_value", Type: marshal.I16Type},
		marshal.Field{Name: "uint32_value", Type: marshal.U32Type},
		marshal.Field{Name: "int32_value", Type: marshal.I32Type},
		marshal.Field{Name: "uint64_value", Type: marshal.U64Type},
		marshal.Field{Name: "int64_value", Type: marshal.I64Type},
		marshal.Field{Name: "float_value", Type: marshal.F32Type},
		marshal.Field{Name: "double_value", Type: marshal.F64Type},
		marshal.Field{Name: "string_value", Type: marshal.StringType},
		marshal.Field{Name: "structure_value", Type: innerStructure},
		marshal.Field{Name: "empty_interface", Type: marshal.HandleType},
		marshal.Field{Name: "duration_millis", Type: marshal.U64Type},
		marshal.Field{Name: "duration_seconds", Type: marshal.U64Type},
	)
)

func (l *Library) registerStructures() {
	slots := marshal.SlotCount(structure)

	// foo_struct_by_value_echo(<flattened Structure>, out)
	l.export("foo_struct_by_value_echo", slots+1, func(_ context.Context, p []uint64) ([]uint64, error) {
		if _, err := storeFlat(l.mem, p[slots], structure, p[:slots]); err != nil {
			return nil, err
		}
		return nil, nil
	})

	// foo_struct_by_reference_echo(ptr, out)
	l.export("foo_struct_by_reference_echo", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		size := structure.Layout().Size
		data, err := native.ReadBytes(l.mem, p[0], size)
		if err != nil {
			return nil, err
		}
		return nil, native.WriteBytes(l.mem, p[1], data)
	})
}

// storeFlat writes struct fields received as flattened call slots into
// memory at addr. It returns the number of slots consumed.
func storeFlat(mem native.Memory, addr uint64, t *marshal.StructType, slots []uint64) (int, error) {
	n := 0
	for i, f := range t.Fields {
		off := addr + uint64(t.Offset(i))
		if nested, ok := f.Type.(*marshal.StructType); ok {
			used, err := storeFlat(mem, off, nested, slots[n:])
			if err != nil {
				return 0, err
			}
			n += used
			continue
		}

		if f.Type.Kind() == marshal.KindString {
			if n+2 > len(slots) {
				return 0, fmt.Errorf("%s.%s: missing slots", t.Name, f.Name)
			}
			if err := native.WriteUint64(mem, off, slots[n]); err != nil {
				return 0, err
			}
			if err := native.WriteUint64(mem, off+8, slots[n+1]); err != nil {
				return 0, err
			}
			n += 2
			continue
		}

		if n >= len(slots) {
			return 0, fmt.Errorf("%s.%s: missing slot", t.Name, f.Name)
		}
		if err := native.WriteUint(mem, off, f.Type.Layout().Size, slots[n]); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

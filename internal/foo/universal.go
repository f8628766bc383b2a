package foo

import (
	"context"
	"time"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// OpaqueStruct is a value only the core can build. Use CreateMagicValue.
type OpaqueStruct struct {
	id uint64
}

// CreateMagicValue returns an OpaqueStruct initialized by the core.
func (l *Library) CreateMagicValue(ctx context.Context) (OpaqueStruct, error) {
	r, err := l.call(ctx, sigOpaqueStructMagicInit)
	if err != nil {
		return OpaqueStruct{}, err
	}
	return OpaqueStruct{id: r.Field(0).Uint()}, nil
}

// GetID reads the id of v in the core.
func (l *Library) GetID(ctx context.Context, v OpaqueStruct) (uint64, error) {
	r, err := l.call(ctx, sigOpaqueStructGetID, marshal.Struct(marshal.U64(v.id)))
	return r.Uint(), err
}

// UniversalInnerStruct is nested in UniversalOuterStruct.
type UniversalInnerStruct struct {
	Value int32
}

// DefaultUniversalInnerStruct returns an UniversalInnerStruct with its
// declared defaults.
func DefaultUniversalInnerStruct() UniversalInnerStruct {
	return UniversalInnerStruct{Value: -42}
}

// UniversalOuterStruct travels by value both to the core and to Go
// callbacks, as an argument and as a result.
type UniversalOuterStruct struct {
	Inner UniversalInnerStruct
	Delay time.Duration
}

// DefaultUniversalOuterStruct returns an UniversalOuterStruct with its
// declared defaults.
func DefaultUniversalOuterStruct() UniversalOuterStruct {
	return UniversalOuterStruct{Inner: DefaultUniversalInnerStruct(), Delay: 5 * time.Second}
}

// UniversalOuterStructWithTime returns the default UniversalOuterStruct
// with the given delay.
func UniversalOuterStructWithTime(delay time.Duration) UniversalOuterStruct {
	return UniversalOuterStruct{Inner: DefaultUniversalInnerStruct(), Delay: delay}
}

func UniversalOuterStructSpecialOne() UniversalOuterStruct {
	return UniversalOuterStructWithTime(time.Second)
}

func UniversalOuterStructSpecialTwo() UniversalOuterStruct {
	return UniversalOuterStructWithTime(2 * time.Second)
}

func (s UniversalOuterStruct) value() marshal.Value {
	return marshal.Struct(
		marshal.Struct(marshal.I32(s.Inner.Value)),
		marshal.Duration(s.Delay),
	)
}

func universalOuterStructFrom(v marshal.Value) UniversalOuterStruct {
	return UniversalOuterStruct{
		Inner: UniversalInnerStruct{Value: int32(v.Field(0).Field(0).Int())},
		Delay: v.Field(1).Duration(),
	}
}

// UniversalInterface receives an UniversalOuterStruct and returns another.
type UniversalInterface func(value UniversalOuterStruct) UniversalOuterStruct

// InvokeUniversalInterface passes value through cb inside the core and
// returns what cb produced. If cb fails, the core returns value unchanged.
func (l *Library) InvokeUniversalInterface(ctx context.Context, value UniversalOuterStruct, cb UniversalInterface) (UniversalOuterStruct, error) {
	binding := marshal.Null()
	if cb != nil {
		binding = marshal.InterfaceOf(&callback.Binding{
			Interface: universalInterface,
			Target:    cb,
			Methods: callback.Methods{
				"on_value": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
					return cb(universalOuterStructFrom(args[0])).value(), nil
				},
			},
		})
	}

	r, err := l.call(ctx, sigInvokeUniversalInterface, value.value(), binding)
	if err != nil {
		return UniversalOuterStruct{}, err
	}
	return universalOuterStructFrom(r), nil
}

package foo

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// SpecialValues.
const (
	SpecialValuesOne uint8 = 0x01
	SpecialValuesTwo uint8 = 0x02
)

// PrimitivePointers stores primitives inside the core and hands them back
// by address. The bridge reads each value through the returned pointer.
type PrimitivePointers struct {
	l   *Library
	res *lifecycle.Resource
}

func (l *Library) NewPrimitivePointers(ctx context.Context) (*PrimitivePointers, error) {
	res, err := l.b.Construct(ctx, "PrimitivePointers", sigPrimitivePointersNew, sigPrimitivePointersDestroy)
	if err != nil {
		return nil, err
	}
	return &PrimitivePointers{l: l, res: res}, nil
}

func (p *PrimitivePointers) GetBool(ctx context.Context, v bool) (bool, error) {
	r, err := p.l.b.Method(ctx, p.res, sigGetBoolPointer, marshal.Bool(v))
	return r.AsBool(), err
}

func (p *PrimitivePointers) GetU8(ctx context.Context, v uint8) (uint8, error) {
	r, err := p.l.b.Method(ctx, p.res, sigGetU8Pointer, marshal.U8(v))
	return uint8(r.Uint()), err
}

func (p *PrimitivePointers) GetFloat(ctx context.Context, v float32) (float32, error) {
	r, err := p.l.b.Method(ctx, p.res, sigGetFloatPointer, marshal.F32(v))
	return float32(r.Float()), err
}

func (p *PrimitivePointers) GetDouble(ctx context.Context, v float64) (float64, error) {
	r, err := p.l.b.Method(ctx, p.res, sigGetDoublePointer, marshal.F64(v))
	return r.Float(), err
}

func (p *PrimitivePointers) Close(ctx context.Context) error {
	return p.res.Close(ctx)
}

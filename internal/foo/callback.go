package foo

import (
	"context"
	"time"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// CallbackInterface receives values pushed by a CallbackSource. Its results
// are returned to the caller of SetValue and SetDuration.
type CallbackInterface interface {
	OnValue(value uint32) uint32
	OnDuration(value time.Duration) time.Duration
}

func callbackBinding(cb CallbackInterface, oneShot bool) marshal.Value {
	if cb == nil {
		return marshal.Null()
	}
	return marshal.InterfaceOf(&callback.Binding{
		Interface: callbackInterface,
		Target:    cb,
		OneShot:   oneShot,
		Methods: callback.Methods{
			"on_value": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
				return marshal.U32(cb.OnValue(uint32(args[0].Uint()))), nil
			},
			"on_duration": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
				return marshal.Duration(cb.OnDuration(args[0].Duration())), nil
			},
		},
	})
}

// CallbackSource holds one persistent CallbackInterface and any number of
// one-shot callbacks.
type CallbackSource struct {
	l   *Library
	res *lifecycle.Resource
}

func (l *Library) NewCallbackSource(ctx context.Context) (*CallbackSource, error) {
	res, err := l.b.Construct(ctx, "CallbackSource", sigCallbackSourceNew, sigCallbackSourceDestroy)
	if err != nil {
		return nil, err
	}
	return &CallbackSource{l: l, res: res}, nil
}

// SetInterface replaces the persistent callback. The core destroys the
// previous one.
func (s *CallbackSource) SetInterface(ctx context.Context, cb CallbackInterface) error {
	_, err := s.l.b.Method(ctx, s.res, sigSetInterface, callbackBinding(cb, false))
	return err
}

// AddOneShot registers cb for the next SetValue only.
func (s *CallbackSource) AddOneShot(ctx context.Context, cb CallbackInterface) error {
	_, err := s.l.b.Method(ctx, s.res, sigAddOneShot, callbackBinding(cb, true))
	return err
}

// SetValue notifies the one-shot callbacks, then returns the persistent
// callback's result, or 0 without one.
func (s *CallbackSource) SetValue(ctx context.Context, value uint32) (uint32, error) {
	r, err := s.l.b.Method(ctx, s.res, sigSetValue, marshal.U32(value))
	return uint32(r.Uint()), err
}

// SetDuration returns the persistent callback's result, or 0 without one.
func (s *CallbackSource) SetDuration(ctx context.Context, value time.Duration) (time.Duration, error) {
	r, err := s.l.b.Method(ctx, s.res, sigSetDuration, marshal.Duration(value))
	return r.Duration(), err
}

// Close destroys the source and every callback it still holds.
func (s *CallbackSource) Close(ctx context.Context) error {
	return s.res.Close(ctx)
}

// Defaults of DefaultedInterface.
const (
	DefaultU32Value      = 42
	DefaultDurationValue = 42 * time.Millisecond
)

// DefaultedInterface overrides the operations whose field is set; the rest
// use their declared defaults.
type DefaultedInterface struct {
	GetU32Value   func() uint32
	GetDurationMs func() time.Duration
}

func (d *DefaultedInterface) binding() marshal.Value {
	if d == nil {
		return marshal.Null()
	}
	methods := callback.Methods{}
	if d.GetU32Value != nil {
		methods["get_u32_value"] = func(context.Context, []marshal.Value) (marshal.Value, error) {
			return marshal.U32(d.GetU32Value()), nil
		}
	}
	if d.GetDurationMs != nil {
		methods["get_duration_ms"] = func(context.Context, []marshal.Value) (marshal.Value, error) {
			return marshal.Duration(d.GetDurationMs()), nil
		}
	}
	return marshal.InterfaceOf(&callback.Binding{Interface: defaultedInterface, Target: d, Methods: methods})
}

// GetU32Value asks cb for a u32, which the core reads back.
func (l *Library) GetU32Value(ctx context.Context, cb *DefaultedInterface) (uint32, error) {
	r, err := l.call(ctx, sigGetU32Value, cb.binding())
	return uint32(r.Uint()), err
}

// GetDurationValue asks cb for a duration, which the core reads back.
func (l *Library) GetDurationValue(ctx context.Context, cb *DefaultedInterface) (time.Duration, error) {
	r, err := l.call(ctx, sigGetDurationValue, cb.binding())
	return r.Duration(), err
}

package foo

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/dispatch"
	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// ThreadClass owns a worker thread inside the core. Updates, additions and
// operations run there in submission order, and every value change is
// reported to the listener from that thread.
type ThreadClass struct {
	l   *Library
	res *lifecycle.Resource
}

// NewThreadClass starts a worker holding value. listener is called with
// every new value.
func (l *Library) NewThreadClass(ctx context.Context, value uint32, listener func(value uint32)) (*ThreadClass, error) {
	cb := marshal.Null()
	if listener != nil {
		cb = marshal.InterfaceOf(&callback.Binding{
			Interface: valueChangeListener,
			Target:    listener,
			Methods: callback.Methods{
				"on_value_change": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
					listener(uint32(args[0].Uint()))
					return marshal.Null(), nil
				},
			},
		})
	}

	res, err := l.b.Construct(ctx, "ThreadClass", sigThreadClassNew, sigThreadClassDestroy, marshal.U32(value), cb)
	if err != nil {
		return nil, err
	}
	return &ThreadClass{l: l, res: res}, nil
}

// Update replaces the value.
func (c *ThreadClass) Update(ctx context.Context, value uint32) error {
	_, err := c.l.b.Method(ctx, c.res, sigThreadClassUpdate, marshal.U32(value))
	return err
}

// Add adds value on the worker and returns a future for the new value.
// The future fails with an *ffierr.OperationError matching ErrMathIsBroke
// when an error was queued, and with *ffierr.DroppedError when the core
// discards the request.
func (c *ThreadClass) Add(ctx context.Context, value uint32) *dispatch.Future[uint32] {
	p, f := dispatch.NewPromise[uint32]("ThreadClass.Add")

	handler := &callback.Binding{
		Interface: addHandler,
		Target:    p,
		OneShot:   true,
		OnRelease: func() { p.Drop() },
		Methods: callback.Methods{
			"on_complete": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
				p.Resolve(uint32(args[0].Uint()))
				return marshal.Null(), nil
			},
			"on_failure": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
				code := args[0].Ordinal()
				if MathIsBroken(code) == MathIsBrokenDropped {
					p.Drop()
					return marshal.Null(), nil
				}
				v, _ := mathIsBrokenType.Lookup(code)
				p.Reject(&ffierr.OperationError{Domain: mathIsBrokenType.Name, Code: v.Name, Ordinal: code})
				return marshal.Null(), nil
			},
		},
	}

	_, err := c.l.b.Method(ctx, c.res, sigThreadClassAdd, marshal.U32(value), marshal.InterfaceOf(handler))
	if err != nil {
		return dispatch.Failed[uint32](err)
	}
	return f
}

// Execute applies op to the value on the worker.
func (c *ThreadClass) Execute(ctx context.Context, op func(value uint32) uint32) error {
	cb := marshal.Null()
	if op != nil {
		cb = marshal.InterfaceOf(&callback.Binding{
			Interface: operationInterface,
			Target:    op,
			Methods: callback.Methods{
				"execute": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
					return marshal.U32(op(uint32(args[0].Uint()))), nil
				},
			},
		})
	}
	_, err := c.l.b.Method(ctx, c.res, sigThreadClassExecute, cb)
	return err
}

// QueueError makes a later Add fail with code. Queued errors are used last
// in, first out.
func (c *ThreadClass) QueueError(ctx context.Context, code MathIsBroken) error {
	_, err := c.l.b.Method(ctx, c.res, sigThreadClassQueueError, marshal.Enum(uint32(code)))
	return err
}

// DropNextAdd makes the core discard the next Add without answering it.
func (c *ThreadClass) DropNextAdd(ctx context.Context) error {
	_, err := c.l.b.Method(ctx, c.res, sigThreadClassDropNextAdd)
	return err
}

// Close runs everything already queued, stops the worker and releases the
// listener. Safe to call multiple times.
func (c *ThreadClass) Close(ctx context.Context) error {
	return c.res.Close(ctx)
}

// Package bridge calls native cores through declared signatures and routes
// the core's host imports back to Go.
//
// A call validates every argument, lowers it into scratch memory, invokes
// the export, checks the status and lifts the result. Scratch memory is
// freed once the result has been lifted.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
	"github.com/woxQAQ/oobridge/internal/native"
)

var errNullHandle = errors.New("constructor returned a null handle")

// Options configures a Bridge.
type Options struct {
	Lifecycle lifecycle.Config
}

// Bridge is the Go side of one loaded native core.
type Bridge struct {
	lib       native.Library
	alloc     *native.Allocator
	guard     *native.Guard
	callbacks *callback.Table
	tracker   *lifecycle.Tracker

	functions sync.Map // symbol -> native.Function
	exposed   sync.Map // handle -> *exposure
	nextColl  atomic.Uint64

	closers   []func(context.Context) error
	closeOnce sync.Once
	closed    atomic.Bool

	logger     *zap.Logger
	coreLogger *zap.Logger
}

// New binds lib to a new bridge.
func New(ctx context.Context, lib native.Library, opts Options, logger *zap.Logger) (*Bridge, error) {
	alloc, err := native.NewAllocator(lib)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		lib:        lib,
		alloc:      alloc,
		guard:      native.NewGuard(lib),
		callbacks:  callback.NewTable(logger),
		tracker:    lifecycle.NewTracker(opts.Lifecycle, logger),
		logger:     logger.With(zap.String("component", "bridge"), zap.String("library", lib.Name())),
		coreLogger: logger.Named("core").With(zap.String("library", lib.Name())),
	}

	if err := lib.Bind(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to bind host: %w", err)
	}

	b.logger.Info("Bridge ready", zap.Bool("serialized", lib.Serialized()))
	return b, nil
}

// Library returns the bound core.
func (b *Bridge) Library() native.Library {
	return b.lib
}

// Callbacks returns the table pinning Go callbacks held by the core.
func (b *Bridge) Callbacks() *callback.Table {
	return b.callbacks
}

// Tracker returns the tracker of resources constructed through the bridge.
func (b *Bridge) Tracker() *lifecycle.Tracker {
	return b.tracker
}

// Call invokes sig with args.
//
// Validation failures are returned before the core is reached. A non-zero
// status of a fallible function is returned as *ffierr.OperationError.
func (b *Bridge) Call(ctx context.Context, sig *Signature, args ...marshal.Value) (marshal.Value, error) {
	if err := b.check(sig, args); err != nil {
		return marshal.Null(), err
	}
	return b.invoke(ctx, sig, args)
}

// check rejects calls that must not reach the core.
func (b *Bridge) check(sig *Signature, args []marshal.Value) error {
	if b.closed.Load() {
		return &ffierr.LifecycleError{Type: b.lib.Name(), Op: sig.Symbol}
	}
	if len(args) != len(sig.Params) {
		return fmt.Errorf("%s: expected %d arguments, got %d", sig.Symbol, len(sig.Params), len(args))
	}
	for i, p := range sig.Params {
		if err := marshal.Validate(p.Name, p.Type, args[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) invoke(ctx context.Context, sig *Signature, args []marshal.Value) (marshal.Value, error) {
	fn, err := b.function(sig.Symbol)
	if err != nil {
		return marshal.Null(), err
	}

	ctx, leave := b.guard.Enter(ctx)
	defer leave()

	scratch := b.alloc.Scratch()
	defer func() {
		if err := scratch.Release(ctx); err != nil {
			b.logger.Warn("Failed to free call scratch",
				zap.String("symbol", sig.Symbol),
				zap.Error(err),
			)
		}
	}()

	enc := marshal.NewEncoder(scratch, b.callbacks, b)
	var slots []uint64
	for i, p := range sig.Params {
		s, err := enc.Lower(ctx, p.Type, args[i], p.ByRef)
		if err != nil {
			enc.Rollback(ctx)
			return marshal.Null(), err
		}
		slots = append(slots, s...)
	}

	var out uint64
	if sig.usesOut() {
		out, err = enc.AllocOut(ctx, sig.Result)
		if err != nil {
			enc.Rollback(ctx)
			return marshal.Null(), err
		}
		slots = append(slots, out)
	}

	res, err := fn.Call(ctx, slots...)
	if err != nil {
		enc.Rollback(ctx)
		return marshal.Null(), &native.CallError{Symbol: sig.Symbol, Err: err}
	}
	enc.Finish(ctx)

	dec := marshal.NewDecoder(b.lib.Memory(), b.function, b.callbacks)

	if sig.Errors != nil {
		if len(res) == 0 {
			return marshal.Null(), &native.CallError{Symbol: sig.Symbol, Err: errors.New("missing status")}
		}
		if status := api.DecodeU32(res[0]); status != 0 {
			opErr, err := operationError(sig, status)
			if err != nil {
				return marshal.Null(), err
			}
			if sig.Partial && sig.Result != nil {
				if v, err := dec.Load(ctx, out, sig.Result); err == nil {
					opErr.Payload = v
				}
			}
			return marshal.Null(), opErr
		}
	}

	if sig.Result == nil {
		return marshal.Null(), nil
	}

	if !sig.usesOut() {
		v, _, err := dec.Lift(ctx, sig.Result, res)
		return v, err
	}
	v, err := dec.Load(ctx, out, sig.Result)
	if sig.Owned && sig.Result.Kind() == marshal.KindString {
		b.freeOwned(ctx, sig.Symbol, out)
	}
	return v, err
}

// freeOwned releases a string the core handed over at out.
func (b *Bridge) freeOwned(ctx context.Context, symbol string, out uint64) {
	mem := b.lib.Memory()
	ptr, err := native.ReadUint64(mem, out)
	if err == nil {
		var n uint64
		if n, err = native.ReadUint64(mem, out+8); err == nil {
			err = b.alloc.Free(ctx, ptr, uint32(n), 1)
		}
	}
	if err != nil {
		b.logger.Warn("Failed to free returned string",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}
}

// Method calls sig on the object owned by res. The handle is passed as the
// first argument.
func (b *Bridge) Method(ctx context.Context, res *lifecycle.Resource, sig *Signature, args ...marshal.Value) (marshal.Value, error) {
	var out marshal.Value
	err := res.Use(sig.Symbol, func(handle uint64) error {
		var err error
		out, err = b.Call(ctx, sig, append([]marshal.Value{marshal.Handle(handle)}, args...)...)
		return err
	})
	return out, err
}

// Construct calls a constructor and tracks the handle it returns. Errors
// found before the core is reached are returned as is. Every failure after
// that is wrapped in *ffierr.ConstructionError and produces no resource.
func (b *Bridge) Construct(ctx context.Context, typ string, ctor, dtor *Signature, args ...marshal.Value) (*lifecycle.Resource, error) {
	if err := b.check(ctor, args); err != nil {
		return nil, err
	}
	v, err := b.invoke(ctx, ctor, args)
	if err != nil {
		return nil, &ffierr.ConstructionError{Type: typ, Err: err}
	}

	handle := v.Uint()
	if handle == 0 {
		return nil, &ffierr.ConstructionError{Type: typ, Err: errNullHandle}
	}

	return b.tracker.Track(typ, handle, func(ctx context.Context, handle uint64) error {
		// Closing the core released every object it owned.
		if b.closed.Load() {
			return nil
		}
		_, err := b.Call(ctx, dtor, marshal.Handle(handle))
		return err
	}), nil
}

// Close releases callbacks the core never destroyed, closes the core and
// runs the closers registered by Open. Safe to call multiple times.
func (b *Bridge) Close(ctx context.Context) error {
	var err error
	b.closeOnce.Do(func() {
		b.logger.Info("Closing bridge", zap.Any("callbacks", b.callbacks.Stats()))

		err = b.lib.Close(ctx)
		b.closed.Store(true)
		b.callbacks.Clear()

		for _, c := range b.closers {
			err = multierr.Append(err, c(ctx))
		}
	})
	return err
}

func (b *Bridge) function(symbol string) (native.Function, error) {
	if fn, ok := b.functions.Load(symbol); ok {
		return fn.(native.Function), nil
	}
	fn, err := b.lib.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	actual, _ := b.functions.LoadOrStore(symbol, fn)
	return actual.(native.Function), nil
}

// operationError maps a failed status to its declared variant. A status
// outside the declared set breaks the core's contract.
func operationError(sig *Signature, status uint32) (*ffierr.OperationError, error) {
	v, ok := sig.Errors.Lookup(status)
	if !ok {
		return nil, &native.CallError{
			Symbol: sig.Symbol,
			Err:    fmt.Errorf("undeclared %s status %d", sig.Errors.Name, status),
		}
	}
	return &ffierr.OperationError{Domain: sig.Errors.Name, Code: v.Name, Ordinal: status, Message: v.Doc}, nil
}

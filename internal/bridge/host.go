package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/marshal"
	"github.com/woxQAQ/oobridge/internal/native"
)

// exposure is a collection lent to the core for one call. Elements the core
// fetches are stored in scratch memory freed when the call ends.
type exposure struct {
	mu      sync.Mutex
	coll    marshal.Collection
	elem    marshal.Type
	scratch *native.Scratch
}

// ExposeCollection implements marshal.Collections.
func (b *Bridge) ExposeCollection(c marshal.Collection, elem marshal.Type) uint64 {
	h := b.nextColl.Add(1)
	b.exposed.Store(h, &exposure{coll: c, elem: elem, scratch: b.alloc.Scratch()})
	return h
}

// RetractCollection implements marshal.Collections.
func (b *Bridge) RetractCollection(ctx context.Context, handle uint64) {
	v, ok := b.exposed.LoadAndDelete(handle)
	if !ok {
		return
	}
	e := v.(*exposure)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.scratch.Release(ctx); err != nil {
		b.logger.Warn("Failed to free collection elements",
			zap.Uint64("handle", handle),
			zap.Error(err),
		)
	}
}

// InvokeCallback implements native.Host. Iterators among the arguments stop
// working when it returns. A returned string is allocated with the core's
// allocator and owned by the core.
func (b *Bridge) InvokeCallback(ctx context.Context, mem native.Memory, handle uint64, op uint32, args, ret uint64) uint32 {
	ref, err := b.callbacks.Acquire(handle)
	if err != nil {
		b.logger.Warn("Callback invoked on unknown handle",
			zap.Uint64("handle", handle),
			zap.Uint32("op", op),
		)
		return native.StatusUnknownHandle
	}
	defer ref.Release()

	iface := ref.Binding().Interface
	if int(op) >= len(iface.Operations) {
		b.logger.Warn("Callback invoked with unknown operation",
			zap.String("interface", iface.Name),
			zap.Uint32("op", op),
		)
		return native.StatusBadOperation
	}
	decl := &iface.Operations[op]

	dec := marshal.NewDecoder(mem, b.function, b.callbacks)
	defer dec.Invalidate()

	var values []marshal.Value
	if argType := iface.Args(int(op)); len(argType.Fields) > 0 {
		v, err := dec.Load(ctx, args, argType)
		if err != nil {
			b.callbackFailed(iface.Name, decl.Name, err)
			return native.StatusCallbackFailed
		}
		values = v.Fields()
	}

	result, err := ref.Call(ctx, int(op), values)
	if err != nil {
		b.callbackFailed(iface.Name, decl.Name, err)
		return native.StatusCallbackFailed
	}

	if decl.OneWay() {
		return native.StatusOK
	}
	if err := marshal.Validate(decl.Name, decl.Result, result); err != nil {
		b.callbackFailed(iface.Name, decl.Name, err)
		return native.StatusCallbackFailed
	}
	if err := marshal.NewEncoder(b.alloc, b.callbacks, nil).Store(ctx, ret, decl.Result, result); err != nil {
		b.callbackFailed(iface.Name, decl.Name, err)
		return native.StatusCallbackFailed
	}
	return native.StatusOK
}

// DestroyCallback implements native.Host.
func (b *Bridge) DestroyCallback(_ context.Context, handle uint64) {
	b.callbacks.Destroy(handle)
}

// CollectionSize implements native.Host. Unknown handles have no elements.
func (b *Bridge) CollectionSize(_ context.Context, handle uint64) uint32 {
	v, ok := b.exposed.Load(handle)
	if !ok {
		return 0
	}
	return uint32(v.(*exposure).coll.Len())
}

// CollectionGet implements native.Host.
func (b *Bridge) CollectionGet(ctx context.Context, _ native.Memory, handle uint64, index uint32, out uint64) uint32 {
	v, ok := b.exposed.Load(handle)
	if !ok {
		return native.StatusUnknownHandle
	}
	e := v.(*exposure)

	e.mu.Lock()
	defer e.mu.Unlock()

	if int(index) >= e.coll.Len() {
		return native.StatusBadOperation
	}
	item := e.coll.At(int(index))
	if err := marshal.Validate("item", e.elem, item); err != nil {
		b.logger.Warn("Invalid collection element",
			zap.Uint64("handle", handle),
			zap.Uint32("index", index),
			zap.Error(err),
		)
		return native.StatusCallbackFailed
	}
	if err := marshal.NewEncoder(e.scratch, b.callbacks, b).Store(ctx, out, e.elem, item); err != nil {
		b.logger.Warn("Failed to store collection element",
			zap.Uint64("handle", handle),
			zap.Error(err),
		)
		return native.StatusCallbackFailed
	}
	return native.StatusOK
}

// Log implements native.Host.
func (b *Bridge) Log(_ context.Context, level uint32, msg string) {
	if ce := b.coreLogger.Check(native.ZapLevel(level), msg); ce != nil {
		ce.Write()
	}
}

func (b *Bridge) callbackFailed(iface, op string, err error) {
	b.logger.Warn("Callback failed",
		zap.String("interface", iface),
		zap.String("operation", op),
		zap.Error(err),
	)
}

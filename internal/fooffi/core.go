// Package fooffi is an in-process reference build of the foo test core.
//
// It speaks the same ABI as the WebAssembly and shared library builds:
// every export takes and returns 64-bit slots, memory lives in the core's
// own arena and callbacks go through the bound native.Host. Handles are
// opaque ids into the core's object table.
package fooffi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/dispatch"
	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/native"
)

// Name is the library name reported by the reference core.
const Name = "foo-reference"

const initialMemory = 64 * 1024

type export struct {
	arity int
	fn    func(ctx context.Context, p []uint64) ([]uint64, error)
}

// Library is the reference core. It allows concurrent calls.
type Library struct {
	mem     *arena
	exports map[string]export
	workers dispatch.WorkerConfig
	logger  *zap.Logger

	hostMu sync.RWMutex
	host   native.Host

	objects    sync.Map // handle -> object
	nextHandle atomic.Uint64

	constructed atomic.Int32

	closeOnce sync.Once
	closed    atomic.Bool
}

type block struct {
	ptr  uint64
	size uint32
}

// New creates a reference core. workers configures the worker started for
// every ThreadClass. The logger only receives worker diagnostics; messages
// meant for the host go through native.Host.Log.
func New(workers dispatch.WorkerConfig, logger *zap.Logger) *Library {
	l := &Library{
		mem:     newArena(initialMemory),
		exports: make(map[string]export),
		workers: workers,
		logger:  logger.With(zap.String("component", "foo-reference")),
	}
	l.registerAllocator()
	l.registerEcho()
	l.registerStringClass()
	l.registerOpaqueStruct()
	l.registerUniversalStruct()
	l.registerPrimitivePointers()
	l.registerStructures()
	l.registerCollections()
	l.registerIterators()
	l.registerCallbackSource()
	l.registerDefaults()
	l.registerPassword()
	l.registerTestClass()
	l.registerThreadClass()
	return l
}

// Name implements native.Library.
func (l *Library) Name() string {
	return Name
}

// Lookup implements native.Library.
func (l *Library) Lookup(symbol string) (native.Function, error) {
	e, ok := l.exports[symbol]
	if !ok {
		return nil, &native.SymbolNotFoundError{Library: Name, Symbol: symbol}
	}
	return native.FunctionFunc(func(ctx context.Context, params ...uint64) ([]uint64, error) {
		if l.closed.Load() {
			return nil, &ffierr.LifecycleError{Type: Name, Op: symbol}
		}
		if len(params) != e.arity {
			return nil, fmt.Errorf("%s: expected %d params, got %d", symbol, e.arity, len(params))
		}
		return e.fn(ctx, params)
	}), nil
}

// Memory implements native.Library.
func (l *Library) Memory() native.Memory {
	return l.mem
}

// Bind implements native.Library.
func (l *Library) Bind(_ context.Context, host native.Host) error {
	l.hostMu.Lock()
	defer l.hostMu.Unlock()
	l.host = host
	return nil
}

// Serialized implements native.Library.
func (l *Library) Serialized() bool {
	return false
}

// Close stops every live thread class. Safe to call multiple times.
func (l *Library) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		l.objects.Range(func(key, value any) bool {
			if tc, ok := value.(*threadClass); ok {
				l.objects.Delete(key)
				tc.shutdown(ctx)
			}
			return true
		})
		l.closed.Store(true)
	})
	return nil
}

// LiveBlocks returns the number of allocated memory blocks.
func (l *Library) LiveBlocks() int {
	return l.mem.Live()
}

// ConstructionCounter returns the number of live test class instances.
func (l *Library) ConstructionCounter() int32 {
	return l.constructed.Load()
}

func (l *Library) export(name string, arity int, fn func(ctx context.Context, p []uint64) ([]uint64, error)) {
	l.exports[name] = export{arity: arity, fn: fn}
}

func (l *Library) registerAllocator() {
	l.export(native.SymbolAlloc, 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		return []uint64{l.mem.alloc(uint32(p[0]), uint32(p[1]))}, nil
	})
	l.export(native.SymbolFree, 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		if p[0] != 0 && !l.mem.release(p[0]) {
			return nil, fmt.Errorf("free of unallocated pointer %#x", p[0])
		}
		return nil, nil
	})
}

func (l *Library) bound() native.Host {
	l.hostMu.RLock()
	defer l.hostMu.RUnlock()
	return l.host
}

func (l *Library) store(obj any) uint64 {
	h := l.nextHandle.Add(1)
	l.objects.Store(h, obj)
	return h
}

func object[T any](l *Library, h uint64) (T, error) {
	var zero T
	v, ok := l.objects.Load(h)
	if !ok {
		return zero, fmt.Errorf("unknown handle %d", h)
	}
	obj, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("handle %d has type %T", h, v)
	}
	return obj, nil
}

func take[T any](l *Library, h uint64) (T, error) {
	obj, err := object[T](l, h)
	if err == nil {
		l.objects.Delete(h)
	}
	return obj, err
}

func (l *Library) readString(ptr, length uint64) (string, error) {
	return native.ReadString(l.mem, ptr, uint32(length))
}

// writeStr stores a {ptr, len} string header at out.
func (l *Library) writeStr(out, ptr, length uint64) error {
	if err := native.WriteUint64(l.mem, out, ptr); err != nil {
		return err
	}
	return native.WriteUint64(l.mem, out+8, length)
}

// ownString copies s into a core-owned block.
func (l *Library) ownString(s string) block {
	b := block{ptr: l.mem.alloc(uint32(len(s)), 1), size: uint32(len(s))}
	if b.ptr != 0 {
		l.mem.Write(b.ptr, []byte(s))
	}
	return b
}

func (l *Library) log(ctx context.Context, level uint32, msg string) {
	if host := l.bound(); host != nil {
		host.Log(ctx, level, msg)
	}
}

// arg is one field of a callback argument struct.
type arg struct {
	size  uint32
	value uint64
}

func u32Arg(v uint32) arg        { return arg{4, uint64(v)} }
func i32Arg(v int32) arg         { return arg{4, uint64(uint32(v))} }
func u64Arg(v uint64) arg        { return arg{8, v} }
func strArg(ptr, n uint64) []arg { return []arg{{8, ptr}, {8, n}} }

// invoke calls operation op of callback cb. The result, if retSize is
// non-zero, is read back as an unsigned integer.
func (l *Library) invoke(ctx context.Context, cb uint64, op uint32, retSize uint32, args ...arg) (uint64, uint32) {
	var v uint64
	status := l.invokeInto(ctx, cb, op, retSize, func(ret uint64) error {
		if retSize == 0 {
			return nil
		}
		var err error
		v, err = native.ReadUint(l.mem, ret, retSize)
		return err
	}, args...)
	return v, status
}

// invokeInto calls operation op of callback cb and hands the retSize bytes
// it returned to read.
func (l *Library) invokeInto(ctx context.Context, cb uint64, op uint32, retSize uint32, read func(ret uint64) error, args ...arg) uint32 {
	host := l.bound()
	if host == nil {
		return native.StatusUnknownHandle
	}

	var size uint32
	offsets := make([]uint32, len(args))
	for i, a := range args {
		size = (size + a.size - 1) &^ (a.size - 1)
		offsets[i] = size
		size += a.size
	}

	argPtr := l.mem.alloc((size+7)&^7, 8)
	defer l.mem.release(argPtr)
	for i, a := range args {
		if err := native.WriteUint(l.mem, argPtr+uint64(offsets[i]), a.size, a.value); err != nil {
			return native.StatusBadOperation
		}
	}

	retPtr := l.mem.alloc(retSize, 8)
	defer l.mem.release(retPtr)

	status := host.InvokeCallback(ctx, l.mem, cb, op, argPtr, retPtr)
	if status != native.StatusOK {
		return status
	}
	if err := read(retPtr); err != nil {
		return native.StatusBadOperation
	}
	return native.StatusOK
}

// destroy sends the destroy notification for a callback handle.
func (l *Library) destroy(ctx context.Context, cb uint64) {
	if host := l.bound(); host != nil && cb != 0 {
		host.DestroyCallback(ctx, cb)
	}
}

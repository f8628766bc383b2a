// Package native defines the call boundary between Go and a native core.
//
// A core is anything that exports functions taking and returning 64-bit
// slots and owns a byte-addressable memory: a WebAssembly module, a shared
// library opened with dlopen, or an in-process reference implementation.
//
// Slot encoding:
//   - integers up to 32 bits are zero-extended from their 32-bit two's
//     complement form, 64-bit integers fill the slot
//   - floats are raw IEEE-754 bits
//   - booleans are 0 or 1
//   - pointers and handles are zero-extended addresses
//
// Results narrower than 64 bits are read from the low bits of their slot.
//
// Strings are {ptr u64, len u64} pairs of UTF-8 bytes. A string returned by
// the core is borrowed unless the function hands it over: Go copies a
// borrowed string as soon as the call returns, and frees a handed over one
// with bridge_free after copying it. Borrowed strings must stay valid until
// the core is next called on the same object.
//
// Allocation: the core exports bridge_alloc(size, align) -> ptr and
// bridge_free(ptr, size, align). Scratch memory allocated for a call is freed
// by the caller once the call has returned.
//
// Host imports (module "host" for WebAssembly cores, bridge_bind for shared
// libraries):
//
//	callback_invoke(handle i64, op i32, args i64, ret i64) -> i32
//	callback_destroy(handle i64)
//	collection_size(handle i64) -> i32
//	collection_get(handle i64, index i32, out i64) -> i32
//	log_message(level i32, ptr i64, len i32)
package native

import (
	"context"
	"fmt"
)

// Exported allocator symbols.
const (
	SymbolAlloc = "bridge_alloc"
	SymbolFree  = "bridge_free"
	SymbolBind  = "bridge_bind"
)

// Host call status codes.
const (
	StatusOK uint32 = iota
	StatusUnknownHandle
	StatusCallbackFailed
	StatusBadOperation
)

// Function is an exported native function.
type Function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// FunctionFunc adapts a Go func to Function.
type FunctionFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

// Call implements Function.
func (f FunctionFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

// Memory is the native core's addressable memory.
//
// Read may return a view that is only valid until the next native call;
// callers copy what they keep.
type Memory interface {
	Read(addr uint64, length uint32) ([]byte, bool)
	Write(addr uint64, data []byte) bool
}

// Host is implemented by the Go side and invoked by the native core.
type Host interface {
	InvokeCallback(ctx context.Context, mem Memory, handle uint64, op uint32, args, ret uint64) uint32
	DestroyCallback(ctx context.Context, handle uint64)
	CollectionSize(ctx context.Context, handle uint64) uint32
	CollectionGet(ctx context.Context, mem Memory, handle uint64, index uint32, out uint64) uint32
	Log(ctx context.Context, level uint32, msg string)
}

// Library is a loaded native core.
type Library interface {
	Name() string
	Lookup(symbol string) (Function, error)
	Memory() Memory

	// Bind routes the core's host imports to host. It is called once,
	// before the first Lookup result is invoked.
	Bind(ctx context.Context, host Host) error

	// Serialized reports whether calls into the core must not overlap.
	Serialized() bool

	Close(ctx context.Context) error
}

// SymbolNotFoundError occurs when a core does not export a symbol.
type SymbolNotFoundError struct {
	Library string
	Symbol  string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol '%s' not found in library '%s'", e.Symbol, e.Library)
}

// CallError occurs when a native function traps or cannot be invoked.
type CallError struct {
	Symbol string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("native call '%s' failed: %v", e.Symbol, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// UnsupportedPlatformError occurs when a backend cannot run on this platform.
type UnsupportedPlatformError struct {
	Backend  string
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("%s backend is not supported on %s", e.Backend, e.Platform)
}

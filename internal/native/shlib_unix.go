//go:build darwin || freebsd || linux || netbsd

package native

import (
	"context"
	"errors"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// SharedLibrary is a core opened with dlopen.
//
// Calls go through purego.SyscallN, so every slot travels in an integer
// register and a function yields at most one result slot. The library
// must be safe for concurrent calls.
type SharedLibrary struct {
	path   string
	handle uintptr

	symbols sync.Map // map[string]*sharedFunction

	bindOnce  sync.Once
	closeOnce sync.Once
}

// OpenSharedLibrary opens the library at path.
func OpenSharedLibrary(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &SharedLibrary{path: path, handle: h}, nil
}

// Name returns the path the library was opened from.
func (l *SharedLibrary) Name() string {
	return l.path
}

// Lookup resolves an exported symbol.
func (l *SharedLibrary) Lookup(symbol string) (Function, error) {
	if fn, ok := l.symbols.Load(symbol); ok {
		return fn.(*sharedFunction), nil
	}
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil || addr == 0 {
		return nil, &SymbolNotFoundError{Library: l.path, Symbol: symbol}
	}
	fn, _ := l.symbols.LoadOrStore(symbol, &sharedFunction{symbol: symbol, addr: addr})
	return fn.(*sharedFunction), nil
}

// Memory returns the process address space.
func (l *SharedLibrary) Memory() Memory {
	return processMemory{}
}

// Bind hands host trampolines to the library's bridge_bind export.
// Libraries without callbacks may omit bridge_bind.
func (l *SharedLibrary) Bind(ctx context.Context, host Host) error {
	bind, err := l.Lookup(SymbolBind)
	if err != nil {
		var notFound *SymbolNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	var bindErr error
	l.bindOnce.Do(func() {
		mem := processMemory{}
		// No caller context reaches a C trampoline.
		bg := context.Background()

		invoke := purego.NewCallback(func(handle, op, args, ret uintptr) uintptr {
			return uintptr(host.InvokeCallback(bg, mem, uint64(handle), uint32(op), uint64(args), uint64(ret)))
		})
		destroy := purego.NewCallback(func(handle uintptr) uintptr {
			host.DestroyCallback(bg, uint64(handle))
			return 0
		})
		size := purego.NewCallback(func(handle uintptr) uintptr {
			return uintptr(host.CollectionSize(bg, uint64(handle)))
		})
		get := purego.NewCallback(func(handle, index, out uintptr) uintptr {
			return uintptr(host.CollectionGet(bg, mem, uint64(handle), uint32(index), uint64(out)))
		})
		logMsg := purego.NewCallback(func(level, ptr, length uintptr) uintptr {
			msg, err := ReadString(mem, uint64(ptr), uint32(length))
			if err == nil {
				host.Log(bg, uint32(level), msg)
			}
			return 0
		})

		_, bindErr = bind.Call(ctx,
			uint64(invoke), uint64(destroy), uint64(size), uint64(get), uint64(logMsg))
	})
	return bindErr
}

// Serialized is false: shared libraries synchronize internally.
func (l *SharedLibrary) Serialized() bool {
	return false
}

// Close unloads the library. Safe to call multiple times.
func (l *SharedLibrary) Close(ctx context.Context) error {
	var err error
	l.closeOnce.Do(func() {
		err = purego.Dlclose(l.handle)
	})
	return err
}

type sharedFunction struct {
	symbol string
	addr   uintptr
}

func (f *sharedFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CallError{Symbol: f.symbol, Err: err}
	}
	args := make([]uintptr, len(params))
	for i, p := range params {
		args[i] = uintptr(p)
	}
	r1, _, _ := purego.SyscallN(f.addr, args...)
	return []uint64{uint64(r1)}, nil
}

type processMemory struct{}

func (processMemory) Read(addr uint64, length uint32) ([]byte, bool) {
	if addr == 0 {
		return nil, false
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), length), true
}

func (processMemory) Write(addr uint64, data []byte) bool {
	if addr == 0 {
		return false
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(data)), data)
	return true
}

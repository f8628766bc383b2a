package native

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// bufMemory is a flat byte slice addressed from zero.
type bufMemory []byte

func (m bufMemory) Read(addr uint64, length uint32) ([]byte, bool) {
	end := addr + uint64(length)
	if end > uint64(len(m)) {
		return nil, false
	}
	return m[addr:end], true
}

func (m bufMemory) Write(addr uint64, data []byte) bool {
	end := addr + uint64(len(data))
	if end > uint64(len(m)) {
		return false
	}
	copy(m[addr:end], data)
	return true
}

// bumpLibrary is a minimal core exposing only the allocator.
type bumpLibrary struct {
	mem   bufMemory
	next  uint64
	freed []uint64
}

func (l *bumpLibrary) Name() string                     { return "bump" }
func (l *bumpLibrary) Memory() Memory                   { return l.mem }
func (l *bumpLibrary) Bind(context.Context, Host) error { return nil }
func (l *bumpLibrary) Serialized() bool                 { return true }
func (l *bumpLibrary) Close(context.Context) error      { return nil }

func (l *bumpLibrary) Lookup(symbol string) (Function, error) {
	switch symbol {
	case SymbolAlloc:
		return FunctionFunc(func(_ context.Context, p ...uint64) ([]uint64, error) {
			align := p[1]
			l.next = (l.next + align - 1) &^ (align - 1)
			ptr := l.next
			l.next += p[0]
			return []uint64{ptr}, nil
		}), nil
	case SymbolFree:
		return FunctionFunc(func(_ context.Context, p ...uint64) ([]uint64, error) {
			l.freed = append(l.freed, p[0])
			return nil, nil
		}), nil
	}
	return nil, &SymbolNotFoundError{Library: "bump", Symbol: symbol}
}

func TestMemory_ReadWriteUint(t *testing.T) {
	mem := make(bufMemory, 32)

	if err := WriteUint32(mem, 4, 0xdeadbeef); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := WriteUint64(mem, 8, ^uint64(0)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	v32, err := ReadUint32(mem, 4)
	if err != nil || v32 != 0xdeadbeef {
		t.Errorf("ReadUint32() = %x, %v", v32, err)
	}
	v64, err := ReadUint64(mem, 8)
	if err != nil || v64 != ^uint64(0) {
		t.Errorf("ReadUint64() = %x, %v", v64, err)
	}
}

func TestMemory_OutOfBounds(t *testing.T) {
	mem := make(bufMemory, 8)

	_, err := ReadUint64(mem, 4)
	var accessErr *MemoryAccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected MemoryAccessError, got %T", err)
	}
	if accessErr.Operation != "read" || accessErr.Address != 4 {
		t.Errorf("unexpected error fields: %+v", accessErr)
	}

	if err := WriteBytes(mem, 6, []byte("abc")); err == nil {
		t.Error("WriteBytes() past the end should fail")
	}
}

func TestMemory_ReadStringCopies(t *testing.T) {
	mem := make(bufMemory, 16)
	_ = WriteBytes(mem, 0, []byte("Émile"))

	s, err := ReadString(mem, 0, 6)
	if err != nil {
		t.Fatalf("Failed to read string: %v", err)
	}
	mem[0] = 'X'
	if s != "Émile" {
		t.Errorf("ReadString() = %q, want Émile", s)
	}
}

func TestAllocator_ScratchRelease(t *testing.T) {
	lib := &bumpLibrary{mem: make(bufMemory, 256), next: 8}
	alloc, err := NewAllocator(lib)
	if err != nil {
		t.Fatalf("Failed to create allocator: %v", err)
	}
	ctx := context.Background()

	scratch := alloc.Scratch()
	p1, err := scratch.AllocBytes(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("Failed to alloc: %v", err)
	}
	p2, err := scratch.Alloc(ctx, 16, 8)
	if err != nil {
		t.Fatalf("Failed to alloc: %v", err)
	}
	if p2%8 != 0 {
		t.Errorf("expected 8-byte aligned pointer, got %d", p2)
	}
	if zero, _ := scratch.Alloc(ctx, 0, 1); zero != 0 {
		t.Errorf("zero-size alloc should return null, got %d", zero)
	}

	got, _ := ReadString(lib.mem, p1, 5)
	if got != "hello" {
		t.Errorf("expected hello in memory, got %q", got)
	}

	if err := scratch.Release(ctx); err != nil {
		t.Fatalf("Failed to release: %v", err)
	}
	if diff := cmp.Diff([]uint64{p2, p1}, lib.freed); diff != "" {
		t.Errorf("freed blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestAllocator_MissingExport(t *testing.T) {
	lib := &missingLibrary{bumpLibrary{mem: make(bufMemory, 8)}}

	_, err := NewAllocator(lib)
	var notFound *SymbolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected SymbolNotFoundError, got %v", err)
	}
	if notFound.Symbol != SymbolFree {
		t.Errorf("expected missing %s, got %s", SymbolFree, notFound.Symbol)
	}
}

type missingLibrary struct {
	bumpLibrary
}

func (l *missingLibrary) Lookup(symbol string) (Function, error) {
	if symbol == SymbolFree {
		return nil, &SymbolNotFoundError{Library: "missing", Symbol: symbol}
	}
	return l.bumpLibrary.Lookup(symbol)
}

func TestGuard_Reentrant(t *testing.T) {
	g := NewGuard(&bumpLibrary{})
	if g == nil {
		t.Fatal("expected a guard for a serialized library")
	}

	ctx, release := g.Enter(context.Background())
	defer release()

	done := make(chan struct{})
	go func() {
		// A nested call on the same context must not block.
		inner, innerRelease := g.Enter(ctx)
		defer innerRelease()
		if !g.Held(inner) {
			t.Error("nested context should hold the guard")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant Enter blocked")
	}
}

func TestGuard_Serializes(t *testing.T) {
	g := &Guard{}
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release := g.Enter(context.Background())
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one caller inside the guard, saw %d", maxSeen)
	}
}

func TestGuard_Nil(t *testing.T) {
	var g *Guard
	ctx, release := g.Enter(context.Background())
	release()
	if g.Held(ctx) {
		t.Error("nil guard should never be held")
	}
}

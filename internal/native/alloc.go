package native

import (
	"context"

	"go.uber.org/multierr"
)

// Allocator allocates in the core's memory through its exported allocator.
type Allocator struct {
	alloc Function
	free  Function
	mem   Memory
}

// NewAllocator resolves the allocator exports of lib.
func NewAllocator(lib Library) (*Allocator, error) {
	alloc, err := lib.Lookup(SymbolAlloc)
	if err != nil {
		return nil, err
	}
	free, err := lib.Lookup(SymbolFree)
	if err != nil {
		return nil, err
	}
	return &Allocator{alloc: alloc, free: free, mem: lib.Memory()}, nil
}

// Memory returns the memory the allocator hands out.
func (a *Allocator) Memory() Memory {
	return a.mem
}

// Alloc returns a block of size bytes. A zero size yields the null pointer.
func (a *Allocator) Alloc(ctx context.Context, size, align uint32) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	if align == 0 {
		align = 1
	}
	res, err := a.alloc.Call(ctx, uint64(size), uint64(align))
	if err != nil {
		return 0, &CallError{Symbol: SymbolAlloc, Err: err}
	}
	if len(res) == 0 || res[0] == 0 {
		return 0, &MemoryAccessError{Operation: "alloc", Length: size}
	}
	return res[0], nil
}

// Free releases a block returned by Alloc.
func (a *Allocator) Free(ctx context.Context, ptr uint64, size, align uint32) error {
	if ptr == 0 {
		return nil
	}
	if align == 0 {
		align = 1
	}
	if _, err := a.free.Call(ctx, ptr, uint64(size), uint64(align)); err != nil {
		return &CallError{Symbol: SymbolFree, Err: err}
	}
	return nil
}

// AllocBytes copies data into a fresh block.
func (a *Allocator) AllocBytes(ctx context.Context, data []byte) (uint64, error) {
	ptr, err := a.Alloc(ctx, uint32(len(data)), 1)
	if err != nil {
		return 0, err
	}
	if err := WriteBytes(a.mem, ptr, data); err != nil {
		_ = a.Free(ctx, ptr, uint32(len(data)), 1)
		return 0, err
	}
	return ptr, nil
}

type block struct {
	ptr   uint64
	size  uint32
	align uint32
}

// Scratch tracks allocations that live for one call.
type Scratch struct {
	a      *Allocator
	blocks []block
}

// Scratch starts a new set of call-scoped allocations.
func (a *Allocator) Scratch() *Scratch {
	return &Scratch{a: a}
}

// Memory returns the memory scratch blocks live in.
func (s *Scratch) Memory() Memory {
	return s.a.mem
}

// Alloc allocates a block freed by Release.
func (s *Scratch) Alloc(ctx context.Context, size, align uint32) (uint64, error) {
	ptr, err := s.a.Alloc(ctx, size, align)
	if err != nil {
		return 0, err
	}
	if ptr != 0 {
		s.blocks = append(s.blocks, block{ptr: ptr, size: size, align: align})
	}
	return ptr, nil
}

// AllocBytes copies data into a block freed by Release.
func (s *Scratch) AllocBytes(ctx context.Context, data []byte) (uint64, error) {
	ptr, err := s.Alloc(ctx, uint32(len(data)), 1)
	if err != nil {
		return 0, err
	}
	if err := WriteBytes(s.a.mem, ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// Release frees every block in reverse allocation order.
func (s *Scratch) Release(ctx context.Context) error {
	var err error
	for i := len(s.blocks) - 1; i >= 0; i-- {
		b := s.blocks[i]
		err = multierr.Append(err, s.a.Free(ctx, b.ptr, b.size, b.align))
	}
	s.blocks = nil
	return err
}

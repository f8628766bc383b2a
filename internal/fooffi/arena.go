package fooffi

import "sync"

// arenaBase keeps the null page unmapped.
const arenaBase = 16

// arena is the reference core's linear memory. Freed blocks are reused by
// blocks of the same size.
type arena struct {
	mu   sync.Mutex
	buf  []byte
	top  uint64
	free map[uint32][]uint64
	live map[uint64]uint32
}

func newArena(size int) *arena {
	return &arena{
		buf:  make([]byte, size),
		top:  arenaBase,
		free: make(map[uint32][]uint64),
		live: make(map[uint64]uint32),
	}
}

func (a *arena) alloc(size, align uint32) uint64 {
	if size == 0 {
		return 0
	}
	if align == 0 {
		align = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blocks := a.free[size]
	for i, ptr := range blocks {
		if ptr%uint64(align) == 0 {
			a.free[size] = append(blocks[:i], blocks[i+1:]...)
			a.live[ptr] = size
			return ptr
		}
	}

	ptr := (a.top + uint64(align) - 1) &^ (uint64(align) - 1)
	end := ptr + uint64(size)
	if end > uint64(len(a.buf)) {
		n := len(a.buf) * 2
		for uint64(n) < end {
			n *= 2
		}
		grown := make([]byte, n)
		copy(grown, a.buf)
		a.buf = grown
	}
	a.top = end
	a.live[ptr] = size
	return ptr
}

func (a *arena) release(ptr uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.live[ptr]
	if !ok {
		return false
	}
	delete(a.live, ptr)
	clear(a.buf[ptr : ptr+uint64(size)])
	a.free[size] = append(a.free[size], ptr)
	return true
}

// Live returns the number of allocated blocks.
func (a *arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

func (a *arena) inBounds(addr uint64, length uint32) bool {
	return addr >= arenaBase && addr+uint64(length) <= uint64(len(a.buf))
}

// Read implements native.Memory. It returns a copy.
func (a *arena) Read(addr uint64, length uint32) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inBounds(addr, length) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, a.buf[addr:])
	return out, true
}

// Write implements native.Memory.
func (a *arena) Write(addr uint64, data []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inBounds(addr, uint32(len(data))) {
		return false
	}
	copy(a.buf[addr:], data)
	return true
}

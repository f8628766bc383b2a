package wasm

import (
	"math"

	"github.com/tetratelabs/wazero/api"
)

// Memory adapts a guest's linear memory to native.Memory.
//
// Guest addresses are 32-bit; 64-bit bridge addresses above that range are
// rejected like any other out-of-bounds access. A module without memory
// rejects every access.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory adapter for module.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Read returns a view of length bytes at addr. The view is only valid until
// the guest next runs.
func (m *Memory) Read(addr uint64, length uint32) ([]byte, bool) {
	if m.mem == nil || addr > math.MaxUint32 {
		return nil, false
	}
	return m.mem.Read(uint32(addr), length)
}

// Write copies data to addr.
func (m *Memory) Write(addr uint64, data []byte) bool {
	if m.mem == nil || addr > math.MaxUint32 {
		return false
	}
	return m.mem.Write(uint32(addr), data)
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

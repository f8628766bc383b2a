package native

import (
	"encoding/binary"
	"fmt"
)

// MemoryAccessError occurs when memory operations fail.
type MemoryAccessError struct {
	Operation string
	Address   uint64
	Length    uint32
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d)",
		e.Operation, e.Address, e.Length)
}

// ReadBytes copies length bytes at addr.
func ReadBytes(mem Memory, addr uint64, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	buf, ok := mem.Read(addr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: addr, Length: length}
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// ReadString reads a UTF-8 string of length bytes at addr.
func ReadString(mem Memory, addr uint64, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	buf, ok := mem.Read(addr, length)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: addr, Length: length}
	}
	return string(buf), nil
}

// WriteBytes writes data at addr.
func WriteBytes(mem Memory, addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !mem.Write(addr, data) {
		return &MemoryAccessError{Operation: "write", Address: addr, Length: uint32(len(data))}
	}
	return nil
}

// ReadUint reads a little-endian unsigned integer of size 1, 2, 4 or 8.
func ReadUint(mem Memory, addr uint64, size uint32) (uint64, error) {
	buf, ok := mem.Read(addr, size)
	if !ok {
		return 0, &MemoryAccessError{Operation: "read", Address: addr, Length: size}
	}
	switch size {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	case 8:
		return binary.LittleEndian.Uint64(buf), nil
	}
	return 0, fmt.Errorf("unsupported integer size %d", size)
}

// WriteUint writes v as a little-endian unsigned integer of size 1, 2, 4 or 8.
func WriteUint(mem Memory, addr uint64, size uint32, v uint64) error {
	var buf [8]byte
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf[:], v)
	default:
		return fmt.Errorf("unsupported integer size %d", size)
	}
	if !mem.Write(addr, buf[:size]) {
		return &MemoryAccessError{Operation: "write", Address: addr, Length: size}
	}
	return nil
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(mem Memory, addr uint64) (uint32, error) {
	v, err := ReadUint(mem, addr, 4)
	return uint32(v), err
}

// ReadUint64 reads a little-endian uint64.
func ReadUint64(mem Memory, addr uint64) (uint64, error) {
	return ReadUint(mem, addr, 8)
}

// WriteUint32 writes a little-endian uint32.
func WriteUint32(mem Memory, addr uint64, v uint32) error {
	return WriteUint(mem, addr, 4, uint64(v))
}

// WriteUint64 writes a little-endian uint64.
func WriteUint64(mem Memory, addr uint64, v uint64) error {
	return WriteUint(mem, addr, 8, v)
}

package fooffi

import (
	"bytes"
	"testing"
)

func TestArena_AllocAlignment(t *testing.T) {
	a := newArena(64)

	for _, align := range []uint32{1, 2, 4, 8, 16} {
		ptr := a.alloc(3, align)
		if ptr == 0 {
			t.Fatalf("Failed to allocate with align %d", align)
		}
		if ptr%uint64(align) != 0 {
			t.Errorf("alloc(3, %d) = %#x, not aligned", align, ptr)
		}
		if ptr < arenaBase {
			t.Errorf("alloc(3, %d) = %#x, inside the null page", align, ptr)
		}
	}
}

func TestArena_ZeroSize(t *testing.T) {
	a := newArena(64)
	if ptr := a.alloc(0, 8); ptr != 0 {
		t.Errorf("alloc(0) = %#x, want 0", ptr)
	}
	if a.Live() != 0 {
		t.Errorf("Live() = %d, want 0", a.Live())
	}
}

func TestArena_ReusesFreedBlock(t *testing.T) {
	a := newArena(64)

	first := a.alloc(8, 8)
	a.Write(first, []byte("abcdefgh"))
	if !a.release(first) {
		t.Fatalf("Failed to release %#x", first)
	}
	if a.release(first) {
		t.Error("Expected double release to fail")
	}

	second := a.alloc(8, 8)
	if second != first {
		t.Errorf("alloc() = %#x, want reused %#x", second, first)
	}
	data, ok := a.Read(second, 8)
	if !ok {
		t.Fatalf("Failed to read %#x", second)
	}
	if !bytes.Equal(data, make([]byte, 8)) {
		t.Errorf("Reused block = %q, want zeroed", data)
	}
}

func TestArena_Grows(t *testing.T) {
	a := newArena(32)

	ptr := a.alloc(100, 1)
	payload := bytes.Repeat([]byte{0xab}, 100)
	if !a.Write(ptr, payload) {
		t.Fatalf("Failed to write after growth")
	}
	data, ok := a.Read(ptr, 100)
	if !ok || !bytes.Equal(data, payload) {
		t.Errorf("Read() after growth = %v, %v", data, ok)
	}
}

func TestArena_OutOfBounds(t *testing.T) {
	a := newArena(32)

	if _, ok := a.Read(0, 1); ok {
		t.Error("Expected read of the null page to fail")
	}
	if _, ok := a.Read(30, 8); ok {
		t.Error("Expected read past the end to fail")
	}
	if a.Write(31, []byte{1, 2}) {
		t.Error("Expected write past the end to fail")
	}
}

package gpu

import "testing"

func TestNewOutputBufferPool_ClampsMinimum(t *testing.T) {
	backend := newFakeBackend(true)
	pool, err := NewOutputBufferPool(backend, 1, Size{Width: 100, Height: 100}, FormatRGBA8)
	if err != nil {
		t.Fatalf("NewOutputBufferPool: %v", err)
	}
	if pool.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (minimum clamp)", pool.Len())
	}
}

func TestOutputBufferPool_Rotation(t *testing.T) {
	backend := newFakeBackend(true)
	pool, err := NewOutputBufferPool(backend, 2, Size{Width: 64, Height: 64}, FormatRGBA8)
	if err != nil {
		t.Fatalf("NewOutputBufferPool: %v", err)
	}

	seen := make(map[uint64]int)
	for i := 0; i < 6; i++ {
		idx, slot := pool.Next()
		if idx != i%2 {
			t.Fatalf("Next() index = %d, want %d", idx, i%2)
		}
		seen[slot.Buffer().ID()]++
		slot.Release()
	}

	if len(seen) != 2 {
		t.Fatalf("expected exactly 2 distinct buffers rotated through, got %d", len(seen))
	}
}

// TestOutputBufferPool_Exclusivity is the spec.md §8 invariant 1 check:
// for frame pairs whose frame_number difference is < N, their outputs
// must differ.
func TestOutputBufferPool_Exclusivity(t *testing.T) {
	backend := newFakeBackend(true)
	n := 3
	pool, err := NewOutputBufferPool(backend, n, Size{Width: 32, Height: 32}, FormatRGBA8)
	if err != nil {
		t.Fatalf("NewOutputBufferPool: %v", err)
	}

	var outputs []*NativeBuffer
	for i := 0; i < n*2; i++ {
		_, slot := pool.Next()
		outputs = append(outputs, slot.Buffer())
		slot.Release()
	}

	for a := 0; a < len(outputs); a++ {
		for b := a + 1; b < len(outputs); b++ {
			if b-a >= n {
				continue
			}
			if outputs[a] == outputs[b] {
				t.Fatalf("frames %d and %d (within N=%d) share the same output buffer", a, b, n)
			}
		}
	}
}

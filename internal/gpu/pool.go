package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/capturecore/daemon/internal/corerr"
)

// BufferSlot owns exactly one platform buffer of the pool's configured
// output dimensions (spec.md §3, OutputBufferPool). Slots are created
// at pipeline init and destroyed at shutdown; never resized at
// runtime — a config change that alters output dimensions forces a
// full OutputBufferPool reinit instead.
type BufferSlot struct {
	mu     sync.Mutex
	buffer *NativeBuffer
}

// Buffer returns the slot's owned buffer.
func (s *BufferSlot) Buffer() *NativeBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// OutputBufferPool is a ring of N output buffers (N >= 2) rotated per
// acquire_frame() invocation (spec.md §3, §4.6). Exclusive write
// access to a slot lasts for the duration of one preprocess call; the
// pool never blocks a caller waiting for a slot to free, per the
// "N-slots-exhausted" Open Question resolution (DESIGN.md): the
// oldest (next-to-rotate) slot is silently reused even if a prior
// caller never released it, because the rotation counter — not a
// reference count — decides which slot is next.
type OutputBufferPool struct {
	slots   []*BufferSlot
	counter atomic.Uint64
	size    Size
	format  PixelFormat
}

// NewOutputBufferPool allocates n buffers of size/format through
// backend.AllocateOutputBuffer. n is clamped to a minimum of 2 per
// spec.md §3 ("N >= 2").
func NewOutputBufferPool(backend ComputeBackend, n int, size Size, format PixelFormat) (*OutputBufferPool, error) {
	if n < 2 {
		n = 2
	}

	pool := &OutputBufferPool{
		slots:  make([]*BufferSlot, n),
		size:   size,
		format: format,
	}

	for i := 0; i < n; i++ {
		buf, err := backend.AllocateOutputBuffer(size)
		if err != nil {
			pool.destroyAllocated(backend, i)
			return nil, corerr.Wrap(corerr.KindResourceExhausted, "gpu.pool.new", err)
		}
		buf.format = format
		pool.slots[i] = &BufferSlot{buffer: buf}
	}

	return pool, nil
}

func (p *OutputBufferPool) destroyAllocated(backend ComputeBackend, count int) {
	for i := 0; i < count; i++ {
		if p.slots[i] != nil && p.slots[i].buffer != nil {
			backend.FreeOutputBuffer(p.slots[i].buffer)
		}
	}
}

// Close destroys every slot's buffer. Called at pipeline shutdown or
// immediately before a reinit triggered by a dimension change.
func (p *OutputBufferPool) Close(backend ComputeBackend) {
	for _, s := range p.slots {
		s.mu.Lock()
		if s.buffer != nil {
			backend.FreeOutputBuffer(s.buffer)
			s.buffer = nil
		}
		s.mu.Unlock()
	}
}

// Len returns N, the configured slot count.
func (p *OutputBufferPool) Len() int {
	return len(p.slots)
}

// Size returns the pool's configured output dimensions.
func (p *OutputBufferPool) Size() Size {
	return p.size
}

// Next rotates the pool and returns the next slot along with its
// index: slot = counter.fetch_add(1) mod N, per spec.md §4.6 step 6.
// The caller gets exclusive write access to the returned slot's buffer
// for the duration of one preprocess call; it must call BufferSlot.Release
// when done (FrameController does this synchronously, inline with
// acquire_frame, since the write happens before the function returns).
func (p *OutputBufferPool) Next() (index int, slot *BufferSlot) {
	n := uint64(len(p.slots))
	idx := p.counter.Add(1) - 1
	i := int(idx % n)
	s := p.slots[i]

	return i, s
}

// Release marks slot as no longer the active write target. It is a
// documented pairing with Next for callers (FrameController calls it
// synchronously after one preprocess call), but since the pool has no
// reference count to update — rotation, not release, decides which
// slot is next — there is nothing left to mutate here. It does not
// invalidate FrameResult.Output — per spec.md §3's ownership summary,
// that borrow is only invalidated when rotation selects this slot
// again.
func (s *BufferSlot) Release() {}

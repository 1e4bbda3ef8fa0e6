package gpu

import (
	"context"
	"sync"

	"github.com/capturecore/daemon/internal/corerr"
)

// Fence is a GPU-synchronization handle (spec.md §3): it signals when
// the preprocessing commands that produced it have completed. It owns
// its underlying resource — resolving the "fence ownership on error
// paths" Open Question (spec.md §9) in favor of an explicit Close()
// the caller (or FrameController, on an error path before the caller
// ever sees the FrameResult) must call exactly once, matching the
// teacher's explicit-Close()-everywhere style over relying on a
// finalizer.
//
// github.com/gogpu/wgpu's Queue.Submit is synchronous — it blocks
// until the GPU has completed the submitted commands — so there is no
// native exportable fence file descriptor to wrap here; every Fence
// this package produces is already signaled by the time it is
// returned. FD() always reports (0, false), which is exactly the
// spec.md §4.5 "native fence-sync extension... unavailable" fallback
// path: the kernel has been flushed (via the blocking Submit) before
// process()/process_roi() return. This is recorded as an Open
// Question resolution in DESIGN.md, not a silent degradation.
type Fence struct {
	mu     sync.Mutex
	closed bool
}

// signaledFence returns a Fence that is already complete, the shape
// every wgpu-backed dispatch produces given Queue.Submit's blocking
// semantics.
func signaledFence() *Fence {
	return &Fence{}
}

// Wait blocks until the fence signals or ctx is done. Since every
// Fence produced by this backend is already signaled, Wait returns
// immediately unless ctx is already canceled.
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return corerr.Wrap(corerr.KindFenceTimeout, "gpu.fence.wait", ctx.Err())
	default:
		return nil
	}
}

// Poll reports whether the fence has signaled. Always true for this
// backend; kept as a method so downstream consumers written against
// the general contract (spec.md §4.5, §6) do not need a type switch.
func (f *Fence) Poll() bool {
	return true
}

// FD returns a native fence file descriptor and true if one exists.
// This backend never exports one (see package doc); callers fall back
// to the synchronous-completion contract instead.
func (f *Fence) FD() (uintptr, bool) {
	return 0, false
}

// Empty reports whether this is the zero-value "no fence" case
// described in spec.md §3 ("may be empty if the implementation
// finished synchronously"). A nil *Fence is empty.
func (f *Fence) Empty() bool {
	return f == nil
}

// Close releases the fence's resources. Idempotent: closing twice is
// a no-op, matching the round-trip laws spec.md §8 requires of
// release_frame, applied here to the analogous fence-ownership case.
func (f *Fence) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

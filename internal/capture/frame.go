// Package capture implements FrameController: the single public
// acquire_frame()/release_frame() operation pair that serializes GPU-
// context binding, drives the texture consumer, selects the next
// output buffer, invokes the GPU preprocessor, and returns a
// FrameResult (spec.md §2, §4.6). StatsRecorder's rolling
// FPS/latency/drop counters are co-located here, guarded by a
// dedicated lock distinct from the GPU mutex so a stats reader can
// never stall an acquire (spec.md §5), mirroring the teacher's
// sync.RWMutex-guarded StreamMetrics snapshot style.
package capture

import (
	"github.com/capturecore/daemon/internal/gpu"
	"github.com/capturecore/daemon/internal/logging"
)

var log = logging.L("capture")

// FrameResult is the value FrameController.AcquireFrame returns
// (spec.md §3): either fully populated or an error, never partial.
type FrameResult struct {
	Output   *gpu.NativeBuffer
	Fence    *gpu.Fence
	Width    uint32
	Height   uint32
	Format   gpu.PixelFormat
	TimestampNs int64
	FrameNumber uint64

	CaptureMs    float64
	PreprocessMs float64
	TotalMs      float64

	// BufferID is the u32 the IPC transport uses to refer to this
	// frame's output until it calls ReleaseFrame (spec.md §6). Assigned
	// by internal/service, not by FrameController itself — FrameController
	// has no notion of the IPC surface.
	BufferID uint32
}

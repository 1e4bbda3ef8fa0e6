// Package gpu implements GpuContext, GpuPreprocessor, and
// OutputBufferPool: the compute kernels that turn the texture
// consumer's external-sampler texture (or a platform native buffer)
// into a fixed-format output buffer, plus the ring of output buffers
// FrameController rotates through. The compute backend is built on
// github.com/gogpu/wgpu — the pack's only Go-native, dependency-real
// GPU compute story, shared with gogpu/gg — behind a small
// ComputeBackend interface so FrameController's tests can substitute
// an in-memory fixture, the same testability seam the teacher uses
// for ScreenCapturer/BGRAProvider (internal/remote/desktop).
package gpu

import "fmt"

// PixelFormat enumerates output buffer formats. rgba8 is the only
// format this core defines (spec.md §3).
type PixelFormat int

const (
	FormatRGBA8 PixelFormat = iota
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	default:
		return "unknown"
	}
}

// Size is a pixel width/height pair.
type Size struct {
	Width  uint32
	Height uint32
}

// DivideBy returns the size scaled down by an integer resize factor,
// per spec.md §4.5: out_w = in_w / factor, out_h = in_h / factor.
func (s Size) DivideBy(factor int) Size {
	if factor <= 0 {
		factor = 1
	}
	return Size{Width: s.Width / uint32(factor), Height: s.Height / uint32(factor)}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ROI is a region of interest in normalized input coordinates, each in
// [0,1], per spec.md §4.5.
type ROI struct {
	X, Y, W, H float32
}

// Valid reports whether the ROI satisfies spec.md §8 invariant 5:
// x,y >= 0, w,h > 0, x+w <= 1, y+h <= 1.
func (r ROI) Valid() bool {
	if r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 {
		return false
	}
	if r.X+r.W > 1 || r.Y+r.H > 1 {
		return false
	}
	return true
}

// Transform4x4 is a 4x4 column-major matrix, mirroring
// bufferqueue.Transform so gpu does not need to import bufferqueue
// for a single type alias.
type Transform4x4 [16]float32

// NativeBuffer is an opaque GPU-shareable output buffer handle (a
// platform native buffer in spec.md's terms). It is created and owned
// exclusively by the pool; FrameResult.Output borrows it for the
// duration between one acquire_frame() and the rotation that
// eventually reclaims the same slot.
type NativeBuffer struct {
	id     uint64
	size   Size
	format PixelFormat
}

// ID is an opaque identifier stable for the buffer's lifetime, useful
// for logging and for the IPC buffer-id mapping in internal/service.
func (b *NativeBuffer) ID() uint64 { return b.id }

// Size returns the buffer's pixel dimensions.
func (b *NativeBuffer) Size() Size { return b.size }

// Format returns the buffer's pixel format.
func (b *NativeBuffer) Format() PixelFormat { return b.format }

package capture

import (
	"sync"

	"github.com/capturecore/daemon/internal/gpu"
)

// fakeBackend is a minimal gpu.ComputeBackend fixture so
// FrameController's tests require no real GPU hardware, mirroring the
// fake the gpu package itself uses for its own unit tests.
type fakeBackend struct {
	mu     sync.Mutex
	nextID uint64
}

func newFakeBackend(_ bool) *fakeBackend {
	return &fakeBackend{}
}

func (f *fakeBackend) Bind() error       { return nil }
func (f *fakeBackend) Release()          {}
func (f *fakeBackend) SupportsROI() bool { return true }

func (f *fakeBackend) AllocateOutputBuffer(size gpu.Size) (*gpu.NativeBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return gpu.NewTestNativeBuffer(f.nextID, size, gpu.FormatRGBA8), nil
}

func (f *fakeBackend) FreeOutputBuffer(buf *gpu.NativeBuffer) {}

func (f *fakeBackend) DispatchBase(externalTextureID uint64, inSize gpu.Size, transform gpu.Transform4x4, out *gpu.NativeBuffer, outSize gpu.Size) (*gpu.Fence, error) {
	return gpu.NewTestSignaledFence(), nil
}

func (f *fakeBackend) DispatchROI(externalTextureID uint64, inSize gpu.Size, transform gpu.Transform4x4, roi gpu.ROI, out *gpu.NativeBuffer, outSize gpu.Size) (*gpu.Fence, error) {
	return gpu.NewTestSignaledFence(), nil
}

func (f *fakeBackend) DispatchNativeBuffer(in *gpu.NativeBuffer, inSize gpu.Size, out *gpu.NativeBuffer, outSize gpu.Size) (*gpu.Fence, error) {
	return gpu.NewTestSignaledFence(), nil
}

package service

import (
	"sync"

	"github.com/capturecore/daemon/internal/gpu"
)

// fakeBackend is the same minimal gpu.ComputeBackend fixture
// internal/capture uses for its own tests, duplicated here so
// service's tests need no real GPU hardware either.
type fakeBackend struct {
	mu     sync.Mutex
	nextID uint64
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

package gpu

import "sync"

// fakeBackend is a deterministic ComputeBackend fixture used across
// this package's tests, the same role gogpu's wgpu stands in for in
// production — substituted so the pool/preprocessor tests require no
// real GPU hardware, per spec.md §8's testability requirement.
type fakeBackend struct {
	mu      sync.Mutex
	nextID  uint64
	roiOK   bool
	boundBy bool

	dispatches int
	lastOut    *NativeBuffer
}

func newFakeBackend(roiSupported bool) *fakeBackend {
	return &fakeBackend{roiOK: roiSupported}
}

func (f *fakeBackend) Bind() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundBy = true
	return nil
}

func (f *fakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundBy = false
}

func (f *fakeBackend) AllocateOutputBuffer(size Size) (*NativeBuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &NativeBuffer{id: f.nextID, size: size, format: FormatRGBA8}, nil
}

func (f *fakeBackend) FreeOutputBuffer(buf *NativeBuffer) {}

func (f *fakeBackend) DispatchBase(externalTextureID uint64, inSize Size, transform Transform4x4, out *NativeBuffer, outSize Size) (*Fence, error) {
	f.mu.Lock()
	f.dispatches++
	f.lastOut = out
	f.mu.Unlock()
	return signaledFence(), nil
}

func (f *fakeBackend) DispatchROI(externalTextureID uint64, inSize Size, transform Transform4x4, roi ROI, out *NativeBuffer, outSize Size) (*Fence, error) {
	f.mu.Lock()
	f.dispatches++
	f.lastOut = out
	f.mu.Unlock()
	return signaledFence(), nil
}

func (f *fakeBackend) DispatchNativeBuffer(in *NativeBuffer, inSize Size, out *NativeBuffer, outSize Size) (*Fence, error) {
	f.mu.Lock()
	f.dispatches++
	f.lastOut = out
	f.mu.Unlock()
	return signaledFence(), nil
}

func (f *fakeBackend) SupportsROI() bool {
	return f.roiOK
}

package gpu

// NewTestNativeBuffer constructs a NativeBuffer for use by other
// packages' tests (internal/capture's fake backend) that need to
// satisfy the ComputeBackend interface without reaching into gpu's
// unexported fields. Not used by production code.
func NewTestNativeBuffer(id uint64, size Size, format PixelFormat) *NativeBuffer {
	return &NativeBuffer{id: id, size: size, format: format}
}

// NewTestSignaledFence returns an already-signaled Fence, for the same
// reason as NewTestNativeBuffer.
func NewTestSignaledFence() *Fence {
	return signaledFence()
}

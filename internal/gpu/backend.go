package gpu

import "github.com/capturecore/daemon/internal/corerr"

// ComputeBackend is the seam between GpuPreprocessor and a concrete
// GPU implementation. wgpuBackend (backend_wgpu.go) is the production
// implementation; package gpu's tests substitute a fake so the base
// kernel, ROI kernel, and native-buffer path are exercised without
// real GPU hardware — the same fixture-over-interface pattern the
// teacher uses for ScreenCapturer/BGRAProvider.
type ComputeBackend interface {
	// Bind makes this backend's device current on the calling thread.
	// wgpu has no GL-style thread affinity, so the production backend's
	// Bind takes the backend's own mutex and holds it until Release;
	// that mutex is what serializes access (spec.md §4.4, §5).
	Bind() error
	// Release unbinds the backend. Paired with Bind via Context.BindScoped.
	Release()

	// AllocateOutputBuffer creates one GPU-writable, sampled-image
	// platform buffer of the given size for the output pool (spec.md
	// §3, OutputBufferPool).
	AllocateOutputBuffer(size Size) (*NativeBuffer, error)
	// FreeOutputBuffer destroys a buffer previously returned by
	// AllocateOutputBuffer. Called only at pipeline shutdown or reinit.
	FreeOutputBuffer(buf *NativeBuffer)

	// DispatchBase runs the base kernel (spec.md §4.5 kernel 1): reads
	// the external-sampler texture named by externalTextureID at
	// inSize, applies transform, writes into out at outSize.
	DispatchBase(externalTextureID uint64, inSize Size, transform Transform4x4, out *NativeBuffer, outSize Size) (*Fence, error)
	// DispatchROI runs the ROI kernel (spec.md §4.5 kernel 2): like
	// DispatchBase but fits roi into outSize with aspect-preserving
	// letterbox, filling margins with 0.5 gray.
	DispatchROI(externalTextureID uint64, inSize Size, transform Transform4x4, roi ROI, out *NativeBuffer, outSize Size) (*Fence, error)
	// DispatchNativeBuffer runs the base kernel against a platform
	// native buffer bound as a regular (non-external) sampler, for
	// capture paths that deliver a buffer directly (spec.md §4.5
	// process_native_buffer).
	DispatchNativeBuffer(in *NativeBuffer, inSize Size, out *NativeBuffer, outSize Size) (*Fence, error)

	// SupportsROI reports whether the ROI kernel is available. False
	// when GpuContext fell back to a lower compute-shader version
	// (spec.md §4.4: "falls back to one minor version lower and
	// disables ROI preprocessing").
	SupportsROI() bool
}

// errROIUnavailable is returned by DispatchROI when the backend
// reports !SupportsROI().
func errROIUnavailable(op string) error {
	return corerr.New(corerr.KindNotSupported, op, "ROI preprocessing is disabled on this GPU context (compute-shader version fallback)")
}

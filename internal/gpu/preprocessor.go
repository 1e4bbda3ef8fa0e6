package gpu

import "github.com/capturecore/daemon/internal/corerr"

// ResizeFactor is one of the three supported downscale factors
// (spec.md §4.5, process()'s resize_factor parameter).
type ResizeFactor int

const (
	ResizeFull    ResizeFactor = 1
	ResizeHalf    ResizeFactor = 2
	ResizeQuarter ResizeFactor = 4
)

// Valid reports whether f is one of {1, 2, 4}.
func (f ResizeFactor) Valid() bool {
	return f == ResizeFull || f == ResizeHalf || f == ResizeQuarter
}

// Preprocessor is GpuPreprocessor (spec.md §4.5): it owns the base and
// ROI compute kernels and dispatches them against ctx's backend.
type Preprocessor struct {
	ctx *Context
}

// NewPreprocessor wraps ctx. ctx's backend must already have its
// shader modules and compute pipelines built; NewWGPUBackend builds
// them before it returns, without going through Bind.
func NewPreprocessor(ctx *Context) *Preprocessor {
	return &Preprocessor{ctx: ctx}
}

// Process runs the base kernel (spec.md §4.5 Process): binds
// textureID as the external sampler, dispatches into out at
// in_size/resizeFactor, and returns a fence for the caller's
// synchronization. Must be called from within a GPU-context scope
// (internal/capture.FrameController.acquire_frame step 4–7 runs this
// inside Context.BindScoped).
func (p *Preprocessor) Process(backend ComputeBackend, textureID uint64, inSize Size, transform Transform4x4, out *NativeBuffer, resizeFactor ResizeFactor) (*NativeBuffer, *Fence, error) {
	if !resizeFactor.Valid() {
		return nil, nil, corerr.New(corerr.KindInvalidArgument, "gpu.preprocessor.process",
			"resize_factor must be one of 1, 2, 4")
	}

	outSize := inSize.DivideBy(int(resizeFactor))
	if out.size != outSize {
		return nil, nil, corerr.New(corerr.KindInvalidArgument, "gpu.preprocessor.process",
			"output buffer dimensions do not match in_size/resize_factor")
	}

	fence, err := backend.DispatchBase(textureID, inSize, transform, out, outSize)
	if err != nil {
		return nil, nil, corerr.Wrap(corerr.KindInternal, "gpu.preprocessor.process", err)
	}
	return out, fence, nil
}

// ProcessROI runs the ROI kernel (spec.md §4.5 ProcessROI): validates
// roi's bounds first (spec.md §8 invariant 5), then fits it into out's
// dimensions with aspect-preserving letterbox.
func (p *Preprocessor) ProcessROI(backend ComputeBackend, textureID uint64, inSize Size, transform Transform4x4, roi ROI, out *NativeBuffer) (*NativeBuffer, *Fence, error) {
	if !roi.Valid() {
		return nil, nil, corerr.New(corerr.KindInvalidArgument, "gpu.preprocessor.process_roi",
			"roi must satisfy x,y>=0, w,h>0, x+w<=1, y+h<=1")
	}
	if !backend.SupportsROI() {
		return nil, nil, errROIUnavailable("gpu.preprocessor.process_roi")
	}

	fence, err := backend.DispatchROI(textureID, inSize, transform, roi, out, out.size)
	if err != nil {
		return nil, nil, corerr.Wrap(corerr.KindInternal, "gpu.preprocessor.process_roi", err)
	}
	return out, fence, nil
}

// ProcessNativeBuffer runs the base kernel against a platform native
// buffer delivered directly (spec.md §4.5 process_native_buffer),
// binding it as a regular (non-external) sampler.
func (p *Preprocessor) ProcessNativeBuffer(backend ComputeBackend, in *NativeBuffer, resizeFactor ResizeFactor, out *NativeBuffer) (*NativeBuffer, *Fence, error) {
	if !resizeFactor.Valid() {
		return nil, nil, corerr.New(corerr.KindInvalidArgument, "gpu.preprocessor.process_native_buffer",
			"resize_factor must be one of 1, 2, 4")
	}

	outSize := in.size.DivideBy(int(resizeFactor))
	if out.size != outSize {
		return nil, nil, corerr.New(corerr.KindInvalidArgument, "gpu.preprocessor.process_native_buffer",
			"output buffer dimensions do not match in_size/resize_factor")
	}

	fence, err := backend.DispatchNativeBuffer(in, in.size, out, outSize)
	if err != nil {
		return nil, nil, corerr.Wrap(corerr.KindInternal, "gpu.preprocessor.process_native_buffer", err)
	}
	return out, fence, nil
}

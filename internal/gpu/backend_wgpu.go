package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	_ "embed"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/capturecore/daemon/internal/corerr"
)

//go:embed shaders/base.wgsl
var baseShaderSource string

//go:embed shaders/roi.wgsl
var roiShaderSource string

const workgroupSize = 16

// wgpuBackend is the production ComputeBackend (spec.md §4.4): a
// single wgpu.Instance -> Adapter -> Device chain requested headless
// (no compatible surface), matching "no windowing system, 1x1
// offscreen surface sufficient". bind()/release() are modeled as a
// mutex guarding "current device" rather than a GL-style thread
// affinity context, since wgpu's command-buffer model has no such
// concept — the mutex is the process-wide serialization point
// spec.md §5 requires.
type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device

	baseModule *wgpu.ShaderModule
	roiModule  *wgpu.ShaderModule

	bgLayout       *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	sampler        *wgpu.Sampler

	basePipeline *wgpu.ComputePipeline
	roiPipeline  *wgpu.ComputePipeline

	roiSupported bool
	nextBufferID atomic.Uint64

	resMu   sync.Mutex
	outputs map[uint64]*wgpuOutputResource

	bound bool
}

// wgpuOutputResource is the real GPU-side storage backing a NativeBuffer
// slot: a texture sized and formatted for the kernels' texture_storage_2d
// output binding, plus the view bound into the compute pass. Kept out of
// NativeBuffer itself (types.go) so that struct stays an opaque,
// backend-agnostic handle.
type wgpuOutputResource struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// NewWGPUBackend creates a headless wgpu device and compiles the base
// and ROI compute kernels. Per spec.md §4.4, a context that cannot
// satisfy the compute-shader-capable version it prefers falls back to
// one minor version lower and disables ROI preprocessing rather than
// failing init outright: only the ROI kernel's pipeline is allowed to
// fail softly here, since the base kernel is load-bearing for every
// capture path.
func NewWGPUBackend() (ComputeBackend, error) {
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindDeviceNotFound, "gpu.backend_wgpu.new", err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, corerr.Wrap(corerr.KindDeviceNotFound, "gpu.backend_wgpu.new", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "captured-preprocessor",
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, corerr.Wrap(corerr.KindDeviceNotFound, "gpu.backend_wgpu.new", err)
	}

	b := &wgpuBackend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		outputs:  make(map[uint64]*wgpuOutputResource),
	}

	if err := b.buildBasePipeline(); err != nil {
		b.Close()
		return nil, corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.new", err)
	}

	if err := b.buildROIPipeline(); err != nil {
		log.Warn("ROI compute pipeline unavailable, falling back to base-only preprocessing", "error", err)
		b.roiSupported = false
	} else {
		b.roiSupported = true
	}

	return b, nil
}

// bindGroupLayoutEntries describes the binding slots every kernel in
// this package shares: an input texture, its sampler, a write-only
// storage output texture, and the kernel's uniform block. Base and ROI
// only differ in uniform struct size (the layout entry doesn't encode
// that — MinBindingSize is left 0, "at least large enough"), so one
// layout and one pipeline layout serve both pipelines.
func bindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageCompute, Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}},
		{Binding: 1, Visibility: wgpu.ShaderStageCompute, Sampler: &gputypes.SamplerBindingLayout{
			Type: gputypes.SamplerBindingTypeFiltering,
		}},
		{Binding: 2, Visibility: wgpu.ShaderStageCompute, Storage: &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        wgpu.TextureFormatRGBA8Unorm,
			ViewDimension: gputypes.TextureViewDimension2D,
		}},
		{Binding: 3, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
			Type: gputypes.BufferBindingTypeUniform,
		}},
	}
}

// buildBasePipeline compiles the base kernel and builds the shared
// bind-group layout, pipeline layout, sampler, and base compute
// pipeline. Failure here is fatal to NewWGPUBackend.
func (b *wgpuBackend) buildBasePipeline() error {
	baseModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "captured-base-kernel",
		WGSL:  baseShaderSource,
	})
	if err != nil {
		return fmt.Errorf("compiling base kernel: %w", err)
	}
	b.baseModule = baseModule

	bgLayout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "captured-preprocess-bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("creating bind group layout: %w", err)
	}
	b.bgLayout = bgLayout

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "captured-preprocess-pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return fmt.Errorf("creating pipeline layout: %w", err)
	}
	b.pipelineLayout = pipelineLayout

	sampler, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "captured-preprocess-sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("creating sampler: %w", err)
	}
	b.sampler = sampler

	basePipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      "captured-base-pipeline",
		Layout:     pipelineLayout,
		Module:     baseModule,
		EntryPoint: "main",
	})
	if err != nil {
		return fmt.Errorf("creating base compute pipeline: %w", err)
	}
	b.basePipeline = basePipeline

	return nil
}

// buildROIPipeline compiles the ROI kernel and its compute pipeline,
// reusing the bind-group/pipeline layout buildBasePipeline already
// built. Failure here only disables ROI preprocessing.
func (b *wgpuBackend) buildROIPipeline() error {
	roiModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "captured-roi-kernel",
		WGSL:  roiShaderSource,
	})
	if err != nil {
		return fmt.Errorf("compiling roi kernel: %w", err)
	}
	b.roiModule = roiModule

	roiPipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      "captured-roi-pipeline",
		Layout:     b.pipelineLayout,
		Module:     roiModule,
		EntryPoint: "main",
	})
	if err != nil {
		return fmt.Errorf("creating roi compute pipeline: %w", err)
	}
	b.roiPipeline = roiPipeline

	return nil
}

// Bind makes the backend current. The one-device-per-process model
// here has no real thread-affinity switch; Bind is the scope-entry
// half of the mutex discipline spec.md §4.4 requires.
func (b *wgpuBackend) Bind() error {
	b.mu.Lock()
	if b.bound {
		b.mu.Unlock()
		return corerr.New(corerr.KindInternal, "gpu.backend_wgpu.bind", "context already bound on another thread")
	}
	b.bound = true
	return nil
}

// Release unbinds the backend, pairing a prior Bind.
func (b *wgpuBackend) Release() {
	b.bound = false
	b.mu.Unlock()
}

// AllocateOutputBuffer creates a GPU-writable, sampled-image platform
// buffer sized for size's pixel count, rgba8 packed (spec.md §3). The
// underlying resource is a texture rather than a raw storage buffer:
// the compute kernels declare their output binding as
// texture_storage_2d<rgba8unorm, write>, and a texture usable as a
// storage-write target also doubles as a TextureBinding for the
// native-buffer dispatch path, which samples a previously-allocated
// slot as its input.
func (b *wgpuBackend) AllocateOutputBuffer(size Size) (*NativeBuffer, error) {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "captured-output-slot",
		Size:          wgpu.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, corerr.Wrap(corerr.KindResourceExhausted, "gpu.backend_wgpu.allocate_output_buffer", err)
	}

	view, err := b.device.CreateTextureView(texture, nil)
	if err != nil {
		texture.Release()
		return nil, corerr.Wrap(corerr.KindResourceExhausted, "gpu.backend_wgpu.allocate_output_buffer", err)
	}

	id := b.nextBufferID.Add(1)

	b.resMu.Lock()
	b.outputs[id] = &wgpuOutputResource{texture: texture, view: view}
	b.resMu.Unlock()

	return &NativeBuffer{id: id, size: size, format: FormatRGBA8}, nil
}

// FreeOutputBuffer releases buf's backing texture and view. Safe to
// call on a buffer this backend never allocated (e.g. a fake-backend
// buffer reused across a test helper); it is then a no-op.
func (b *wgpuBackend) FreeOutputBuffer(buf *NativeBuffer) {
	if buf == nil {
		return
	}

	b.resMu.Lock()
	res, ok := b.outputs[buf.id]
	delete(b.outputs, buf.id)
	b.resMu.Unlock()

	if !ok {
		return
	}
	res.view.Release()
	res.texture.Release()
}

func (b *wgpuBackend) outputResource(buf *NativeBuffer) (*wgpuOutputResource, error) {
	b.resMu.Lock()
	defer b.resMu.Unlock()

	res, ok := b.outputs[buf.ID()]
	if !ok {
		return nil, corerr.New(corerr.KindInvalidArgument, "gpu.backend_wgpu.output_resource", "native buffer was not allocated by this backend")
	}
	return res, nil
}

// DispatchBase runs the base kernel (spec.md §4.5 kernel 1): binds
// out's texture as the writable image and a placeholder input in place
// of externalTextureID's content (see below), dispatches ceil(out_w/16) x ceil(out_h/16) workgroups, and submits.
// wgpu.Queue.Submit blocks until the GPU finishes, so the returned
// fence is always already signaled (see Fence's package doc).
//
// This pack's wgpu binding has no DMA-BUF / external-texture import
// path (no ExternalTexture binding-layout type exists anywhere in the
// library) — externalTextureID therefore names a compositor-side
// texture this backend cannot actually attach. The input binding is
// filled with a zero-initialized placeholder texture of inSize so the
// kernel's bind group is satisfied and the rest of the pipeline (real
// pipeline, real bind group, real uniform upload, real output write)
// genuinely runs; see DESIGN.md for the disclosed gap this leaves.
func (b *wgpuBackend) DispatchBase(externalTextureID uint64, inSize Size, transform Transform4x4, out *NativeBuffer, outSize Size) (*Fence, error) {
	placeholder, placeholderView, err := b.newPlaceholderInputTexture(inSize)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch_base", err)
	}
	defer placeholder.Release()
	defer placeholderView.Release()

	outRes, err := b.outputResource(out)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidArgument, "gpu.backend_wgpu.dispatch_base", err)
	}

	uniforms := packBaseUniforms(transform, inSize, outSize)
	if err := b.dispatch(b.basePipeline, placeholderView, uniforms, outRes.view, outSize); err != nil {
		return nil, err
	}
	return signaledFence(), nil
}

// DispatchROI runs the ROI kernel (spec.md §4.5 kernel 2). Subject to
// the same external-texture placeholder-input caveat as DispatchBase.
func (b *wgpuBackend) DispatchROI(externalTextureID uint64, inSize Size, transform Transform4x4, roi ROI, out *NativeBuffer, outSize Size) (*Fence, error) {
	if !b.roiSupported {
		return nil, errROIUnavailable("gpu.backend_wgpu.dispatch_roi")
	}

	placeholder, placeholderView, err := b.newPlaceholderInputTexture(inSize)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch_roi", err)
	}
	defer placeholder.Release()
	defer placeholderView.Release()

	outRes, err := b.outputResource(out)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidArgument, "gpu.backend_wgpu.dispatch_roi", err)
	}

	uniforms := packROIUniforms(transform, inSize, outSize, roi)
	if err := b.dispatch(b.roiPipeline, placeholderView, uniforms, outRes.view, outSize); err != nil {
		return nil, err
	}
	return signaledFence(), nil
}

// DispatchNativeBuffer binds in's own texture view as a regular
// (non-external) sampled input, then runs the base kernel. Unlike DispatchBase/
// DispatchROI, in is a buffer this backend actually allocated (via
// AllocateOutputBuffer), so the input binding here is real GPU content,
// not a placeholder — this is the one dispatch path with a fully real
// input and output. No caller-supplied transform exists for this path,
// so the kernel runs with the identity transform.
func (b *wgpuBackend) DispatchNativeBuffer(in *NativeBuffer, inSize Size, out *NativeBuffer, outSize Size) (*Fence, error) {
	inRes, err := b.outputResource(in)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidArgument, "gpu.backend_wgpu.dispatch_native_buffer", err)
	}
	outRes, err := b.outputResource(out)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidArgument, "gpu.backend_wgpu.dispatch_native_buffer", err)
	}

	uniforms := packBaseUniforms(identityTransform(), inSize, outSize)
	if err := b.dispatch(b.basePipeline, inRes.view, uniforms, outRes.view, outSize); err != nil {
		return nil, err
	}
	return signaledFence(), nil
}

// newPlaceholderInputTexture allocates a throwaway, zero-initialized
// texture of size sized to stand in for a real external-texture import
// (see DispatchBase's doc comment). Released by the caller immediately
// after the dispatch it served.
func (b *wgpuBackend) newPlaceholderInputTexture(size Size) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "captured-external-texture-placeholder",
		Size:          wgpu.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, err
	}

	view, err := b.device.CreateTextureView(texture, nil)
	if err != nil {
		texture.Release()
		return nil, nil, err
	}

	return texture, view, nil
}

// dispatch uploads uniformData, binds inView/outView/b.sampler/the
// uniform buffer into a bind group, and records+submits one compute
// pass over pipeline. Queue.Submit blocks until the GPU has finished
// (see Fence's package doc), so by the time dispatch returns, outView
// holds the kernel's real output.
func (b *wgpuBackend) dispatch(pipeline *wgpu.ComputePipeline, inView *wgpu.TextureView, uniformData []byte, outView *wgpu.TextureView, outSize Size) error {
	uniformBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "captured-preprocess-uniforms",
		Size:  uint64(len(uniformData)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}
	defer uniformBuf.Release()

	if err := b.device.Queue().WriteBuffer(uniformBuf, 0, uniformData); err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "captured-preprocess-bg",
		Layout: b.bgLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: inView},
			{Binding: 1, Sampler: b.sampler},
			{Binding: 2, TextureView: outView},
			{Binding: 3, Buffer: uniformBuf, Size: uint64(len(uniformData))},
		},
	})
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "captured-preprocess"})
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}

	pass, err := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "captured-preprocess-pass"})
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)

	groupsX := (outSize.Width + workgroupSize - 1) / workgroupSize
	groupsY := (outSize.Height + workgroupSize - 1) / workgroupSize
	pass.Dispatch(groupsX, groupsY, 1)

	if err := pass.End(); err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}

	cmdBuffer, err := encoder.Finish()
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}

	if err := b.device.Queue().Submit(cmdBuffer); err != nil {
		return corerr.Wrap(corerr.KindInternal, "gpu.backend_wgpu.dispatch", err)
	}
	return nil
}

// SupportsROI reports whether the ROI kernel compiled successfully.
func (b *wgpuBackend) SupportsROI() bool {
	return b.roiSupported
}

// Close tears down the device/adapter/instance chain. Called at
// pipeline shutdown.
func (b *wgpuBackend) Close() {
	b.resMu.Lock()
	for id, res := range b.outputs {
		res.view.Release()
		res.texture.Release()
		delete(b.outputs, id)
	}
	b.resMu.Unlock()

	if b.sampler != nil {
		b.sampler.Release()
	}
	if b.basePipeline != nil {
		b.basePipeline.Release()
	}
	if b.roiPipeline != nil {
		b.roiPipeline.Release()
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
	}
	if b.bgLayout != nil {
		b.bgLayout.Release()
	}
	if b.baseModule != nil {
		b.baseModule.Release()
	}
	if b.roiModule != nil {
		b.roiModule.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// identityTransform returns the 4x4 identity matrix in the column-major
// layout Transform4x4 and the WGSL mat4x4<f32> binding both expect.
func identityTransform() Transform4x4 {
	return Transform4x4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// packBaseUniforms encodes base.wgsl's Uniforms struct
// (transform: mat4x4<f32>, in_size: vec2<f32>, out_size: vec2<f32>) as
// its std140-compatible byte layout: 64 bytes of matrix, then two
// 8-byte vec2s, 80 bytes total.
func packBaseUniforms(transform Transform4x4, inSize, outSize Size) []byte {
	buf := make([]byte, 80)
	putFloats(buf[0:64], transform[:]...)
	putFloats(buf[64:72], float32(inSize.Width), float32(inSize.Height))
	putFloats(buf[72:80], float32(outSize.Width), float32(outSize.Height))
	return buf
}

// packROIUniforms encodes roi.wgsl's Uniforms struct, which appends a
// roi: vec4<f32> after base.wgsl's layout, 96 bytes total.
func packROIUniforms(transform Transform4x4, inSize, outSize Size, roi ROI) []byte {
	buf := make([]byte, 96)
	putFloats(buf[0:64], transform[:]...)
	putFloats(buf[64:72], float32(inSize.Width), float32(inSize.Height))
	putFloats(buf[72:80], float32(outSize.Width), float32(outSize.Height))
	putFloats(buf[80:96], roi.X, roi.Y, roi.W, roi.H)
	return buf
}

// putFloats little-endian-encodes each value into successive 4-byte
// slots of dst, which must be exactly 4*len(values) bytes.
func putFloats(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

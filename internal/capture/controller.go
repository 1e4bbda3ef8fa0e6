package capture

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/capturecore/daemon/internal/bufferqueue"
	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/gpu"
)

// FrameControllerConfig carries the options AcquireFrame needs that
// are fixed at pipeline init (spec.md §6).
type FrameControllerConfig struct {
	FenceTimeout time.Duration
	ResizeFactor gpu.ResizeFactor

	// AllowDegradedTransform resolves the "degraded texture-consumer
	// mode transform" Open Question (spec.md §9) in favor of requiring
	// callers to opt in explicitly: if false and the consumer reports
	// Degraded(), AcquireFrame returns NotSupported instead of silently
	// handing back an identity-transform frame.
	AllowDegradedTransform bool
}

// FrameController is the single public acquire_frame()/release_frame()
// operation pair (spec.md §2, §4.6). It serializes GPU-context binding
// behind mu — the process-wide GPU-context mutex spec.md §5 requires —
// and never lets two acquires proceed concurrently.
type FrameController struct {
	mu sync.Mutex // process-wide GPU-context mutex (spec.md §5)

	consumer *bufferqueue.TextureConsumer
	ctx      *gpu.Context
	pre      *gpu.Preprocessor
	pool     *gpu.OutputBufferPool
	stats    *StatsRecorder

	cfg         FrameControllerConfig
	captureSize gpu.Size
	textureID   uint64

	frameCounter atomic.Uint64
}

// NewFrameController wires a consumer, GPU context, preprocessor, and
// output pool into one controller. captureSize is the capture
// pipeline's input resolution (physical display dimensions, or the
// configured custom override).
func NewFrameController(consumer *bufferqueue.TextureConsumer, textureID uint64, ctx *gpu.Context, pool *gpu.OutputBufferPool, captureSize gpu.Size, cfg FrameControllerConfig) *FrameController {
	return &FrameController{
		consumer:    consumer,
		ctx:         ctx,
		pre:         gpu.NewPreprocessor(ctx),
		pool:        pool,
		stats:       NewStatsRecorder(),
		cfg:         cfg,
		captureSize: captureSize,
		textureID:   textureID,
	}
}

// Stats returns the controller's StatsRecorder, for internal/service's
// GetStats() and the periodic status thread (spec.md §5).
func (fc *FrameController) Stats() *StatsRecorder {
	return fc.stats
}

// AcquireFrame is the single public operation callers use to obtain a
// frame (spec.md §4.6). It implements the 10-step algorithm exactly:
// auto-recovery release, advance with retry-at-2x-timeout, scoped GPU
// bind, pool rotation, preprocess dispatch, and result assembly — all
// under the process-wide GPU-context mutex.
func (fc *FrameController) AcquireFrame() (FrameResult, error) {
	start := time.Now()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if !fc.cfg.AllowDegradedTransform && fc.consumer.Degraded() {
		return FrameResult{}, corerr.New(corerr.KindNotSupported, "capture.acquire_frame",
			"texture consumer is running in degraded mode; set allow_degraded_transform to opt in")
	}

	// Step 2: auto-recovery — release any unreleased prior frame before
	// a new acquire, recording it as a dropped frame.
	if fc.consumer.Held() {
		fc.consumer.Release()
		fc.stats.RecordDrop()
		log.Warn("auto-released unreleased frame before new acquire")
	}

	// Step 3: advance with retry-once-at-2x-timeout.
	captureStart := time.Now()
	if _, err := fc.consumer.AdvanceWithTimeout(fc.cfg.FenceTimeout); err != nil {
		if _, err2 := fc.consumer.AdvanceWithTimeout(2 * fc.cfg.FenceTimeout); err2 != nil {
			return FrameResult{}, corerr.New(corerr.KindTimeout, "capture.acquire_frame",
				"no composited buffer within timeout, retried once at 2x")
		}
	}
	captureMs := float64(time.Since(captureStart).Microseconds()) / 1000.0

	// Step 5 (read ahead of step 4 so the values are available once the
	// scoped bind below succeeds): transform and timestamp are cached
	// on the consumer by Advance, not invalidated by the bind.
	transform := gpu.Transform4x4(fc.consumer.GetTransform())
	timestampNs := fc.consumer.GetTimestamp()

	// Step 6: rotate the pool.
	_, slot := fc.pool.Next()
	defer slot.Release()

	var preprocessMs float64
	var result *gpu.NativeBuffer
	var fence *gpu.Fence

	// Step 4 + 7: scoped-bind the GPU context and dispatch the kernel.
	bindErr := fc.ctx.BindScoped(func(backend gpu.ComputeBackend) error {
		preprocessStart := time.Now()
		out, f, err := fc.pre.Process(backend, fc.textureID, fc.captureSize, transform, slot.Buffer(), fc.cfg.ResizeFactor)
		preprocessMs = float64(time.Since(preprocessStart).Microseconds()) / 1000.0
		if err != nil {
			return err
		}
		result, fence = out, f
		return nil
	})
	if bindErr != nil {
		fc.consumer.TryRelease()
		// Step 7: release as in step 4 (done above) and return the
		// kernel's error unchanged if it's already classified (e.g. an
		// invalid resize factor or an output-size mismatch from the
		// preprocessor);
		// only a genuine bind failure — one that never reached the
		// preprocessor — gets wrapped as Internal here.
		if corerr.KindOf(bindErr) != corerr.KindUnknown {
			return FrameResult{}, bindErr
		}
		return FrameResult{}, corerr.Wrap(corerr.KindInternal, "capture.acquire_frame", bindErr)
	}

	// Step 8: assemble the result.
	frameNumber := fc.frameCounter.Add(1) - 1
	totalMs := float64(time.Since(start).Microseconds()) / 1000.0
	fc.stats.RecordFrame(captureMs, preprocessMs)

	return FrameResult{
		Output:       result,
		Fence:        fence,
		Width:        result.Size().Width,
		Height:       result.Size().Height,
		Format:       result.Format(),
		TimestampNs:  timestampNs,
		FrameNumber:  frameNumber,
		CaptureMs:    captureMs,
		PreprocessMs: preprocessMs,
		TotalMs:      totalMs,
	}, nil
	// Step 9 (mutex release) happens via the deferred fc.mu.Unlock above.
}

// ReleaseFrame returns the consumer's held buffer to the queue
// (spec.md §4.6's release_frame). CAS-guarded: concurrent releases are
// safe, and only the caller that wins the CAS performs the underlying
// transition (spec.md §5's ordering guarantee). Calling it when
// nothing is held, or a second time for the same frame, is a no-op
// per spec.md §8's idempotence law.
func (fc *FrameController) ReleaseFrame() {
	fc.consumer.TryRelease()
}

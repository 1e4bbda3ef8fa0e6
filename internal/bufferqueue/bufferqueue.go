// Package bufferqueue implements BufferQueue and TextureConsumer: the
// producer/consumer buffer pair that connects a DisplayGateway to the
// GPU preprocessor, plus the degraded direct-consumer fallback used
// when the platform lacks full buffer-queue support. The consumer's
// held state is a single atomic.Bool; the package keeps no buffer pool.
package bufferqueue

import (
	"sync/atomic"
	"time"

	"github.com/capturecore/daemon/internal/corerr"
)

// Transform is the cached 4x4 column-major transform matrix
// TextureConsumer exposes per spec.md §3.
type Transform [16]float32

// Identity returns the identity transform, used for scenario 1 (cold
// start, degraded mode) per spec.md §8.
func Identity() Transform {
	var t Transform
	t[0], t[5], t[10], t[15] = 1, 1, 1, 1
	return t
}

// ProducerHandle is the opaque handle DisplayGateway attaches a
// display's surface producer to.
type ProducerHandle struct {
	textureID uint64
}

// ConsumerHandle is the opaque handle TextureConsumer wraps.
type ConsumerHandle struct {
	textureID uint64
}

// TextureID returns the external-sampler texture name this handle is
// bound to, the identifier GpuPreprocessor.Process binds as its
// external sampler (spec.md §4.5).
func (h ConsumerHandle) TextureID() uint64 {
	return h.textureID
}

// Queue models BufferQueue.create(): a producer/consumer pair sharing
// one external-sampler texture name, persistent over the pipeline
// lifetime.
type Queue struct {
	textureID uint64
}

var nextTextureID uint64

// Create constructs a new producer/consumer pair.
func Create() *Queue {
	id := atomic.AddUint64(&nextTextureID, 1)
	return &Queue{textureID: id}
}

// Producer returns the handle DisplayGateway's attach_producer uses.
func (q *Queue) Producer() ProducerHandle {
	return ProducerHandle{textureID: q.textureID}
}

// Consumer returns the handle TextureConsumer wraps.
func (q *Queue) Consumer() ConsumerHandle {
	return ConsumerHandle{textureID: q.textureID}
}

// FrameSource abstracts "pull the latest composited buffer" so tests
// can exercise TextureConsumer without a real compositor. The
// interface-segregation pattern matches the teacher's
// ScreenCapturer/BGRAProvider testability seam.
type FrameSource interface {
	// Latest returns the most recent frame's transform and production
	// timestamp (nanoseconds), or ok=false if nothing is ready yet.
	Latest() (transform Transform, timestampNs int64, ok bool)
}

// TextureConsumer wraps the consumer side of a Queue (spec.md §3,
// TextureConsumerState). held is a sync/atomic.Bool CAS so advance()
// and release() can race-detect a double-acquire without a mutex of
// their own; callers still take FrameController's GPU-context mutex
// around the whole acquire/release cycle per spec.md §5.
type TextureConsumer struct {
	handle ConsumerHandle
	source FrameSource

	held      atomic.Bool
	transform Transform
	timestamp int64

	degraded bool
}

// NewTextureConsumer wraps handle, pulling frames from source.
// degraded marks the consumer as running in the direct-consumer
// fallback mode (spec.md §8 scenario 1, platforms without full buffer
// queue support).
func NewTextureConsumer(handle ConsumerHandle, source FrameSource, degraded bool) *TextureConsumer {
	return &TextureConsumer{handle: handle, source: source, degraded: degraded}
}

// Degraded reports whether this consumer is running the direct-
// consumer fallback. Per the "stronger choice" Open Question
// resolution (DESIGN.md), callers must check this explicitly rather
// than trust an identity transform silently: in degraded mode advance()
// always reports the identity transform because no compositor
// transform is available.
func (c *TextureConsumer) Degraded() bool {
	return c.degraded
}

// Advance acquires the latest composited buffer. If a buffer is
// already held, it auto-releases the previous one first (recoverable
// per spec.md §3) rather than corrupting the queue, and reports that
// via the returned autoReleased flag.
func (c *TextureConsumer) Advance() (autoReleased bool, err error) {
	if !c.held.CompareAndSwap(false, true) {
		autoReleased = true
		c.held.Store(true) // already true; re-affirm after the auto-release decision
	}

	if c.degraded {
		c.transform = Identity()
		c.timestamp = time.Now().UnixNano()
		return autoReleased, nil
	}

	transform, ts, ok := c.source.Latest()
	if !ok {
		c.held.Store(false)
		return autoReleased, corerr.New(corerr.KindTimeout, "bufferqueue.advance", "no composited buffer ready")
	}
	c.transform = transform
	c.timestamp = ts
	return autoReleased, nil
}

// AdvanceWithTimeout polls Advance with exponential backoff starting
// at 1ms and capping at 16ms, per spec.md §4.3, until deadline elapses.
func (c *TextureConsumer) AdvanceWithTimeout(deadline time.Duration) (autoReleased bool, err error) {
	backoff := time.Millisecond
	const maxBackoff = 16 * time.Millisecond
	start := time.Now()

	for {
		autoReleased, err = c.Advance()
		if err == nil {
			return autoReleased, nil
		}
		if time.Since(start) >= deadline {
			return autoReleased, corerr.Wrap(corerr.KindTimeout, "bufferqueue.advance_with_timeout", err)
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// Release returns the held buffer to the queue. Releasing when
// nothing is held is a no-op.
func (c *TextureConsumer) Release() {
	c.held.Store(false)
}

// TryRelease CAS-transitions held from true to false and reports
// whether this call won the race, per spec.md §4.6's release_frame
// contract: "compare-and-swap held true→false; on success, call
// consumer.release(); concurrent releases are safe; only the thread
// that wins the CAS performs the underlying call." FrameController
// uses this instead of Release so that two concurrent ReleaseFrame
// calls for the same frame cannot both perform the underlying return.
func (c *TextureConsumer) TryRelease() bool {
	return c.held.CompareAndSwap(true, false)
}

// GetTransform returns the cached transform from the last Advance.
func (c *TextureConsumer) GetTransform() Transform {
	return c.transform
}

// GetTimestamp returns the last acquired frame's production timestamp.
func (c *TextureConsumer) GetTimestamp() int64 {
	return c.timestamp
}

// Held reports whether a buffer is currently held, for tests and
// StatsRecorder diagnostics.
func (c *TextureConsumer) Held() bool {
	return c.held.Load()
}

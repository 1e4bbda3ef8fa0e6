package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/capturecore/daemon/internal/bufferqueue"
	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/gpu"
)

type alwaysReadySource struct {
	transform bufferqueue.Transform
	ts        int64
}

func (s *alwaysReadySource) Latest() (bufferqueue.Transform, int64, bool) {
	return s.transform, s.ts, true
}

func newTestController(t *testing.T, captureSize gpu.Size, resize gpu.ResizeFactor, degraded bool, allowDegraded bool) *FrameController {
	t.Helper()
	backend := newFakeBackend(true)
	ctx := gpu.NewContext(backend)
	outSize := captureSize.DivideBy(int(resize))
	pool, err := gpu.NewOutputBufferPool(backend, 2, outSize, gpu.FormatRGBA8)
	if err != nil {
		t.Fatalf("NewOutputBufferPool: %v", err)
	}

	queue := bufferqueue.Create()
	src := &alwaysReadySource{transform: bufferqueue.Identity(), ts: 1234}
	consumer := bufferqueue.NewTextureConsumer(queue.Consumer(), src, degraded)

	textureID := queue.Consumer().TextureID()
	return NewFrameController(consumer, textureID, ctx, pool, captureSize, FrameControllerConfig{
		FenceTimeout:           50 * time.Millisecond,
		ResizeFactor:           resize,
		AllowDegradedTransform: allowDegraded,
	})
}

// TestScenario1_ColdStartDegradedMode mirrors spec.md §8 Scenario 1:
// cold start on an older platform resolves to the degraded
// direct-consumer path; the first acquire returns frame_number 0 at
// full resolution.
func TestScenario1_ColdStartDegradedMode(t *testing.T) {
	captureSize := gpu.Size{Width: 1080, Height: 1920}
	fc := newTestController(t, captureSize, gpu.ResizeFull, true, true)

	result, err := fc.AcquireFrame()
	if err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	if result.FrameNumber != 0 {
		t.Fatalf("FrameNumber = %d, want 0", result.FrameNumber)
	}
	if result.Width != captureSize.Width || result.Height != captureSize.Height {
		t.Fatalf("dimensions = %dx%d, want %dx%d", result.Width, result.Height, captureSize.Width, captureSize.Height)
	}
}

// TestDegradedModeRequiresOptIn resolves the "degraded texture-consumer
// mode transform" Open Question per DESIGN.md: callers must opt in.
func TestDegradedModeRequiresOptIn(t *testing.T) {
	fc := newTestController(t, gpu.Size{Width: 640, Height: 480}, gpu.ResizeFull, true, false)

	_, err := fc.AcquireFrame()
	if corerr.KindOf(err) != corerr.KindNotSupported {
		t.Fatalf("expected KindNotSupported without opt-in, got %v", err)
	}
}

// TestScenario2_HalfResolution mirrors spec.md §8 Scenario 2.
func TestScenario2_HalfResolution(t *testing.T) {
	captureSize := gpu.Size{Width: 1080, Height: 2400}
	fc := newTestController(t, captureSize, gpu.ResizeHalf, false, false)

	result, err := fc.AcquireFrame()
	if err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	if result.Width != 540 || result.Height != 1200 {
		t.Fatalf("dimensions = %dx%d, want 540x1200", result.Width, result.Height)
	}
}

// TestScenario5_ConcurrentAcquireRelease mirrors spec.md §8 Scenario
// 5: 4 threads x 1000 acquire+release pairs, expect 4000 distinct
// frame numbers 0..3999, held == false at the end, no crashes.
func TestScenario5_ConcurrentAcquireRelease(t *testing.T) {
	const goroutines = 4
	const perGoroutine = 1000

	fc := newTestController(t, gpu.Size{Width: 256, Height: 256}, gpu.ResizeFull, false, false)

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				result, err := fc.AcquireFrame()
				if err != nil {
					t.Errorf("AcquireFrame: %v", err)
					return
				}
				mu.Lock()
				if seen[result.FrameNumber] {
					t.Errorf("frame number %d observed twice", result.FrameNumber)
				}
				seen[result.FrameNumber] = true
				mu.Unlock()
				fc.ReleaseFrame()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("got %d distinct frame numbers, want %d", len(seen), goroutines*perGoroutine)
	}
	for i := uint64(0); i < goroutines*perGoroutine; i++ {
		if !seen[i] {
			t.Fatalf("frame number %d missing from the dense 0..%d sequence", i, goroutines*perGoroutine-1)
		}
	}
	if fc.consumer.Held() {
		t.Fatal("held should be false after every acquire was released")
	}
}

// TestScenario6_DownstreamStalls mirrors spec.md §8 Scenario 6: two
// acquires without releasing, released LIFO; rotation continues
// regardless of release order, and a third acquire uses slot 0 again.
func TestScenario6_DownstreamStalls(t *testing.T) {
	fc := newTestController(t, gpu.Size{Width: 128, Height: 128}, gpu.ResizeFull, false, false)

	first, err := fc.AcquireFrame()
	if err != nil {
		t.Fatalf("first AcquireFrame: %v", err)
	}
	second, err := fc.AcquireFrame()
	if err != nil {
		t.Fatalf("second AcquireFrame: %v", err)
	}
	if first.FrameNumber != 0 || second.FrameNumber != 1 {
		t.Fatalf("frame numbers = %d, %d, want 0, 1", first.FrameNumber, second.FrameNumber)
	}

	// Release LIFO.
	fc.ReleaseFrame()
	fc.ReleaseFrame()

	third, err := fc.AcquireFrame()
	if err != nil {
		t.Fatalf("third AcquireFrame: %v", err)
	}
	if third.FrameNumber != 2 {
		t.Fatalf("third FrameNumber = %d, want 2", third.FrameNumber)
	}
	if third.Output != first.Output {
		t.Fatal("third acquire (slot 0 again, N=2) should reuse the first acquire's output buffer")
	}
}

// TestHeldReleasedPairing is the spec.md §8 invariant 3 check.
func TestHeldReleasedPairing(t *testing.T) {
	fc := newTestController(t, gpu.Size{Width: 64, Height: 64}, gpu.ResizeFull, false, false)

	for i := 0; i < 10; i++ {
		if _, err := fc.AcquireFrame(); err != nil {
			t.Fatalf("AcquireFrame: %v", err)
		}
		fc.ReleaseFrame()
	}
	if fc.consumer.Held() {
		t.Fatal("held should be false after every acquire was eventually released")
	}
}

// TestReleaseFrameIdempotent is the spec.md §8 round-trip law.
func TestReleaseFrameIdempotent(t *testing.T) {
	fc := newTestController(t, gpu.Size{Width: 64, Height: 64}, gpu.ResizeFull, false, false)
	fc.ReleaseFrame()
	fc.ReleaseFrame()
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/capturecore/daemon/internal/bufferqueue"
	"github.com/capturecore/daemon/internal/capture"
	"github.com/capturecore/daemon/internal/gpu"
)

type alwaysReadySource struct{}

func (alwaysReadySource) Latest() (bufferqueue.Transform, int64, bool) {
	return bufferqueue.Identity(), 1, true
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	backend := &fakeBackend{}
	ctx := gpu.NewContext(backend)
	captureSize := gpu.Size{Width: 640, Height: 480}
	pool, err := gpu.NewOutputBufferPool(backend, 2, captureSize, gpu.FormatRGBA8)
	if err != nil {
		t.Fatalf("NewOutputBufferPool: %v", err)
	}

	queue := bufferqueue.Create()
	consumer := bufferqueue.NewTextureConsumer(queue.Consumer(), alwaysReadySource{}, false)

	fc := capture.NewFrameController(consumer, queue.Consumer().TextureID(), ctx, pool, captureSize, capture.FrameControllerConfig{
		FenceTimeout: 50 * time.Millisecond,
		ResizeFactor: gpu.ResizeFull,
	})
	return New(fc)
}

func TestRequestFrame_AssignsIncrementingBufferIDs(t *testing.T) {
	svc := newTestService(t)

	r1, err := svc.RequestFrame(context.Background(), RequestOptions{})
	if err != nil {
		t.Fatalf("RequestFrame: %v", err)
	}
	if err := svc.ReleaseFrame(r1.BufferID); err != nil {
		t.Fatalf("ReleaseFrame: %v", err)
	}

	r2, err := svc.RequestFrame(context.Background(), RequestOptions{})
	if err != nil {
		t.Fatalf("RequestFrame: %v", err)
	}
	if r2.BufferID != r1.BufferID+1 {
		t.Fatalf("buffer ids = %d, %d, want consecutive increasing ids", r1.BufferID, r2.BufferID)
	}
}

func TestReleaseFrame_UnknownIDIsNoop(t *testing.T) {
	svc := newTestService(t)
	if err := svc.ReleaseFrame(9999); err != nil {
		t.Fatalf("ReleaseFrame on unknown id should be a no-op, got %v", err)
	}
}

func TestRequestFrame_RejectsCanceledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.RequestFrame(ctx, RequestOptions{}); err == nil {
		t.Fatal("expected an error for an already-canceled context")
	}
}

func TestGetStats_ReflectsAcquiredFrames(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.RequestFrame(context.Background(), RequestOptions{}); err != nil {
		t.Fatalf("RequestFrame: %v", err)
	}

	stats := svc.GetStats()
	if stats.TotalFrames != 1 {
		t.Fatalf("TotalFrames = %d, want 1", stats.TotalFrames)
	}
}

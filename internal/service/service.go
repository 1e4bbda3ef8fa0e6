// Package service is the seam described in spec.md §6: a thin,
// Go-native adapter exposing exactly RequestFrame, ReleaseFrame, and
// GetStats as method calls — not a wire codec, which remains an
// explicit Non-goal. An IPC transport implemented elsewhere in the
// daemon calls into this package; none is implemented here.
package service

import (
	"context"
	"sync"

	"github.com/capturecore/daemon/internal/capture"
	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/logging"
)

var log = logging.L("service")

// Service assigns the monotonic u32 buffer ids spec.md §6 describes
// ("a buffer id is assigned by the core on each acquire") and maps
// them back to the controller's release path.
type Service struct {
	fc *capture.FrameController

	mu      sync.Mutex
	nextID  uint32
	pending map[uint32]struct{}
}

// New wraps fc, the process's single FrameController.
func New(fc *capture.FrameController) *Service {
	return &Service{fc: fc, pending: make(map[uint32]struct{})}
}

// RequestOptions carries per-call overrides. It is empty today: every
// acquire-time option (resize factor, degraded opt-in, fence timeout)
// is fixed at pipeline init per spec.md §6, not per request. It exists
// so a future per-request override does not change this method's
// signature.
type RequestOptions struct{}

// RequestFrame calls FrameController.AcquireFrame and assigns the
// result a buffer id for the caller to later pass to ReleaseFrame. ctx
// is checked once on entry; a cancellation after that point does not
// interrupt the call, and AcquireFrame itself runs to completion once
// started, per spec.md §4.6's uninterruptible 10-step algorithm.
func (s *Service) RequestFrame(ctx context.Context, _ RequestOptions) (capture.FrameResult, error) {
	if err := ctx.Err(); err != nil {
		return capture.FrameResult{}, corerr.Wrap(corerr.KindTimeout, "service.request_frame", err)
	}

	result, err := s.fc.AcquireFrame()
	if err != nil {
		return capture.FrameResult{}, err
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = struct{}{}
	s.mu.Unlock()

	result.BufferID = id
	return result, nil
}

// ReleaseFrame is idempotent: unknown or already-released ids return
// success without effect (spec.md §6).
func (s *Service) ReleaseFrame(bufferID uint32) error {
	s.mu.Lock()
	_, known := s.pending[bufferID]
	delete(s.pending, bufferID)
	s.mu.Unlock()

	if !known {
		log.Debug("release_frame for unknown or already-released buffer id", "buffer_id", bufferID)
		return nil
	}

	s.fc.ReleaseFrame()
	return nil
}

// GetStats returns a snapshot of the controller's rolling statistics.
func (s *Service) GetStats() capture.Stats {
	return s.fc.Stats().Snapshot()
}

package capture

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of StatsRecorder (spec.md §4.6):
// total frames, FPS over the last second, per-stage latency min/max/avg,
// dropped frames, and the recorder's start time.
type Stats struct {
	TotalFrames   uint64
	DroppedFrames uint64
	FPS           float64
	StartedAt     time.Time

	CaptureMsMin, CaptureMsMax, CaptureMsAvg       float64
	PreprocessMsMin, PreprocessMsMax, PreprocessMsAvg float64
}

// sample is one completed acquire_frame()'s timing, kept in a 1-second
// sliding window for the FPS calculation.
type sample struct {
	at           time.Time
	captureMs    float64
	preprocessMs float64
}

// StatsRecorder accumulates rolling throughput/latency statistics
// under its own lock, distinct from FrameController's GPU-context
// mutex (spec.md §5: "guarded by a separate lock... so a stats reader
// cannot stall acquires").
type StatsRecorder struct {
	mu sync.Mutex

	startedAt     time.Time
	totalFrames   uint64
	droppedFrames uint64
	window        []sample

	captureMin, captureMax, captureSum       float64
	preprocessMin, preprocessMax, preprocessSum float64
}

// NewStatsRecorder returns a recorder started at the current time.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{startedAt: time.Now()}
}

// RecordFrame accounts for one successfully completed acquire_frame().
func (s *StatsRecorder) RecordFrame(captureMs, preprocessMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFrames++
	s.accumulate(captureMs, preprocessMs)

	now := time.Now()
	s.window = append(s.window, sample{at: now, captureMs: captureMs, preprocessMs: preprocessMs})
	s.trimWindow(now)
}

func (s *StatsRecorder) accumulate(captureMs, preprocessMs float64) {
	if s.totalFrames == 1 {
		s.captureMin, s.captureMax = captureMs, captureMs
		s.preprocessMin, s.preprocessMax = preprocessMs, preprocessMs
	} else {
		if captureMs < s.captureMin {
			s.captureMin = captureMs
		}
		if captureMs > s.captureMax {
			s.captureMax = captureMs
		}
		if preprocessMs < s.preprocessMin {
			s.preprocessMin = preprocessMs
		}
		if preprocessMs > s.preprocessMax {
			s.preprocessMax = preprocessMs
		}
	}
	s.captureSum += captureMs
	s.preprocessSum += preprocessMs
}

// trimWindow drops samples older than one second; caller holds mu.
func (s *StatsRecorder) trimWindow(now time.Time) {
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(s.window) && s.window[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.window = s.window[i:]
	}
}

// RecordDrop accounts for one frame dropped by the auto-recovery path
// (spec.md §4.6 step 2, and the "N-slots-exhausted" Open Question
// resolution's silent oldest-slot reuse).
func (s *StatsRecorder) RecordDrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedFrames++
}

// Snapshot returns the current Stats, recomputing the 1-second FPS
// window.
func (s *StatsRecorder) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trimWindow(time.Now())

	snap := Stats{
		TotalFrames:   s.totalFrames,
		DroppedFrames: s.droppedFrames,
		FPS:           float64(len(s.window)),
		StartedAt:     s.startedAt,
	}
	if s.totalFrames > 0 {
		snap.CaptureMsMin, snap.CaptureMsMax = s.captureMin, s.captureMax
		snap.CaptureMsAvg = s.captureSum / float64(s.totalFrames)
		snap.PreprocessMsMin, snap.PreprocessMsMax = s.preprocessMin, s.preprocessMax
		snap.PreprocessMsAvg = s.preprocessSum / float64(s.totalFrames)
	}
	return snap
}

// Reset clears and restarts the recorder, per spec.md §4.6 ("the
// recorder clears and restarts on explicit reset").
func (s *StatsRecorder) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startedAt = time.Now()
	s.totalFrames = 0
	s.droppedFrames = 0
	s.window = nil
	s.captureMin, s.captureMax, s.captureSum = 0, 0, 0
	s.preprocessMin, s.preprocessMax, s.preprocessSum = 0, 0, 0
}

package config

import (
	"fmt"
)

var validResolutions = map[Resolution]bool{
	ResolutionFull:    true,
	ResolutionHalf:    true,
	ResolutionQuarter: true,
}

var validModes = map[CaptureMode]bool{
	ModeAuto:          true,
	ModeBufferQueue:   true,
	ModeDirectCapture: true,
	ModeFallback:      true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks the config for invalid values and returns all errors
// found. Dangerous zero-values that would violate the spec's minimums
// (N >= 2 output buffers, a positive fence timeout) are clamped to safe
// defaults rather than left to panic deep inside the pipeline.
func (c *Config) Validate() []error {
	var errs []error

	if c.CompositorLibrary == "" {
		errs = append(errs, fmt.Errorf("compositor_library must not be empty"))
	}

	if c.Resolution == "" {
		c.Resolution = ResolutionFull
	} else if !validResolutions[c.Resolution] {
		errs = append(errs, fmt.Errorf("resolution %q is not one of full, half, quarter", c.Resolution))
		c.Resolution = ResolutionFull
	}

	if c.Mode == "" {
		c.Mode = ModeAuto
	} else if !validModes[c.Mode] {
		errs = append(errs, fmt.Errorf("mode %q is not one of auto, buffer_queue, direct_capture, fallback", c.Mode))
		c.Mode = ModeAuto
	}

	if c.OutputBufferCount < 2 {
		errs = append(errs, fmt.Errorf("output_buffer_count %d is below minimum 2, clamping", c.OutputBufferCount))
		c.OutputBufferCount = 2
	}

	if c.FenceTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("fence_timeout_ms %d must be positive, clamping to 80", c.FenceTimeoutMs))
		c.FenceTimeoutMs = 80
	}

	if c.HelperTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("helper_timeout_ms %d must be positive, clamping to 5000", c.HelperTimeoutMs))
		c.HelperTimeoutMs = 5000
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return errs
}

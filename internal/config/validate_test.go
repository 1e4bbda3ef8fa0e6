package config

import (
	"strings"
	"testing"
)

func TestValidateClampsOutputBufferCountBelowMinimum(t *testing.T) {
	cfg := Default()
	cfg.OutputBufferCount = 1
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected a warning for output_buffer_count below minimum")
	}
	if cfg.OutputBufferCount != 2 {
		t.Fatalf("OutputBufferCount = %d, want 2 (clamped)", cfg.OutputBufferCount)
	}
}

func TestValidateClampsNonPositiveFenceTimeout(t *testing.T) {
	cfg := Default()
	cfg.FenceTimeoutMs = 0
	cfg.Validate()
	if cfg.FenceTimeoutMs != 80 {
		t.Fatalf("FenceTimeoutMs = %d, want 80 (clamped)", cfg.FenceTimeoutMs)
	}
}

func TestValidateRejectsUnknownResolution(t *testing.T) {
	cfg := Default()
	cfg.Resolution = "ultra"
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "resolution") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected error mentioning resolution")
	}
	if cfg.Resolution != ResolutionFull {
		t.Fatalf("Resolution = %q, want fallback to full", cfg.Resolution)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = "teleport"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for unknown mode")
	}
	if cfg.Mode != ModeAuto {
		t.Fatalf("Mode = %q, want fallback to auto", cfg.Mode)
	}
}

func TestValidateRejectsEmptyCompositorLibrary(t *testing.T) {
	cfg := Default()
	cfg.CompositorLibrary = ""
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "compositor_library") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected error about empty compositor_library")
	}
}

func TestValidDefaultConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config has errors: %v", errs)
	}
}

// Package platform detects the host compositor platform version and
// derives a stable capability enum from it. ABI variant selection
// throughout the symbol resolver (internal/symbolscan, internal/abi)
// keys off the Version this package reports, the same way the
// reference daemon's collectors derive a normalized OS/version string
// from gopsutil/v3 rather than parsing uname output by hand.
package platform

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Version is a platform generation ordinal. ABI variant ranges in
// internal/symbolscan are expressed as [min, max] Version bounds.
type Version int

const (
	// VersionUnknown means probing failed. It lies below every ABI
	// variant's range, so variant resolution fails closed with
	// PrivateApiUnavailable rather than guessing a generation.
	VersionUnknown Version = 0
	VersionOldest  Version = 30 // "R" generation
	VersionMid     Version = 31 // "S" generation
	VersionNewest  Version = 33 // "T" generation
)

// Capability is a feature bit derived from the probed platform version,
// independent of which ABI variant eventually resolves.
type Capability int

const (
	// CapBufferQueueConsumer means the full producer/consumer buffer
	// queue path is available; below this generation only the
	// degraded direct-consumer path works (spec scenario 1).
	CapBufferQueueConsumer Capability = 1 << iota
	// CapDisplayProjection means configure_projection's full argument
	// set (exclusive flag, explicit refresh rate) is honored.
	CapDisplayProjection
	// CapROIPreprocess means the GPU preprocessor's ROI/letterbox
	// kernel is known to be exercised correctly on this generation.
	CapROIPreprocess
)

// Info is the result of a platform probe.
type Info struct {
	Version      Version
	OS           string
	Platform     string
	PlatformVer  string
	KernelVer    string
	Architecture string
	Capabilities Capability
}

// Has reports whether the probed platform exposes cap.
func (i Info) Has(cap Capability) bool {
	return i.Capabilities&cap != 0
}

// Probe detects the host platform version and returns its capability
// set. It never returns an error: an unreadable host falls back to
// VersionUnknown, which matches no ABI variant (create_display
// resolution then fails with PrivateApiUnavailable), rather than
// aborting the probe.
func Probe() Info {
	info := Info{
		Version:      VersionUnknown,
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	hostInfo, err := host.Info()
	if err != nil {
		return withCapabilities(info)
	}

	info.Platform = hostInfo.Platform
	info.PlatformVer = hostInfo.PlatformVersion
	info.KernelVer = hostInfo.KernelVersion
	info.Version = parseVersion(hostInfo.PlatformVersion, hostInfo.KernelVersion)

	return withCapabilities(info)
}

func withCapabilities(info Info) Info {
	switch {
	case info.Version >= VersionNewest:
		info.Capabilities = CapBufferQueueConsumer | CapDisplayProjection | CapROIPreprocess
	case info.Version >= VersionMid:
		info.Capabilities = CapBufferQueueConsumer | CapDisplayProjection
	case info.Version >= VersionOldest:
		info.Capabilities = 0
	default:
		info.Capabilities = 0
	}
	return info
}

// parseVersion extracts a leading major-version ordinal from a
// PlatformVersion string like "13" or "13.0.0", falling back to the
// kernel version string when the platform version is unusable. Any
// value it cannot parse resolves to VersionUnknown rather than a
// guessed generation, so callers fail closed.
func parseVersion(platformVersion, kernelVersion string) Version {
	if v, ok := leadingInt(platformVersion); ok {
		return Version(v)
	}
	if v, ok := leadingInt(kernelVersion); ok {
		return Version(v)
	}
	return VersionUnknown
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

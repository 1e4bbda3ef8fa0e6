package platform

import "testing"

func TestLeadingIntParsesMajorVersion(t *testing.T) {
	v, ok := leadingInt("13.0.0")
	if !ok || v != 13 {
		t.Fatalf("leadingInt(13.0.0) = %d, %v, want 13, true", v, ok)
	}
}

func TestLeadingIntRejectsNonNumeric(t *testing.T) {
	if _, ok := leadingInt("unknown"); ok {
		t.Fatal("leadingInt should reject a non-numeric string")
	}
	if _, ok := leadingInt(""); ok {
		t.Fatal("leadingInt should reject an empty string")
	}
}

func TestParseVersionFallsBackToKernelVersion(t *testing.T) {
	if v := parseVersion("", "31-generic"); v != VersionMid {
		t.Fatalf("parseVersion fallback = %v, want VersionMid", v)
	}
}

func TestParseVersionUnknownWhenBothUnparseable(t *testing.T) {
	if v := parseVersion("n/a", "n/a"); v != VersionUnknown {
		t.Fatalf("parseVersion = %v, want VersionUnknown", v)
	}
}

func TestWithCapabilitiesGatesByGeneration(t *testing.T) {
	cases := []struct {
		version Version
		want    Capability
	}{
		{VersionOldest, 0},
		{VersionMid, CapBufferQueueConsumer | CapDisplayProjection},
		{VersionNewest, CapBufferQueueConsumer | CapDisplayProjection | CapROIPreprocess},
	}
	for _, c := range cases {
		info := withCapabilities(Info{Version: c.version})
		if info.Capabilities != c.want {
			t.Fatalf("version %v: capabilities = %v, want %v", c.version, info.Capabilities, c.want)
		}
	}
}

func TestHasChecksIndividualBit(t *testing.T) {
	info := Info{Capabilities: CapBufferQueueConsumer}
	if !info.Has(CapBufferQueueConsumer) {
		t.Fatal("Has should report the set bit")
	}
	if info.Has(CapROIPreprocess) {
		t.Fatal("Has should not report an unset bit")
	}
}

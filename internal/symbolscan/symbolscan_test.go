package symbolscan

import "testing"

func TestProbeReturnsDeviceNotFoundForMissingLibrary(t *testing.T) {
	_, err := Probe("libdoes-not-exist-anywhere.so")
	if err == nil {
		t.Fatal("expected an error for a library that exists nowhere")
	}
}

func TestScanRejectsInvalidPattern(t *testing.T) {
	img := &LibraryImage{Name: "libfoo.so", DiskPath: "/nonexistent/libfoo.so"}
	_, err := Scan(img, "(unterminated[")
	if err == nil {
		t.Fatal("expected an error for an invalid regexp pattern")
	}
}

func TestScanReturnsErrorWhenImageHasNoSource(t *testing.T) {
	img := &LibraryImage{Name: "libfoo.so"}
	_, err := Scan(img, ".*")
	if err == nil {
		t.Fatal("expected an error when the image has neither disk path nor live mapping")
	}
}

func TestBetterPrefersCreateVirtualDisplayName(t *testing.T) {
	a := Symbol{DemangledName: "SurfaceComposerClient::createDisplay", ParamCount: 5}
	b := Symbol{DemangledName: "SurfaceComposerClient::createVirtualDisplay", ParamCount: 2}
	if !better(b, a) {
		t.Fatal("createVirtualDisplay should be preferred over createDisplay regardless of param count")
	}
}

func TestBetterPrefersGreaterParamCountAmongTies(t *testing.T) {
	a := Symbol{DemangledName: "SurfaceComposerClient::createVirtualDisplay", ParamCount: 2}
	b := Symbol{DemangledName: "SurfaceComposerClient::createVirtualDisplay", ParamCount: 5}
	if !better(b, a) {
		t.Fatal("greater parameter count should win among name ties")
	}
}

package symbolscan

import (
	"testing"

	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/platform"
)

func TestResolveCreateDisplayRequiresInit(t *testing.T) {
	c := &ResolverCatalog{entries: make(map[Operation]ResolvedEntryPoint)}
	_, err := c.ResolveCreateDisplay()
	if corerr.KindOf(err) != corerr.KindNotInitialized {
		t.Fatalf("expected KindNotInitialized, got %v", corerr.KindOf(err))
	}
}

func TestResolveCreateDisplayFailsClosedOutsideAnyVariantRange(t *testing.T) {
	c := &ResolverCatalog{
		entries: make(map[Operation]ResolvedEntryPoint),
		image:   &LibraryImage{Name: "libcompositor.so", DiskPath: "/nonexistent/libcompositor.so"},
		plat:    platform.Info{Version: platform.Version(1)},
	}
	_, err := c.ResolveCreateDisplay()
	if corerr.KindOf(err) != corerr.KindPrivateAPIUnavailable {
		t.Fatalf("expected KindPrivateAPIUnavailable, got %v", corerr.KindOf(err))
	}
}

func TestInitFailureLeavesImageNil(t *testing.T) {
	c := &ResolverCatalog{entries: make(map[Operation]ResolvedEntryPoint)}
	plat := platform.Info{Version: platform.VersionOldest}

	if err := c.Init("libdoes-not-exist.so", plat); err == nil {
		t.Fatal("expected init to fail for a nonexistent library")
	}
	if c.image != nil {
		t.Fatal("image should remain nil after a failed init")
	}
}

func TestDisplayVariantsOrderedNewestFirst(t *testing.T) {
	for i := 1; i < len(displayVariants); i++ {
		if displayVariants[i-1].MinPlatform < displayVariants[i].MinPlatform {
			t.Fatalf("variant %d (%s) is not newer than variant %d (%s)",
				i-1, displayVariants[i-1].Name, i, displayVariants[i].Name)
		}
	}
}

package display

import (
	"testing"

	"github.com/capturecore/daemon/internal/corerr"
)

func TestCreateDisplayRejectsUnknownVariant(t *testing.T) {
	g := &Gateway{variant: "Z"}
	err := g.CreateDisplay(Config{Name: "test"})
	if corerr.KindOf(err) != corerr.KindInternal {
		t.Fatalf("expected KindInternal for an unbound variant, got %v", corerr.KindOf(err))
	}
}

func TestDestroyDisplayWithoutTokenIsNoop(t *testing.T) {
	g := &Gateway{variant: "A"}
	if err := g.DestroyDisplay(0); err != nil {
		t.Fatalf("destroy without a token should be a no-op, got %v", err)
	}
}

func TestConfigureProjectionUpdatesInfo(t *testing.T) {
	g := &Gateway{}
	g.ConfigureProjection(Info{PhysicalWidth: 1080, PhysicalHeight: 2400})
	if g.Info().PhysicalWidth != 1080 || g.Info().PhysicalHeight != 2400 {
		t.Fatalf("Info() = %+v, want 1080x2400", g.Info())
	}
}

func TestVariantReportsResolvedName(t *testing.T) {
	g := &Gateway{variant: "D"}
	if g.Variant() != "D" {
		t.Fatalf("Variant() = %q, want D", g.Variant())
	}
}

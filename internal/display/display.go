// Package display implements DisplayGateway: a single
// create_display/destroy_display/configure_projection interface
// backed by whichever ABI variant the symbol resolver selected for
// the running platform. The tagged-union-over-variants shape mirrors
// the teacher's interface-over-platform-variant pattern (one
// ScreenCapturer interface, build-tag-selected concrete constructors
// per OS) in internal/remote/desktop/capture.go, generalized here from
// a build-tag axis to a resolved-ABI-variant axis.
package display

import (
	"github.com/capturecore/daemon/internal/abi"
	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/platform"
	"github.com/capturecore/daemon/internal/symbolscan"
)

// Config carries the parameters needed to create a display, gathered
// from internal/config at pipeline init.
type Config struct {
	Name      string
	Secure    bool
	Exclusive bool
	UniqueID  string
	RefreshHz uint32
}

// Info is the DisplayConfig value queried once at pipeline init
// (spec.md §3).
type Info struct {
	PhysicalWidth  uint32
	PhysicalHeight uint32
	DensityDPI     uint32
	RefreshRate    uint32
}

// createFn is the shape every variant trampoline shares once bound to
// its resolved address; the tagged union stores one of these per
// instance rather than a type switch at call time.
type createFn func(addr uintptr, args abi.DisplayCreateArgs) (*abi.OwnedToken, error)

var variantCreators = map[string]createFn{
	"A": abi.CreateDisplayVariantA,
	"B": abi.CreateDisplayVariantB,
	"C": abi.CreateDisplayVariantC,
	"D": abi.CreateDisplayVariantD,
}

// Gateway is the resolved, bound DisplayGateway: the tagged union
// carries the selected variant's name, the resolved call address, and
// (once created) the live display token.
type Gateway struct {
	variant string
	addr    uintptr
	token   *abi.OwnedToken
	info    Info
}

// Open resolves create_display against the process-wide catalog for
// the given platform and returns a Gateway ready for CreateDisplay.
func Open(cat *symbolscan.ResolverCatalog, _ platform.Info) (*Gateway, error) {
	entry, err := cat.ResolveCreateDisplay()
	if err != nil {
		return nil, err
	}
	return &Gateway{
		variant: entry.Variant.Name,
		addr:    entry.Symbol.Address,
	}, nil
}

// CreateDisplay invokes the resolved variant's trampoline, constructing
// whichever platform-string and argument layout that variant expects.
func (g *Gateway) CreateDisplay(cfg Config) error {
	creator, ok := variantCreators[g.variant]
	if !ok {
		return corerr.New(corerr.KindInternal, "display.create_display", "no trampoline bound for resolved variant "+g.variant)
	}

	token, err := creator(g.addr, abi.DisplayCreateArgs{
		Name:      cfg.Name,
		Secure:    cfg.Secure,
		Exclusive: cfg.Exclusive,
		UniqueID:  cfg.UniqueID,
		RefreshHz: float32(cfg.RefreshHz),
	})
	if err != nil {
		return err
	}

	g.token = token
	return nil
}

// DestroyDisplay releases the live display token. Calling it without a
// prior successful CreateDisplay is a no-op.
func (g *Gateway) DestroyDisplay(destroyAddr uintptr) error {
	if g.token == nil {
		return nil
	}
	err := abi.DestroyDisplay(destroyAddr, g.token)
	g.token = nil
	return err
}

// ConfigureProjection records the physical display geometry queried
// once at init in the gateway's cached Info. It makes no call into the
// compositor: no projection is set and no transaction is applied.
func (g *Gateway) ConfigureProjection(info Info) {
	g.info = info
}

// Info returns the gateway's cached display geometry.
func (g *Gateway) Info() Info {
	return g.info
}

// Variant reports which ABI variant this gateway resolved to, useful
// for diagnostics and the end-to-end scenario assertions in spec.md §8.
func (g *Gateway) Variant() string {
	return g.variant
}

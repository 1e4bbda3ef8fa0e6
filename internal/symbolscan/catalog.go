package symbolscan

import (
	"sync"

	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/platform"
)

// Operation names one of the compositor entry points the catalog
// resolves, per spec.md §3's ResolverCatalog data model.
type Operation string

const (
	OpCreateDisplay           Operation = "create_display"
	OpDestroyDisplay          Operation = "destroy_display"
	OpGetDisplayInfo          Operation = "get_display_info"
	OpCreateBufferQueue       Operation = "create_buffer_queue"
	OpTextureConsumerCtor     Operation = "texture_consumer_ctor"
	OpTextureConsumerDtor     Operation = "texture_consumer_dtor"
	OpTextureConsumerMethods  Operation = "texture_consumer_methods"
	OpApplyTransaction        Operation = "apply_transaction"
	OpSetDisplaySurface       Operation = "set_display_surface"
	OpSetDisplayProjection    Operation = "set_display_projection"
)

// Variant identifies one ABI variant of an operation, ordered newest
// first within VariantTable, each pinned to a [MinPlatform,
// MaxPlatform] range (inclusive) it is valid for.
type Variant struct {
	Name        string
	Pattern     string
	MinPlatform platform.Version
	MaxPlatform platform.Version
}

// displayVariants lists the four create_display ABI variants from
// spec.md §4.1, newest first as resolution requires.
var displayVariants = []Variant{
	{Name: "D", Pattern: createDisplayPattern.String(), MinPlatform: platform.VersionNewest, MaxPlatform: 1 << 30},
	{Name: "C", Pattern: createDisplayPattern.String(), MinPlatform: platform.VersionMid + 1, MaxPlatform: platform.VersionNewest - 1},
	{Name: "B", Pattern: createDisplayPattern.String(), MinPlatform: platform.VersionMid, MaxPlatform: platform.VersionMid},
	{Name: "A", Pattern: createDisplayPattern.String(), MinPlatform: platform.VersionOldest, MaxPlatform: platform.VersionOldest},
}

// ResolvedEntryPoint is one catalog entry: the symbol address found
// for an operation, the ABI variant selected, and the platform-version
// range it is valid for.
type ResolvedEntryPoint struct {
	Symbol  Symbol
	Variant Variant
}

// ResolverCatalog is the process-wide, populate-once symbol catalog
// described in spec.md §3. It is a package-level singleton reached
// through Catalog(), mirroring the teacher's process-wide singletons
// (e.g. the logging package's switchable handler) that are
// initialized lazily behind a sync.Once.
type ResolverCatalog struct {
	mu      sync.Mutex
	entries map[Operation]ResolvedEntryPoint
	image   *LibraryImage
	plat    platform.Info
}

var (
	catalogOnce sync.Once
	catalog     *ResolverCatalog
)

// Catalog returns the process-wide ResolverCatalog singleton.
func Catalog() *ResolverCatalog {
	catalogOnce.Do(func() {
		catalog = &ResolverCatalog{entries: make(map[Operation]ResolvedEntryPoint)}
	})
	return catalog
}

// Init populates the catalog by probing libraryName once. Calling Init
// again after a successful call is a no-op: the catalog is immutable
// once populated, per spec.md §3.
func (c *ResolverCatalog) Init(libraryName string, plat platform.Info) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image != nil {
		return nil
	}

	img, err := Probe(libraryName)
	if err != nil {
		return corerr.Wrap(corerr.KindDeviceNotFound, "catalog.init", err)
	}

	c.image = img
	c.plat = plat
	return nil
}

// ResolveCreateDisplay resolves the create_display entry point for
// the catalog's platform, trying variants newest-first and returning
// the first whose [MinPlatform, MaxPlatform] range contains the
// probed platform version. Resolution result is cached.
func (c *ResolverCatalog) ResolveCreateDisplay() (*ResolvedEntryPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil {
		return nil, corerr.New(corerr.KindNotInitialized, "catalog.resolve_create_display",
			"catalog not initialized")
	}
	if entry, ok := c.entries[OpCreateDisplay]; ok {
		return &entry, nil
	}

	for _, v := range displayVariants {
		if c.plat.Version < v.MinPlatform || c.plat.Version > v.MaxPlatform {
			continue
		}
		sym, err := FindCreateDisplay(c.image)
		if err != nil {
			continue
		}
		entry := ResolvedEntryPoint{Symbol: *sym, Variant: v}
		c.entries[OpCreateDisplay] = entry
		return &entry, nil
	}

	return nil, corerr.New(corerr.KindPrivateAPIUnavailable, "catalog.resolve_create_display",
		"no ABI variant's platform range covers the running platform version")
}

// Image returns the catalog's resolved library image, or nil if Init
// has not yet succeeded.
func (c *ResolverCatalog) Image() *LibraryImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// reset clears the singleton state; test-only helper so package tests
// can exercise Init idempotency without cross-test pollution.
func (c *ResolverCatalog) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
	c.entries = make(map[Operation]ResolvedEntryPoint)
}

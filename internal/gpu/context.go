package gpu

import (
	"github.com/capturecore/daemon/internal/logging"
)

var log = logging.L("gpu")

// Context is GpuContext (spec.md §4.4): an offscreen GPU execution
// context current on exactly one thread at a time. It is not a global
// — it is held by the one Preprocessor instance FrameController owns.
// Context has no lock of its own: serialization comes from the
// backend's Bind/Release (wgpuBackend holds a mutex between the two)
// and from FrameController's own mutex around each acquire.
type Context struct {
	backend ComputeBackend
}

// NewContext wraps backend. backend is already bound to a device by
// the time it is passed in; Context only adds the bind/release
// discipline spec.md §4.4 requires around each use.
func NewContext(backend ComputeBackend) *Context {
	return &Context{backend: backend}
}

// Bind makes the context current on the calling thread. Permitted
// only during initialization (spec.md §4.4); steady-state callers
// must use BindScoped.
func (c *Context) Bind() error {
	return c.backend.Bind()
}

// Release unbinds the context. Pairs with a raw Bind call during
// initialization.
func (c *Context) Release() {
	c.backend.Release()
}

// BindScoped binds the context, invokes fn with the bound backend, and
// unbinds on every exit path including a panic recovery boundary one
// level up — the "scoped acquisition with guaranteed release" spec.md
// §4.4 requires as the only supported usage from FrameController.
func (c *Context) BindScoped(fn func(ComputeBackend) error) error {
	if err := c.backend.Bind(); err != nil {
		return err
	}
	defer c.backend.Release()
	return fn(c.backend)
}

// Backend returns the underlying ComputeBackend, for callers (the
// Preprocessor, tests) that need direct access outside a bind scope —
// e.g. AllocateOutputBuffer at pool init, which does not need the
// device "current" the way a dispatch does.
func (c *Context) Backend() ComputeBackend {
	return c.backend
}

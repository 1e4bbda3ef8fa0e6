package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/capturecore/daemon/internal/bufferqueue"
	"github.com/capturecore/daemon/internal/capture"
	"github.com/capturecore/daemon/internal/config"
	"github.com/capturecore/daemon/internal/display"
	"github.com/capturecore/daemon/internal/gpu"
	"github.com/capturecore/daemon/internal/logging"
	"github.com/capturecore/daemon/internal/platform"
	"github.com/capturecore/daemon/internal/service"
	"github.com/capturecore/daemon/internal/symbolscan"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "captured",
	Short: "On-device capture core daemon",
	Long:  `captured drives zero-copy screen capture and GPU preprocessing for a downstream perception engine.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capture core",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

var resolveSymbolsCmd = &cobra.Command{
	Use:   "resolve-symbols",
	Short: "Probe the compositor library and report which ABI variants resolve",
	Run: func(cmd *cobra.Command, args []string) {
		resolveSymbols()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("captured v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/captured/captured.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveSymbolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveSymbols is the diagnostic companion to runDaemon's pipeline
// init: it runs only the probe/scan/resolve steps and reports the
// outcome, without creating a display or starting the capture loop.
func resolveSymbols() {
	logging.Init("text", "info", os.Stdout)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	plat := platform.Probe()
	fmt.Printf("platform: os=%s arch=%s version=%d capabilities=%#x\n",
		plat.OS, plat.Architecture, plat.Version, plat.Capabilities)

	cat := symbolscan.Catalog()
	if err := cat.Init(cfg.CompositorLibrary, plat); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}

	entry, err := cat.ResolveCreateDisplay()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create_display: unresolved: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("create_display: variant=%s address=%#x symbol=%s\n",
		entry.Variant.Name, entry.Symbol.Address, entry.Symbol.DemangledName)
}

// initLogging sets up structured logging from config, rotating to
// LogFile when one is configured and falling back to stdout-only on a
// rotation error rather than failing startup. The returned
// *logging.RotatingWriter is nil when no LogFile is configured; the
// caller uses it to wire SIGHUP to a reopen.
func initLogging(cfg *config.Config) *logging.RotatingWriter {
	var output io.Writer = os.Stdout
	var rw *logging.RotatingWriter

	if cfg.LogFile != "" {
		var err error
		rw, err = logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			rw = nil
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
	return rw
}

// pipeline holds every component runDaemon starts, so Shutdown can
// tear them down in reverse order.
type pipeline struct {
	backend gpu.ComputeBackend
	ctx     *gpu.Context
	pool    *gpu.OutputBufferPool
	fc      *capture.FrameController
	svc     *service.Service
}

func runDaemon() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	rw := initLogging(cfg)

	log.Info("starting captured", "version", version, "compositor_library", cfg.CompositorLibrary)

	p, err := buildPipeline(cfg)
	if err != nil {
		log.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	log.Info("capture core ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if rw == nil {
				log.Warn("received SIGHUP but no log file is configured, ignoring")
				continue
			}
			if err := rw.Reopen(); err != nil {
				log.Error("log reopen failed", "error", err)
			} else {
				log.Info("log file reopened")
			}
			continue
		}
		break
	}

	log.Info("shutting down")
	p.Shutdown()
	log.Info("captured stopped")
}

// buildPipeline performs the one-time init spec.md §3 describes:
// probe platform, populate the symbol catalog, open the display
// gateway, wire the buffer queue, stand up the GPU backend and output
// pool, and assemble the frame controller and service adapter on top.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	plat := platform.Probe()
	log.Info("platform probed", "os", plat.OS, "version", plat.Version, "capabilities", plat.Capabilities)

	cat := symbolscan.Catalog()
	if err := cat.Init(cfg.CompositorLibrary, plat); err != nil {
		return nil, err
	}

	gateway, err := display.Open(cat, plat)
	if err != nil {
		return nil, err
	}
	log.Info("display gateway resolved", "variant", gateway.Variant())

	if err := gateway.CreateDisplay(display.Config{
		Name:      cfg.DisplayName,
		Secure:    cfg.Secure,
		Exclusive: false,
		UniqueID:  cfg.DisplayName,
	}); err != nil {
		return nil, err
	}

	queue := bufferqueue.Create()

	// The live texture-consumer constructor symbol (spec.md §4.2's
	// initialize(consumer, texture_id, use_fence_sync)) is not resolved
	// by this build's symbol catalog, which only resolves create_display
	// (spec.md §4.1, the variant-heavy entry point this core targets).
	// Every platform therefore runs the documented degraded direct-
	// consumer fallback until that resolution is added.
	degraded := true
	consumer := bufferqueue.NewTextureConsumer(queue.Consumer(), nopFrameSource{}, degraded)

	captureSize := gpu.Size{Width: cfg.CustomWidth, Height: cfg.CustomHeight}
	if captureSize.Width == 0 || captureSize.Height == 0 {
		captureSize = gpu.Size{Width: 1080, Height: 2400}
	}

	backend, err := gpu.NewWGPUBackend()
	if err != nil {
		return nil, err
	}

	ctx := gpu.NewContext(backend)

	outSize := captureSize.DivideBy(cfg.Resolution.ResizeFactor())
	pool, err := gpu.NewOutputBufferPool(backend, int(cfg.OutputBufferCount), outSize, gpu.FormatRGBA8)
	if err != nil {
		if closer, ok := backend.(interface{ Close() }); ok {
			closer.Close()
		}
		return nil, err
	}

	fc := capture.NewFrameController(consumer, queue.Consumer().TextureID(), ctx, pool, captureSize, capture.FrameControllerConfig{
		FenceTimeout:           time.Duration(cfg.FenceTimeoutMs) * time.Millisecond,
		ResizeFactor:           gpu.ResizeFactor(cfg.Resolution.ResizeFactor()),
		AllowDegradedTransform: cfg.AllowDegradedTransform,
	})

	return &pipeline{
		backend: backend,
		ctx:     ctx,
		pool:    pool,
		fc:      fc,
		svc:     service.New(fc),
	}, nil
}

// Shutdown tears the pipeline down in reverse construction order. The
// display token is intentionally left live: it is scoped to this
// process's lifetime and the compositor reclaims it on process exit,
// matching how the resolved create_display variants never expose a
// destroy address back to this layer today.
func (p *pipeline) Shutdown() {
	if p.pool != nil {
		p.pool.Close(p.backend)
	}
	if closer, ok := p.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// nopFrameSource backs every degraded-mode TextureConsumer: it is
// never consulted because TextureConsumer.Advance short-circuits on
// c.degraded before calling source.Latest().
type nopFrameSource struct{}

func (nopFrameSource) Latest() (bufferqueue.Transform, int64, bool) {
	return bufferqueue.Transform{}, 0, false
}

package helperlauncher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/logging"
)

var log = logging.L("helperlauncher")

// Config configures one helper launch.
type Config struct {
	// BinaryPath is the helper executable. Its runtime/package format
	// is outside this core's scope (spec.md §4.7): the core only needs
	// to exec it and point it at a bundled package via an environment
	// variable, the CLASSPATH-equivalent contract point (a).
	BinaryPath string
	// BundlePath is passed to the helper via CAPTURED_HELPER_BUNDLE,
	// the "CLASSPATH-equivalent environment pointing to a bundled
	// package" spec.md §4.7 names.
	BundlePath string
	// SocketDir is the directory a Unix-domain socket is created in for
	// the one expected transaction (contract point b, "a receiver
	// service registered under a known local name").
	SocketDir string
	// Timeout is contract point (c): if no response arrives within
	// this window, the child is killed and PrivateApiUnavailable is
	// returned.
	Timeout time.Duration
}

// Result is the display-token reference and dimensions the helper
// observed when it created the display under its own identity.
type Result struct {
	Token  []byte
	Width  uint32
	Height uint32
}

// Launcher implements HelperLauncher (spec.md §4.7): it is used only
// when DisplayGateway.create_display returns null on every ABI
// variant. It never produces frames itself; it only supplies the
// display token the normal pipeline then uses.
type Launcher struct {
	cfg Config
}

// New constructs a Launcher from cfg, applying defaults for any zero
// fields.
func New(cfg Config) *Launcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = os.TempDir()
	}
	return &Launcher{cfg: cfg}
}

// Launch forks the helper, waits for exactly one token-bearing
// transaction, and returns the resulting Result. On timeout the child
// is terminated and PrivateApiUnavailable is returned, per spec.md
// §4.7.
func (l *Launcher) Launch(ctx context.Context) (*Result, error) {
	socketPath, err := socketPathFor(l.cfg.SocketDir)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInternal, "helperlauncher.launch", err)
	}
	defer os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInternal, "helperlauncher.launch", err)
	}
	defer listener.Close()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, corerr.Wrap(corerr.KindInternal, "helperlauncher.launch", err)
	}

	launchCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(launchCtx, l.cfg.BinaryPath)
	cmd.Env = append(os.Environ(),
		"CAPTURED_HELPER_BUNDLE="+l.cfg.BundlePath,
		"CAPTURED_HELPER_SOCKET="+socketPath,
		"CAPTURED_HELPER_SECRET="+hex.EncodeToString(secret),
	)

	if err := cmd.Start(); err != nil {
		return nil, corerr.Wrap(corerr.KindPrivateAPIUnavailable, "helperlauncher.launch", err)
	}

	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)
	go l.accept(listener, secret, resultCh, errCh)

	select {
	case res := <-resultCh:
		return res, nil
	case err := <-errCh:
		l.killChild(cmd)
		return nil, corerr.Wrap(corerr.KindPrivateAPIUnavailable, "helperlauncher.launch", err)
	case <-launchCtx.Done():
		l.killChild(cmd)
		return nil, corerr.New(corerr.KindPrivateAPIUnavailable, "helperlauncher.launch",
			"no response from helper within configured timeout")
	}
}

func (l *Launcher) accept(listener net.Listener, secret []byte, resultCh chan<- *Result, errCh chan<- error) {
	conn, err := listener.Accept()
	if err != nil {
		errCh <- err
		return
	}
	defer conn.Close()

	token, width, height, err := readTokenMessage(conn, secret)
	if err != nil {
		errCh <- err
		return
	}
	resultCh <- &Result{Token: token, Width: width, Height: height}
}

func (l *Launcher) killChild(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		log.Warn("failed to kill helper process after timeout", "error", err)
	}
	_ = cmd.Wait()
}

func socketPathFor(dir string) (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/captured-helper-%s.sock", dir, hex.EncodeToString(suffix)), nil
}

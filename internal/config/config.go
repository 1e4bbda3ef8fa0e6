// Package config loads and validates the capture daemon's configuration
// using spf13/viper, the same config stack the reference daemon this
// core was extracted from uses for all of its components.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/capturecore/daemon/internal/logging"
	"github.com/spf13/viper"
)

var log = logging.L("config")

// Resolution selects the GPU preprocessor's output resize factor.
type Resolution string

const (
	ResolutionFull    Resolution = "full"
	ResolutionHalf    Resolution = "half"
	ResolutionQuarter Resolution = "quarter"
)

// ResizeFactor returns the divisor applied to capture dimensions.
func (r Resolution) ResizeFactor() int {
	switch r {
	case ResolutionHalf:
		return 2
	case ResolutionQuarter:
		return 4
	default:
		return 1
	}
}

// CaptureMode selects the backend acquire_frame() drives.
type CaptureMode string

const (
	ModeAuto          CaptureMode = "auto"
	ModeBufferQueue   CaptureMode = "buffer_queue"
	ModeDirectCapture CaptureMode = "direct_capture"
	ModeFallback      CaptureMode = "fallback"
)

// Config holds all options recognized at pipeline init (spec §6).
type Config struct {
	// Compositor binding
	CompositorLibrary string `mapstructure:"compositor_library"`
	DisplayName       string `mapstructure:"display_name"`
	Secure            bool   `mapstructure:"secure"`

	// Capture pipeline options (§6)
	Resolution             Resolution  `mapstructure:"resolution"`
	TargetFPS              uint32      `mapstructure:"target_fps"`
	EnableGPUPreprocess    bool        `mapstructure:"enable_gpu_preprocess"`
	CustomWidth            uint32      `mapstructure:"custom_width"`
	CustomHeight           uint32      `mapstructure:"custom_height"`
	Mode                   CaptureMode `mapstructure:"mode"`
	FenceTimeoutMs         int         `mapstructure:"fence_timeout_ms"`
	OutputBufferCount      uint32      `mapstructure:"output_buffer_count"`
	AllowDegradedTransform bool        `mapstructure:"allow_degraded_transform"`

	// HelperLauncher fallback (§4.7)
	HelperBinaryPath  string `mapstructure:"helper_binary_path"`
	HelperTimeoutMs   int    `mapstructure:"helper_timeout_ms"`
	HelperServiceName string `mapstructure:"helper_service_name"`

	// Logging configuration
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// Default returns the defaults named in spec §6.
func Default() *Config {
	return &Config{
		CompositorLibrary: "libcompositor.so",
		DisplayName:       "captureengine-virtual-display",
		Secure:            true,

		Resolution:          ResolutionFull,
		TargetFPS:           30,
		EnableGPUPreprocess: true,
		Mode:                ModeAuto,
		FenceTimeoutMs:      80,
		OutputBufferCount:   2,

		HelperTimeoutMs:   5000,
		HelperServiceName: "captured.helper",

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// Load reads configuration from cfgFile (or the platform default search
// path when empty), overlays environment variables prefixed CAPTURED_,
// and validates the result.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("captured")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CAPTURED")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			log.Warn("config validation", "error", err)
		}
	}

	return cfg, nil
}

// GetDataDir returns the platform-specific data directory for the daemon.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "CaptureCore", "data")
	case "darwin":
		return "/Library/Application Support/CaptureCore/data"
	default:
		return "/var/lib/captured"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "CaptureCore")
	case "darwin":
		return "/Library/Application Support/CaptureCore"
	default:
		return "/etc/captured"
	}
}

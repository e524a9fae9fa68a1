// Package config loads the demo's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/gfx"
)

// maxFileSize bounds the config file read.
const maxFileSize = 1 << 20

// Config is the demo configuration. Zero fields in a file keep their
// defaults.
type Config struct {
	Title       string     `yaml:"title"`
	Width       int        `yaml:"width"`
	Height      int        `yaml:"height"`
	PresentMode string     `yaml:"present_mode"`
	Backend     string     `yaml:"backend"` // "auto", "vulkan", "metal", "dx12", "gl"
	LogLevel    string     `yaml:"log_level"`
	ClearColor  [4]float64 `yaml:"clear_color"`
	Validation  bool       `yaml:"validation"`
	// MemoryBudgetMB caps live buffer memory. Zero means unlimited.
	MemoryBudgetMB uint64 `yaml:"memory_budget_mb"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Title:       "gfx demo",
		Width:       640,
		Height:      480,
		PresentMode: "fifo",
		Backend:     "auto",
		LogLevel:    "info",
		ClearColor:  [4]float64{0, 0, 0, 1},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config: %s is %d bytes, limit %d", path, info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height))
	}
	if _, err := gfx.ParsePresentMode(c.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.BackendVariant(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear_color[%d] = %v outside [0, 1]", i, v))
		}
	}
	return errors.Join(errs...)
}

// Mode returns the parsed present mode.
func (c Config) Mode() gfx.PresentMode {
	m, _ := gfx.ParsePresentMode(c.PresentMode)
	return m
}

// BackendVariant returns the requested backend. ok is false for "auto".
func (c Config) BackendVariant() (variant gputypes.Backend, ok bool, err error) {
	switch strings.ToLower(c.Backend) {
	case "", "auto":
		return 0, false, nil
	case "vulkan":
		return gputypes.BackendVulkan, true, nil
	case "metal":
		return gputypes.BackendMetal, true, nil
	case "dx12":
		return gputypes.BackendDX12, true, nil
	case "gl", "gles":
		return gputypes.BackendGL, true, nil
	case "noop", "empty":
		return gputypes.BackendEmpty, true, nil
	default:
		return 0, false, fmt.Errorf("unknown backend %q", c.Backend)
	}
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// DeviceOptions translates the configuration into device options.
func (c Config) DeviceOptions() []gfx.DeviceOption {
	opts := []gfx.DeviceOption{
		gfx.WithClearColor(gputypes.Color{
			R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3],
		}),
	}
	if v, ok, _ := c.BackendVariant(); ok {
		opts = append(opts, gfx.WithBackend(v))
	}
	if c.Validation {
		opts = append(opts, gfx.WithValidation())
	}
	if c.MemoryBudgetMB > 0 {
		opts = append(opts, gfx.WithMemoryBudget(c.MemoryBudgetMB<<20))
	}
	return opts
}

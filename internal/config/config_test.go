package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gfxdemo.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
title: spinning triangle
width: 1280
height: 720
present_mode: Mailbox
backend: vulkan
log_level: debug
clear_color: [0.1, 0.2, 0.3, 1]
memory_budget_mb: 64
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "spinning triangle" || cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Mode() != gfx.PresentMailbox {
		t.Errorf("Mode() = %v, want Mailbox", cfg.Mode())
	}
	if v, ok, err := cfg.BackendVariant(); err != nil || !ok || v != gputypes.BackendVulkan {
		t.Errorf("BackendVariant() = %v, %v, %v, want Vulkan", v, ok, err)
	}
	if l, _ := cfg.Level(); l != slog.LevelDebug {
		t.Errorf("Level() = %v, want Debug", l)
	}
	if cfg.ClearColor != [4]float64{0.1, 0.2, 0.3, 1} {
		t.Errorf("ClearColor = %v", cfg.ClearColor)
	}
	if n := len(cfg.DeviceOptions()); n != 3 {
		t.Errorf("DeviceOptions() has %d options, want 3", n)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "width: 1024\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Width != 1024 || cfg.Height != def.Height || cfg.PresentMode != def.PresentMode {
		t.Errorf("Load() = %+v, want defaults except width", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "width: [", "parse"},
		{"negative size", "width: -1\n", "must be positive"},
		{"bad present mode", "present_mode: tearing\n", "unknown present mode"},
		{"bad backend", "backend: glide\n", "unknown backend"},
		{"bad level", "log_level: chatty\n", "log_level"},
		{"bad color", "clear_color: [2, 0, 0, 1]\n", "clear_color[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

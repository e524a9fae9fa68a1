// Command gfxdemo draws a spinning, color-cycling triangle with the gfx
// device.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/internal/config"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// fpsInterval is how often the frame rate is logged.
const fpsInterval = 2 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		width      = flag.Int("width", 0, "window width (overrides config)")
		height     = flag.Int("height", 0, "window height (overrides config)")
		present    = flag.String("present", "", "present mode: fifo, mailbox, immediate")
		backend    = flag.String("backend", "", "backend: auto, vulkan, metal, dx12, gl")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error")
		frames     = flag.Int("frames", 0, "exit after this many presented frames (0 runs until closed)")
		seed       = flag.Uint64("seed", 1, "seed for the color sequence")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *present != "" {
		cfg.PresentMode = *present
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	gfx.SetLogger(logger)

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	if err := run(cfg, rng, *frames, logger); err != nil {
		logger.Error("gfxdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, rng *rand.Rand, maxFrames int, logger *slog.Logger) error {
	win, err := openWindow(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer win.Close()

	dev, err := gfx.NewGraphicsDevice(win, cfg.Mode(), cfg.DeviceOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("gfxdemo: close device", "err", err)
		}
	}()

	s, err := newScene(dev, rng)
	if err != nil {
		return err
	}
	defer s.destroy()

	var resize gfx.ResizeWatcher
	resize.Watch(win)

	var (
		start     = time.Now()
		last      = start
		fpsStart  = start
		fpsFrames int
		presented int
		stale     bool
	)
	record := func(fb *gfx.Framebuffer) error {
		stale = stale || fb.Suboptimal()
		return s.draw(dev, fb)
	}

	for !win.ShouldClose() {
		win.PollEvents()

		if w, h, ok := resize.Resized(); ok {
			if err := dev.Reconfigure(w, h, cfg.Mode()); err != nil {
				return err
			}
			stale = false
		} else if stale {
			w, h := win.Size()
			if err := dev.Reconfigure(w, h, cfg.Mode()); err != nil {
				return err
			}
			stale = false
		}

		now := time.Now()
		s.update(now.Sub(last), dev.SurfaceConfig())
		last = now

		ok, err := dev.RenderFrame(record)
		if err != nil {
			return err
		}
		if !ok {
			// Minimised or mid-resize; don't spin.
			time.Sleep(10 * time.Millisecond)
			continue
		}
		presented++
		fpsFrames++

		if elapsed := now.Sub(fpsStart); elapsed >= fpsInterval {
			logger.Info("gfxdemo: frame rate",
				"fps", fmt.Sprintf("%.1f", float64(fpsFrames)/elapsed.Seconds()),
				"stats", dev.Stats().String(),
			)
			fpsStart, fpsFrames = now, 0
		}
		if maxFrames > 0 && presented >= maxFrames {
			break
		}
	}

	logger.Info("gfxdemo: done",
		"frames", presented,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"memory", dev.MemoryStats().String(),
	)
	return nil
}

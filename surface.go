package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceConfig is the current presentation surface configuration.
// Format is fixed at device creation; the rest changes only through
// Reconfigure.
type SurfaceConfig struct {
	Width       uint32
	Height      uint32
	Format      gputypes.TextureFormat
	PresentMode PresentMode
}

// SurfaceConfig returns the current surface configuration.
func (d *GraphicsDevice) SurfaceConfig() SurfaceConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// configureLocked applies d.config to the surface. A zero-area config
// leaves the surface unconfigured; acquiring then reports a transient
// failure until a non-zero size arrives.
func (d *GraphicsDevice) configureLocked() error {
	if d.config.Width == 0 || d.config.Height == 0 {
		if d.configured {
			d.surface.Unconfigure(d.device)
			d.configured = false
		}
		Logger().Debug("gfx: surface has zero area, not configured",
			"width", d.config.Width, "height", d.config.Height)
		return nil
	}

	err := d.surface.Configure(d.device, &hal.SurfaceConfiguration{
		Width:       d.config.Width,
		Height:      d.config.Height,
		Format:      d.config.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: d.config.PresentMode.toHAL(),
		AlphaMode:   d.alphaMode,
	})
	if err != nil {
		d.configured = false
		return fmt.Errorf("configure surface %dx%d: %w", d.config.Width, d.config.Height, err)
	}
	d.configured = true
	return nil
}

// Reconfigure resizes the surface and changes the present mode. Call it
// whenever the window reports a new size, before the next
// GetPresentationFramebuffer. The pixel format is never changed.
//
// Reconfigure fails with ErrFrameInFlight while a framebuffer is held.
// A zero width or height is accepted (minimised window); frames are then
// skipped until a non-zero size is configured.
func (d *GraphicsDevice) Reconfigure(width, height int, mode PresentMode) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("reconfigure: %w: negative size %dx%d", ErrInvalidWindow, width, height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		return fmt.Errorf("reconfigure: %w", ErrFrameInFlight)
	}

	d.config.Width = uint32(width)   //nolint:gosec // checked non-negative
	d.config.Height = uint32(height) //nolint:gosec // checked non-negative
	d.config.PresentMode = resolvePresentMode(mode, d.modes)
	d.stats.Reconfigures++

	Logger().Debug("gfx: surface reconfigured",
		"width", width, "height", height, "present_mode", d.config.PresentMode.String())

	return d.configureLocked()
}

// GetPresentationFramebuffer acquires the next swapchain image.
//
// When no frame can be produced right now the error satisfies IsTransient
// and the caller should skip the frame. That covers a window whose size no
// longer matches the configuration (Reconfigure was not called after a
// resize), a zero-area window, and an outdated or busy swapchain.
//
// Acquiring while a previous framebuffer is still held fails with
// ErrFrameInFlight.
func (d *GraphicsDevice) GetPresentationFramebuffer() (*Framebuffer, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		return nil, fmt.Errorf("acquire: %w: frame %d not presented", ErrFrameInFlight, d.current.frame)
	}

	d.maintainLocked()

	if w, h := physicalSize(d.window); uint32(w) != d.config.Width || uint32(h) != d.config.Height { //nolint:gosec // sizes are small
		d.stats.Skipped++
		return nil, fmt.Errorf("%w: window is %dx%d, surface configured for %dx%d",
			ErrFrameUnavailable, w, h, d.config.Width, d.config.Height)
	}
	if !d.configured {
		d.stats.Skipped++
		return nil, fmt.Errorf("%w: %w", ErrFrameUnavailable, hal.ErrZeroArea)
	}

	acquired, err := d.surface.AcquireTexture(nil)
	if err != nil {
		err = classifySurfaceError(err)
		if IsTransient(err) {
			d.stats.Skipped++
		}
		return nil, fmt.Errorf("acquire: %w", err)
	}

	view, err := d.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:     "gfx_framebuffer_view",
		Format:    d.format,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		d.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create framebuffer view: %w", err)
	}

	d.frame++
	d.stats.Acquired++
	fb := &Framebuffer{
		dev:        d,
		texture:    acquired.Texture,
		view:       view,
		width:      d.config.Width,
		height:     d.config.Height,
		format:     d.format,
		frame:      d.frame,
		suboptimal: acquired.Suboptimal,
	}
	d.current = fb

	if acquired.Suboptimal {
		Logger().Debug("gfx: acquired suboptimal frame", "frame", fb.frame)
	}
	return fb, nil
}

// Present hands the held framebuffer to the compositor. The framebuffer is
// invalid afterwards.
//
// Present with nothing acquired returns ErrNothingToPresent. Present while
// an unsubmitted recorder still draws into the framebuffer returns
// ErrResourceInUse and keeps the frame held.
func (d *GraphicsDevice) Present() error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fb := d.current
	if fb == nil {
		return ErrNothingToPresent
	}
	if fb.pins.pinned() {
		return fmt.Errorf("present: %w: frame %d has an unsubmitted recorder", ErrResourceInUse, fb.frame)
	}

	err := d.queue.Present(d.surface, fb.texture, nil)
	d.releaseFramebufferLocked(fb)
	if err != nil {
		// The texture is consumed either way; an outdated swapchain is
		// repaired by the next Reconfigure.
		err = classifySurfaceError(err)
		if IsTransient(err) {
			d.stats.Skipped++
		}
		return fmt.Errorf("present: %w", err)
	}
	d.stats.Presented++
	return nil
}

// DiscardFramebuffer releases the held framebuffer without presenting it.
// Recorders still drawing into it are abandoned: their commands are dropped
// and their Submit returns ErrRecorderAbandoned. It returns
// ErrNothingToPresent when nothing is held.
func (d *GraphicsDevice) DiscardFramebuffer() error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	d.mu.Lock()
	fb := d.current
	if fb == nil {
		d.mu.Unlock()
		return ErrNothingToPresent
	}
	open := d.takeRecordersLocked(fb)
	d.mu.Unlock()

	for _, r := range open {
		r.abandon(fmt.Errorf("%w: frame %d discarded", ErrRecorderAbandoned, fb.frame))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != fb {
		return ErrNothingToPresent
	}
	if fb.pins.pinned() {
		return fmt.Errorf("discard: %w", ErrResourceInUse)
	}
	d.discardLocked()
	return nil
}

// openRecorders reports how many unsubmitted recorders draw into fb.
func (d *GraphicsDevice) openRecorders(fb *Framebuffer) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for r := range d.recorders {
		if r.framebuffer == fb {
			n++
		}
	}
	return n
}

func (d *GraphicsDevice) discardLocked() {
	fb := d.current
	d.surface.DiscardTexture(fb.texture)
	d.releaseFramebufferLocked(fb)
	d.stats.Discarded++
}

func (d *GraphicsDevice) releaseFramebufferLocked(fb *Framebuffer) {
	view := fb.view
	d.retireLocked(func(dev hal.Device) { dev.DestroyTextureView(view) })
	fb.view = nil
	fb.texture = nil
	fb.done = true
	d.current = nil
}

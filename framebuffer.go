package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Framebuffer is the render target for one frame: a view of the acquired
// surface texture plus the token Present needs. It is valid from
// GetPresentationFramebuffer until Present or DiscardFramebuffer.
type Framebuffer struct {
	dev     *GraphicsDevice
	texture hal.SurfaceTexture
	view    hal.TextureView

	width  uint32
	height uint32
	format gputypes.TextureFormat
	frame  uint64

	suboptimal bool
	done       bool // presented or discarded
	pins       pinCount
}

// Width returns the framebuffer width in pixels.
func (f *Framebuffer) Width() uint32 { return f.width }

// Height returns the framebuffer height in pixels.
func (f *Framebuffer) Height() uint32 { return f.height }

// Format returns the pixel format, which is the device's surface format.
func (f *Framebuffer) Format() gputypes.TextureFormat { return f.format }

// Frame returns the frame number this framebuffer was acquired for,
// starting at 1.
func (f *Framebuffer) Frame() uint64 { return f.frame }

// Suboptimal reports whether the backend flagged the swapchain as usable
// but no longer matching the surface. Reconfigure at the next opportunity.
func (f *Framebuffer) Suboptimal() bool { return f.suboptimal }

// Valid reports whether the framebuffer can still be drawn into.
func (f *Framebuffer) Valid() bool { return !f.done }

func (f *Framebuffer) usable(d *GraphicsDevice) error {
	switch {
	case f == nil:
		return fmt.Errorf("%w: nil framebuffer", ErrFramebufferPresented)
	case f.dev != d:
		return ErrForeignResource
	case f.done:
		return fmt.Errorf("%w: frame %d", ErrFramebufferPresented, f.frame)
	}
	return nil
}

func (f *Framebuffer) pin() { f.pins.pin() }

// release drops a recorder's reference. Framebuffers are torn down by
// Present and DiscardFramebuffer, never by release.
func (f *Framebuffer) release() { f.pins.unpin() }

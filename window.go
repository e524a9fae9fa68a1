package gfx

import (
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Window is the windowing collaborator a GraphicsDevice is created against.
//
// The surface is sized in physical pixels: Size scaled by ScaleFactor.
// NativeHandles returns the platform handles the HAL needs to create a
// surface:
//   - X11: Display* and Window id
//   - Wayland: wl_display* and wl_surface*
//   - Windows: HINSTANCE (may be zero) and HWND
type Window interface {
	gpucontext.WindowProvider
	NativeHandles() (display, window uintptr)
}

// HeadlessWindow is a Window with no native surface. It is meant for the
// noop and software backends, which ignore the handles.
type HeadlessWindow struct {
	gpucontext.NullWindowProvider
}

// NewHeadlessWindow returns a headless window of the given size.
func NewHeadlessWindow(width, height int) *HeadlessWindow {
	return &HeadlessWindow{
		NullWindowProvider: gpucontext.NullWindowProvider{W: width, H: height, SF: 1.0},
	}
}

// NativeHandles returns zero handles.
func (w *HeadlessWindow) NativeHandles() (display, window uintptr) { return 0, 0 }

// Resize changes the size Size reports. It stands in for a user dragging the
// window edge.
func (w *HeadlessWindow) Resize(width, height int) {
	w.W, w.H = width, height
}

// physicalSize returns the drawable size of w in physical pixels.
func physicalSize(w Window) (width, height int) {
	lw, lh := w.Size()
	sf := w.ScaleFactor()
	if sf <= 0 || sf == 1 {
		return lw, lh
	}
	return int(math.Round(float64(lw) * sf)), int(math.Round(float64(lh) * sf))
}

// resizeSource is the part of gpucontext.EventSource ResizeWatcher needs.
type resizeSource interface {
	OnResize(func(width, height int))
}

// ResizeWatcher turns resize callbacks into the per-frame "resized" flag
// the frame loop polls before acquiring.
//
// Resize callbacks may arrive on any goroutine; Resized is called from the
// frame loop. ResizeWatcher is safe for concurrent use.
type ResizeWatcher struct {
	mu      sync.Mutex
	width   int
	height  int
	pending bool
}

// Watch subscribes the watcher to src. Any gpucontext.EventSource works.
func (r *ResizeWatcher) Watch(src resizeSource) {
	src.OnResize(r.Notify)
}

// Notify records a new size. It is the callback registered by Watch and can
// also be called directly by window code that does not implement
// gpucontext.EventSource.
func (r *ResizeWatcher) Notify(width, height int) {
	r.mu.Lock()
	r.width, r.height = width, height
	r.pending = true
	r.mu.Unlock()
}

// Resized returns the latest size and true if a resize was reported since
// the previous call. Repeated resizes within one frame collapse into one.
func (r *ResizeWatcher) Resized() (width, height int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending {
		return 0, 0, false
	}
	r.pending = false
	return r.width, r.height, true
}

// Package gfx is a thin graphics-device layer over the gogpu/wgpu HAL.
//
// # Overview
//
// A GraphicsDevice is created once per window. It owns the adapter, the
// logical device, the queue, and the presentation surface, and it is the
// factory for every other GPU resource: shader modules, vertex/index/uniform
// buffers, bind groups, and render pipelines.
//
// # Frame protocol
//
// Each frame follows a fixed sequence on a single goroutine:
//
//	fb, err := dev.GetPresentationFramebuffer()
//	if gfx.IsTransient(err) {
//		return // skip this frame, reconfigure on the next resize
//	}
//	err = dev.BeginCommands().
//		ConfigureDraw(pipeline, fb).
//		SetVertices(vertices).
//		BindResources(uniforms).
//		Draw(0, 3).
//		Submit()
//	if err == nil {
//		err = dev.Present()
//	}
//
// RenderFrame wraps the sequence and turns transient acquire failures into
// skipped frames.
//
// A CommandRecorder moves through Begun, Configured, Drawn, and Submitted.
// Calls made out of order record a *StateError and every later call on the
// same recorder is a no-op. Submit still closes the pass and submits the
// commands accepted so far, then reports the first error, so every
// BeginCommands yields exactly one submission. A Framebuffer is valid
// until Present; only one may be held at a time.
//
// # Resizing
//
// When the window reports a new size, call Reconfigure before acquiring the
// next framebuffer. Acquiring against a stale configuration yields an error
// for which IsTransient reports true. The surface pixel format is negotiated
// once and never changes.
//
// # Logging
//
// The package is silent by default. SetLogger installs a *slog.Logger that
// is shared with the wgpu HAL.
package gfx

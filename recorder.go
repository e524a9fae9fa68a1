package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RecorderState is the lifecycle state of a CommandRecorder.
//
// State machine:
//
//	Begun -> Configured -> Drawn -> Submitted
//	  |          |           |
//	  +----------+-----------+--> Failed -> Submitted
//
// SetVertices, SetIndices, and BindResources are allowed in Configured and
// Drawn and do not change the state. Draw moves Configured to Drawn. Any
// rejected call moves the recorder to Failed; Submit is the only call a
// failed recorder still honors.
type RecorderState int

const (
	// RecorderBegun is the state after BeginCommands.
	RecorderBegun RecorderState = iota

	// RecorderConfigured is the state after ConfigureDraw: a render pass
	// into the framebuffer is open and the pipeline is bound.
	RecorderConfigured

	// RecorderDrawn is the state after at least one Draw.
	RecorderDrawn

	// RecorderSubmitted is the terminal state after Submit.
	RecorderSubmitted

	// RecorderFailed is the state after a rejected call.
	RecorderFailed
)

// String returns a human-readable name for the state.
func (s RecorderState) String() string {
	switch s {
	case RecorderBegun:
		return "Begun"
	case RecorderConfigured:
		return "Configured"
	case RecorderDrawn:
		return "Drawn"
	case RecorderSubmitted:
		return "Submitted"
	case RecorderFailed:
		return "Failed"
	default:
		return fmt.Sprintf("RecorderState(%d)", int(s))
	}
}

// encoding is the HAL encoder and its render pass. They are created and
// finished together so the pass is always ended before the encoder.
type encoding struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder // nil until ConfigureDraw
}

// CommandRecorder records one frame's draw commands into a single command
// buffer. Calls chain:
//
//	err := dev.BeginCommands().
//		ConfigureDraw(pipeline, fb).
//		SetVertices(vertices).
//		SetIndices(indices).
//		BindResources(uniforms).
//		Draw(0, indices.IndexCount()).
//		Submit()
//
// The first rejected call is remembered and every later call except Submit
// becomes a no-op. Submit still finalizes and submits the commands that
// were accepted, so every BeginCommands produces exactly one submission,
// and then returns the remembered error.
//
// Every resource passed to the recorder is pinned until Submit: it cannot
// be written, presented, or destroyed while the recorder may still
// reference it. Discarding the framebuffer or closing the device abandons
// the recorder instead: its commands are dropped, its resources unpinned,
// and Submit returns ErrRecorderAbandoned without submitting.
//
// Thread safety: CommandRecorder is NOT safe for concurrent use.
type CommandRecorder struct {
	dev   *GraphicsDevice
	state RecorderState
	err   error
	enc   *encoding

	pipeline    *PipelineState
	framebuffer *Framebuffer
	vertices    *Buffer
	indices     *Buffer
	bindGroup   *BindGroup

	pinned []pinnable
	draws  int
}

// BeginCommands starts recording a frame. It never returns nil; if the
// encoder cannot be created the recorder starts out failed and Submit
// reports why.
func (d *GraphicsDevice) BeginCommands() *CommandRecorder {
	r := &CommandRecorder{dev: d, state: RecorderBegun}
	if err := d.checkOpen(); err != nil {
		r.fail(err)
		return r
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gfx_frame_encoder"})
	if err != nil {
		r.fail(fmt.Errorf("create command encoder: %w", err))
		return r
	}
	if err := encoder.BeginEncoding("gfx_frame"); err != nil {
		encoder.Destroy()
		r.fail(fmt.Errorf("begin encoding: %w", err))
		return r
	}
	r.enc = &encoding{encoder: encoder}

	d.mu.Lock()
	if d.recorders == nil {
		d.recorders = make(map[*CommandRecorder]struct{})
	}
	d.recorders[r] = struct{}{}
	d.mu.Unlock()
	return r
}

// State returns the current recorder state.
func (r *CommandRecorder) State() RecorderState { return r.state }

// Err returns the first rejected call's error, or nil.
func (r *CommandRecorder) Err() error { return r.err }

// Draws returns the number of draw calls recorded.
func (r *CommandRecorder) Draws() int { return r.draws }

func (r *CommandRecorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	if r.state != RecorderSubmitted {
		r.state = RecorderFailed
	}
}

// expect reports whether op may run in the current state, failing the
// recorder with a *StateError when it may not.
func (r *CommandRecorder) expect(op string, allowed ...RecorderState) bool {
	if r.err != nil && r.state != RecorderSubmitted {
		return false
	}
	for _, s := range allowed {
		if r.state == s {
			return true
		}
	}
	r.fail(&StateError{Op: op, State: r.state})
	return false
}

func (r *CommandRecorder) hold(p pinnable) {
	p.pin()
	r.pinned = append(r.pinned, p)
}

// ConfigureDraw opens a render pass that clears fb to the device clear
// color and binds p. The pipeline's target format must match fb.
func (r *CommandRecorder) ConfigureDraw(p *PipelineState, fb *Framebuffer) *CommandRecorder {
	if !r.expect("ConfigureDraw", RecorderBegun) {
		return r
	}
	switch {
	case p == nil || p.dev != r.dev:
		r.fail(fmt.Errorf("configure draw: pipeline: %w", ErrForeignResource))
		return r
	case p.pins.destroyed:
		r.fail(fmt.Errorf("configure draw: pipeline: %w", ErrResourceDestroyed))
		return r
	}
	if err := fb.usable(r.dev); err != nil {
		r.fail(fmt.Errorf("configure draw: %w", err))
		return r
	}
	if p.format != fb.format {
		r.fail(fmt.Errorf("configure draw: %w: pipeline %s, framebuffer %s",
			ErrFormatMismatch, p.format, fb.format))
		return r
	}

	pass := r.enc.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gfx_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       fb.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: r.dev.clearColor,
		}},
	})
	pass.SetPipeline(p.raw)
	r.enc.pass = pass

	r.hold(p)
	r.hold(fb)
	r.pipeline = p
	r.framebuffer = fb
	r.state = RecorderConfigured
	return r
}

// SetVertices binds a vertex buffer to slot 0.
func (r *CommandRecorder) SetVertices(b *Buffer) *CommandRecorder {
	if !r.expect("SetVertices", RecorderConfigured, RecorderDrawn) {
		return r
	}
	if err := b.usable(r.dev); err != nil {
		r.fail(fmt.Errorf("set vertices: %w", err))
		return r
	}
	if b.usage != BufferUsageVertex {
		r.fail(fmt.Errorf("set vertices: %w: %s buffer", ErrWrongBufferUsage, b.usage))
		return r
	}
	r.enc.pass.SetVertexBuffer(0, b.raw, 0)
	r.hold(b)
	r.vertices = b
	return r
}

// SetIndices binds an index buffer. Subsequent draws are indexed and their
// range counts indices rather than vertices.
func (r *CommandRecorder) SetIndices(b *Buffer) *CommandRecorder {
	if !r.expect("SetIndices", RecorderConfigured, RecorderDrawn) {
		return r
	}
	if err := b.usable(r.dev); err != nil {
		r.fail(fmt.Errorf("set indices: %w", err))
		return r
	}
	if b.usage != BufferUsageIndex {
		r.fail(fmt.Errorf("set indices: %w: %s buffer", ErrWrongBufferUsage, b.usage))
		return r
	}
	r.enc.pass.SetIndexBuffer(b.raw, b.indexFormat, 0)
	r.hold(b)
	r.indices = b
	return r
}

// BindResources binds g to group 0. g must have been created for a layout
// compatible with the pipeline's.
func (r *CommandRecorder) BindResources(g *BindGroup) *CommandRecorder {
	if !r.expect("BindResources", RecorderConfigured, RecorderDrawn) {
		return r
	}
	switch {
	case g == nil || g.dev != r.dev:
		r.fail(fmt.Errorf("bind resources: %w", ErrForeignResource))
		return r
	case g.pins.destroyed:
		r.fail(fmt.Errorf("bind resources: %w", ErrResourceDestroyed))
		return r
	}
	if err := g.buffer.usable(r.dev); err != nil {
		r.fail(fmt.Errorf("bind resources: %w", err))
		return r
	}
	want := r.pipeline.bindLayout
	if want == nil {
		r.fail(fmt.Errorf("bind resources: %w: pipeline %q has no bind group layout",
			ErrBindGroupMismatch, r.pipeline.label))
		return r
	}
	if g.layout != want && g.layout.bindingSize != want.bindingSize {
		r.fail(fmt.Errorf("bind resources: %w: group binds %d bytes, pipeline expects %d",
			ErrBindGroupMismatch, g.layout.bindingSize, want.bindingSize))
		return r
	}
	r.enc.pass.SetBindGroup(0, g.raw, nil)
	r.hold(g)
	r.bindGroup = g
	return r
}

// Draw records a draw of the half-open range [start, end). With an index
// buffer bound the range is in indices, otherwise in vertices. The range
// must lie within the bound data.
func (r *CommandRecorder) Draw(start, end uint32) *CommandRecorder {
	if !r.expect("Draw", RecorderConfigured, RecorderDrawn) {
		return r
	}
	if start > end {
		r.fail(fmt.Errorf("draw: %w: start %d after end %d", ErrDrawOutOfRange, start, end))
		return r
	}
	if r.pipeline.bindLayout != nil && r.bindGroup == nil {
		r.fail(fmt.Errorf("draw: %w: pipeline %q", ErrMissingBindGroup, r.pipeline.label))
		return r
	}

	var vertexCount uint64
	stride := r.pipeline.shader.Stride()
	if stride > 0 {
		if r.vertices == nil {
			r.fail(fmt.Errorf("draw: %w", ErrMissingVertices))
			return r
		}
		vertexCount = r.vertices.Len() / stride
	}

	if r.indices != nil {
		if n := r.indices.IndexCount(); end > n {
			r.fail(fmt.Errorf("draw: %w: indices [%d, %d) with %d bound", ErrDrawOutOfRange, start, end, n))
			return r
		}
		if stride > 0 {
			if maxIndex, ok := r.indices.maxIndex(start, end); ok && uint64(maxIndex) >= vertexCount {
				r.fail(fmt.Errorf("draw: %w: index %d with %d vertices bound",
					ErrDrawOutOfRange, maxIndex, vertexCount))
				return r
			}
		}
		r.enc.pass.DrawIndexed(end-start, 1, start, 0, 0)
	} else {
		if stride > 0 && uint64(end) > vertexCount {
			r.fail(fmt.Errorf("draw: %w: vertices [%d, %d) with %d bound", ErrDrawOutOfRange, start, end, vertexCount))
			return r
		}
		r.enc.pass.Draw(end-start, 1, start, 0)
	}

	r.draws++
	r.state = RecorderDrawn
	return r
}

// Submit finishes recording and submits the command buffer. A recorder
// submits at most once; a second Submit returns ErrRecorderSubmitted.
//
// If an earlier call was rejected, the accepted commands are still
// submitted and the rejection is returned. An abandoned recorder submits
// nothing.
func (r *CommandRecorder) Submit() error {
	if r.state == RecorderSubmitted {
		return ErrRecorderSubmitted
	}
	r.state = RecorderSubmitted
	defer r.releaseAll()

	enc := r.enc
	r.enc = nil
	if enc == nil {
		return r.err
	}
	r.dev.forget(r)
	if enc.pass != nil {
		enc.pass.End()
	}
	cmd, err := enc.encoder.EndEncoding()
	if err != nil {
		enc.encoder.Destroy()
		return errors.Join(r.err, fmt.Errorf("finish command buffer: %w", err))
	}
	if err := r.dev.submit(enc.encoder, cmd); err != nil {
		return errors.Join(r.err, err)
	}
	return r.err
}

// abandon drops the recording without submitting it: the pass is ended,
// the encoder discarded, and every pinned resource released. The recorder
// is left failed with err, and a later Submit returns err and submits
// nothing.
func (r *CommandRecorder) abandon(err error) {
	if r.state == RecorderSubmitted {
		return
	}
	r.fail(err)
	if enc := r.enc; enc != nil {
		r.enc = nil
		if enc.pass != nil {
			enc.pass.End()
		}
		enc.encoder.DiscardEncoding()
		enc.encoder.Destroy()
	}
	r.releaseAll()
}

// releaseAll unpins resources in reverse order. It runs after the
// submission is recorded so deferred destroys wait for it.
func (r *CommandRecorder) releaseAll() {
	for i := len(r.pinned) - 1; i >= 0; i-- {
		r.pinned[i].release()
	}
	r.pinned = nil
	r.pipeline = nil
	r.framebuffer = nil
	r.vertices = nil
	r.indices = nil
	r.bindGroup = nil
}

func (d *GraphicsDevice) forget(r *CommandRecorder) {
	d.mu.Lock()
	delete(d.recorders, r)
	d.mu.Unlock()
}

// takeRecordersLocked unregisters and returns the open recorders drawing
// into fb, or all open recorders when fb is nil. The caller abandons them
// after releasing d.mu, since releasing their resources may retire HAL
// objects.
func (d *GraphicsDevice) takeRecordersLocked(fb *Framebuffer) []*CommandRecorder {
	var out []*CommandRecorder
	for r := range d.recorders {
		if fb == nil || r.framebuffer == fb {
			out = append(out, r)
			delete(d.recorders, r)
		}
	}
	return out
}

// submit hands one command buffer to the queue and keeps it alive until the
// GPU completes it.
func (d *GraphicsDevice) submit(encoder hal.CommandEncoder, cmd hal.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return ErrDeviceClosed
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		encoder.Destroy()
		return fmt.Errorf("submit: %w", err)
	}
	d.lastSubmission = index
	d.inflight = append(d.inflight, inflightSubmission{index: index, encoder: encoder, cmd: cmd})
	d.stats.Submissions++
	return nil
}

package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PipelineState is a compiled render pipeline. Its vertex input follows a
// ShaderLayout and its single color target uses the device's surface
// format. It is immutable once created.
type PipelineState struct {
	dev        *GraphicsDevice
	raw        hal.RenderPipeline
	layout     hal.PipelineLayout
	shader     *ShaderLayout
	bindLayout *BindGroupLayout // nil when the pipeline binds nothing
	format     gputypes.TextureFormat
	label      string

	pins pinCount
}

// Format returns the color target format.
func (p *PipelineState) Format() gputypes.TextureFormat { return p.format }

// ShaderLayout returns the vertex layout the pipeline was built with.
func (p *PipelineState) ShaderLayout() *ShaderLayout { return p.shader }

// BindGroupLayout returns the pipeline's bind group layout, or nil.
func (p *PipelineState) BindGroupLayout() *BindGroupLayout { return p.bindLayout }

// Destroy releases the pipeline. It is deferred while the pipeline is bound
// to an open recorder. Destroy is idempotent.
func (p *PipelineState) Destroy() {
	if p.pins.requestDestroy() {
		p.destroy()
	}
}

func (p *PipelineState) pin() { p.pins.pin() }

func (p *PipelineState) release() {
	if p.pins.unpin() {
		p.destroy()
	}
}

// destroy releases in reverse creation order: pipeline, then layout.
func (p *PipelineState) destroy() {
	raw, layout := p.raw, p.layout
	p.raw, p.layout = nil, nil
	p.dev.retire(func(d hal.Device) {
		d.DestroyRenderPipeline(raw)
		d.DestroyPipelineLayout(layout)
	})
}

// CreatePipeline builds a render pipeline from a vertex layout, a shader
// module, and an optional bind group layout (nil for none).
//
// The pipeline draws into the presentation framebuffer, so the shader must
// have a fragment stage; without one CreatePipeline fails with
// ErrMissingFragmentStage.
func (d *GraphicsDevice) CreatePipeline(layout *ShaderLayout, shader *ShaderModule, bindLayout *BindGroupLayout, opts ...PipelineOption) (*PipelineState, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if layout == nil {
		return nil, fmt.Errorf("create pipeline: %w: nil shader layout", ErrInvalidAttribute)
	}
	if shader == nil || shader.dev != d {
		return nil, fmt.Errorf("create pipeline: shader: %w", ErrForeignResource)
	}
	if shader.pins.destroyed {
		return nil, fmt.Errorf("create pipeline: shader: %w", ErrResourceDestroyed)
	}
	if !shader.HasFragment() {
		return nil, fmt.Errorf("create pipeline: %w", ErrMissingFragmentStage)
	}
	if bindLayout != nil {
		if bindLayout.dev != d {
			return nil, fmt.Errorf("create pipeline: bind group layout: %w", ErrForeignResource)
		}
		if bindLayout.pins.destroyed {
			return nil, fmt.Errorf("create pipeline: bind group layout: %w", ErrResourceDestroyed)
		}
	}

	o := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var groups []hal.BindGroupLayout
	if bindLayout != nil {
		groups = []hal.BindGroupLayout{bindLayout.raw}
	}
	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            o.label + "_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	raw, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  o.label,
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader.vertex,
			EntryPoint: EntryPoint,
			Buffers:    layout.vertexBuffers(),
		},
		Fragment: &hal.FragmentState{
			Module:     shader.fragment,
			EntryPoint: EntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.format,
				Blend:     o.blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  o.topology,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  o.cullMode,
		},
		Multisample: gputypes.DefaultMultisampleState(),
	})
	if err != nil {
		d.device.DestroyPipelineLayout(pipeLayout)
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}

	Logger().Debug("gfx: pipeline created",
		"label", o.label,
		"stride", layout.Stride(),
		"attributes", layout.Len(),
		"format", d.format.String(),
		"bind_group", bindLayout != nil,
	)

	return &PipelineState{
		dev:        d,
		raw:        raw,
		layout:     pipeLayout,
		shader:     layout,
		bindLayout: bindLayout,
		format:     d.format,
		label:      o.label,
	}, nil
}

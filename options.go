package gfx

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceOption configures a GraphicsDevice during creation.
//
// Example:
//
//	dev, err := gfx.NewGraphicsDevice(win, gfx.PresentMailbox,
//	    gfx.WithBackend(gputypes.BackendVulkan),
//	    gfx.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}),
//	)
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for GraphicsDevice creation.
type deviceOptions struct {
	backend       hal.Backend
	variant       gputypes.Backend
	hasVariant    bool
	power         gputypes.PowerPreference
	clearColor    gputypes.Color
	memoryBudget  uint64
	instanceFlags gputypes.InstanceFlags
}

// defaultDeviceOptions mirrors a typical desktop setup: best available
// backend, high-performance adapter, black background, no memory budget.
func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		power:      gputypes.PowerPreferenceHighPerformance,
		clearColor: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// WithBackend selects a registered HAL backend by variant instead of the
// best available one. The backend package must be imported for its side
// effect, e.g. _ "github.com/gogpu/wgpu/hal/vulkan".
func WithBackend(variant gputypes.Backend) DeviceOption {
	return func(o *deviceOptions) {
		o.variant = variant
		o.hasVariant = true
	}
}

// WithHALBackend uses b directly, bypassing the HAL registry.
// Useful for tests and for embedding a custom backend.
func WithHALBackend(b hal.Backend) DeviceOption {
	return func(o *deviceOptions) {
		o.backend = b
	}
}

// WithPowerPreference sets the adapter preference. High performance (the
// default) prefers discrete GPUs; low power prefers integrated GPUs.
func WithPowerPreference(p gputypes.PowerPreference) DeviceOption {
	return func(o *deviceOptions) {
		o.power = p
	}
}

// WithClearColor sets the color ConfigureDraw clears the framebuffer to.
func WithClearColor(c gputypes.Color) DeviceOption {
	return func(o *deviceOptions) {
		o.clearColor = c
	}
}

// WithMemoryBudget caps the total bytes of live buffers. Zero disables the
// budget.
func WithMemoryBudget(bytes uint64) DeviceOption {
	return func(o *deviceOptions) {
		o.memoryBudget = bytes
	}
}

// WithValidation enables backend debug and validation layers when the
// backend has them.
func WithValidation() DeviceOption {
	return func(o *deviceOptions) {
		o.instanceFlags |= gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
}

// PipelineOption configures a PipelineState during creation.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	label    string
	topology gputypes.PrimitiveTopology
	cullMode gputypes.CullMode
	blend    *gputypes.BlendState
}

func defaultPipelineOptions() pipelineOptions {
	return pipelineOptions{
		label:    "gfx_pipeline",
		topology: gputypes.PrimitiveTopologyTriangleList,
		cullMode: gputypes.CullModeNone,
	}
}

// WithPipelineLabel sets the debug label of the pipeline.
func WithPipelineLabel(label string) PipelineOption {
	return func(o *pipelineOptions) {
		o.label = label
	}
}

// WithTopology sets the primitive topology. Default: triangle list.
func WithTopology(t gputypes.PrimitiveTopology) PipelineOption {
	return func(o *pipelineOptions) {
		o.topology = t
	}
}

// WithCullMode sets face culling. Default: none.
func WithCullMode(c gputypes.CullMode) PipelineOption {
	return func(o *pipelineOptions) {
		o.cullMode = c
	}
}

// WithBlend enables color blending on the pipeline's target. Without it the
// fragment output replaces the framebuffer contents.
func WithBlend(b gputypes.BlendState) PipelineOption {
	return func(o *pipelineOptions) {
		o.blend = &b
	}
}

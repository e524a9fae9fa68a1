package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindGroupLayout describes a bind group with a single uniform buffer slot
// (binding 0) visible to the vertex and fragment stages.
type BindGroupLayout struct {
	dev         *GraphicsDevice
	raw         hal.BindGroupLayout
	bindingSize uint64

	pins pinCount
}

// BindingSize returns the minimum buffer size slot 0 expects.
func (l *BindGroupLayout) BindingSize() uint64 { return l.bindingSize }

// Slots returns the number of binding slots.
func (l *BindGroupLayout) Slots() int { return 1 }

// Destroy releases the layout. Pipelines and bind groups created from it
// are unaffected. Destroy is idempotent.
func (l *BindGroupLayout) Destroy() {
	if !l.pins.requestDestroy() {
		return
	}
	raw := l.raw
	l.raw = nil
	l.dev.retire(func(d hal.Device) { d.DestroyBindGroupLayout(raw) })
}

// CreateBindGroupLayout creates a layout whose slot 0 holds a uniform buffer
// of at least bindingSize bytes. The size is typically
// unsafe.Sizeof of the uniform struct the shader declares.
func (d *GraphicsDevice) CreateBindGroupLayout(bindingSize uint64) (*BindGroupLayout, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if bindingSize == 0 {
		return nil, fmt.Errorf("create bind group layout: %w: zero", ErrInvalidBindingSize)
	}
	if limit := d.limits.MaxUniformBufferBindingSize; limit > 0 && bindingSize > limit {
		return nil, fmt.Errorf("create bind group layout: %w: %d exceeds device limit %d",
			ErrInvalidBindingSize, bindingSize, limit)
	}

	raw, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gfx_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: bindingSize,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	return &BindGroupLayout{dev: d, raw: raw, bindingSize: bindingSize}, nil
}

// BindGroup binds a uniform buffer to slot 0 of a BindGroupLayout. It is
// immutable once created; the buffer contents can still change through
// WriteBuffer between frames.
type BindGroup struct {
	dev    *GraphicsDevice
	raw    hal.BindGroup
	layout *BindGroupLayout
	buffer *Buffer

	pins pinCount
}

// Layout returns the layout the group was created for.
func (g *BindGroup) Layout() *BindGroupLayout { return g.layout }

// Buffer returns the buffer bound to slot 0.
func (g *BindGroup) Buffer() *Buffer { return g.buffer }

// Destroy releases the bind group. The bound buffer is not destroyed.
// Destroy is idempotent and deferred while the group is bound to an open
// recorder.
func (g *BindGroup) Destroy() {
	if g.pins.requestDestroy() {
		g.destroy()
	}
}

// pin also pins the bound buffer so it cannot be rewritten mid-pass.
func (g *BindGroup) pin() {
	g.pins.pin()
	g.buffer.pin()
}

func (g *BindGroup) release() {
	g.buffer.release()
	if g.pins.unpin() {
		g.destroy()
	}
}

func (g *BindGroup) destroy() {
	raw := g.raw
	g.raw = nil
	g.dev.retire(func(d hal.Device) { d.DestroyBindGroup(raw) })
}

// CreateBindGroup binds buf to slot 0 of layout. buf must be a uniform
// buffer at least layout.BindingSize() bytes long.
func (d *GraphicsDevice) CreateBindGroup(layout *BindGroupLayout, buf *Buffer) (*BindGroup, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if layout == nil || layout.dev != d {
		return nil, fmt.Errorf("create bind group: layout: %w", ErrForeignResource)
	}
	if layout.pins.destroyed {
		return nil, fmt.Errorf("create bind group: layout: %w", ErrResourceDestroyed)
	}
	if err := buf.usable(d); err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	if buf.usage != BufferUsageUniform {
		return nil, fmt.Errorf("create bind group: %w: %s buffer in uniform slot", ErrWrongBufferUsage, buf.usage)
	}
	if buf.length < layout.bindingSize {
		return nil, fmt.Errorf("create bind group: %w: buffer is %d bytes, layout expects %d",
			ErrBindingTooSmall, buf.length, layout.bindingSize)
	}

	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gfx_bind_group",
		Layout: layout.raw,
		Entries: []gputypes.BindGroupEntry{{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: buf.raw.NativeHandle(),
				Offset: 0,
				Size:   layout.bindingSize,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return &BindGroup{dev: d, raw: raw, layout: layout, buffer: buf}, nil
}

package gfx

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// GraphicsDevice exposes its HAL objects to other gogpu libraries that
// accept a gpucontext.DeviceProvider, so they can render into the same
// device.
var _ gpucontext.DeviceProvider = (*GraphicsDevice)(nil)

// Device returns the hal.Device, or nil after Close.
func (d *GraphicsDevice) Device() gpucontext.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	return d.device
}

// Queue returns the hal.Queue, or nil after Close.
func (d *GraphicsDevice) Queue() gpucontext.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		return nil
	}
	return d.queue
}

// SurfaceFormat returns the negotiated surface format.
func (d *GraphicsDevice) SurfaceFormat() gputypes.TextureFormat { return d.format }

// Adapter returns the hal.Adapter, or nil after Close.
func (d *GraphicsDevice) Adapter() gpucontext.Adapter {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.adapter == nil {
		return nil
	}
	return d.adapter
}

// AdapterInfo returns the adapter name and type.
func (d *GraphicsDevice) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: d.info.Name,
		Type: adapterType(d.info.DeviceType),
	}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

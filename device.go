package gfx

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// preferredFormats lists surface formats in order of preference. Shaders
// write linear 8-bit color, so non-sRGB formats come first.
var preferredFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA8UnormSrgb,
}

// GraphicsDevice owns the adapter, logical device, queue, and presentation
// surface for one window. It is the factory for all other resources and
// drives the acquire, submit, present cycle.
//
// Factory methods may be called from any goroutine. The frame protocol
// (GetPresentationFramebuffer, recording, Present) runs on a single
// goroutine.
type GraphicsDevice struct {
	window Window

	backend  hal.Backend
	instance hal.Instance
	surface  hal.Surface
	adapter  hal.Adapter
	device   hal.Device
	queue    hal.Queue

	info       gputypes.AdapterInfo
	limits     gputypes.Limits
	format     gputypes.TextureFormat
	alphaMode  gputypes.CompositeAlphaMode
	modes      []gputypes.PresentMode
	clearColor gputypes.Color
	memory     *memoryTracker

	closed atomic.Bool

	mu         sync.Mutex
	config     SurfaceConfig
	configured bool
	current    *Framebuffer
	frame      uint64
	stats      FrameStats

	// recorders holds every recorder with a live encoder.
	recorders map[*CommandRecorder]struct{}

	// lastSubmission is the index of the most recent queue submission.
	lastSubmission uint64
	inflight       []inflightSubmission
	retired        []retiredResource
}

// inflightSubmission keeps a submitted command buffer and its encoder alive
// until the GPU has finished with them.
type inflightSubmission struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

// retiredResource is a HAL object whose destruction waits for the
// submission that last could have used it.
type retiredResource struct {
	after   uint64
	destroy func(hal.Device)
}

// NewGraphicsDevice creates a device presenting to window with the given
// present mode.
//
// It selects a backend (see WithBackend), creates a surface from the
// window's native handles, picks an adapter (discrete before integrated by
// default, see WithPowerPreference), opens a logical device with downlevel
// limits, negotiates a surface format, and configures the surface at the
// window's current size. Errors are fatal: ErrNoBackend, ErrNoAdapter,
// ErrNoSurfaceFormat, or ErrInvalidWindow wrapped with context.
func NewGraphicsDevice(window Window, mode PresentMode, opts ...DeviceOption) (*GraphicsDevice, error) {
	if window == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidWindow)
	}
	w, h := physicalSize(window)
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: negative size %dx%d", ErrInvalidWindow, w, h)
	}

	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := selectBackend(&o)
	if err != nil {
		return nil, err
	}

	d := &GraphicsDevice{
		window:     window,
		backend:    backend,
		clearColor: o.clearColor,
		memory:     newMemoryTracker(o.memoryBudget),
	}
	if err := d.init(o, w, h, mode); err != nil {
		d.destroyHAL()
		return nil, err
	}

	Logger().Info("gfx: device created",
		"backend", backend.Variant().String(),
		"adapter", d.info.Name,
		"type", d.info.DeviceType.String(),
		"format", d.format.String(),
		"present_mode", d.config.PresentMode.String(),
		"width", w, "height", h,
	)
	return d, nil
}

func (d *GraphicsDevice) init(o deviceOptions, width, height int, mode PresentMode) error {
	instance, err := d.backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
		Flags:    o.instanceFlags,
	})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance

	display, handle := d.window.NativeHandles()
	surface, err := instance.CreateSurface(display, handle)
	if err != nil {
		return fmt.Errorf("%w: create surface: %w", ErrInvalidWindow, err)
	}
	d.surface = surface

	selected, err := selectAdapter(instance.EnumerateAdapters(surface), o.power)
	if err != nil {
		return err
	}
	d.adapter = selected.Adapter
	d.info = selected.Info

	caps := selected.Adapter.SurfaceCapabilities(surface)
	if caps == nil {
		return fmt.Errorf("%w: adapter %q cannot present to this surface", ErrNoSurfaceFormat, selected.Info.Name)
	}
	format, err := negotiateFormat(caps.Formats)
	if err != nil {
		return err
	}
	d.format = format
	d.modes = caps.PresentModes
	d.alphaMode = selectAlphaMode(caps.AlphaModes)

	d.limits = gputypes.DownlevelLimits()
	open, err := selected.Adapter.Open(gputypes.Features(0), d.limits)
	if err != nil {
		return fmt.Errorf("open device on %q: %w", selected.Info.Name, err)
	}
	d.device = open.Device
	d.queue = open.Queue

	d.config = SurfaceConfig{
		Width:       uint32(width),  //nolint:gosec // checked non-negative
		Height:      uint32(height), //nolint:gosec // checked non-negative
		Format:      format,
		PresentMode: resolvePresentMode(mode, d.modes),
	}
	return d.configureLocked()
}

// selectBackend resolves the HAL backend from options: an injected backend,
// a requested registry variant, or the best registered one.
func selectBackend(o *deviceOptions) (hal.Backend, error) {
	if o.backend != nil {
		return o.backend, nil
	}
	if o.hasVariant {
		b, ok := hal.GetBackend(o.variant)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not registered", ErrNoBackend, o.variant)
		}
		return b, nil
	}
	b, err := hal.SelectBestBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBackend, err)
	}
	return b, nil
}

// selectAdapter picks an adapter by power preference. High performance
// ranks discrete GPUs first, low power ranks integrated GPUs first; CPU
// adapters always rank last. Ties keep enumeration order.
func selectAdapter(adapters []hal.ExposedAdapter, pref gputypes.PowerPreference) (*hal.ExposedAdapter, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			if pref == gputypes.PowerPreferenceLowPower {
				return 1
			}
			return 0
		case gputypes.DeviceTypeIntegratedGPU:
			if pref == gputypes.PowerPreferenceLowPower {
				return 0
			}
			return 1
		case gputypes.DeviceTypeCPU:
			return 4
		case gputypes.DeviceTypeVirtualGPU:
			return 2
		default:
			return 3
		}
	}
	best := 0
	for i := 1; i < len(adapters); i++ {
		if rank(adapters[i].Info.DeviceType) < rank(adapters[best].Info.DeviceType) {
			best = i
		}
	}
	return &adapters[best], nil
}

// negotiateFormat picks the first preferred format the surface supports,
// falling back to the surface's own first format.
func negotiateFormat(supported []gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	if len(supported) == 0 {
		return gputypes.TextureFormatUndefined, ErrNoSurfaceFormat
	}
	for _, want := range preferredFormats {
		for _, f := range supported {
			if f == want {
				return f, nil
			}
		}
	}
	for _, f := range supported {
		if f != gputypes.TextureFormatUndefined {
			return f, nil
		}
	}
	return gputypes.TextureFormatUndefined, ErrNoSurfaceFormat
}

func selectAlphaMode(supported []gputypes.CompositeAlphaMode) gputypes.CompositeAlphaMode {
	for _, m := range supported {
		if m == gputypes.CompositeAlphaModeOpaque {
			return m
		}
	}
	if len(supported) > 0 {
		return supported[0]
	}
	return gputypes.CompositeAlphaModeOpaque
}

// Format returns the negotiated surface format. It never changes.
func (d *GraphicsDevice) Format() gputypes.TextureFormat { return d.format }

// Info returns the selected adapter's description.
func (d *GraphicsDevice) Info() gputypes.AdapterInfo { return d.info }

// Limits returns the limits the logical device was opened with.
func (d *GraphicsDevice) Limits() gputypes.Limits { return d.limits }

// MemoryStats returns buffer memory statistics.
func (d *GraphicsDevice) MemoryStats() MemoryStats { return d.memory.stats() }

func (d *GraphicsDevice) checkOpen() error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	return nil
}

// retire schedules fn to destroy a HAL object once every submission issued
// so far has completed. It runs immediately when the queue is idle.
func (d *GraphicsDevice) retire(fn func(hal.Device)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retireLocked(fn)
}

func (d *GraphicsDevice) retireLocked(fn func(hal.Device)) {
	if d.device == nil {
		// Device already torn down; its objects went with it.
		return
	}
	if d.lastSubmission <= d.queue.PollCompleted() {
		fn(d.device)
		return
	}
	d.retired = append(d.retired, retiredResource{after: d.lastSubmission, destroy: fn})
}

// maintainLocked frees command buffers and retired resources whose
// submissions have completed. d.mu must be held.
func (d *GraphicsDevice) maintainLocked() {
	if len(d.inflight) == 0 && len(d.retired) == 0 {
		return
	}
	done := d.queue.PollCompleted()

	n := 0
	for _, s := range d.inflight {
		if s.index <= done {
			d.device.FreeCommandBuffer(s.cmd)
			s.encoder.Destroy()
			continue
		}
		d.inflight[n] = s
		n++
	}
	clear(d.inflight[n:])
	d.inflight = d.inflight[:n]

	n = 0
	for _, r := range d.retired {
		if r.after <= done {
			r.destroy(d.device)
			continue
		}
		d.retired[n] = r
		n++
	}
	clear(d.retired[n:])
	d.retired = d.retired[:n]
}

// Close releases the device. A framebuffer still held is discarded, the GPU
// is drained, pending command buffers and retired resources are freed, and
// the device, surface, adapter, and instance are destroyed in that order.
//
// Resources created from the device must not be used afterwards. Close is
// idempotent.
func (d *GraphicsDevice) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.mu.Lock()
	open := d.takeRecordersLocked(nil)
	d.mu.Unlock()
	for _, r := range open {
		r.abandon(fmt.Errorf("%w: device closed", ErrRecorderAbandoned))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.discardLocked()
	}

	var errs []error
	if err := d.device.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("wait idle: %w", err))
	}

	for _, s := range d.inflight {
		d.device.FreeCommandBuffer(s.cmd)
		s.encoder.Destroy()
	}
	d.inflight = nil
	for _, r := range d.retired {
		r.destroy(d.device)
	}
	d.retired = nil

	if d.configured {
		d.surface.Unconfigure(d.device)
		d.configured = false
	}
	d.destroyHAL()

	Logger().Info("gfx: device closed",
		"frames_presented", d.stats.Presented,
		"frames_skipped", d.stats.Skipped,
	)
	return errors.Join(errs...)
}

// destroyHAL destroys HAL objects in reverse creation order. It tolerates
// partially initialised devices.
func (d *GraphicsDevice) destroyHAL() {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.surface != nil {
		d.surface.Destroy()
		d.surface = nil
	}
	if d.adapter != nil {
		d.adapter.Destroy()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

package gfx

import (
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// fakeBackend wraps the noop backend so tests can count submissions and
// presentations and inject surface errors.
type fakeBackend struct {
	noop.API

	surface *fakeSurface
	queue   *fakeQueue
	device  *noop.Device
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		surface: &fakeSurface{},
		queue:   &fakeQueue{Queue: &noop.Queue{}},
	}
}

func (b *fakeBackend) CreateInstance(_ *hal.InstanceDescriptor) (hal.Instance, error) {
	return &fakeInstance{backend: b}, nil
}

type fakeInstance struct {
	noop.Instance
	backend *fakeBackend
}

func (i *fakeInstance) CreateSurface(_, _ uintptr) (hal.Surface, error) {
	return i.backend.surface, nil
}

func (i *fakeInstance) EnumerateAdapters(surface hal.Surface) []hal.ExposedAdapter {
	adapters := i.Instance.EnumerateAdapters(surface)
	adapters[0].Adapter = &fakeAdapter{backend: i.backend}
	return adapters
}

type fakeAdapter struct {
	noop.Adapter
	backend *fakeBackend
}

func (a *fakeAdapter) Open(features gputypes.Features, limits gputypes.Limits) (hal.OpenDevice, error) {
	open, err := a.Adapter.Open(features, limits)
	if err != nil {
		return hal.OpenDevice{}, err
	}
	a.backend.device = open.Device.(*noop.Device)
	return hal.OpenDevice{Device: open.Device, Queue: a.backend.queue}, nil
}

type fakeQueue struct {
	*noop.Queue

	submits    int
	presents   int
	presentErr error
}

func (q *fakeQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cmds)
}

func (q *fakeQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	if err := q.presentErr; err != nil {
		q.presentErr = nil
		return err
	}
	q.presents++
	return q.Queue.Present(s, t, damage)
}

type fakeSurface struct {
	noop.Surface

	acquireErr error
	configs    []hal.SurfaceConfiguration
	discards   int
}

func (s *fakeSurface) Configure(d hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.configs = append(s.configs, *cfg)
	return s.Surface.Configure(d, cfg)
}

func (s *fakeSurface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if err := s.acquireErr; err != nil {
		s.acquireErr = nil
		return nil, err
	}
	return s.Surface.AcquireTexture(f)
}

func (s *fakeSurface) DiscardTexture(t hal.SurfaceTexture) {
	s.discards++
	s.Surface.DiscardTexture(t)
}

func (s *fakeSurface) lastConfig() hal.SurfaceConfiguration {
	return s.configs[len(s.configs)-1]
}

// newTestDevice creates a 640x480 device on a fake backend and closes it
// when the test ends.
func newTestDevice(t *testing.T, opts ...DeviceOption) (*GraphicsDevice, *fakeBackend, *HeadlessWindow) {
	t.Helper()
	backend := newFakeBackend()
	win := NewHeadlessWindow(640, 480)
	opts = append([]DeviceOption{WithHALBackend(backend)}, opts...)
	dev, err := NewGraphicsDevice(win, PresentFifo, opts...)
	if err != nil {
		t.Fatalf("NewGraphicsDevice: %v", err)
	}
	t.Cleanup(func() { _ = dev.Close() })
	return dev, backend, win
}

// testSPIRV returns a minimal well-formed SPIR-V module.
func testSPIRV() []byte {
	words := []uint32{0x07230203, 0x00010300, 0, 1, 0}
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func uint16Bytes(vals ...uint16) []byte {
	out := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

// triangleScene holds the resources for a single colored triangle with a
// 16-byte uniform.
type triangleScene struct {
	layout   *ShaderLayout
	shader   *ShaderModule
	bindings *BindGroupLayout
	pipeline *PipelineState
	vertices *Buffer
	indices  *Buffer
	uniforms *Buffer
	group    *BindGroup
}

func newTriangleScene(t *testing.T, dev *GraphicsDevice) *triangleScene {
	t.Helper()
	s := &triangleScene{}
	var err error

	if s.layout, err = dev.CreateShaderLayout(Attr(AttributeVec3, 0), Attr(AttributeVec3, 1)); err != nil {
		t.Fatalf("CreateShaderLayout: %v", err)
	}
	if s.shader, err = dev.CreateShader(testSPIRV(), testSPIRV()); err != nil {
		t.Fatalf("CreateShader: %v", err)
	}
	if s.bindings, err = dev.CreateBindGroupLayout(16); err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	if s.pipeline, err = dev.CreatePipeline(s.layout, s.shader, s.bindings); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if s.vertices, err = dev.CreateVertexBuffer(float32Bytes(
		-0.5, -0.5, 0, 1, 0, 0,
		0.5, -0.5, 0, 0, 1, 0,
		0, 0.5, 0, 0, 0, 1,
	)); err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	if s.indices, err = dev.CreateIndexBuffer(uint16Bytes(0, 1, 2)); err != nil {
		t.Fatalf("CreateIndexBuffer: %v", err)
	}
	if s.uniforms, err = dev.CreateUniformBuffer(float32Bytes(1, 1, 1, 1)); err != nil {
		t.Fatalf("CreateUniformBuffer: %v", err)
	}
	if s.group, err = dev.CreateBindGroup(s.bindings, s.uniforms); err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	return s
}

// record draws the triangle into fb and submits.
func (s *triangleScene) record(dev *GraphicsDevice, fb *Framebuffer) error {
	return dev.BeginCommands().
		ConfigureDraw(s.pipeline, fb).
		SetVertices(s.vertices).
		SetIndices(s.indices).
		BindResources(s.group).
		Draw(0, s.indices.IndexCount()).
		Submit()
}

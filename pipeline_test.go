package gfx

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestShaderLayoutPacking(t *testing.T) {
	tests := []struct {
		name    string
		attrs   []ShaderAttribute
		stride  uint64
		offsets []uint64
	}{
		{"empty", nil, 0, []uint64{}},
		{"position color", []ShaderAttribute{Attr(AttributeVec3, 0), Attr(AttributeVec3, 1)}, 24, []uint64{0, 12}},
		{"mixed", []ShaderAttribute{Attr(AttributeVec2, 0), Attr(AttributeFloat, 1), Attr(AttributeVec4, 2)}, 28, []uint64{0, 8, 12}},
		{"out of order locations", []ShaderAttribute{Attr(AttributeVec4, 3), Attr(AttributeVec2, 0)}, 24, []uint64{0, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewShaderLayout(tt.attrs...)
			if err != nil {
				t.Fatalf("NewShaderLayout: %v", err)
			}
			if l.Stride() != tt.stride {
				t.Errorf("Stride() = %d, want %d", l.Stride(), tt.stride)
			}
			got := l.Offsets()
			if len(got) != len(tt.offsets) {
				t.Fatalf("Offsets() = %v, want %v", got, tt.offsets)
			}
			for i := range got {
				if got[i] != tt.offsets[i] {
					t.Errorf("Offsets()[%d] = %d, want %d", i, got[i], tt.offsets[i])
				}
			}
		})
	}
}

func TestShaderLayoutErrors(t *testing.T) {
	if _, err := NewShaderLayout(Attr(AttributeVec2, 0), Attr(AttributeVec3, 0)); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("duplicate location error = %v, want ErrInvalidAttribute", err)
	}
	if _, err := NewShaderLayout(Attr(AttributeType(7), 0)); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("unknown type error = %v, want ErrInvalidAttribute", err)
	}

	dev, _, _ := newTestDevice(t)
	attrs := make([]ShaderAttribute, dev.Limits().MaxVertexAttributes+1)
	for i := range attrs {
		attrs[i] = Attr(AttributeFloat, uint32(i))
	}
	if _, err := dev.CreateShaderLayout(attrs...); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("too many attributes error = %v, want ErrInvalidAttribute", err)
	}
}

func TestShaderLayoutAttribute(t *testing.T) {
	l, err := NewShaderLayout(Attr(AttributeVec2, 4), Attr(AttributeVec4, 1))
	if err != nil {
		t.Fatalf("NewShaderLayout: %v", err)
	}
	a, off := l.Attribute(1)
	if a.Type != AttributeVec4 || a.Location != 1 || off != 8 {
		t.Errorf("Attribute(1) = %+v @ %d, want Vec4 at location 1 @ 8", a, off)
	}
	bufs := l.vertexBuffers()
	if len(bufs) != 1 || bufs[0].ArrayStride != 24 || len(bufs[0].Attributes) != 2 {
		t.Errorf("vertexBuffers() = %+v", bufs)
	}
	if bufs[0].Attributes[1].Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("attribute format = %v, want Float32x4", bufs[0].Attributes[1].Format)
	}
}

func TestCreateShader(t *testing.T) {
	dev, _, _ := newTestDevice(t)

	vs, err := dev.CreateShader(testSPIRV(), nil)
	if err != nil {
		t.Fatalf("CreateShader(vertex only): %v", err)
	}
	if vs.HasFragment() {
		t.Error("vertex-only module reports a fragment stage")
	}
	vs.Destroy()
	vs.Destroy()

	tests := []struct {
		name     string
		vertex   []byte
		fragment []byte
	}{
		{"empty vertex", nil, nil},
		{"misaligned", []byte{1, 2, 3}, nil},
		{"bad magic", make([]byte, 20), nil},
		{"bad fragment", testSPIRV(), []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dev.CreateShader(tt.vertex, tt.fragment); !errors.Is(err, ErrInvalidShader) {
				t.Errorf("CreateShader() error = %v, want ErrInvalidShader", err)
			}
		})
	}
}

func TestCreatePipelineMissingFragment(t *testing.T) {
	dev, _, _ := newTestDevice(t)

	layout, err := NewShaderLayout(Attr(AttributeVec3, 0))
	if err != nil {
		t.Fatalf("NewShaderLayout: %v", err)
	}
	vs, err := dev.CreateShader(testSPIRV(), nil)
	if err != nil {
		t.Fatalf("CreateShader: %v", err)
	}
	if _, err := dev.CreatePipeline(layout, vs, nil); !errors.Is(err, ErrMissingFragmentStage) {
		t.Errorf("CreatePipeline() error = %v, want ErrMissingFragmentStage", err)
	}
}

func TestCreatePipeline(t *testing.T) {
	dev, _, _ := newTestDevice(t)
	s := newTriangleScene(t, dev)

	p, err := dev.CreatePipeline(s.layout, s.shader, s.bindings,
		WithPipelineLabel("blended"),
		WithBlend(gputypes.BlendStateAlpha()),
		WithCullMode(gputypes.CullModeBack),
	)
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	if p.Format() != dev.Format() {
		t.Errorf("Format() = %v, want %v", p.Format(), dev.Format())
	}
	if p.ShaderLayout() != s.layout || p.BindGroupLayout() != s.bindings {
		t.Error("pipeline does not report the layouts it was built with")
	}
	p.Destroy()

	s.shader.Destroy()
	if _, err := dev.CreatePipeline(s.layout, s.shader, nil); !errors.Is(err, ErrResourceDestroyed) {
		t.Errorf("CreatePipeline with destroyed shader error = %v, want ErrResourceDestroyed", err)
	}
}

func TestBindGroups(t *testing.T) {
	dev, _, _ := newTestDevice(t)

	if _, err := dev.CreateBindGroupLayout(0); !errors.Is(err, ErrInvalidBindingSize) {
		t.Errorf("CreateBindGroupLayout(0) error = %v, want ErrInvalidBindingSize", err)
	}
	layout, err := dev.CreateBindGroupLayout(80)
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	if layout.BindingSize() != 80 || layout.Slots() != 1 {
		t.Errorf("layout = %d bytes in %d slots, want 80 in 1", layout.BindingSize(), layout.Slots())
	}

	small, err := dev.CreateUniformBuffer(make([]byte, 16))
	if err != nil {
		t.Fatalf("CreateUniformBuffer: %v", err)
	}
	if _, err := dev.CreateBindGroup(layout, small); !errors.Is(err, ErrBindingTooSmall) {
		t.Errorf("CreateBindGroup(small) error = %v, want ErrBindingTooSmall", err)
	}

	vertices, err := dev.CreateVertexBuffer(make([]byte, 80))
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	if _, err := dev.CreateBindGroup(layout, vertices); !errors.Is(err, ErrWrongBufferUsage) {
		t.Errorf("CreateBindGroup(vertex buffer) error = %v, want ErrWrongBufferUsage", err)
	}

	uniforms, err := dev.CreateUniformBuffer(make([]byte, 80))
	if err != nil {
		t.Fatalf("CreateUniformBuffer: %v", err)
	}
	g, err := dev.CreateBindGroup(layout, uniforms)
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	if g.Layout() != layout || g.Buffer() != uniforms {
		t.Error("bind group does not report its layout and buffer")
	}

	other, _, _ := newTestDevice(t)
	if _, err := other.CreateBindGroup(layout, uniforms); !errors.Is(err, ErrForeignResource) {
		t.Errorf("CreateBindGroup on another device error = %v, want ErrForeignResource", err)
	}
}

func TestAttributeType(t *testing.T) {
	tests := []struct {
		typ  AttributeType
		name string
		size uint64
	}{
		{AttributeFloat, "Float", 4},
		{AttributeVec2, "Vec2", 8},
		{AttributeVec3, "Vec3", 12},
		{AttributeVec4, "Vec4", 16},
		{AttributeType(9), "AttributeType(9)", 0},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.typ.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.name, got, tt.size)
		}
	}
}

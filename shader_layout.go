package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// AttributeType is the type of a vertex attribute. All types are 32-bit
// floats; vectors are packed with no padding.
type AttributeType uint8

const (
	// AttributeFloat is a single float (4 bytes).
	AttributeFloat AttributeType = iota
	// AttributeVec2 is a 2-component float vector (8 bytes).
	AttributeVec2
	// AttributeVec3 is a 3-component float vector (12 bytes).
	AttributeVec3
	// AttributeVec4 is a 4-component float vector (16 bytes).
	AttributeVec4
)

// String returns the attribute type name.
func (t AttributeType) String() string {
	switch t {
	case AttributeFloat:
		return "Float"
	case AttributeVec2:
		return "Vec2"
	case AttributeVec3:
		return "Vec3"
	case AttributeVec4:
		return "Vec4"
	default:
		return fmt.Sprintf("AttributeType(%d)", int(t))
	}
}

// Size returns the attribute size in bytes, or 0 for an unknown type.
func (t AttributeType) Size() uint64 {
	switch t {
	case AttributeFloat:
		return 4
	case AttributeVec2:
		return 8
	case AttributeVec3:
		return 12
	case AttributeVec4:
		return 16
	default:
		return 0
	}
}

func (t AttributeType) vertexFormat() gputypes.VertexFormat {
	switch t {
	case AttributeFloat:
		return gputypes.VertexFormatFloat32
	case AttributeVec2:
		return gputypes.VertexFormatFloat32x2
	case AttributeVec3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// ShaderAttribute declares one vertex attribute and the shader location it
// feeds.
type ShaderAttribute struct {
	Type     AttributeType
	Location uint32
}

// Attr is shorthand for ShaderAttribute{Type: t, Location: location}.
func Attr(t AttributeType, location uint32) ShaderAttribute {
	return ShaderAttribute{Type: t, Location: location}
}

// ShaderLayout describes how vertex attributes are packed into a vertex
// buffer. Attributes are packed tightly in declaration order: the offset of
// each attribute is the sum of the sizes before it, and the stride is the
// sum of all sizes.
type ShaderLayout struct {
	attrs   []gputypes.VertexAttribute
	types   []AttributeType
	offsets []uint64
	stride  uint64
}

// NewShaderLayout computes the packing for attrs. It fails on unknown types
// and on duplicate shader locations.
func NewShaderLayout(attrs ...ShaderAttribute) (*ShaderLayout, error) {
	l := &ShaderLayout{
		attrs:   make([]gputypes.VertexAttribute, 0, len(attrs)),
		types:   make([]AttributeType, 0, len(attrs)),
		offsets: make([]uint64, 0, len(attrs)),
	}
	seen := make(map[uint32]int, len(attrs))
	for i, a := range attrs {
		size := a.Type.Size()
		if size == 0 {
			return nil, fmt.Errorf("%w: attribute %d has unknown type %s", ErrInvalidAttribute, i, a.Type)
		}
		if prev, dup := seen[a.Location]; dup {
			return nil, fmt.Errorf("%w: attributes %d and %d share location %d", ErrInvalidAttribute, prev, i, a.Location)
		}
		seen[a.Location] = i

		l.attrs = append(l.attrs, gputypes.VertexAttribute{
			Format:         a.Type.vertexFormat(),
			Offset:         l.stride,
			ShaderLocation: a.Location,
		})
		l.types = append(l.types, a.Type)
		l.offsets = append(l.offsets, l.stride)
		l.stride += size
	}
	return l, nil
}

// CreateShaderLayout is NewShaderLayout checked against the device's vertex
// attribute and stride limits.
func (d *GraphicsDevice) CreateShaderLayout(attrs ...ShaderAttribute) (*ShaderLayout, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if limit := d.limits.MaxVertexAttributes; limit > 0 && uint32(len(attrs)) > limit { //nolint:gosec // attribute count is small
		return nil, fmt.Errorf("%w: %d attributes exceed device limit %d", ErrInvalidAttribute, len(attrs), limit)
	}
	l, err := NewShaderLayout(attrs...)
	if err != nil {
		return nil, err
	}
	if limit := d.limits.MaxVertexBufferArrayStride; limit > 0 && l.stride > uint64(limit) {
		return nil, fmt.Errorf("%w: stride %d exceeds device limit %d", ErrInvalidAttribute, l.stride, limit)
	}
	return l, nil
}

// Stride returns the size of one vertex in bytes.
func (l *ShaderLayout) Stride() uint64 { return l.stride }

// Offsets returns the byte offset of each attribute, in declaration order.
func (l *ShaderLayout) Offsets() []uint64 {
	out := make([]uint64, len(l.offsets))
	copy(out, l.offsets)
	return out
}

// Len returns the number of attributes.
func (l *ShaderLayout) Len() int { return len(l.attrs) }

// Attribute returns the i-th attribute with its computed offset.
func (l *ShaderLayout) Attribute(i int) (ShaderAttribute, uint64) {
	return ShaderAttribute{Type: l.types[i], Location: l.attrs[i].ShaderLocation}, l.offsets[i]
}

// vertexBuffers returns the vertex buffer layout for slot 0, or none when
// the layout has no attributes.
func (l *ShaderLayout) vertexBuffers() []gputypes.VertexBufferLayout {
	if len(l.attrs) == 0 {
		return nil
	}
	return []gputypes.VertexBufferLayout{{
		ArrayStride: l.stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  l.attrs,
	}}
}

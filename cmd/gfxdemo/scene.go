package main

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gogpu/gfx"
)

const vertexShader = `
struct Uniforms {
    color: vec4<f32>,
    mvp: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn main(@location(0) position: vec3<f32>, @location(1) color: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.mvp * vec4<f32>(position, 1.0);
    out.color = vec4<f32>(color, 1.0) * u.color;
    return out;
}
`

const fragmentShader = `
@fragment
fn main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return color;
}
`

// vertex matches the shader's inputs: position at location 0, color at 1.
type vertex struct {
	pos   [3]float32
	color [3]float32
}

var triangle = []vertex{
	{pos: [3]float32{1, 0, 0}, color: [3]float32{1, 1, 0}},
	{pos: [3]float32{0, 1, 0}, color: [3]float32{0, 1, 1}},
	{pos: [3]float32{-1, -1, 0}, color: [3]float32{1, 0, 1}},
}

var triangleIndices = []uint16{0, 1, 2}

// uniforms matches the shader's Uniforms struct: a tint followed by a
// column-major transform.
type uniforms struct {
	color [4]float32
	mvp   [16]float32
}

const uniformsSize = 4*4 + 16*4

func (u *uniforms) bytes() []byte {
	out := make([]byte, 0, uniformsSize)
	for _, f := range u.color {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	for _, f := range u.mvp {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

// colorPeriod is how long the tint takes to fade to the next random color.
const colorPeriod = 2 * time.Second

type scene struct {
	shader   *gfx.ShaderModule
	bindings *gfx.BindGroupLayout
	pipeline *gfx.PipelineState
	vertices *gfx.Buffer
	indices  *gfx.Buffer
	uniforms *gfx.Buffer
	group    *gfx.BindGroup

	rng       *rand.Rand
	data      uniforms
	angle     float64
	from, to  [4]float32
	fadeSince time.Duration
}

func newScene(dev *gfx.GraphicsDevice, rng *rand.Rand) (_ *scene, err error) {
	s := &scene{
		rng:  rng,
		from: [4]float32{1, 0.5, 0.5, 1},
	}
	s.to = s.randomColor()
	defer func() {
		if err != nil {
			s.destroy()
		}
	}()

	layout, err := dev.CreateShaderLayout(gfx.Attr(gfx.AttributeVec3, 0), gfx.Attr(gfx.AttributeVec3, 1))
	if err != nil {
		return nil, err
	}
	if s.shader, err = dev.CreateShaderWGSL(vertexShader, fragmentShader); err != nil {
		return nil, err
	}
	if s.bindings, err = dev.CreateBindGroupLayout(uniformsSize); err != nil {
		return nil, err
	}
	if s.pipeline, err = dev.CreatePipeline(layout, s.shader, s.bindings, gfx.WithPipelineLabel("triangle")); err != nil {
		return nil, err
	}

	verts := make([]byte, 0, len(triangle)*int(layout.Stride()))
	for _, v := range triangle {
		for _, f := range append(v.pos[:], v.color[:]...) {
			verts = binary.LittleEndian.AppendUint32(verts, math.Float32bits(f))
		}
	}
	if s.vertices, err = dev.CreateVertexBuffer(verts); err != nil {
		return nil, err
	}

	idx := make([]byte, 0, len(triangleIndices)*2)
	for _, i := range triangleIndices {
		idx = binary.LittleEndian.AppendUint16(idx, i)
	}
	if s.indices, err = dev.CreateIndexBuffer(idx); err != nil {
		return nil, err
	}

	s.data.color = s.from
	s.data.mvp = identity()
	if s.uniforms, err = dev.CreateUniformBuffer(s.data.bytes()); err != nil {
		return nil, err
	}
	if s.group, err = dev.CreateBindGroup(s.bindings, s.uniforms); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *scene) randomColor() [4]float32 {
	return [4]float32{0.3 + 0.7*s.rng.Float32(), 0.3 + 0.7*s.rng.Float32(), 0.3 + 0.7*s.rng.Float32(), 1}
}

// update advances the animation by dt for a surface of the given size.
func (s *scene) update(dt time.Duration, surface gfx.SurfaceConfig) {
	s.angle = math.Mod(s.angle+dt.Seconds()*math.Pi/2, 2*math.Pi)

	s.fadeSince += dt
	if s.fadeSince >= colorPeriod {
		s.fadeSince -= colorPeriod
		s.from, s.to = s.to, s.randomColor()
	}
	t := float32(s.fadeSince) / float32(colorPeriod)
	for i := range s.data.color {
		s.data.color[i] = s.from[i] + (s.to[i]-s.from[i])*t
	}

	aspect := 1.0
	if surface.Width > 0 && surface.Height > 0 {
		aspect = float64(surface.Width) / float64(surface.Height)
	}
	s.data.mvp = rotationZ(s.angle, aspect)
}

// draw uploads the uniforms and records the triangle into fb.
func (s *scene) draw(dev *gfx.GraphicsDevice, fb *gfx.Framebuffer) error {
	if err := dev.WriteBuffer(s.uniforms, s.data.bytes()); err != nil {
		return err
	}
	return dev.BeginCommands().
		ConfigureDraw(s.pipeline, fb).
		SetVertices(s.vertices).
		SetIndices(s.indices).
		BindResources(s.group).
		Draw(0, s.indices.IndexCount()).
		Submit()
}

func (s *scene) destroy() {
	if s.group != nil {
		s.group.Destroy()
	}
	for _, b := range []*gfx.Buffer{s.uniforms, s.indices, s.vertices} {
		if b != nil {
			b.Destroy()
		}
	}
	if s.pipeline != nil {
		s.pipeline.Destroy()
	}
	if s.bindings != nil {
		s.bindings.Destroy()
	}
	if s.shader != nil {
		s.shader.Destroy()
	}
}

func identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// rotationZ returns a column-major rotation about Z, scaled by 0.8 and
// corrected for the surface aspect ratio.
func rotationZ(angle, aspect float64) [16]float32 {
	c := float32(0.8 * math.Cos(angle))
	sn := float32(0.8 * math.Sin(angle))
	a := float32(aspect)
	return [16]float32{
		c / a, sn, 0, 0,
		-sn / a, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

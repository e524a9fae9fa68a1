package gfx

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/internal/spirv"
)

// EntryPoint is the entry point name used for both shader stages.
const EntryPoint = "main"

// ShaderModule holds the compiled vertex stage and, optionally, the
// fragment stage of a program. It is immutable once created.
type ShaderModule struct {
	dev      *GraphicsDevice
	vertex   hal.ShaderModule
	fragment hal.ShaderModule // nil for vertex-only programs

	pins pinCount
}

// HasFragment reports whether the module has a fragment stage.
func (s *ShaderModule) HasFragment() bool { return s.fragment != nil }

// Destroy releases both stages. Pipelines already built from the module
// keep working. Destroy is idempotent.
func (s *ShaderModule) Destroy() {
	if !s.pins.requestDestroy() {
		return
	}
	vs, fs := s.vertex, s.fragment
	s.vertex, s.fragment = nil, nil
	s.dev.retire(func(d hal.Device) {
		d.DestroyShaderModule(vs)
		if fs != nil {
			d.DestroyShaderModule(fs)
		}
	})
}

// CreateShader creates a shader module from SPIR-V bytecode. fragment may be
// nil. Both stages use the entry point "main".
//
// The bytecode is checked for a well-formed SPIR-V header before it reaches
// the driver; malformed input fails with ErrInvalidShader.
func (d *GraphicsDevice) CreateShader(vertex, fragment []byte) (*ShaderModule, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	vs, err := d.createShaderStage("gfx_vertex_shader", vertex)
	if err != nil {
		return nil, fmt.Errorf("create vertex shader: %w", err)
	}

	var fs hal.ShaderModule
	if fragment != nil {
		fs, err = d.createShaderStage("gfx_fragment_shader", fragment)
		if err != nil {
			d.device.DestroyShaderModule(vs)
			return nil, fmt.Errorf("create fragment shader: %w", err)
		}
	}

	Logger().Debug("gfx: shader created", "vertex_bytes", len(vertex), "fragment_bytes", len(fragment))
	return &ShaderModule{dev: d, vertex: vs, fragment: fs}, nil
}

// CreateShaderWGSL compiles WGSL sources to SPIR-V and creates a shader
// module from them. fragment may be empty. Each source must declare its
// stage's entry point as fn main.
func (d *GraphicsDevice) CreateShaderWGSL(vertex, fragment string) (*ShaderModule, error) {
	vs, err := CompileWGSL(vertex)
	if err != nil {
		return nil, fmt.Errorf("compile vertex shader: %w", err)
	}
	var fs []byte
	if fragment != "" {
		if fs, err = CompileWGSL(fragment); err != nil {
			return nil, fmt.Errorf("compile fragment shader: %w", err)
		}
	}
	return d.CreateShader(vs, fs)
}

// CompileWGSL compiles WGSL source to SPIR-V bytecode suitable for
// CreateShader.
func CompileWGSL(source string) ([]byte, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShader, err)
	}
	return code, nil
}

func (d *GraphicsDevice) createShaderStage(label string, code []byte) (hal.ShaderModule, error) {
	words, err := spirv.Words(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShader, err)
	}
	m, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShader, err)
	}
	return m, nil
}

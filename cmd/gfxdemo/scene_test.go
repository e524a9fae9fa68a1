package main

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/gfx"
)

func TestUniformsBytes(t *testing.T) {
	u := uniforms{color: [4]float32{1, 0.5, 0.25, 1}, mvp: identity()}
	b := u.bytes()
	if len(b) != uniformsSize {
		t.Fatalf("len(bytes()) = %d, want %d", len(b), uniformsSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[4:])); got != 0.5 {
		t.Errorf("color.g = %v, want 0.5", got)
	}
	// mvp[0] follows the 16-byte color.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[16:])); got != 1 {
		t.Errorf("mvp[0] = %v, want 1", got)
	}
}

func TestRotationZ(t *testing.T) {
	m := rotationZ(math.Pi/2, 2)
	// A quarter turn maps +X to +Y.
	x := m[0]*1 + m[4]*0
	y := m[1]*1 + m[5]*0
	if math.Abs(float64(x)) > 1e-6 || math.Abs(float64(y)-0.8) > 1e-6 {
		t.Errorf("rotationZ(pi/2) * (1, 0) = (%v, %v), want (0, 0.8)", x, y)
	}
	m = rotationZ(0, 2)
	if m[0] != 0.4 || m[5] != 0.8 {
		t.Errorf("rotationZ(0, 2) scale = %v, %v, want 0.4, 0.8", m[0], m[5])
	}
}

func TestSceneUpdate(t *testing.T) {
	s := &scene{rng: rand.New(rand.NewPCG(1, 2)), from: [4]float32{1, 0, 0, 1}}
	s.to = s.randomColor()
	next := s.to

	s.update(colorPeriod/2, gfx.SurfaceConfig{Width: 640, Height: 480})
	if s.data.color[0] == s.from[0] && s.data.color[1] == s.from[1] {
		t.Error("tint did not move toward the target color")
	}

	s.update(colorPeriod, gfx.SurfaceConfig{})
	if s.from != next {
		t.Errorf("after a full period from = %v, want previous target %v", s.from, next)
	}
	if s.fadeSince >= colorPeriod || s.fadeSince < 0 {
		t.Errorf("fadeSince = %v, want within one period", s.fadeSince)
	}
	if s.angle < 0 || s.angle >= 2*math.Pi {
		t.Errorf("angle = %v, want within [0, 2pi)", s.angle)
	}
}

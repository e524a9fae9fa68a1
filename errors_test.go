package gfx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/wgpu/hal"
)

func TestStateError(t *testing.T) {
	err := error(&StateError{Op: "SetVertices", State: RecorderBegun})
	if got, want := err.Error(), "gfx: SetVertices not allowed in state Begun"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("StateError does not match ErrInvalidState")
	}
	if IsTransient(err) {
		t.Error("StateError reported as transient")
	}
}

func TestClassifySurfaceError(t *testing.T) {
	tests := []struct {
		err       error
		transient bool
	}{
		{hal.ErrSurfaceOutdated, true},
		{hal.ErrTimeout, true},
		{hal.ErrNotReady, true},
		{hal.ErrZeroArea, true},
		{fmt.Errorf("vulkan: %w", hal.ErrSurfaceOutdated), true},
		{hal.ErrSurfaceLost, false},
		{hal.ErrDeviceLost, false},
		{errors.New("driver crashed"), false},
	}
	for _, tt := range tests {
		got := classifySurfaceError(tt.err)
		if IsTransient(got) != tt.transient {
			t.Errorf("classifySurfaceError(%v) transient = %v, want %v", tt.err, IsTransient(got), tt.transient)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("classifySurfaceError(%v) = %v, lost the cause", tt.err, got)
		}
	}
}

func TestFrameStatsString(t *testing.T) {
	s := FrameStats{Acquired: 3, Presented: 2, Discarded: 1, Skipped: 4, Submissions: 2, Reconfigures: 1}
	want := "Frames[acquired=3 presented=2 discarded=1 skipped=4 submissions=2 reconfigures=1]"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package gfx

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PresentMode controls how finished frames are handed to the compositor.
type PresentMode uint8

const (
	// PresentFifo waits for vertical sync. Every frame is shown and latency
	// is bounded by the swapchain length. Always supported.
	PresentFifo PresentMode = iota

	// PresentImmediate presents without waiting. Tearing may be visible.
	PresentImmediate

	// PresentMailbox replaces any frame still waiting for vsync with the
	// newest one: low latency without tearing.
	PresentMailbox
)

// String returns the present mode name.
func (m PresentMode) String() string {
	switch m {
	case PresentFifo:
		return "Fifo"
	case PresentImmediate:
		return "Immediate"
	case PresentMailbox:
		return "Mailbox"
	default:
		return fmt.Sprintf("PresentMode(%d)", m)
	}
}

// ParsePresentMode parses a present mode name, ignoring case.
// "vsync" is accepted as an alias for Fifo.
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo", "vsync":
		return PresentFifo, nil
	case "immediate":
		return PresentImmediate, nil
	case "mailbox":
		return PresentMailbox, nil
	default:
		return PresentFifo, fmt.Errorf("gfx: unknown present mode %q", s)
	}
}

func (m PresentMode) toHAL() hal.PresentMode {
	switch m {
	case PresentImmediate:
		return hal.PresentModeImmediate
	case PresentMailbox:
		return hal.PresentModeMailbox
	default:
		return hal.PresentModeFifo
	}
}

// resolvePresentMode returns mode if the surface supports it and Fifo
// otherwise. A nil or empty capability list accepts every mode.
func resolvePresentMode(mode PresentMode, supported []gputypes.PresentMode) PresentMode {
	if len(supported) == 0 {
		return mode
	}
	want := mode.toHAL()
	for _, m := range supported {
		if m == want {
			return mode
		}
	}
	Logger().Warn("gfx: present mode not supported, falling back to Fifo", "requested", mode.String())
	return PresentFifo
}

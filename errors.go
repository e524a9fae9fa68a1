package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Startup errors. These are returned by NewGraphicsDevice and are not
// recoverable in-process.
var (
	// ErrNoBackend is returned when no HAL backend is registered.
	ErrNoBackend = errors.New("gfx: no graphics backend available")

	// ErrNoAdapter is returned when the instance exposes no usable adapter.
	ErrNoAdapter = errors.New("gfx: no compatible GPU adapter")

	// ErrNoSurfaceFormat is returned when the surface and adapter share no
	// renderable format.
	ErrNoSurfaceFormat = errors.New("gfx: no negotiable surface format")

	// ErrInvalidWindow is returned for a nil window or one without a size.
	ErrInvalidWindow = errors.New("gfx: invalid window")
)

// Construction errors, returned by the resource factories.
var (
	// ErrInvalidShader is returned when shader bytecode is rejected.
	ErrInvalidShader = errors.New("gfx: invalid shader bytecode")

	// ErrMissingFragmentStage is returned when a pipeline needs a fragment
	// stage and the shader module has none.
	ErrMissingFragmentStage = errors.New("gfx: shader has no fragment stage")

	// ErrInvalidAttribute is returned for malformed vertex attribute lists.
	ErrInvalidAttribute = errors.New("gfx: invalid vertex attribute")

	// ErrEmptyBuffer is returned when a buffer is created from no data.
	ErrEmptyBuffer = errors.New("gfx: buffer data is empty")

	// ErrInvalidIndexData is returned when index data is not a whole number
	// of indices.
	ErrInvalidIndexData = errors.New("gfx: index data length is not a multiple of the index size")

	// ErrWrongBufferUsage is returned when a buffer is used for a purpose
	// other than the one it was created for.
	ErrWrongBufferUsage = errors.New("gfx: wrong buffer usage")

	// ErrWriteTooLarge is returned when WriteBuffer data exceeds the buffer.
	ErrWriteTooLarge = errors.New("gfx: write exceeds buffer size")

	// ErrBindingTooSmall is returned when a buffer is smaller than the
	// binding size its layout expects.
	ErrBindingTooSmall = errors.New("gfx: buffer smaller than binding size")

	// ErrInvalidBindingSize is returned for a zero or over-limit binding size.
	ErrInvalidBindingSize = errors.New("gfx: invalid binding size")

	// ErrFormatMismatch is returned when a pipeline's target format differs
	// from the framebuffer it is asked to draw into.
	ErrFormatMismatch = errors.New("gfx: pipeline target format does not match framebuffer")

	// ErrMemoryBudgetExceeded is returned when an allocation would exceed the
	// configured buffer memory budget.
	ErrMemoryBudgetExceeded = errors.New("gfx: memory budget exceeded")
)

// Transient errors. The frame should be skipped and retried after the
// caller reconfigures.
var (
	// ErrFrameUnavailable is returned when the surface cannot provide a
	// frame right now (stale size, minimised window, outdated swapchain).
	ErrFrameUnavailable = errors.New("gfx: frame unavailable")
)

// Misuse errors. These indicate a protocol violation by the caller.
var (
	// ErrInvalidState is wrapped by every *StateError.
	ErrInvalidState = errors.New("gfx: invalid recorder state")

	// ErrRecorderSubmitted is returned by Submit on a spent recorder.
	ErrRecorderSubmitted = errors.New("gfx: recorder already submitted")

	// ErrRecorderAbandoned is returned by a recorder whose frame was
	// discarded, or whose device was closed, before it was submitted.
	ErrRecorderAbandoned = errors.New("gfx: recorder abandoned before submit")

	// ErrFrameInFlight is returned when a framebuffer is acquired, or the
	// surface reconfigured, while another framebuffer is still held.
	ErrFrameInFlight = errors.New("gfx: a framebuffer is already acquired")

	// ErrNothingToPresent is returned by Present with no framebuffer held.
	ErrNothingToPresent = errors.New("gfx: no framebuffer acquired")

	// ErrFramebufferPresented is returned when a framebuffer is used after
	// it was presented or discarded.
	ErrFramebufferPresented = errors.New("gfx: framebuffer already presented")

	// ErrResourceInUse is returned when a resource bound to an open recorder
	// is mutated or presented.
	ErrResourceInUse = errors.New("gfx: resource is bound to an open recorder")

	// ErrDeviceClosed is returned by any operation on a closed device.
	ErrDeviceClosed = errors.New("gfx: device closed")

	// ErrResourceDestroyed is returned when a destroyed resource is used.
	ErrResourceDestroyed = errors.New("gfx: resource destroyed")

	// ErrForeignResource is returned when a resource from one device is
	// passed to another.
	ErrForeignResource = errors.New("gfx: resource belongs to another device")

	// ErrDrawOutOfRange is returned when a draw range exceeds the bound
	// vertex or index data.
	ErrDrawOutOfRange = errors.New("gfx: draw range out of bounds")

	// ErrMissingVertices is returned when a draw needs a vertex buffer and
	// none is bound.
	ErrMissingVertices = errors.New("gfx: no vertex buffer bound")

	// ErrMissingBindGroup is returned when the pipeline expects a bind group
	// and none is bound.
	ErrMissingBindGroup = errors.New("gfx: no bind group bound")

	// ErrBindGroupMismatch is returned when a bind group was created for a
	// different layout than the bound pipeline expects.
	ErrBindGroupMismatch = errors.New("gfx: bind group layout does not match pipeline")
)

// StateError reports a recorder call made in a state that does not allow it.
type StateError struct {
	Op    string
	State RecorderState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("gfx: %s not allowed in state %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidState so callers can match with errors.Is.
func (e *StateError) Unwrap() error { return ErrInvalidState }

// IsTransient reports whether err is a recoverable per-frame failure. The
// frame should be dropped and the loop should continue.
func IsTransient(err error) bool {
	return errors.Is(err, ErrFrameUnavailable)
}

// classifySurfaceError maps a HAL surface error onto the gfx taxonomy.
// Outdated, timed-out, busy, and zero-area surfaces are transient; anything
// else (surface or device lost) is returned unchanged.
func classifySurfaceError(err error) error {
	switch {
	case errors.Is(err, hal.ErrSurfaceOutdated),
		errors.Is(err, hal.ErrTimeout),
		errors.Is(err, hal.ErrNotReady),
		errors.Is(err, hal.ErrZeroArea):
		return fmt.Errorf("%w: %w", ErrFrameUnavailable, err)
	default:
		return err
	}
}

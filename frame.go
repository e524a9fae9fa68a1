package gfx

import (
	"errors"
	"fmt"
)

// RenderFrame runs one iteration of the frame protocol: acquire, record,
// present. record receives the framebuffer and is expected to submit its
// recorders before returning.
//
// It reports whether a frame reached the compositor. A transient acquire or
// present failure drops the frame and returns (false, nil); the caller
// should Reconfigure if the window changed size and try again next tick.
// When record returns an error, or returns without submitting a recorder
// it opened on the framebuffer, those recorders are abandoned, the
// framebuffer is discarded, and the error is returned. The next call starts
// from a clean frame either way.
func (d *GraphicsDevice) RenderFrame(record func(fb *Framebuffer) error) (bool, error) {
	fb, err := d.GetPresentationFramebuffer()
	if err != nil {
		if IsTransient(err) {
			Logger().Debug("gfx: frame skipped", "err", err)
			return false, nil
		}
		return false, err
	}

	err = record(fb)
	if err == nil {
		if n := d.openRecorders(fb); n > 0 {
			err = fmt.Errorf("frame %d: %w: %d recorder(s) not submitted", fb.Frame(), ErrRecorderAbandoned, n)
		}
	}
	if err != nil {
		if derr := d.DiscardFramebuffer(); derr != nil {
			return false, errors.Join(err, fmt.Errorf("discard frame %d: %w", fb.Frame(), derr))
		}
		return false, err
	}

	if err := d.Present(); err != nil {
		if IsTransient(err) {
			Logger().Debug("gfx: present skipped", "frame", fb.Frame(), "err", err)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

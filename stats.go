package gfx

import "fmt"

// FrameStats counts frame protocol events since the device was created.
type FrameStats struct {
	// Acquired counts framebuffers handed out.
	Acquired uint64
	// Presented counts frames handed to the compositor.
	Presented uint64
	// Discarded counts framebuffers released without presenting.
	Discarded uint64
	// Skipped counts transient acquire or present failures.
	Skipped uint64
	// Submissions counts command buffers submitted to the queue.
	Submissions uint64
	// Reconfigures counts Reconfigure calls that reached the surface.
	Reconfigures uint64
}

// String returns a one-line summary.
func (s FrameStats) String() string {
	return fmt.Sprintf("Frames[acquired=%d presented=%d discarded=%d skipped=%d submissions=%d reconfigures=%d]",
		s.Acquired, s.Presented, s.Discarded, s.Skipped, s.Submissions, s.Reconfigures)
}

// Stats returns a snapshot of the frame counters.
func (d *GraphicsDevice) Stats() FrameStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

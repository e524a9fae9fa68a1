package gfx

// pinCount tracks how many open recorders reference a resource. Destroy on
// a pinned resource is deferred until the last recorder releases it, the
// same way the HAL defers destruction of textures with pending submissions.
//
// Resources and recorders are used from the frame-loop goroutine only, so
// pinCount is not synchronized.
type pinCount struct {
	n              int
	destroyPending bool
	destroyed      bool
}

func (p *pinCount) pin() { p.n++ }

// unpin drops one reference and reports whether a deferred destroy is due.
func (p *pinCount) unpin() bool {
	if p.n > 0 {
		p.n--
	}
	if p.n == 0 && p.destroyPending && !p.destroyed {
		p.destroyed = true
		return true
	}
	return false
}

func (p *pinCount) pinned() bool { return p.n > 0 }

// requestDestroy reports whether the resource should be destroyed now.
// While pinned it marks the destroy as pending and returns false.
func (p *pinCount) requestDestroy() bool {
	if p.destroyed {
		return false
	}
	if p.n > 0 {
		p.destroyPending = true
		return false
	}
	p.destroyed = true
	return true
}

// pinnable is implemented by every resource a recorder can bind.
type pinnable interface {
	pin()
	release()
}

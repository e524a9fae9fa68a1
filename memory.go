package gfx

import (
	"fmt"
	"sync"
)

// MemoryStats contains buffer memory usage statistics.
type MemoryStats struct {
	// BudgetBytes is the configured budget, or 0 when unlimited.
	BudgetBytes uint64

	// UsedBytes is the total allocation size of live buffers, including
	// alignment padding.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes observed.
	PeakBytes uint64

	// VertexBuffers, IndexBuffers, and UniformBuffers count live buffers
	// by usage.
	VertexBuffers  int
	IndexBuffers   int
	UniformBuffers int
}

// Utilization returns the fraction of the budget in use, or 0 without a
// budget.
func (s MemoryStats) Utilization() float64 {
	if s.BudgetBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.BudgetBytes)
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%d KB used, peak %d KB, %d vertex, %d index, %d uniform]",
			s.UsedBytes/1024, s.PeakBytes/1024, s.VertexBuffers, s.IndexBuffers, s.UniformBuffers)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d vertex, %d index, %d uniform]",
		s.Utilization()*100, s.UsedBytes/1024, s.BudgetBytes/1024,
		s.VertexBuffers, s.IndexBuffers, s.UniformBuffers)
}

// memoryTracker accounts for buffer allocations against an optional budget.
// Buffers are owned by the caller, so there is no eviction: an allocation
// that does not fit is refused.
//
// memoryTracker is safe for concurrent use.
type memoryTracker struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	peak   uint64
	counts [bufferUsageCount]int
}

func newMemoryTracker(budget uint64) *memoryTracker {
	return &memoryTracker{budget: budget}
}

// reserve records an allocation of size bytes, or fails with
// ErrMemoryBudgetExceeded.
func (m *memoryTracker) reserve(usage BufferUsage, size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.budget > 0 && m.used+size > m.budget {
		return fmt.Errorf("%w: %s buffer of %d bytes, %d of %d bytes in use",
			ErrMemoryBudgetExceeded, usage, size, m.used, m.budget)
	}
	m.used += size
	if m.used > m.peak {
		m.peak = m.used
	}
	m.counts[usage]++
	return nil
}

// release returns a previous reservation.
func (m *memoryTracker) release(usage BufferUsage, size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size > m.used {
		size = m.used
	}
	m.used -= size
	if m.counts[usage] > 0 {
		m.counts[usage]--
	}
}

func (m *memoryTracker) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MemoryStats{
		BudgetBytes:    m.budget,
		UsedBytes:      m.used,
		PeakBytes:      m.peak,
		VertexBuffers:  m.counts[BufferUsageVertex],
		IndexBuffers:   m.counts[BufferUsageIndex],
		UniformBuffers: m.counts[BufferUsageUniform],
	}
}

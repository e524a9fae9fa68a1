package gfx

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyAlignment is the granularity of queue buffer writes.
const copyAlignment = 4

// BufferUsage is the role a buffer is created for. It is fixed at creation.
type BufferUsage uint8

const (
	// BufferUsageVertex marks per-vertex attribute data.
	BufferUsageVertex BufferUsage = iota
	// BufferUsageIndex marks index data for indexed draws.
	BufferUsageIndex
	// BufferUsageUniform marks shader constants bound through a BindGroup.
	BufferUsageUniform

	bufferUsageCount
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "Vertex"
	case BufferUsageIndex:
		return "Index"
	case BufferUsageUniform:
		return "Uniform"
	default:
		return fmt.Sprintf("BufferUsage(%d)", int(u))
	}
}

// halUsage returns the HAL usage flags. Every buffer is a copy destination
// because contents are uploaded through the queue.
func (u BufferUsage) halUsage() gputypes.BufferUsage {
	switch u {
	case BufferUsageIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case BufferUsageUniform:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

// Buffer is a GPU memory region tagged with a usage.
//
// The caller owns a Buffer and must call Destroy when done with it. A Buffer
// bound to an open CommandRecorder cannot be written, and destroying it is
// deferred until the recorder submits.
type Buffer struct {
	dev   *GraphicsDevice
	raw   hal.Buffer
	label string

	usage       BufferUsage
	length      uint64 // bytes supplied by the caller
	allocSize   uint64 // length rounded up to copyAlignment
	indexFormat gputypes.IndexFormat

	// contents mirrors the last data uploaded. Uniform buffers are
	// write-only from the GPU's point of view, so this is how callers read
	// back what they wrote.
	contents []byte

	pins pinCount
}

// Len returns the buffer length in bytes, as passed at creation.
func (b *Buffer) Len() uint64 { return b.length }

// Usage returns the buffer usage.
func (b *Buffer) Usage() BufferUsage { return b.usage }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// IndexFormat returns the index format of an index buffer, or
// gputypes.IndexFormatUndefined for other buffers.
func (b *Buffer) IndexFormat() gputypes.IndexFormat { return b.indexFormat }

// IndexCount returns the number of indices in an index buffer, or 0.
func (b *Buffer) IndexCount() uint32 {
	if b.usage != BufferUsageIndex {
		return 0
	}
	return uint32(b.length / uint64(b.indexFormat.Size())) //nolint:gosec // bounded by MaxBufferSize
}

// maxIndex returns the largest index in [start, end) of an index buffer.
// ok is false for an empty range.
func (b *Buffer) maxIndex(start, end uint32) (idx uint32, ok bool) {
	size := b.indexFormat.Size()
	for i := start; i < end; i++ {
		off := uint64(i) * uint64(size)
		var v uint32
		if size == 2 {
			v = uint32(binary.LittleEndian.Uint16(b.contents[off:]))
		} else {
			v = binary.LittleEndian.Uint32(b.contents[off:])
		}
		if !ok || v > idx {
			idx, ok = v, true
		}
	}
	return idx, ok
}

// Bytes returns a copy of the buffer contents as last uploaded.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.contents))
	copy(out, b.contents)
	return out
}

// Destroy releases the GPU allocation. If the buffer is bound to an open
// recorder the release happens when that recorder submits. Destroy is
// idempotent.
func (b *Buffer) Destroy() {
	if b.pins.requestDestroy() {
		b.destroy()
		return
	}
	if b.pins.pinned() {
		Logger().Warn("gfx: buffer destroy deferred until submit", "label", b.label)
	}
}

func (b *Buffer) pin() { b.pins.pin() }

func (b *Buffer) release() {
	if b.pins.unpin() {
		b.destroy()
	}
}

func (b *Buffer) destroy() {
	raw := b.raw
	b.raw = nil
	b.dev.memory.release(b.usage, b.allocSize)
	b.dev.retire(func(d hal.Device) { d.DestroyBuffer(raw) })
}

func (b *Buffer) usable(d *GraphicsDevice) error {
	switch {
	case b == nil:
		return fmt.Errorf("%w: nil buffer", ErrResourceDestroyed)
	case b.dev != d:
		return ErrForeignResource
	case b.pins.destroyed || b.pins.destroyPending:
		return fmt.Errorf("%w: buffer %q", ErrResourceDestroyed, b.label)
	}
	return nil
}

// CreateVertexBuffer creates a vertex buffer holding a copy of data.
func (d *GraphicsDevice) CreateVertexBuffer(data []byte) (*Buffer, error) {
	return d.createBuffer("gfx_vertex_buffer", BufferUsageVertex, gputypes.IndexFormatUndefined, data)
}

// CreateIndexBuffer creates an index buffer of 16-bit indices holding a copy
// of data. len(data) must be a multiple of 2.
func (d *GraphicsDevice) CreateIndexBuffer(data []byte) (*Buffer, error) {
	return d.createBuffer("gfx_index_buffer", BufferUsageIndex, gputypes.IndexFormatUint16, data)
}

// CreateIndexBuffer32 creates an index buffer of 32-bit indices holding a
// copy of data. len(data) must be a multiple of 4.
func (d *GraphicsDevice) CreateIndexBuffer32(data []byte) (*Buffer, error) {
	return d.createBuffer("gfx_index_buffer", BufferUsageIndex, gputypes.IndexFormatUint32, data)
}

// CreateUniformBuffer creates a uniform buffer holding a copy of data. Its
// contents can later be replaced with WriteBuffer.
func (d *GraphicsDevice) CreateUniformBuffer(data []byte) (*Buffer, error) {
	return d.createBuffer("gfx_uniform_buffer", BufferUsageUniform, gputypes.IndexFormatUndefined, data)
}

func (d *GraphicsDevice) createBuffer(label string, usage BufferUsage, indexFormat gputypes.IndexFormat, data []byte) (*Buffer, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("create %s buffer: %w", usage, ErrEmptyBuffer)
	}
	if usage == BufferUsageIndex && len(data)%int(indexFormat.Size()) != 0 {
		return nil, fmt.Errorf("create index buffer: %w: %d bytes of %d-byte indices",
			ErrInvalidIndexData, len(data), indexFormat.Size())
	}

	length := uint64(len(data))
	allocSize := alignUp(length, copyAlignment)
	if limit := d.limits.MaxBufferSize; limit > 0 && allocSize > limit {
		return nil, fmt.Errorf("create %s buffer: size %d exceeds device limit %d", usage, allocSize, limit)
	}
	if err := d.memory.reserve(usage, allocSize); err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", usage, err)
	}

	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  allocSize,
		Usage: usage.halUsage(),
	})
	if err != nil {
		d.memory.release(usage, allocSize)
		return nil, fmt.Errorf("create %s buffer: %w", usage, err)
	}

	upload := padTo(data, allocSize)
	if err := d.queue.WriteBuffer(raw, 0, upload); err != nil {
		d.device.DestroyBuffer(raw)
		d.memory.release(usage, allocSize)
		return nil, fmt.Errorf("upload %s buffer: %w", usage, err)
	}

	contents := make([]byte, length)
	copy(contents, data)

	Logger().Debug("gfx: buffer created", "usage", usage.String(), "bytes", length)

	return &Buffer{
		dev:         d,
		raw:         raw,
		label:       label,
		usage:       usage,
		length:      length,
		allocSize:   allocSize,
		indexFormat: indexFormat,
		contents:    contents,
	}, nil
}

// WriteBuffer overwrites the start of a uniform buffer with data. Bytes past
// len(data) keep their previous value. It fails if data is longer than the
// buffer or if the buffer is bound to an open recorder; writes belong
// between frames.
func (d *GraphicsDevice) WriteBuffer(buf *Buffer, data []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := buf.usable(d); err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	if buf.usage != BufferUsageUniform {
		return fmt.Errorf("write buffer: %w: %s buffer is not writable", ErrWrongBufferUsage, buf.usage)
	}
	if uint64(len(data)) > buf.length {
		return fmt.Errorf("write buffer: %w: %d bytes into %d-byte buffer", ErrWriteTooLarge, len(data), buf.length)
	}
	if buf.pins.pinned() {
		return fmt.Errorf("write buffer: %w", ErrResourceInUse)
	}
	if len(data) == 0 {
		return nil
	}

	// Pad the write to the copy alignment using the current contents so the
	// tail beyond len(data) is preserved.
	n := min(alignUp(uint64(len(data)), copyAlignment), buf.allocSize)
	upload := make([]byte, n)
	copy(upload, buf.contents)
	copy(upload, data)

	if err := d.queue.WriteBuffer(buf.raw, 0, upload); err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	copy(buf.contents, data)
	return nil
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// padTo returns data extended with zeros to size bytes. data is returned
// unchanged when it is already long enough.
func padTo(data []byte, size uint64) []byte {
	if uint64(len(data)) >= size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

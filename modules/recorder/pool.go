package recorder

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
)

// PixelBuffer is a reusable RGBA frame owned by a PixelBufferPool.
//
// A buffer is either free in its pool or owned by exactly one holder. The
// holder returns it with Release; VideoSink.Submit takes ownership on success.
type PixelBuffer struct {
	Image *image.RGBA

	pool  *PixelBufferPool
	inUse atomic.Bool
}

// Release returns the buffer to its pool. Releasing a free buffer is a no-op.
func (b *PixelBuffer) Release() {
	if !b.inUse.CompareAndSwap(true, false) {
		return
	}
	b.pool.put(b)
}

// Bytes returns the pixel data.
func (b *PixelBuffer) Bytes() []byte {
	return b.Image.Pix
}

// PixelBufferPool is a fixed set of equally sized buffers.
type PixelBufferPool struct {
	size arframe.Size
	free chan *PixelBuffer

	capacity    int
	outstanding atomic.Int64
	exhausted   atomic.Uint64
}

// NewPixelBufferPool allocates capacity buffers of size.
func NewPixelBufferPool(size arframe.Size, capacity int) (*PixelBufferPool, error) {
	if size.Empty() {
		return nil, fmt.Errorf("recorder: pool buffer size %dx%d is empty", size.Width, size.Height)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("recorder: pool capacity must be > 0, got %d", capacity)
	}

	p := &PixelBufferPool{
		size:     size,
		free:     make(chan *PixelBuffer, capacity),
		capacity: capacity,
	}
	for i := 0; i < capacity; i++ {
		p.free <- &PixelBuffer{
			Image: image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
			pool:  p,
		}
	}
	return p, nil
}

// Acquire takes a free buffer without blocking.
func (p *PixelBufferPool) Acquire() (*PixelBuffer, error) {
	select {
	case b := <-p.free:
		b.inUse.Store(true)
		p.outstanding.Add(1)
		return b, nil
	default:
		p.exhausted.Add(1)
		return nil, ErrPoolExhausted
	}
}

func (p *PixelBufferPool) put(b *PixelBuffer) {
	p.outstanding.Add(-1)
	select {
	case p.free <- b:
	default:
		// Unreachable while every buffer comes from this pool.
	}
}

// Size returns the buffer dimensions.
func (p *PixelBufferPool) Size() arframe.Size { return p.size }

// Capacity returns the number of buffers.
func (p *PixelBufferPool) Capacity() int { return p.capacity }

// InUse returns the number of acquired buffers not yet released.
func (p *PixelBufferPool) InUse() int { return int(p.outstanding.Load()) }

// Exhausted returns how many Acquire calls found no free buffer.
func (p *PixelBufferPool) Exhausted() uint64 { return p.exhausted.Load() }

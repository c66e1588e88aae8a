package frame

import (
	"sync"
	"sync/atomic"
)

// Pool is a pre-sized, recycling store of Data buffers.
// Invariant: available + inUse == capacity at all times.
type Pool struct {
	capacity int64
	inUse    int64

	mu   sync.Mutex
	free []*Data
}

// NewPool preallocates capacity empty Data buffers.
func NewPool(capacity int) *Pool {
	p := &Pool{
		capacity: int64(capacity),
		free:     make([]*Data, 0, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, &Data{})
	}
	return p
}

// Capacity returns the total number of buffers the pool manages.
func (p *Pool) Capacity() int { return int(p.capacity) }

// InUse returns the number of buffers currently lent out.
func (p *Pool) InUse() int { return int(atomic.LoadInt64(&p.inUse)) }

// Available returns capacity - InUse.
func (p *Pool) Available() int { return p.Capacity() - p.InUse() }

// Acquire returns a handle to a free buffer, or nil if every buffer is
// currently lent. Thread-safe, O(1) expected. Exhaustion is non-fatal:
// callers (Capture) are expected to drop the incoming picture.
func (p *Pool) Acquire() *Handle {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		return nil
	}
	d := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()

	atomic.AddInt64(&p.inUse, 1)
	h := &Handle{data: d, pool: p}
	h.refs.Store(1)
	return h
}

// release returns a buffer to the free list. Called when a Handle's
// refcount drops to zero, from any goroutine, including on an error path.
func (p *Pool) release(d *Data) {
	d.reset()
	p.mu.Lock()
	p.free = append(p.free, d)
	p.mu.Unlock()
	atomic.AddInt64(&p.inUse, -1)
}

// Handle is an exclusive-or-shared lend of a pooled buffer. A Ring stores
// Handles directly (not copies) so that multiple readers of a snapshot can
// share one underlying buffer; the buffer returns to its Pool only once
// every holder has released its reference.
type Handle struct {
	data *Data
	pool *Pool
	refs atomic.Int32
}

// Data exposes the underlying frame for reading or, for the sole owner
// (Capture, before publishing into the Ring), for writing.
func (h *Handle) Data() *Data { return h.data }

// EnsureSize grows the backing buffer to width*height*3 if needed. Only
// valid while the caller holds exclusive ownership (i.e. before the handle
// is pushed into a Ring and shared).
func (h *Handle) EnsureSize(width, height int) { h.data.ensureSize(width, height) }

// Ref increments the refcount and returns the same handle, for a second
// holder (e.g. a Ring snapshot entry handed to a reader).
func (h *Handle) Ref() *Handle {
	h.refs.Add(1)
	return h
}

// Release decrements the refcount; at zero, the underlying buffer returns
// to its Pool. Safe to call from any goroutine, any number of times beyond
// the first no-op past zero.
func (h *Handle) Release() {
	if h.refs.Add(-1) == 0 {
		h.pool.release(h.data)
	}
}

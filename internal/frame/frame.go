// Package frame implements the recycling frame pool and per-camera ring
// buffer that sit between Capture and everything downstream of it.
package frame

import "time"

// Data is a decoded picture: contiguous BGR24 interleaved bytes.
// Pixels has length Stride*Height where Stride == Width*3.
//
// Lifecycle: allocated inside a Pool; mutated only by the Capture
// goroutine while it holds the sole handle; immutable once pushed into a
// Ring (readers see a point-in-time view, never mutate it).
type Data struct {
	Pixels      []byte
	Width       int
	Height      int
	Stride      int
	Timestamp   time.Time
	FrameNumber uint64
}

// reset clears mutable fields before the buffer is re-lent by the pool.
// FrameNumber 0 means "freshly recycled, not yet written".
func (d *Data) reset() {
	d.FrameNumber = 0
	d.Timestamp = time.Time{}
}

// ensureSize grows Pixels in place if the current buffer is too small for
// width*height*3, and sets Width/Height/Stride. Capacity is reused across
// resizes to avoid reallocating on every frame once the stream settles.
func (d *Data) ensureSize(width, height int) {
	stride := width * 3
	need := stride * height
	if cap(d.Pixels) < need {
		d.Pixels = make([]byte, need)
	} else {
		d.Pixels = d.Pixels[:need]
	}
	d.Width = width
	d.Height = height
	d.Stride = stride
}

// Clone deep-copies the pixel buffer into a fresh, unpooled Data. Used by
// the event orchestrator for preroll capture, where frames must outlive
// the pool's recycling without pinning pool buffers.
func (d *Data) Clone() *Data {
	cp := make([]byte, len(d.Pixels))
	copy(cp, d.Pixels)
	return &Data{
		Pixels:      cp,
		Width:       d.Width,
		Height:      d.Height,
		Stride:      d.Stride,
		Timestamp:   d.Timestamp,
		FrameNumber: d.FrameNumber,
	}
}

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolConservation(t *testing.T) {
	p := NewPool(4)
	assert.Equal(t, 4, p.Available())

	var handles []*Handle
	for i := 0; i < 4; i++ {
		h := p.Acquire()
		assert.NotNil(t, h)
		handles = append(handles, h)
	}
	assert.Equal(t, 0, p.Available())
	assert.Nil(t, p.Acquire(), "acquire beyond capacity must return nil")

	for _, h := range handles {
		h.Release()
	}
	assert.Equal(t, 4, p.Available())
	assert.Equal(t, 0, p.InUse())
}

func TestHandleFrameNumberResetOnRelease(t *testing.T) {
	p := NewPool(1)
	h := p.Acquire()
	h.Data().FrameNumber = 42
	h.Release()

	h2 := p.Acquire()
	assert.Equal(t, uint64(0), h2.Data().FrameNumber, "recycled frame must reset frame_number to 0")
}

func TestHandleSharedRefcount(t *testing.T) {
	p := NewPool(1)
	h := p.Acquire()
	shared := h.Ref()

	h.Release()
	assert.Equal(t, 0, p.Available(), "buffer must stay lent while a second reference is outstanding")

	shared.Release()
	assert.Equal(t, 1, p.Available(), "buffer returns once the last reference drops")
}

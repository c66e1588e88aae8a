package encode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsMaxDurationReached(t *testing.T) {
	r := &Recorder{fps: 10}
	r.framesWritten = 299
	assert.False(t, r.IsMaxDurationReached())
	r.framesWritten = 300
	assert.True(t, r.IsMaxDurationReached())
}

func TestRequestStopIsIdempotent(t *testing.T) {
	r := &Recorder{}
	r.RequestStop(5)
	first := r.stopRequestedTime
	r.RequestStop(10) // should be ignored
	assert.Equal(t, first, r.stopRequestedTime)
	assert.Equal(t, 5, r.postRollSeconds)
}

func TestIsPostRollCompleteBeforeRequestStopIsFalse(t *testing.T) {
	r := &Recorder{}
	assert.False(t, r.IsPostRollComplete())
}

func TestIsPostRollCompleteAfterElapsed(t *testing.T) {
	r := &Recorder{}
	r.stopRequested = true
	r.postRollSeconds = 0
	r.stopRequestedTime = time.Now().Add(-1 * time.Millisecond)
	assert.True(t, r.IsPostRollComplete())
}

package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hms-homelab/hms-detection/internal/detect"
)

func blankPixels(width, height int) ([]byte, int) {
	stride := width * 3
	return make([]byte, stride*height), stride
}

func TestDrawBoundingBoxesPaintsTopEdge(t *testing.T) {
	pixels, stride := blankPixels(20, 20)
	dets := []detect.Detection{{ClassID: 0, X1: 2, Y1: 2, X2: 10, Y2: 10}}
	drawBoundingBoxes(pixels, 20, 20, stride, dets)

	off := 2*stride + 5*3
	assert.Equal(t, byte(0), pixels[off+0])
	assert.Equal(t, byte(255), pixels[off+1])
	assert.Equal(t, byte(0), pixels[off+2])
}

func TestDrawBoundingBoxesColorCyclesByClassIDMod6(t *testing.T) {
	pixels, stride := blankPixels(20, 20)
	dets := []detect.Detection{{ClassID: 7, X1: 2, Y1: 2, X2: 10, Y2: 10}} // 7 % 6 == 1 -> red
	drawBoundingBoxes(pixels, 20, 20, stride, dets)

	off := 2*stride + 5*3
	assert.Equal(t, byte(0), pixels[off+0])
	assert.Equal(t, byte(0), pixels[off+1])
	assert.Equal(t, byte(255), pixels[off+2])
}

func TestDrawBoundingBoxesClampsOutOfBoundsCoords(t *testing.T) {
	pixels, stride := blankPixels(10, 10)
	dets := []detect.Detection{{ClassID: 0, X1: -5, Y1: -5, X2: 1000, Y2: 1000}}
	assert.NotPanics(t, func() {
		drawBoundingBoxes(pixels, 10, 10, stride, dets)
	})
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, clampInt(-5, 0, 10))
	assert.Equal(t, 10, clampInt(50, 0, 10))
	assert.Equal(t, 5, clampInt(5, 0, 10))
}

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-homelab/hms-detection/internal/frame"
)

func solidFrame(width, height int, b, g, r byte) *frame.Data {
	d := &frame.Data{Width: width, Height: height, Stride: width * 3}
	d.Pixels = make([]byte, height*d.Stride)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := y*d.Stride + x*3
			d.Pixels[off+0] = b
			d.Pixels[off+1] = g
			d.Pixels[off+2] = r
		}
	}
	return d
}

func TestPreprocessSquareFrameNoPadding(t *testing.T) {
	d := solidFrame(640, 640, 10, 20, 30)
	tensor, lb := preprocess(d, 640, 640)

	require.Len(t, tensor, 3*640*640)
	assert.InDelta(t, 1.0, lb.scale, 1e-6)
	assert.InDelta(t, 0, lb.padX, 1e-3)
	assert.InDelta(t, 0, lb.padY, 1e-3)

	planeSize := 640 * 640
	center := 320*640 + 320
	assert.InDelta(t, 30.0/255.0, tensor[0*planeSize+center], 1e-6) // R
	assert.InDelta(t, 20.0/255.0, tensor[1*planeSize+center], 1e-6) // G
	assert.InDelta(t, 10.0/255.0, tensor[2*planeSize+center], 1e-6) // B
}

func TestPreprocessWideFramePadsTopAndBottom(t *testing.T) {
	// 1280x720 into 640x640: scale = min(640/1280, 640/720) = 0.5
	// new_w=640, new_h=360, pad_y=(640-360)/2=140
	d := solidFrame(1280, 720, 1, 2, 3)
	tensor, lb := preprocess(d, 640, 640)

	assert.InDelta(t, 0.5, lb.scale, 1e-6)
	assert.InDelta(t, 0, lb.padX, 1e-3)
	assert.InDelta(t, 140, lb.padY, 1e-3)

	planeSize := 640 * 640
	grayVal := float32(114.0 / 255.0)
	// a pixel in the top pad band must remain the untouched gray fill
	topPad := 10*640 + 320
	assert.InDelta(t, grayVal, tensor[0*planeSize+topPad], 1e-6)

	// a pixel inside the scaled image band should carry the source color
	inBand := 300*640 + 320
	assert.InDelta(t, 3.0/255.0, tensor[0*planeSize+inBand], 1e-6) // R
}

package detect

import (
	"math"

	"github.com/hms-homelab/hms-detection/internal/frame"
)

// letterbox holds the geometry needed to reverse the resize+pad transform
// applied to a detection box back into original image coordinates.
type letterbox struct {
	scale float32
	padX  float32
	padY  float32
}

// preprocess letterboxes a BGR24 frame into an NCHW float32 tensor sized
// [3, inputHeight, inputWidth], normalized to [0,1] and padded with gray
// (114/255).
func preprocess(d *frame.Data, inputWidth, inputHeight int) ([]float32, letterbox) {
	imgW, imgH := d.Width, d.Height

	scaleX := float32(inputWidth) / float32(imgW)
	scaleY := float32(inputHeight) / float32(imgH)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	newW := int(math.Round(float64(imgW) * float64(scale)))
	newH := int(math.Round(float64(imgH) * float64(scale)))

	padX := float32(inputWidth-newW) / 2.0
	padY := float32(inputHeight-newH) / 2.0
	padLeft := int(math.Round(float64(padX)))
	padTop := int(math.Round(float64(padY)))

	tensorSize := 3 * inputHeight * inputWidth
	tensor := make([]float32, tensorSize)
	gray := float32(114.0 / 255.0)
	for i := range tensor {
		tensor[i] = gray
	}

	planeSize := inputHeight * inputWidth
	pixels := d.Pixels
	stride := d.Stride

	for dstY := 0; dstY < newH; dstY++ {
		srcY := int(float32(dstY) / scale)
		if srcY >= imgH {
			srcY = imgH - 1
		}
		outY := dstY + padTop
		if outY < 0 || outY >= inputHeight {
			continue
		}

		for dstX := 0; dstX < newW; dstX++ {
			srcX := int(float32(dstX) / scale)
			if srcX >= imgW {
				srcX = imgW - 1
			}
			outX := dstX + padLeft
			if outX < 0 || outX >= inputWidth {
				continue
			}

			px := pixels[srcY*stride+srcX*3 : srcY*stride+srcX*3+3]
			b, g, r := px[0], px[1], px[2]

			offset := outY*inputWidth + outX
			tensor[0*planeSize+offset] = float32(r) / 255.0
			tensor[1*planeSize+offset] = float32(g) / 255.0
			tensor[2*planeSize+offset] = float32(b) / 255.0
		}
	}

	return tensor, letterbox{scale: scale, padX: padX, padY: padY}
}

package encode

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hms-homelab/hms-detection/internal/detect"
	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
)

// palette is the fixed 6-entry BGR color table used to draw bounding
// boxes, indexed by class_id % 6.
var palette = [6][3]byte{
	{0, 255, 0},   // green
	{0, 0, 255},   // red
	{255, 0, 0},   // blue
	{0, 255, 255}, // yellow
	{255, 0, 255}, // magenta
	{255, 255, 0}, // cyan
}

const boxThickness = 2

// drawBoundingBoxes draws per-detection rectangles directly into pixels
// (BGR24, row length stride), matching SnapshotWriter::drawBoundingBoxes.
func drawBoundingBoxes(pixels []byte, width, height, stride int, detections []detect.Detection) {
	for _, det := range detections {
		x1 := clampInt(int(det.X1), 0, width-1)
		y1 := clampInt(int(det.Y1), 0, height-1)
		x2 := clampInt(int(det.X2), 0, width-1)
		y2 := clampInt(int(det.Y2), 0, height-1)

		color := palette[((det.ClassID%6)+6)%6]

		for t := 0; t < boxThickness; t++ {
			topY, botY := y1+t, y2-t
			if topY >= 0 && topY < height {
				paintRow(pixels, stride, topY, x1, x2, color)
			}
			if botY >= 0 && botY < height && botY != topY {
				paintRow(pixels, stride, botY, x1, x2, color)
			}
		}

		for t := 0; t < boxThickness; t++ {
			leftX, rightX := x1+t, x2-t
			if leftX >= 0 && leftX < width {
				paintCol(pixels, stride, leftX, y1, y2, color)
			}
			if rightX >= 0 && rightX < width && rightX != leftX {
				paintCol(pixels, stride, rightX, y1, y2, color)
			}
		}
	}
}

func paintRow(pixels []byte, stride, y, x1, x2 int, color [3]byte) {
	for x := x1; x <= x2; x++ {
		off := y*stride + x*3
		pixels[off], pixels[off+1], pixels[off+2] = color[0], color[1], color[2]
	}
}

func paintCol(pixels []byte, stride, x, y1, y2 int, color [3]byte) {
	for y := y1; y <= y2; y++ {
		off := y*stride + x*3
		pixels[off], pixels[off+1], pixels[off+2] = color[0], color[1], color[2]
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// encodeJPEG shells out to ffmpeg to encode one BGR24 frame as JPEG,
// YUVJ420P, qmin=2/qmax=5 (visual ~85%), matching
// SnapshotWriter::encodeJpeg.
func encodeJPEG(pixels []byte, width, height int) ([]byte, error) {
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", strconv.Itoa(width)+"x"+strconv.Itoa(height),
		"-i", "-",
		"-frames:v", "1",
		"-pix_fmt", "yuvj420p",
		"-qmin", "2",
		"-qmax", "5",
		"-f", "mjpeg",
		"-",
	)
	cmd.Stdin = bytes.NewReader(pixels)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out, nil
}

// SaveSnapshot deep-copies the frame's pixels, draws bounding boxes if
// any detections are present, encodes to JPEG, and writes it to
// outputDir/<camera_id>_YYYYMMDD_HHMMSS.jpg, matching
// SnapshotWriter::save.
func SaveSnapshot(d *frame.Data, detections []detect.Detection, cameraID, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshots dir: %w", err)
	}

	filePath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.jpg", cameraID, time.Now().Format("20060102_150405")))

	pixels := make([]byte, len(d.Pixels))
	copy(pixels, d.Pixels)
	if len(detections) > 0 {
		drawBoundingBoxes(pixels, d.Width, d.Height, d.Stride, detections)
	}

	jpeg, err := encodeJPEG(pixels, d.Width, d.Height)
	if err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("snapshot jpeg encode failed", "camera_id", cameraID, "error", err)
		}
		return "", err
	}

	if err := os.WriteFile(filePath, jpeg, 0o644); err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("snapshot write failed", "path", filePath, "error", err)
		}
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if logging.Log != nil {
		logging.Log.Infow("snapshot saved", "path", filePath, "bytes", len(jpeg))
	}
	return filePath, nil
}

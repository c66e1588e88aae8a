// Package encode implements the event recorder (BGR24 → H.264/MP4) and
// the annotated snapshot writer (BGR24 → JPEG), both by piping raw frames
// through an ffmpeg subprocess — the same pattern the capture pipeline
// uses for the RTSP side.
package encode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
)

// MaxDurationSeconds is the hard cap on any single event recording,
// in seconds, before it is force-finalized.
const MaxDurationSeconds = 30

// Recorder encodes a sequence of BGR24 frames into an H.264/MP4 file
// using the ultrafast preset, CRF 28, a GOP equal to the frame rate,
// and +faststart for progressive playback.
type Recorder struct {
	cameraID string
	width    int
	height   int
	fps      int
	filePath string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	framesWritten int
	recording     bool

	stopRequested     bool
	postRollSeconds   int
	stopRequestedTime time.Time
}

// NewRecorder constructs an unstarted Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start opens the ffmpeg encoder subprocess and writes every preroll
// frame matching (width, height) before returning, matching
// the event recorder's start sequence.
func (r *Recorder) Start(cameraID string, prerollFrames []*frame.Data, width, height, fps int, outputDir string) error {
	r.cameraID = cameraID
	r.width = width
	r.height = height
	r.fps = fps
	if r.fps <= 0 {
		r.fps = 10
	}
	r.framesWritten = 0
	r.stopRequested = false

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}

	r.filePath = filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", cameraID, time.Now().Format("20060102_150405")))

	r.cmd = exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", strconv.Itoa(width)+"x"+strconv.Itoa(height),
		"-r", strconv.Itoa(r.fps),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-g", strconv.Itoa(r.fps),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		r.filePath,
	)

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	r.stdin = stdin

	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg encoder: %w", err)
	}
	go drainEncoderStderr(cameraID, stderr)

	r.recording = true
	if logging.Log != nil {
		logging.Log.Infow("event recorder started",
			"camera_id", cameraID, "path", r.filePath, "width", width, "height", height, "fps", r.fps)
	}

	for _, f := range prerollFrames {
		if f != nil && f.Width == width && f.Height == height {
			r.WriteFrame(f)
		}
	}

	return nil
}

// WriteFrame writes one BGR24 frame to the encoder. Returns false if the
// max-duration cap has been reached or the write failed.
func (r *Recorder) WriteFrame(d *frame.Data) bool {
	if !r.recording || r.stdin == nil {
		return false
	}
	if r.IsMaxDurationReached() {
		return false
	}
	if _, err := r.stdin.Write(d.Pixels); err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("recorder write failed", "camera_id", r.cameraID, "error", err)
		}
		return false
	}
	r.framesWritten++
	return true
}

// RequestStop begins the post-roll countdown; a repeated call after the
// first is a no-op, matching EventRecorder::requestStop.
func (r *Recorder) RequestStop(postRollSeconds int) {
	if r.stopRequested {
		return
	}
	r.stopRequested = true
	r.postRollSeconds = postRollSeconds
	r.stopRequestedTime = time.Now()
}

// IsPostRollComplete reports whether postRollSeconds have elapsed since
// RequestStop.
func (r *Recorder) IsPostRollComplete() bool {
	if !r.stopRequested {
		return false
	}
	return time.Since(r.stopRequestedTime) >= time.Duration(r.postRollSeconds)*time.Second
}

// IsMaxDurationReached reports whether the 30s hard cap has been hit.
func (r *Recorder) IsMaxDurationReached() bool {
	return r.framesWritten >= r.fps*MaxDurationSeconds
}

// FramesWritten returns the number of frames successfully encoded.
func (r *Recorder) FramesWritten() int { return r.framesWritten }

// FilePath returns the full output path.
func (r *Recorder) FilePath() string { return r.filePath }

// FileName returns just the output filename, matching
// EventRecorder::fileName.
func (r *Recorder) FileName() string { return filepath.Base(r.filePath) }

// Finalize closes the encoder's input, waits for ffmpeg to flush the
// trailer, and closes the file. Idempotent.
func (r *Recorder) Finalize() error {
	if !r.recording {
		return nil
	}
	r.recording = false

	if r.stdin != nil {
		_ = r.stdin.Close()
	}
	err := r.cmd.Wait()

	duration := float64(r.framesWritten) / float64(r.fps)
	if logging.Log != nil {
		logging.Log.Infow("event recorder finalized",
			"camera_id", r.cameraID, "path", r.filePath,
			"frames", r.framesWritten, "duration_seconds", duration)
	}
	if err != nil {
		return fmt.Errorf("finalize encoder: %w", err)
	}
	return nil
}

func drainEncoderStderr(cameraID string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if logging.Log != nil {
			logging.Log.Debugw("ffmpeg encoder stderr", "camera_id", cameraID, "line", scanner.Text())
		}
	}
}

// Package capture runs the per-camera RTSP capture pipeline: open stream,
// decode, convert to BGR24, acquire a pooled frame, push to the ring
// buffer, reconnect with backoff on failure.
package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
	"github.com/hms-homelab/hms-detection/internal/metrics"
)

// State is the capture pipeline's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
)

// Config identifies a camera and its RTSP source.
type Config struct {
	ID  string
	URL string
}

// Stats are atomic counters readable from any thread without taking the
// decoder lock.
type Stats struct {
	FramesCaptured      int64
	FramesDropped       int64
	ReconnectCount      int64
	ConsecutiveFailures int64
	lastFrameUnixNano   int64
	connected           int32
}

func (s *Stats) LastFrameTime() time.Time {
	n := atomic.LoadInt64(&s.lastFrameUnixNano)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Stats) Connected() bool { return atomic.LoadInt32(&s.connected) == 1 }

// Capture is the per-camera capture goroutine. Exactly one decoder thread
// runs per camera.
type Capture struct {
	cfg   Config
	pool  *frame.Pool
	ring  *frame.Ring
	stats Stats

	mu      sync.Mutex
	running int32
	stopFn  context.CancelFunc

	frameCounter uint64
	width        int
	height       int
	fps          int
}

// New builds a Capture bound to the given pool/ring pair. width/height/fps
// are the target decode parameters for the ffmpeg rawvideo pipe; a zero
// width or height falls back to probing the source on each connect, and
// fps <= 0 defaults to 10.
func New(cfg Config, pool *frame.Pool, ring *frame.Ring, width, height, fps int) *Capture {
	if fps <= 0 {
		fps = 10
	}
	return &Capture{cfg: cfg, pool: pool, ring: ring, width: width, height: height, fps: fps}
}

// Stats returns a snapshot of the atomic counters.
func (c *Capture) Stats() Stats {
	return Stats{
		FramesCaptured:      atomic.LoadInt64(&c.stats.FramesCaptured),
		FramesDropped:       atomic.LoadInt64(&c.stats.FramesDropped),
		ReconnectCount:      atomic.LoadInt64(&c.stats.ReconnectCount),
		ConsecutiveFailures: atomic.LoadInt64(&c.stats.ConsecutiveFailures),
		lastFrameUnixNano:   atomic.LoadInt64(&c.stats.lastFrameUnixNano),
		connected:           atomic.LoadInt32(&c.stats.connected),
	}
}

// Start launches the capture goroutine. ctx cancellation (or Stop) aborts
// any in-flight RTSP read promptly via the subprocess's context binding.
func (c *Capture) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.stopFn = cancel
	c.mu.Unlock()

	go c.loop(runCtx)
}

// Stop signals the capture goroutine to exit; in-flight RTSP reads abort
// because the subprocess is bound to runCtx.
func (c *Capture) Stop() {
	c.mu.Lock()
	stop := c.stopFn
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *Capture) loop(ctx context.Context) {
	defer atomic.StoreInt32(&c.running, 0)

	bo := newBackoff()
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.runSession(ctx, bo)
		atomic.StoreInt32(&c.stats.connected, 0)
		metrics.CameraConnected.WithLabelValues(c.cfg.ID).Set(0)
		if ctx.Err() != nil {
			return
		}

		atomic.AddInt64(&c.stats.ConsecutiveFailures, 1)
		atomic.AddInt64(&c.stats.ReconnectCount, 1)
		metrics.ReconnectCount.WithLabelValues(c.cfg.ID).Inc()
		if logging.Log != nil {
			logging.Log.Warnw("capture session ended, reconnecting",
				"camera_id", c.cfg.ID, "error", err)
		}

		if !wait(ctx, bo.next()) {
			return
		}
	}
}

// runSession opens one RTSP connection and reads frames from it until the
// stream ends or errors; returns nil only if ctx was cancelled cleanly.
// bo is reset to its initial value as soon as the open succeeds.
func (c *Capture) runSession(ctx context.Context, bo *backoff) error {
	width, height := c.width, c.height
	if width == 0 || height == 0 {
		w, h, err := probeDimensions(ctx, c.cfg.URL)
		if err != nil {
			return fmt.Errorf("probe %s: %w", c.cfg.ID, err)
		}
		width, height = w, h
	}

	cmd := openStreamCmd(ctx, c.cfg.URL, width, height, c.fps)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	go drainStderr(c.cfg.ID, stderr)

	atomic.StoreInt32(&c.stats.connected, 1)
	atomic.StoreInt64(&c.stats.ConsecutiveFailures, 0)
	metrics.CameraConnected.WithLabelValues(c.cfg.ID).Set(1)
	bo.reset()

	readErr := c.readFrames(ctx, bufio.NewReaderSize(stdout, 1<<20), width, height)

	_ = cmd.Wait()
	return readErr
}

// readFrames pulls fixed-size BGR24 frames off the rawvideo pipe and
// drives the frame-production pipeline: pool acquire, copy, push,
// metrics.
func (c *Capture) readFrames(ctx context.Context, r *bufio.Reader, width, height int) error {
	frameSize := width * height * 3
	buf := make([]byte, frameSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return fmt.Errorf("stream ended: %w", err)
			}
			return fmt.Errorf("read frame: %w", err)
		}

		h := c.pool.Acquire()
		if h == nil {
			atomic.AddInt64(&c.stats.FramesDropped, 1)
			metrics.FramesDropped.WithLabelValues(c.cfg.ID, "pool_exhausted").Inc()
			continue
		}

		h.EnsureSize(width, height)
		copy(h.Data().Pixels, buf)
		h.Data().Timestamp = time.Now()
		c.frameCounter++
		h.Data().FrameNumber = c.frameCounter

		atomic.AddInt64(&c.stats.FramesCaptured, 1)
		atomic.StoreInt64(&c.stats.lastFrameUnixNano, h.Data().Timestamp.UnixNano())
		metrics.FramesCaptured.WithLabelValues(c.cfg.ID).Inc()

		c.ring.Push(h)
		metrics.RingSize.WithLabelValues(c.cfg.ID).Set(float64(c.ring.Size()))
	}
}

// openStreamCmd builds the ffmpeg invocation that performs the RTSP open,
// H.264 decode, and BGR24 color conversion in one subprocess, with TCP
// transport, a connect timeout, and low-latency buffering flags.
func openStreamCmd(ctx context.Context, url string, width, height, fps int) *exec.Cmd {
	return exec.CommandContext(ctx, "ffmpeg",
		"-rtsp_transport", "tcp",
		"-stimeout", "5000000",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-i", url,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", strconv.Itoa(width)+"x"+strconv.Itoa(height),
		"-r", strconv.Itoa(fps),
		"-",
	)
}

// probeDimensions shells out to ffprobe to discover the source's video
// resolution before the first rawvideo capture session opens.
func probeDimensions(ctx context.Context, url string) (width, height int, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-rtsp_transport", "tcp",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeCSV(out)
}

func drainStderr(cameraID string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if logging.Log != nil {
			logging.Log.Debugw("ffmpeg stderr", "camera_id", cameraID, "line", scanner.Text())
		}
	}
}

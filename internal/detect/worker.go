package detect

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
	"github.com/hms-homelab/hms-detection/internal/metrics"
)

// sampleInterval is the detection sampling cadence (~3Hz), matching
// the detection worker's sampling interval.
const sampleInterval = 333 * time.Millisecond

// Result is the latest detection pass for one camera.
type Result struct {
	Detections  []Detection
	Timestamp   time.Time
	FrameNumber uint64
}

// Stats mirrors DetectionWorker::Stats.
type Stats struct {
	FramesProcessed int64
	DetectionsFound int64
	AvgInferenceMs  float64
	IsRunning       bool
}

// Worker runs one detection loop per camera, pulling the ring buffer's
// latest frame at sampleInterval and skipping frames already processed.
type Worker struct {
	cameraID      string
	ring          *frame.Ring
	engine        *Engine
	confThreshold float32
	iouThreshold  float32
	filterClasses []string

	running int32
	stopCh  chan struct{}
	doneCh  chan struct{}

	resultMu sync.RWMutex
	result   *Result

	framesProcessed atomic.Int64
	detectionsFound atomic.Int64
	totalInferenceMs float64
	avgInferenceMs   atomic.Uint64 // math.Float64bits
}

// NewWorker builds a Worker. cameraConfThreshold overrides
// detectionConfThreshold when > 0; classes overrides the global class
// filter when non-empty.
func NewWorker(cameraID string, ring *frame.Ring, engine *Engine,
	cameraConfThreshold, detectionConfThreshold, iouThreshold float32,
	cameraClasses, detectionClasses []string,
) *Worker {
	conf := detectionConfThreshold
	if cameraConfThreshold > 0 {
		conf = cameraConfThreshold
	}
	classes := detectionClasses
	if len(cameraClasses) > 0 {
		classes = cameraClasses
	}

	return &Worker{
		cameraID:      cameraID,
		ring:          ring,
		engine:        engine,
		confThreshold: conf,
		iouThreshold:  iouThreshold,
		filterClasses: classes,
	}
}

// Start launches the detection loop goroutine if not already running.
func (w *Worker) Start() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	if logging.Log != nil {
		logging.Log.Infow("detection worker started",
			"camera_id", w.cameraID, "conf", w.confThreshold,
			"iou", w.iouThreshold, "interval_ms", sampleInterval.Milliseconds())
	}
	go w.loop()
}

// Stop signals the loop to exit and waits for it to finish.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapInt32(&w.running, 1, 0) {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	if logging.Log != nil {
		logging.Log.Infow("detection worker stopped", "camera_id", w.cameraID)
	}
}

// GetLatestResult returns the most recent detection pass, or nil if none
// has completed yet.
func (w *Worker) GetLatestResult() *Result {
	w.resultMu.RLock()
	defer w.resultMu.RUnlock()
	return w.result
}

func (w *Worker) Stats() Stats {
	return Stats{
		FramesProcessed: w.framesProcessed.Load(),
		DetectionsFound: w.detectionsFound.Load(),
		AvgInferenceMs:  w.avgInferenceMsValue(),
		IsRunning:       atomic.LoadInt32(&w.running) == 1,
	}
}

func (w *Worker) loop() {
	defer close(w.doneCh)

	var lastFrameNumber uint64

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		h := w.ring.Latest()
		if h == nil || h.Data().FrameNumber == lastFrameNumber {
			if h != nil {
				h.Release()
			}
			if !sleepOrStop(w.stopCh, sampleInterval) {
				return
			}
			continue
		}

		start := time.Now()
		lastFrameNumber = h.Data().FrameNumber
		d := h.Data()

		detections, err := w.engine.Detect(d, w.confThreshold, w.iouThreshold, w.filterClasses)
		h.Release()
		if err != nil {
			if logging.Log != nil {
				logging.Log.Warnw("detection failed", "camera_id", w.cameraID, "error", err)
			}
			if !sleepOrStop(w.stopCh, sampleInterval) {
				return
			}
			continue
		}

		elapsed := time.Since(start)
		ms := float64(elapsed) / float64(time.Millisecond)

		w.resultMu.Lock()
		w.result = &Result{Detections: detections, Timestamp: d.Timestamp, FrameNumber: lastFrameNumber}
		w.resultMu.Unlock()

		count := w.framesProcessed.Add(1)
		w.detectionsFound.Add(int64(len(detections)))
		w.totalInferenceMs += ms
		w.storeAvgInferenceMs(w.totalInferenceMs / float64(count))
		metrics.DetectionLatencyMs.WithLabelValues(w.cameraID).Observe(ms)

		remaining := sampleInterval - time.Since(start)
		if remaining > 0 {
			if !sleepOrStop(w.stopCh, remaining) {
				return
			}
		}
	}
}

func (w *Worker) avgInferenceMsValue() float64 {
	return math.Float64frombits(w.avgInferenceMs.Load())
}

func (w *Worker) storeAvgInferenceMs(v float64) {
	w.avgInferenceMs.Store(math.Float64bits(v))
}

// sleepOrStop sleeps for d or returns false early if stopCh closes.
func sleepOrStop(stopCh chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stopCh:
		return false
	case <-t.C:
		return true
	}
}

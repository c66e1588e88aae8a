// Package event is the motion-triggered event orchestrator: it listens
// for motion/start and motion/stop on the event bus, drives one event
// task per camera through preroll capture, recording, sampled detection,
// post-roll, snapshot, deduplication, bus publication, persistence, and
// captioning.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hms-homelab/hms-detection/internal/bufsvc"
	"github.com/hms-homelab/hms-detection/internal/bus"
	"github.com/hms-homelab/hms-detection/internal/config"
	"github.com/hms-homelab/hms-detection/internal/detect"
	"github.com/hms-homelab/hms-detection/internal/encode"
	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
	"github.com/hms-homelab/hms-detection/internal/store"
	"github.com/hms-homelab/hms-detection/internal/util"
	"github.com/hms-homelab/hms-detection/internal/vision"
)

// detectionSampleInterval is the number of recorded frames between
// detection samples during an event's live/post-roll phases.
const detectionSampleInterval = 3

// defaultImmediateNotificationConfidence is the fallback gate for
// spawning a captioning call, when a camera doesn't override it.
const defaultImmediateNotificationConfidence = 0.70

// defaultPostRollSeconds is used when neither the motion/start payload
// nor EventConfig specify one.
const defaultPostRollSeconds = 5

// pollInterval is how long the sampling loop waits before retrying when
// the ring has no frame or the latest frame's dimensions do not match.
const pollInterval = 30 * time.Millisecond

// eventTask is one in-flight event's single-flight handle.
type eventTask struct {
	cameraID      string
	eventID       string
	stopRequested atomic.Bool
}

// eventState accumulates detections and best-frame bookkeeping across
// an event's live and post-roll phases.
type eventState struct {
	allDetections     []detect.Detection
	bestConfidence    float32
	bestFrame         *frame.Data
	bestDetections    []detect.Detection
	earlyFired        bool
	earlySnapshotPath string
	captionResultCh   chan vision.Result
	writeCount        int
}

// Orchestrator owns the active-events table and drives every event task
// through its full lifecycle.
type Orchestrator struct {
	buffers     *bufsvc.Service
	bus         bus.Client
	logger      *store.EventLogger
	vision      *vision.Client
	eventCfg    config.EventConfig
	detCfg      config.DetectionConfig
	cameras     map[string]config.CameraConfig
	topicPrefix string

	compressor *util.Compressor
	redis      *store.RedisCache

	mu        sync.Mutex
	active    map[string]*eventTask
	graveyard []chan struct{}
	wg        sync.WaitGroup
}

// New builds an Orchestrator. logger and visionClient may be nil, in
// which case DB persistence and captioning are skipped on a best-effort
// basis. redisCache may be nil or disabled, in which case cross-restart
// duplicate suppression is skipped and every motion/start is treated as
// new. When compressionCfg.Enabled, finalized recordings are compressed
// at rest.
func New(
	buffers *bufsvc.Service,
	busClient bus.Client,
	logger *store.EventLogger,
	visionClient *vision.Client,
	redisCache *store.RedisCache,
	eventCfg config.EventConfig,
	detCfg config.DetectionConfig,
	cameras []config.CameraConfig,
	topicPrefix string,
	compressionCfg config.Compression,
) *Orchestrator {
	byID := make(map[string]config.CameraConfig, len(cameras))
	for _, c := range cameras {
		byID[c.ID] = c
	}
	o := &Orchestrator{
		buffers:     buffers,
		bus:         busClient,
		logger:      logger,
		vision:      visionClient,
		redis:       redisCache,
		eventCfg:    eventCfg,
		detCfg:      detCfg,
		cameras:     byID,
		topicPrefix: topicPrefix,
		active:      make(map[string]*eventTask),
	}
	if compressionCfg.Enabled {
		c, err := util.NewCompressor(compressionCfg.Level)
		if err == nil {
			o.compressor = c
		} else if logging.Log != nil {
			logging.Log.Warnw("compression disabled: compressor init failed", "error", err)
		}
	}
	return o
}

// Start subscribes to the two motion topics and announces online status
// as a retained message.
func (o *Orchestrator) Start() error {
	if o.bus == nil {
		return nil
	}
	if err := o.bus.Subscribe([]string{"camera/event/motion/start", "camera/event/motion/stop"}, o.handleMotionEvent); err != nil {
		return fmt.Errorf("subscribe motion topics: %w", err)
	}
	o.publish(o.topicPrefix+"/status", []byte("online"), true)
	return nil
}

// Stop requests every active event to wind down, joins all event tasks,
// drains the orphan ("graveyard") queue of already-finished tasks, and
// announces offline status.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	for _, t := range o.active {
		t.stopRequested.Store(true)
	}
	o.mu.Unlock()

	o.wg.Wait()

	o.mu.Lock()
	graveyard := o.graveyard
	o.graveyard = nil
	o.mu.Unlock()
	for _, done := range graveyard {
		<-done
	}

	o.publish(o.topicPrefix+"/status", []byte("offline"), true)
}

// ActiveEventCount returns the number of currently in-flight events.
func (o *Orchestrator) ActiveEventCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

func (o *Orchestrator) handleMotionEvent(topic string, payload []byte) {
	switch {
	case strings.HasSuffix(topic, "motion/start"):
		o.handleMotionStart(payload)
	case strings.HasSuffix(topic, "motion/stop"):
		o.handleMotionStop(payload)
	}
}

// handleMotionStart enforces the single-flight rule: a motion/start for a
// camera with an active event is ignored and logged.
func (o *Orchestrator) handleMotionStart(payload []byte) {
	var msg struct {
		CameraID        string `json:"camera_id"`
		PostRollSeconds int    `json:"post_roll_seconds"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("motion/start: invalid payload", "error", err)
		}
		return
	}
	if msg.CameraID == "" {
		return
	}

	postRoll := msg.PostRollSeconds
	if postRoll <= 0 {
		postRoll = o.eventCfg.PostRollDefaultSeconds
	}
	if postRoll <= 0 {
		postRoll = defaultPostRollSeconds
	}

	o.mu.Lock()
	if _, exists := o.active[msg.CameraID]; exists {
		o.mu.Unlock()
		if logging.Log != nil {
			logging.Log.Infow("motion/start ignored: event already active", "camera_id", msg.CameraID)
		}
		return
	}
	if recentID, ok := o.redis.LatestEventKey(context.Background(), msg.CameraID); ok {
		o.mu.Unlock()
		if logging.Log != nil {
			logging.Log.Infow("motion/start ignored: recent event already recorded for camera", "camera_id", msg.CameraID, "event_id", recentID)
		}
		return
	}
	task := &eventTask{cameraID: msg.CameraID, eventID: util.NewEventID(time.Now())}
	o.active[msg.CameraID] = task
	o.mu.Unlock()

	if err := o.redis.SetEventKey(context.Background(), msg.CameraID, task.eventID); err != nil && logging.Log != nil {
		logging.Log.Warnw("redis set event key failed", "camera_id", msg.CameraID, "error", err)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runEvent(task, postRoll)

		done := make(chan struct{})
		close(done)
		o.mu.Lock()
		delete(o.active, task.cameraID)
		o.graveyard = append(o.graveyard, done)
		o.mu.Unlock()
	}()
}

// handleMotionStop sets stop_requested on the camera's active event, if
// any; it never cancels preroll writing already underway.
func (o *Orchestrator) handleMotionStop(payload []byte) {
	var msg struct {
		CameraID string `json:"camera_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("motion/stop: invalid payload", "error", err)
		}
		return
	}

	o.mu.Lock()
	task, ok := o.active[msg.CameraID]
	o.mu.Unlock()
	if !ok {
		return
	}
	task.stopRequested.Store(true)
}

// runEvent drives the full event pipeline.
func (o *Orchestrator) runEvent(task *eventTask, postRollSeconds int) {
	cameraID := task.cameraID
	eventID := task.eventID
	startTime := time.Now()
	cam := o.cameraByID(cameraID)

	o.publishJSON(o.topic(cameraID, "detection"), detectionStatusPayload{
		Status: "started", Timestamp: nowTS(), CameraID: cameraID,
	})

	ring := o.buffers.CameraBuffer(cameraID)
	if ring == nil {
		if logging.Log != nil {
			logging.Log.Warnw("event aborted: no buffer for camera", "camera_id", cameraID)
		}
		return
	}

	handles := ring.Snapshot()
	prerollFrames := make([]*frame.Data, 0, len(handles))
	for _, h := range handles {
		prerollFrames = append(prerollFrames, h.Data().Clone())
		h.Release()
	}

	width, height := 0, 0
	if len(prerollFrames) > 0 {
		width, height = prerollFrames[0].Width, prerollFrames[0].Height
	} else if h := o.buffers.LatestFrame(cameraID); h != nil {
		width, height = h.Data().Width, h.Data().Height
		h.Release()
	}
	if width == 0 || height == 0 {
		if logging.Log != nil {
			logging.Log.Warnw("event aborted: no frames available", "camera_id", cameraID)
		}
		return
	}

	fps := o.eventCfg.FPS
	if fps <= 0 {
		fps = 10
	}

	recorder := encode.NewRecorder()
	if err := recorder.Start(cameraID, prerollFrames, width, height, fps, o.eventCfg.EventsDir); err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("event aborted: recorder start failed", "camera_id", cameraID, "error", err)
		}
		return
	}

	conf, iouThreshold, classes := effectiveThresholds(cam, o.detCfg)
	engine := o.buffers.DetectionEngine()
	sampleInterval := time.Duration(float64(time.Second) / float64(fps))

	state := &eventState{}

	o.samplingLoop(cam, eventID, cameraID, recorder, state, engine, conf, iouThreshold, classes, width, height, sampleInterval,
		func() bool { return !task.stopRequested.Load() && !recorder.IsMaxDurationReached() })

	recorder.RequestStop(postRollSeconds)
	o.samplingLoop(cam, eventID, cameraID, recorder, state, engine, conf, iouThreshold, classes, width, height, sampleInterval,
		func() bool { return !recorder.IsPostRollComplete() && !recorder.IsMaxDurationReached() })

	if err := recorder.Finalize(); err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("recorder finalize error", "camera_id", cameraID, "error", err)
		}
	}

	snapshotPath := state.earlySnapshotPath
	if snapshotPath == "" && state.bestFrame != nil {
		if p, err := encode.SaveSnapshot(state.bestFrame, state.bestDetections, cameraID, o.eventCfg.SnapshotsDir); err == nil {
			snapshotPath = p
		}
	}

	uniqueDetections := dedupeByClass(state.allDetections)
	uniqueClasses := classNamesOf(uniqueDetections)
	classCounts := countByClass(state.allDetections)
	message := buildMessage(uniqueClasses)

	processingSeconds := time.Since(startTime).Seconds()
	recordingURL := recorder.FilePath()
	recordingFilename := recorder.FileName()
	if o.compressor != nil {
		if compressed, err := compressArchive(o.compressor, recordingURL); err != nil {
			if logging.Log != nil {
				logging.Log.Warnw("recording compression failed", "camera_id", cameraID, "path", recordingURL, "error", err)
			}
		} else {
			recordingURL = compressed
			recordingFilename = filepath.Base(compressed)
		}
	}

	o.publishJSON(o.topic(cameraID, "result"), finalResultPayload{
		CameraID:              cameraID,
		Timestamp:             nowTS(),
		Detections:            toSummaries(uniqueDetections),
		DetectionCount:        len(state.allDetections),
		UniqueClasses:         uniqueClasses,
		ClassCounts:           classCounts,
		DetectedObjects:       message,
		DetectionMessage:      message,
		FramesProcessed:       recorder.FramesWritten(),
		ProcessingTimeSeconds: round2(processingSeconds),
		SnapshotURL:           snapshotPath,
		RecordingURL:          recordingURL,
		RecordingFilename:     recordingFilename,
		Phase:                 "final",
	})

	if !state.earlyFired {
		if len(state.allDetections) > 0 {
			o.publish(o.topic(cameraID, "detected"), []byte("ON"), false)
		} else {
			o.publish(o.topic(cameraID, "detected"), []byte("OFF"), false)
		}
	}

	o.publishJSON(o.topic(cameraID, "detection"), detectionStatusPayload{
		Status: "completed", Timestamp: nowTS(), CameraID: cameraID,
	})

	if len(state.allDetections) > 0 {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			time.Sleep(2 * time.Second)
			o.publish(o.topic(cameraID, "detected"), []byte("OFF"), false)
		}()
	}

	if o.logger != nil {
		o.logger.CreateEvent(eventID, cameraID, cam.Name, recordingFilename, filepath.Base(snapshotPath))
		o.logger.LogDetections(eventID, toDetectionRecords(uniqueDetections))
		o.logger.CompleteEvent(eventID, processingSeconds, recorder.FramesWritten(), len(state.allDetections))
	}

	o.joinCaptioning(cam, eventID, cameraID, state, recordingURL, recordingFilename, snapshotPath)
}

// samplingLoop writes frames to the recorder and, every
// detectionSampleInterval writes, runs detection on that frame,
// accumulating detections and best-frame bookkeeping; it triggers the
// early-notification branch on the first non-empty detection in the
// event.
func (o *Orchestrator) samplingLoop(
	cam config.CameraConfig,
	eventID, cameraID string,
	recorder *encode.Recorder,
	state *eventState,
	engine *detect.Engine,
	conf, iouThreshold float32,
	classes []string,
	width, height int,
	sampleInterval time.Duration,
	shouldContinue func() bool,
) {
	for shouldContinue() {
		h := o.buffers.LatestFrame(cameraID)
		if h == nil {
			time.Sleep(pollInterval)
			continue
		}
		d := h.Data()
		if d.Width != width || d.Height != height {
			h.Release()
			time.Sleep(pollInterval)
			continue
		}

		recorder.WriteFrame(d)
		state.writeCount++

		if engine != nil && engine.IsLoaded() && state.writeCount%detectionSampleInterval == 0 {
			dets, err := engine.Detect(d, conf, iouThreshold, classes)
			if err == nil && len(dets) > 0 {
				state.allDetections = append(state.allDetections, dets...)
				best := dets[0]
				if best.Confidence > state.bestConfidence {
					state.bestConfidence = best.Confidence
					state.bestFrame = d.Clone()
					state.bestDetections = dets
				}
				if !state.earlyFired {
					state.earlyFired = true
					o.earlyNotify(cameraID, eventID, cam, state, dets)
				}
			} else if err != nil && logging.Log != nil {
				logging.Log.Warnw("event detection sample failed", "camera_id", cameraID, "error", err)
			}
		}

		h.Release()
		time.Sleep(sampleInterval)
	}
}

// earlyNotify runs the early-notification branch: it
// publishes the early result and ON state, saves an annotated snapshot of
// the best frame so far, and — if captioning is enabled and the gate is
// met — spawns a parallel captioning call whose handle is joined later in
// joinCaptioning.
func (o *Orchestrator) earlyNotify(cameraID, eventID string, cam config.CameraConfig, state *eventState, dets []detect.Detection) {
	o.publishJSON(o.topic(cameraID, "result"), earlyResultPayload{
		Phase:           "early",
		Detections:      toSummaries(dets),
		DetectionCount:  len(dets),
		DetectedObjects: dets[0].ClassName,
		CameraID:        cameraID,
		Timestamp:       nowTS(),
	})
	o.publish(o.topic(cameraID, "detected"), []byte("ON"), false)

	path, err := encode.SaveSnapshot(state.bestFrame, state.bestDetections, cameraID, o.eventCfg.SnapshotsDir)
	if err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("early snapshot failed", "camera_id", cameraID, "error", err)
		}
		return
	}
	state.earlySnapshotPath = path

	if o.vision == nil || dets[0].Confidence < gateConfidence(cam) {
		return
	}

	primary := vision.SelectPrimaryClass(classNamesOf(dets))
	ch := make(chan vision.Result, 1)
	state.captionResultCh = ch
	snapshotPath := path
	go func() {
		ch <- o.vision.Analyze(context.Background(), snapshotPath, cameraID, primary)
	}()
}

// joinCaptioning joins the parallel captioning task spawned by
// earlyNotify, if any; otherwise it runs a synchronous fallback call when
// the best detection still meets the camera's gate.
func (o *Orchestrator) joinCaptioning(cam config.CameraConfig, eventID, cameraID string, state *eventState, recordingURL, recordingFilename, snapshotPath string) {
	if state.captionResultCh != nil {
		res := <-state.captionResultCh
		o.publishCaptionResult(eventID, cameraID, res, state, recordingURL, recordingFilename, snapshotPath)
		return
	}

	if o.vision == nil || len(state.bestDetections) == 0 || snapshotPath == "" {
		return
	}
	if state.bestDetections[0].Confidence < gateConfidence(cam) {
		return
	}

	primary := vision.SelectPrimaryClass(classNamesOf(state.bestDetections))
	res := o.vision.Analyze(context.Background(), snapshotPath, cameraID, primary)
	o.publishCaptionResult(eventID, cameraID, res, state, recordingURL, recordingFilename, snapshotPath)
}

func (o *Orchestrator) publishCaptionResult(eventID, cameraID string, res vision.Result, state *eventState, recordingURL, recordingFilename, snapshotPath string) {
	if !res.IsValid {
		return
	}
	o.publishJSON(o.topic(cameraID, "context"), contextPayload{
		CameraID:          cameraID,
		Timestamp:         nowTS(),
		Context:           res.Context,
		RecordingURL:      recordingURL,
		RecordingFilename: recordingFilename,
		SnapshotURL:       snapshotPath,
		Source:            "llava",
	})
	if o.logger != nil {
		o.logger.LogAiContext(eventID, cameraID, store.AiVisionRecord{
			ContextText:         res.Context,
			DetectedClasses:     classNamesOf(state.bestDetections),
			ResponseTimeSeconds: res.ResponseTimeSeconds,
			IsValid:             res.IsValid,
		})
	}
}

func (o *Orchestrator) cameraByID(id string) config.CameraConfig {
	if cam, ok := o.cameras[id]; ok {
		return cam
	}
	return config.CameraConfig{ID: id, Name: id}
}

func (o *Orchestrator) topic(cameraID, suffix string) string {
	return o.topicPrefix + "/" + cameraID + "/" + suffix
}

func (o *Orchestrator) publishJSON(topic string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("marshal publish payload failed", "topic", topic, "error", err)
		}
		return
	}
	o.publish(topic, b, false)
}

func (o *Orchestrator) publish(topic string, payload []byte, retain bool) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(context.Background(), topic, payload, retain); err != nil {
		if logging.Log != nil {
			logging.Log.Warnw("bus publish failed", "topic", topic, "error", err)
		}
	}
}

func effectiveThresholds(cam config.CameraConfig, detCfg config.DetectionConfig) (conf, iouThreshold float32, classes []string) {
	conf = float32(detCfg.ConfidenceThreshold)
	if cam.ConfidenceThreshold > 0 {
		conf = float32(cam.ConfidenceThreshold)
	}
	iouThreshold = float32(detCfg.IOUThreshold)
	classes = detCfg.Classes
	if len(cam.Classes) > 0 {
		classes = cam.Classes
	}
	return
}

func gateConfidence(cam config.CameraConfig) float32 {
	if cam.ImmediateNotificationConfidence > 0 {
		return float32(cam.ImmediateNotificationConfidence)
	}
	return defaultImmediateNotificationConfidence
}

func nowTS() string { return time.Now().UTC().Format(time.RFC3339) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// compressArchive compresses path in place with a .zst sibling and removes
// the uncompressed original, returning the new path.
func compressArchive(c *util.Compressor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read archive: %w", err)
	}
	compressed, err := c.Compress(data)
	if err != nil {
		return "", fmt.Errorf("compress archive: %w", err)
	}
	dst := path + ".zst"
	if err := os.WriteFile(dst, compressed, 0o644); err != nil {
		return "", fmt.Errorf("write compressed archive: %w", err)
	}
	if err := os.Remove(path); err != nil && logging.Log != nil {
		logging.Log.Warnw("remove uncompressed archive failed", "path", path, "error", err)
	}
	return dst, nil
}

// Package bufsvc is the fleet-level composition root: one pool, one ring
// buffer, and one capture pipeline per configured camera, plus the shared
// detection engine and per-camera detection workers.
package bufsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/hms-homelab/hms-detection/internal/capture"
	"github.com/hms-homelab/hms-detection/internal/config"
	"github.com/hms-homelab/hms-detection/internal/detect"
	"github.com/hms-homelab/hms-detection/internal/frame"
)

// cameraBuffer bundles the pool/ring/capture triple for one camera.
type cameraBuffer struct {
	id      string
	name    string
	pool    *frame.Pool
	ring    *frame.Ring
	capture *capture.Capture
	worker  *detect.Worker
}

// Service owns every camera's pool/ring/capture triple, the shared
// detection engine, and the per-camera detection workers.
type Service struct {
	eventCfg config.EventConfig
	detCfg   config.DetectionConfig

	mu      sync.RWMutex
	buffers map[string]*cameraBuffer
	order   []string

	engine *detect.Engine
}

// New constructs a Service with one camera buffer per entry in cameras,
// sized from EventConfig's ring and pool capacity (ring_capacity =
// preroll_seconds*fps, floor 75; pool = ring + 15 headroom).
func New(cameras []config.CameraConfig, eventCfg config.EventConfig, detCfg config.DetectionConfig) *Service {
	s := &Service{
		eventCfg: eventCfg,
		detCfg:   detCfg,
		buffers:  make(map[string]*cameraBuffer, len(cameras)),
	}

	ringCap := eventCfg.RingCapacity()
	poolCap := eventCfg.PoolCapacity()

	for _, cam := range cameras {
		pool := frame.NewPool(poolCap)
		ring := frame.NewRing(ringCap)
		cp := capture.New(capture.Config{ID: cam.ID, URL: cam.URL}, pool, ring,
			detCfg.InputWidth, detCfg.InputHeight, eventCfg.FPS)

		s.buffers[cam.ID] = &cameraBuffer{id: cam.ID, name: cam.Name, pool: pool, ring: ring, capture: cp}
		s.order = append(s.order, cam.ID)
	}

	return s
}

// StartAll launches every camera's capture goroutine.
func (s *Service) StartAll(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buffers {
		b.capture.Start(ctx)
	}
}

// StopAll stops every camera's capture goroutine and detection worker.
func (s *Service) StopAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buffers {
		if b.worker != nil {
			b.worker.Stop()
		}
		b.capture.Stop()
	}
}

// LoadDetectionModel loads the shared ONNX model. A load failure
// disables detection globally but buffering continues.
func (s *Service) LoadDetectionModel(modelPath string, numClasses int) error {
	engine, err := detect.NewEngine(modelPath, numClasses)
	if err != nil {
		return fmt.Errorf("load detection model: %w", err)
	}
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// StartDetection builds and starts one Worker per camera, using each
// camera's threshold/class overrides where set.
func (s *Service) StartDetection(cameras []config.CameraConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return
	}

	byID := make(map[string]config.CameraConfig, len(cameras))
	for _, c := range cameras {
		byID[c.ID] = c
	}

	for id, b := range s.buffers {
		cam := byID[id]
		w := detect.NewWorker(id, b.ring, s.engine,
			float32(cam.ConfidenceThreshold), float32(s.detCfg.ConfidenceThreshold),
			float32(s.detCfg.IOUThreshold), cam.Classes, s.detCfg.Classes)
		b.worker = w
		w.Start()
	}
}

// StopDetection stops every per-camera detection worker without touching
// capture.
func (s *Service) StopDetection() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buffers {
		if b.worker != nil {
			b.worker.Stop()
		}
	}
}

// LatestFrame returns the most recent frame handle for a camera, or nil
// if the camera is unknown or has no frames yet. Callers must Release it.
func (s *Service) LatestFrame(cameraID string) *frame.Handle {
	s.mu.RLock()
	b, ok := s.buffers[cameraID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return b.ring.Latest()
}

// CameraBuffer exposes a camera's ring for snapshot/preroll use by the
// event orchestrator.
func (s *Service) CameraBuffer(cameraID string) *frame.Ring {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[cameraID]
	if !ok {
		return nil
	}
	return b.ring
}

// CameraIDs returns every configured camera id, in configuration order.
func (s *Service) CameraIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Stats is the per-camera snapshot returned by AllStats.
type Stats struct {
	CaptureStats   capture.Stats
	RingSize       int
	RingCapacity   int
	DetectionStats detect.Stats
	HasDetection   bool
}

// AllStats returns a per-camera stats snapshot, keyed by camera id.
func (s *Service) AllStats() map[string]Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Stats, len(s.buffers))
	for id, b := range s.buffers {
		st := Stats{
			CaptureStats: b.capture.Stats(),
			RingSize:     b.ring.Size(),
			RingCapacity: b.ring.Capacity(),
		}
		if b.worker != nil {
			st.DetectionStats = b.worker.Stats()
			st.HasDetection = true
		}
		out[id] = st
	}
	return out
}

// IsHealthy reports true if at least one camera is connected and has at
// least one buffered frame.
func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buffers {
		cs := b.capture.Stats()
		if cs.Connected() && b.ring.Size() > 0 {
			return true
		}
	}
	return false
}

// DetectionEngine returns the shared engine, or nil if none is loaded.
func (s *Service) DetectionEngine() *detect.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// DetectionResult returns the latest cached detection result for a
// camera, or nil if detection isn't running for it.
func (s *Service) DetectionResult(cameraID string) *detect.Result {
	s.mu.RLock()
	b, ok := s.buffers[cameraID]
	s.mu.RUnlock()
	if !ok || b.worker == nil {
		return nil
	}
	return b.worker.GetLatestResult()
}

// DetectionStats returns the detection worker stats for every camera that
// has one running.
func (s *Service) DetectionStats() map[string]detect.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]detect.Stats)
	for id, b := range s.buffers {
		if b.worker != nil {
			out[id] = b.worker.Stats()
		}
	}
	return out
}

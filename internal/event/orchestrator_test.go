package event

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms-homelab/hms-detection/internal/bufsvc"
	"github.com/hms-homelab/hms-detection/internal/config"
	"github.com/hms-homelab/hms-detection/internal/store"
	"github.com/hms-homelab/hms-detection/internal/util"
)

func TestEffectiveThresholdsCameraOverridesGlobal(t *testing.T) {
	cam := config.CameraConfig{ConfidenceThreshold: 0.8, Classes: []string{"person"}}
	detCfg := config.DetectionConfig{ConfidenceThreshold: 0.5, IOUThreshold: 0.45, Classes: []string{"person", "dog"}}

	conf, iouThreshold, classes := effectiveThresholds(cam, detCfg)
	assert.Equal(t, float32(0.8), conf)
	assert.Equal(t, float32(0.45), iouThreshold)
	assert.Equal(t, []string{"person"}, classes)
}

func TestEffectiveThresholdsFallsBackToGlobal(t *testing.T) {
	cam := config.CameraConfig{}
	detCfg := config.DetectionConfig{ConfidenceThreshold: 0.5, IOUThreshold: 0.45, Classes: []string{"person", "dog"}}

	conf, _, classes := effectiveThresholds(cam, detCfg)
	assert.Equal(t, float32(0.5), conf)
	assert.Equal(t, []string{"person", "dog"}, classes)
}

func TestGateConfidenceDefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, float32(defaultImmediateNotificationConfidence), gateConfidence(config.CameraConfig{}))
}

func TestGateConfidenceUsesCameraOverride(t *testing.T) {
	cam := config.CameraConfig{ImmediateNotificationConfidence: 0.9}
	assert.Equal(t, float32(0.9), gateConfidence(cam))
}

func TestActiveEventCountStartsAtZero(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})
	assert.Equal(t, 0, o.ActiveEventCount())
}

func TestHandleMotionStartIgnoresDuplicateWhileActive(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})

	o.mu.Lock()
	o.active["cam1"] = &eventTask{cameraID: "cam1", eventID: "existing"}
	o.mu.Unlock()

	o.handleMotionStart([]byte(`{"camera_id":"cam1","post_roll_seconds":5}`))

	assert.Equal(t, 1, o.ActiveEventCount())
	o.mu.Lock()
	assert.Equal(t, "existing", o.active["cam1"].eventID)
	o.mu.Unlock()
}

func TestHandleMotionStopSetsStopRequestedOnKnownCamera(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})
	task := &eventTask{cameraID: "cam1"}
	o.mu.Lock()
	o.active["cam1"] = task
	o.mu.Unlock()

	o.handleMotionStop([]byte(`{"camera_id":"cam1"}`))

	assert.True(t, task.stopRequested.Load())
}

func TestHandleMotionStopUnknownCameraIsNoop(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})
	o.handleMotionStop([]byte(`{"camera_id":"unknown"}`))
	assert.Equal(t, 0, o.ActiveEventCount())
}

func TestHandleMotionStartWithDisabledRedisStillCreatesTask(t *testing.T) {
	buffers := bufsvc.New(nil, config.EventConfig{}, config.DetectionConfig{})
	redisCache := store.NewRedisCache("127.0.0.1:0", 60, "hms", false)
	o := New(buffers, nil, nil, nil, redisCache, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})

	o.handleMotionStart([]byte(`{"camera_id":"cam1","post_roll_seconds":5}`))

	// No buffer is registered for cam1, so runEvent aborts immediately
	// and the task is moved to the graveyard once its goroutine joins.
	assert.Eventually(t, func() bool { return o.ActiveEventCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestNewOrchestratorEnablesCompressorWhenConfigured(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{Enabled: true, Level: 3})
	assert.NotNil(t, o.compressor)
}

func TestNewOrchestratorLeavesCompressorNilWhenDisabled(t *testing.T) {
	o := New(nil, nil, nil, nil, nil, config.EventConfig{}, config.DetectionConfig{}, nil, "hms/event", config.Compression{})
	assert.Nil(t, o.compressor)
}

func TestCompressArchiveReplacesFileWithZstSibling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake mp4 bytes, repeated, repeated, repeated"), 0o644))

	c, err := util.NewCompressor(3)
	require.NoError(t, err)

	out, err := compressArchive(c, path)
	require.NoError(t, err)
	assert.Equal(t, path+".zst", out)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

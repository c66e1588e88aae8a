package bufsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hms-homelab/hms-detection/internal/config"
)

func testCameras() []config.CameraConfig {
	return []config.CameraConfig{
		{ID: "cam1", Name: "Front Door", URL: "rtsp://example/cam1"},
		{ID: "cam2", Name: "Driveway", URL: "rtsp://example/cam2"},
	}
}

func TestNewSizesRingAndPoolPerSpec(t *testing.T) {
	eventCfg := config.EventConfig{PrerollSeconds: 5, FPS: 10} // ring=50
	svc := New(testCameras(), eventCfg, config.DetectionConfig{})

	ring := svc.CameraBuffer("cam1")
	assert.Equal(t, 50, ring.Capacity())
	assert.ElementsMatch(t, []string{"cam1", "cam2"}, svc.CameraIDs())
}

func TestNewFloorsRingCapacityAt75(t *testing.T) {
	eventCfg := config.EventConfig{} // preroll*fps == 0
	svc := New(testCameras(), eventCfg, config.DetectionConfig{})
	assert.Equal(t, 75, svc.CameraBuffer("cam1").Capacity())
}

func TestIsHealthyFalseWithNoFrames(t *testing.T) {
	svc := New(testCameras(), config.EventConfig{PrerollSeconds: 1, FPS: 10}, config.DetectionConfig{})
	assert.False(t, svc.IsHealthy())
}

func TestCameraBufferUnknownIDIsNil(t *testing.T) {
	svc := New(testCameras(), config.EventConfig{PrerollSeconds: 1, FPS: 10}, config.DetectionConfig{})
	assert.Nil(t, svc.CameraBuffer("does-not-exist"))
	assert.Nil(t, svc.LatestFrame("does-not-exist"))
	assert.Nil(t, svc.DetectionResult("does-not-exist"))
}

func TestAllStatsCoversEveryCamera(t *testing.T) {
	svc := New(testCameras(), config.EventConfig{PrerollSeconds: 1, FPS: 10}, config.DetectionConfig{})
	stats := svc.AllStats()
	assert.Len(t, stats, 2)
	assert.Contains(t, stats, "cam1")
	assert.Contains(t, stats, "cam2")
	assert.False(t, stats["cam1"].HasDetection)
}

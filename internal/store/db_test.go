package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *EventLogger {
	t.Helper()
	logger, err := Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	return logger
}

func TestCreateEventDefaultsCameraNameToCameraID(t *testing.T) {
	logger := newTestLogger(t)

	logger.CreateEvent("evt-1", "cam1", "", "rec.mp4", "snap.jpg")

	var row DetectionEvent
	require.NoError(t, logger.db.Where("event_id = ?", "evt-1").First(&row).Error)
	assert.Equal(t, "cam1", row.CameraName)
	assert.Equal(t, "recording", row.Status)
	assert.Equal(t, "rec.mp4", row.RecordingURL)
}

func TestCompleteEventUpdatesStatusAndCounters(t *testing.T) {
	logger := newTestLogger(t)
	logger.CreateEvent("evt-2", "cam1", "Front Door", "rec.mp4", "snap.jpg")

	logger.CompleteEvent("evt-2", 12.5, 40, 3)

	var row DetectionEvent
	require.NoError(t, logger.db.Where("event_id = ?", "evt-2").First(&row).Error)
	assert.Equal(t, "completed", row.Status)
	assert.Equal(t, 12.5, row.DurationSeconds)
	assert.Equal(t, 40, row.FramesProcessed)
	assert.Equal(t, 3, row.TotalDetections)
	assert.NotNil(t, row.EndedAt)
}

func TestLogDetectionsInsertsOneRowPerDetection(t *testing.T) {
	logger := newTestLogger(t)
	logger.CreateEvent("evt-3", "cam1", "cam1", "rec.mp4", "snap.jpg")

	logger.LogDetections("evt-3", []DetectionRecord{
		{ClassName: "person", Confidence: 0.91, X1: 10, Y1: 20, X2: 100, Y2: 200},
		{ClassName: "dog", Confidence: 0.75, X1: 5, Y1: 5, X2: 50, Y2: 50},
	})

	var rows []DetectionRow
	require.NoError(t, logger.db.Where("event_id = ?", "evt-3").Find(&rows).Error)
	assert.Len(t, rows, 2)
}

func TestLogDetectionsNoopOnEmpty(t *testing.T) {
	logger := newTestLogger(t)
	logger.LogDetections("evt-4", nil)

	var rows []DetectionRow
	require.NoError(t, logger.db.Where("event_id = ?", "evt-4").Find(&rows).Error)
	assert.Empty(t, rows)
}

func TestLogAiContextDefaultsSourceModel(t *testing.T) {
	logger := newTestLogger(t)
	logger.CreateEvent("evt-5", "cam1", "cam1", "rec.mp4", "snap.jpg")

	logger.LogAiContext("evt-5", "cam1", AiVisionRecord{
		ContextText:         "A person walks by the door.",
		DetectedClasses:     []string{"person"},
		PromptUsed:          "Describe the person.",
		ResponseTimeSeconds: 1.2,
		IsValid:             true,
	})

	var row AiVisionContextRow
	require.NoError(t, logger.db.Where("event_id = ?", "evt-5").First(&row).Error)
	assert.Equal(t, "llava:7b", row.SourceModel)
	assert.Equal(t, "person", row.DetectedClasses)
	assert.True(t, row.IsValid)
}

package store

import (
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hms-homelab/hms-detection/internal/logging"
)

// DetectionEvent is the detection_events table: one row per motion event,
// opened in "recording" status and closed out to "completed" once the
// recording finalizes.
type DetectionEvent struct {
	ID              uint   `gorm:"primaryKey"`
	EventID         string `gorm:"uniqueIndex;size:64"`
	CameraID        string `gorm:"index;size:64"`
	CameraName      string `gorm:"size:128"`
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          string `gorm:"size:32"` // "recording" | "completed"
	RecordingURL    string
	SnapshotURL     string
	DurationSeconds float64
	FramesProcessed int
	TotalDetections int
}

// DetectionRow mirrors the detections table.
type DetectionRow struct {
	ID         uint   `gorm:"primaryKey"`
	EventID    string `gorm:"index;size:64"`
	ClassName  string `gorm:"size:64"`
	Confidence float32
	BBoxX1     int
	BBoxY1     int
	BBoxX2     int
	BBoxY2     int
	DetectedAt time.Time
}

// AiVisionContextRow mirrors the ai_vision_context table.
type AiVisionContextRow struct {
	ID                  uint `gorm:"primaryKey"`
	EventID             string `gorm:"index;size:64"`
	CameraID            string `gorm:"size:64"`
	ContextText         string
	SourceModel         string `gorm:"size:64"`
	PromptUsed          string
	DetectedClasses     string // comma-joined
	ResponseTimeSeconds float64
	IsValid             bool
	AnalyzedAt          time.Time
}

// DetectionRecord is one deduplicated detection attached to an event.
type DetectionRecord struct {
	ClassName      string
	Confidence     float32
	X1, Y1, X2, Y2 float32
}

// AiVisionRecord is a captioning result attached to an event. SourceModel
// defaults to "llava:7b" when left unset.
type AiVisionRecord struct {
	ContextText         string
	DetectedClasses     []string
	SourceModel         string
	PromptUsed          string
	ResponseTimeSeconds float64
	IsValid             bool
}

// EventLogger is the best-effort relational persistence layer. Every
// method absorbs its own errors rather than returning them, logging and
// continuing instead.
type EventLogger struct {
	db *gorm.DB
}

// Open opens (and auto-migrates) a gorm-backed event log. driver/dsn come
// from config.DatabaseConfig; only the sqlite driver is wired today.
func Open(driver, dsn string) (*EventLogger, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "sqlite3", "":
		dialector = sqlite.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DetectionEvent{}, &DetectionRow{}, &AiVisionContextRow{}); err != nil {
		return nil, err
	}
	return &EventLogger{db: db}, nil
}

// CreateEvent inserts a row with status "recording". cameraName defaults
// to cameraID when empty.
func (l *EventLogger) CreateEvent(eventID, cameraID, cameraName, recordingFilename, snapshotFilename string) {
	if cameraName == "" {
		cameraName = cameraID
	}
	row := DetectionEvent{
		EventID:      eventID,
		CameraID:     cameraID,
		CameraName:   cameraName,
		StartedAt:    time.Now(),
		Status:       "recording",
		RecordingURL: recordingFilename,
		SnapshotURL:  snapshotFilename,
	}
	if err := l.db.Create(&row).Error; err != nil {
		l.logError("create_event", eventID, err)
		return
	}
	l.logDebug("created event", eventID, cameraID)
}

// CompleteEvent sets ended_at/status=completed and the final counters.
func (l *EventLogger) CompleteEvent(eventID string, durationSeconds float64, framesProcessed, detectionsCount int) {
	now := time.Now()
	err := l.db.Model(&DetectionEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"ended_at":         now,
			"duration_seconds": durationSeconds,
			"frames_processed": framesProcessed,
			"total_detections": detectionsCount,
			"status":           "completed",
		}).Error
	if err != nil {
		l.logError("complete_event", eventID, err)
		return
	}
	l.logDebug("completed event", eventID, "")
}

// LogDetections inserts one row per deduplicated detection. A nil/empty
// slice is a no-op.
func (l *EventLogger) LogDetections(eventID string, detections []DetectionRecord) {
	if len(detections) == 0 {
		return
	}
	rows := make([]DetectionRow, 0, len(detections))
	now := time.Now()
	for _, d := range detections {
		rows = append(rows, DetectionRow{
			EventID:    eventID,
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			BBoxX1:     int(d.X1),
			BBoxY1:     int(d.Y1),
			BBoxX2:     int(d.X2),
			BBoxY2:     int(d.Y2),
			DetectedAt: now,
		})
	}
	if err := l.db.Create(&rows).Error; err != nil {
		l.logError("log_detections", eventID, err)
		return
	}
	l.logDebug("logged detections", eventID, "")
}

// LogAiContext inserts an AI vision context row, defaulting SourceModel
// to "llava:7b" when unset.
func (l *EventLogger) LogAiContext(eventID, cameraID string, record AiVisionRecord) {
	sourceModel := record.SourceModel
	if sourceModel == "" {
		sourceModel = "llava:7b"
	}
	row := AiVisionContextRow{
		EventID:             eventID,
		CameraID:            cameraID,
		ContextText:         record.ContextText,
		SourceModel:         sourceModel,
		PromptUsed:          record.PromptUsed,
		DetectedClasses:     strings.Join(record.DetectedClasses, ","),
		ResponseTimeSeconds: record.ResponseTimeSeconds,
		IsValid:             record.IsValid,
		AnalyzedAt:          time.Now(),
	}
	if err := l.db.Create(&row).Error; err != nil {
		l.logError("log_ai_context", eventID, err)
		return
	}
	l.logDebug("logged AI context", eventID, cameraID)
}

func (l *EventLogger) logError(op, eventID string, err error) {
	if logging.Log != nil {
		logging.Log.Errorw("event logger: "+op+" failed", "event_id", eventID, "error", err)
	}
}

func (l *EventLogger) logDebug(msg, eventID, extra string) {
	if logging.Log == nil {
		return
	}
	if extra != "" {
		logging.Log.Debugw(msg, "event_id", eventID, "camera_id", extra)
	} else {
		logging.Log.Debugw(msg, "event_id", eventID)
	}
}

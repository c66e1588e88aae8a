package event

// detectionSummary is one detection as published on the bus: class and
// confidence only, coordinates are not part of the wire contract.
type detectionSummary struct {
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
}

type detectionStatusPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	CameraID  string `json:"camera_id"`
}

type earlyResultPayload struct {
	Phase           string             `json:"phase"`
	Detections      []detectionSummary `json:"detections"`
	DetectionCount  int                `json:"detection_count"`
	DetectedObjects string             `json:"detected_objects"`
	CameraID        string             `json:"camera_id"`
	Timestamp       string             `json:"timestamp"`
}

type finalResultPayload struct {
	CameraID              string             `json:"camera_id"`
	Timestamp             string             `json:"timestamp"`
	Detections            []detectionSummary `json:"detections"`
	DetectionCount        int                `json:"detection_count"`
	UniqueClasses         []string           `json:"unique_classes"`
	ClassCounts           map[string]int     `json:"class_counts"`
	DetectedObjects       string             `json:"detected_objects"`
	DetectionMessage      string             `json:"detection_message"`
	FramesProcessed       int                `json:"frames_processed"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`
	SnapshotURL           string             `json:"snapshot_url"`
	RecordingURL          string             `json:"recording_url"`
	RecordingFilename     string             `json:"recording_filename"`
	Phase                 string             `json:"phase"`
}

type contextPayload struct {
	CameraID          string `json:"camera_id"`
	Timestamp         string `json:"timestamp"`
	Context           string `json:"context"`
	RecordingURL      string `json:"recording_url"`
	RecordingFilename string `json:"recording_filename"`
	SnapshotURL       string `json:"snapshot_url"`
	Source            string `json:"source"`
}

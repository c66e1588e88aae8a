package event

import (
	"strings"

	"github.com/hms-homelab/hms-detection/internal/detect"
	"github.com/hms-homelab/hms-detection/internal/store"
)

// dedupeByClass keeps, per class, the highest-confidence detection,
// preserving first-appearance order.
func dedupeByClass(dets []detect.Detection) []detect.Detection {
	if len(dets) == 0 {
		return nil
	}
	best := make(map[string]detect.Detection, len(dets))
	order := make([]string, 0, len(dets))
	for _, d := range dets {
		cur, ok := best[d.ClassName]
		if !ok {
			order = append(order, d.ClassName)
			best[d.ClassName] = d
			continue
		}
		if d.Confidence > cur.Confidence {
			best[d.ClassName] = d
		}
	}
	out := make([]detect.Detection, 0, len(order))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}

// classNamesOf returns the distinct class names in dets, first-appearance
// order.
func classNamesOf(dets []detect.Detection) []string {
	seen := make(map[string]bool, len(dets))
	out := make([]string, 0, len(dets))
	for _, d := range dets {
		if seen[d.ClassName] {
			continue
		}
		seen[d.ClassName] = true
		out = append(out, d.ClassName)
	}
	return out
}

// countByClass tallies every detection instance (not deduplicated) by
// class name, for the final payload's class_counts field.
func countByClass(dets []detect.Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range dets {
		counts[d.ClassName]++
	}
	return counts
}

func toSummaries(dets []detect.Detection) []detectionSummary {
	out := make([]detectionSummary, 0, len(dets))
	for _, d := range dets {
		out = append(out, detectionSummary{ClassName: d.ClassName, Confidence: d.Confidence})
	}
	return out
}

func toDetectionRecords(dets []detect.Detection) []store.DetectionRecord {
	out := make([]store.DetectionRecord, 0, len(dets))
	for _, d := range dets {
		out = append(out, store.DetectionRecord{
			ClassName: d.ClassName, Confidence: d.Confidence,
			X1: d.X1, Y1: d.Y1, X2: d.X2, Y2: d.Y2,
		})
	}
	return out
}

// article returns the English indefinite article for word, chosen by its
// leading letter.
func article(word string) string {
	if word == "" {
		return "a"
	}
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an"
	}
	return "a"
}

// buildMessage renders at most 5 classes as "Detected a <c1>, a <c2> and
// an <c3>", or "No objects detected" when classes is empty.
func buildMessage(classes []string) string {
	if len(classes) == 0 {
		return "No objects detected"
	}
	list := classes
	if len(list) > 5 {
		list = list[:5]
	}
	phrases := make([]string, len(list))
	for i, c := range list {
		phrases[i] = article(c) + " " + c
	}
	if len(phrases) == 1 {
		return "Detected " + phrases[0]
	}
	return "Detected " + strings.Join(phrases[:len(phrases)-1], ", ") + " and " + phrases[len(phrases)-1]
}

package detect

import "sort"

// Detection is a single detected object in original-image pixel
// coordinates.
type Detection struct {
	ClassName  string
	ClassID    int
	Confidence float32
	X1, Y1     float32
	X2, Y2     float32
}

// postprocess decodes a YOLO-style [1, 4+numClasses, numCandidates] output
// tensor into Detections: confidence filter, class filter, reverse
// letterbox into original image coordinates, then per-class NMS. Matches
// the detection engine's postprocess step.
func postprocess(
	output []float32,
	numCandidates int,
	numClasses int,
	confThreshold, iouThreshold float32,
	lb letterbox,
	origWidth, origHeight int,
	names []string,
	filterClasses map[string]bool,
) []Detection {
	hasFilter := len(filterClasses) > 0

	var detections []Detection
	for i := 0; i < numCandidates; i++ {
		cx := output[0*numCandidates+i]
		cy := output[1*numCandidates+i]
		w := output[2*numCandidates+i]
		h := output[3*numCandidates+i]

		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := output[(4+c)*numCandidates+i]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		if bestScore < confThreshold {
			continue
		}

		if hasFilter && bestClass >= 0 && bestClass < len(names) {
			if !filterClasses[names[bestClass]] {
				continue
			}
		}

		x1 := cx - w/2.0
		y1 := cy - h/2.0
		x2 := cx + w/2.0
		y2 := cy + h/2.0

		x1 = (x1 - lb.padX) / lb.scale
		y1 = (y1 - lb.padY) / lb.scale
		x2 = (x2 - lb.padX) / lb.scale
		y2 = (y2 - lb.padY) / lb.scale

		x1 = clampf(x1, 0, float32(origWidth))
		y1 = clampf(y1, 0, float32(origHeight))
		x2 = clampf(x2, 0, float32(origWidth))
		y2 = clampf(y2, 0, float32(origHeight))

		if x2-x1 < 1.0 || y2-y1 < 1.0 {
			continue
		}

		className := "unknown"
		if bestClass >= 0 && bestClass < len(names) {
			className = names[bestClass]
		}

		detections = append(detections, Detection{
			ClassName:  className,
			ClassID:    bestClass,
			Confidence: bestScore,
			X1:         x1, Y1: y1, X2: x2, Y2: y2,
		})
	}

	keep := nms(detections, iouThreshold)
	result := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		result = append(result, detections[idx])
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Confidence > result[j].Confidence
	})

	return result
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func iou(a, b Detection) float32 {
	interX1 := maxf(a.X1, b.X1)
	interY1 := maxf(a.Y1, b.Y1)
	interX2 := minf(a.X2, b.X2)
	interY2 := minf(a.Y2, b.Y2)

	interW := maxf(0, interX2-interX1)
	interH := maxf(0, interY2-interY1)
	interArea := interW * interH

	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)
	union := areaA + areaB - interArea

	if union <= 0 {
		return 0
	}
	return interArea / union
}

// nms runs per-class non-max suppression and returns the kept indices
// into dets, matching DetectionEngine::nms.
func nms(dets []Detection, iouThreshold float32) []int {
	if len(dets) == 0 {
		return nil
	}

	byClass := make(map[int][]int)
	for i, d := range dets {
		byClass[d.ClassID] = append(byClass[d.ClassID], i)
	}

	var keep []int
	for _, indices := range byClass {
		sort.Slice(indices, func(i, j int) bool {
			return dets[indices[i]].Confidence > dets[indices[j]].Confidence
		})

		suppressed := make([]bool, len(indices))
		for i := range indices {
			if suppressed[i] {
				continue
			}
			keep = append(keep, indices[i])
			for j := i + 1; j < len(indices); j++ {
				if suppressed[j] {
					continue
				}
				if iou(dets[indices[i]], dets[indices[j]]) > iouThreshold {
					suppressed[j] = true
				}
			}
		}
	}

	return keep
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

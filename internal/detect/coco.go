// Package detect wraps ONNX Runtime inference for the object detection
// engine: letterbox preprocessing, postprocessing (confidence filter,
// reverse letterbox, per-class NMS), and a periodic per-camera worker.
package detect

import "fmt"

// cocoNames is the 80 COCO class names the default model was trained on.
var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// classNames returns numClasses names, taken from cocoNames where
// available and padded with "classN" beyond it, matching
// the detection engine's class table.
func classNames(numClasses int) []string {
	names := make([]string, numClasses)
	for i := 0; i < numClasses; i++ {
		if i < len(cocoNames) {
			names[i] = cocoNames[i]
		} else {
			names[i] = fmt.Sprintf("class%d", i)
		}
	}
	return names
}

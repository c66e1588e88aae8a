package detect

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hms-homelab/hms-detection/internal/frame"
	"github.com/hms-homelab/hms-detection/internal/logging"
)

// defaultNumClasses is the class count the default model was trained with
//; Engine pads/truncates class names to this count.
const defaultNumClasses = 80

// Engine wraps a loaded ONNX Runtime session. One Engine is shared by all
// camera workers; Detect is safe for concurrent use serialized behind an
// internal mutex; the ONNX runtime session is not safe for concurrent calls.
type Engine struct {
	mu sync.Mutex

	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputWidth  int
	inputHeight int
	numClasses  int
	names       []string
	loaded      bool
}

// NewEngine loads an ONNX model from modelPath. numClasses defaults to 80
// (COCO) when <= 0.
func NewEngine(modelPath string, numClasses int) (*Engine, error) {
	if numClasses <= 0 {
		numClasses = defaultNumClasses
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s: no inputs or outputs", modelPath)
	}

	inputWidth, inputHeight := 640, 640
	if dims := inputs[0].Dimensions; len(dims) == 4 {
		inputHeight = int(dims[2])
		inputWidth = int(dims[3])
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(2); err != nil {
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	if logging.Log != nil {
		logging.Log.Infow("onnx model loaded",
			"path", modelPath, "input_width", inputWidth, "input_height", inputHeight,
			"num_classes", numClasses)
	}

	return &Engine{
		session:     session,
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputWidth:  inputWidth,
		inputHeight: inputHeight,
		numClasses:  numClasses,
		names:       classNames(numClasses),
		loaded:      true,
	}, nil
}

func (e *Engine) IsLoaded() bool       { return e.loaded }
func (e *Engine) InputWidth() int      { return e.inputWidth }
func (e *Engine) InputHeight() int     { return e.inputHeight }
func (e *Engine) ClassNames() []string { return e.names }

// Close releases the underlying ONNX Runtime session.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// Detect runs inference on a single BGR24 frame and returns detections in
// original-image pixel coordinates, matching DetectionEngine::detect.
func (e *Engine) Detect(d *frame.Data, confThreshold, iouThreshold float32, filterClasses []string) ([]Detection, error) {
	if !e.loaded || d == nil || len(d.Pixels) == 0 || d.Width <= 0 || d.Height <= 0 {
		return nil, nil
	}

	tensorData, lb := preprocess(d, e.inputWidth, e.inputHeight)

	inputShape := ort.NewShape(1, 3, int64(e.inputHeight), int64(e.inputWidth))
	inputTensor, err := ort.NewTensor(inputShape, tensorData)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputShape := ort.NewShape(1, int64(4+e.numClasses), 8400)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	e.mu.Lock()
	err = e.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	outData := outputTensor.GetData()
	shape := outputTensor.GetShape()
	numCandidates := 0
	if len(shape) == 3 {
		numCandidates = int(shape[2])
	} else if len(shape) == 2 {
		numCandidates = int(shape[1])
	}
	if numCandidates == 0 {
		return nil, nil
	}

	var filterSet map[string]bool
	if len(filterClasses) > 0 {
		filterSet = make(map[string]bool, len(filterClasses))
		for _, c := range filterClasses {
			filterSet[c] = true
		}
	}

	return postprocess(outData, numCandidates, e.numClasses, confThreshold, iouThreshold,
		lb, d.Width, d.Height, e.names, filterSet), nil
}

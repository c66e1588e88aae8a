package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassNamesPadsBeyondCOCO(t *testing.T) {
	names := classNames(82)
	assert.Len(t, names, 82)
	assert.Equal(t, "person", names[0])
	assert.Equal(t, "toothbrush", names[79])
	assert.Equal(t, "class80", names[80])
	assert.Equal(t, "class81", names[81])
}

func TestIoUDisjointBoxesIsZero(t *testing.T) {
	a := Detection{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Detection{X1: 20, Y1: 20, X2: 30, Y2: 30}
	assert.Equal(t, float32(0), iou(a, b))
}

func TestIoUIdenticalBoxesIsOne(t *testing.T) {
	a := Detection{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Detection{X1: 0, Y1: 0, X2: 10, Y2: 10}
	assert.InDelta(t, 1.0, iou(a, b), 1e-6)
}

func TestNMSSuppressesOverlappingSameClass(t *testing.T) {
	dets := []Detection{
		{ClassID: 0, Confidence: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.8, X1: 1, Y1: 1, X2: 11, Y2: 11}, // heavy overlap, suppressed
		{ClassID: 1, Confidence: 0.7, X1: 50, Y1: 50, X2: 60, Y2: 60}, // different class, kept
	}
	keep := nms(dets, 0.45)
	assert.ElementsMatch(t, []int{0, 2}, keep)
}

func TestNMSKeepsNonOverlappingSameClass(t *testing.T) {
	dets := []Detection{
		{ClassID: 0, Confidence: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.8, X1: 100, Y1: 100, X2: 110, Y2: 110},
	}
	keep := nms(dets, 0.45)
	assert.ElementsMatch(t, []int{0, 1}, keep)
}

func TestPostprocessFiltersByConfidenceAndClass(t *testing.T) {
	numClasses := 2
	numCandidates := 2
	// layout: [cx,cy,w,h, class0score, class1score] rows, numCandidates cols
	output := make([]float32, (4+numClasses)*numCandidates)
	set := func(row, col int, v float32) { output[row*numCandidates+col] = v }

	// candidate 0: confident "person" (class 0) at center (50,50) size 20x20
	set(0, 0, 50)
	set(1, 0, 50)
	set(2, 0, 20)
	set(3, 0, 20)
	set(4, 0, 0.9)
	set(5, 0, 0.1)

	// candidate 1: low confidence, should be dropped
	set(0, 1, 10)
	set(1, 1, 10)
	set(2, 1, 5)
	set(3, 1, 5)
	set(4, 1, 0.2)
	set(5, 1, 0.1)

	names := classNames(numClasses)
	lb := letterbox{scale: 1.0, padX: 0, padY: 0}

	dets := postprocess(output, numCandidates, numClasses, 0.5, 0.45, lb, 640, 640, names, nil)
	if assert.Len(t, dets, 1) {
		assert.Equal(t, "person", dets[0].ClassName)
		assert.InDelta(t, 40, dets[0].X1, 0.5)
		assert.InDelta(t, 60, dets[0].X2, 0.5)
	}
}

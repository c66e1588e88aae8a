package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hms-homelab/hms-detection/internal/detect"
)

func TestDedupeByClassKeepsHighestConfidence(t *testing.T) {
	dets := []detect.Detection{
		{ClassName: "person", Confidence: 0.6},
		{ClassName: "dog", Confidence: 0.8},
		{ClassName: "person", Confidence: 0.9},
	}
	out := dedupeByClass(dets)
	assert.Len(t, out, 2)
	assert.Equal(t, "person", out[0].ClassName)
	assert.Equal(t, float32(0.9), out[0].Confidence)
	assert.Equal(t, "dog", out[1].ClassName)
}

func TestDedupeByClassEmptyInput(t *testing.T) {
	assert.Nil(t, dedupeByClass(nil))
}

func TestClassNamesOfPreservesFirstAppearanceOrder(t *testing.T) {
	dets := []detect.Detection{
		{ClassName: "car"}, {ClassName: "person"}, {ClassName: "car"},
	}
	assert.Equal(t, []string{"car", "person"}, classNamesOf(dets))
}

func TestCountByClassTalliesAllInstances(t *testing.T) {
	dets := []detect.Detection{
		{ClassName: "person"}, {ClassName: "person"}, {ClassName: "dog"},
	}
	counts := countByClass(dets)
	assert.Equal(t, 2, counts["person"])
	assert.Equal(t, 1, counts["dog"])
}

func TestArticleVowelInitial(t *testing.T) {
	assert.Equal(t, "an", article("apple"))
	assert.Equal(t, "an", article("elephant"))
	assert.Equal(t, "a", article("dog"))
	assert.Equal(t, "a", article(""))
}

func TestBuildMessageNoDetections(t *testing.T) {
	assert.Equal(t, "No objects detected", buildMessage(nil))
}

func TestBuildMessageSingleClass(t *testing.T) {
	assert.Equal(t, "Detected a dog", buildMessage([]string{"dog"}))
}

func TestBuildMessageTwoClassesUsesAnd(t *testing.T) {
	assert.Equal(t, "Detected a person and a dog", buildMessage([]string{"person", "dog"}))
}

func TestBuildMessageThreeClassesWithVowelInitial(t *testing.T) {
	assert.Equal(t, "Detected a person, a dog and an elephant", buildMessage([]string{"person", "dog", "elephant"}))
}

func TestBuildMessageCapsAtFiveClasses(t *testing.T) {
	got := buildMessage([]string{"a", "b", "c", "d", "e", "f", "g"})
	assert.Equal(t, "Detected an a, a b, a c, a d and an e", got)
}

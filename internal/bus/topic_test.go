package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicMatchesExact(t *testing.T) {
	assert.True(t, TopicMatches("camera/event/motion/start", "camera/event/motion/start"))
	assert.False(t, TopicMatches("camera/event/motion/start", "camera/event/motion/stop"))
}

func TestTopicMatchesSingleLevelWildcard(t *testing.T) {
	assert.True(t, TopicMatches("hms/+/detection", "hms/cam1/detection"))
	assert.False(t, TopicMatches("hms/+/detection", "hms/cam1/sub/detection"))
}

func TestTopicMatchesMultiLevelWildcard(t *testing.T) {
	assert.True(t, TopicMatches("hms/cam1/#", "hms/cam1/result"))
	assert.True(t, TopicMatches("hms/cam1/#", "hms/cam1/result/early"))
	assert.False(t, TopicMatches("hms/cam1/#", "hms/cam2/result"))
}

func TestTopicMatchesTooFewTopicLevels(t *testing.T) {
	assert.False(t, TopicMatches("hms/+/detection/extra", "hms/cam1/detection"))
}

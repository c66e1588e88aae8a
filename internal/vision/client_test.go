package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectPrimaryClassPriorityOrder(t *testing.T) {
	assert.Equal(t, "person", SelectPrimaryClass([]string{"car", "person", "dog"}))
	assert.Equal(t, "dog", SelectPrimaryClass([]string{"car", "dog"}))
	assert.Equal(t, "car", SelectPrimaryClass([]string{"car", "bicycle"}))
}

func TestSelectPrimaryClassFallsBackToFirstThenObject(t *testing.T) {
	assert.Equal(t, "bicycle", SelectPrimaryClass([]string{"bicycle"}))
	assert.Equal(t, "object", SelectPrimaryClass(nil))
}

func TestBuildPromptSubstitutesPlaceholders(t *testing.T) {
	c := New(Config{
		DefaultPrompt: "Describe the {class} in at most {max_words} words.",
		MaxWords:      20,
	})
	got := c.buildPrompt("cam1", "person")
	assert.Equal(t, "Describe the person in at most 20 words.", got)
}

func TestBuildPromptPrefersCameraSpecificTemplate(t *testing.T) {
	c := New(Config{
		DefaultPrompt: "default template for {class}",
		Prompts: map[string]string{
			"cam1":    "front door saw a {class}",
			"default": "generic {class}",
		},
		MaxWords: 10,
	})
	assert.Equal(t, "front door saw a dog", c.buildPrompt("cam1", "dog"))
	assert.Equal(t, "generic cat", c.buildPrompt("cam2", "cat"))
}

package util

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEventIDFormat(t *testing.T) {
	id := NewEventID(time.Now())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+-[0-9a-f]+$`), id)
}

func TestNewEventIDIsUnique(t *testing.T) {
	now := time.Now()
	a := NewEventID(now)
	b := NewEventID(now)
	assert.NotEqual(t, a, b)
}

func TestNewEventIDEncodesMillisPrefix(t *testing.T) {
	now := time.Unix(1700000000, 0)
	id := NewEventID(now)
	// 1700000000000 ms == 0x18bcfe56800
	assert.Regexp(t, regexp.MustCompile(`^18bcfe56800-[0-9a-f]{8}$`), id)
}

package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	bo := newBackoff()

	got := []time.Duration{
		bo.next(), bo.next(), bo.next(), bo.next(), bo.next(),
	}
	want := []time.Duration{5, 10, 20, 40, 60}
	for i, w := range want {
		assert.Equal(t, w*time.Second, got[i])
	}
}

func TestBackoffResetsAfterSuccess(t *testing.T) {
	bo := newBackoff()
	bo.next()
	bo.next()
	bo.reset()

	assert.Equal(t, 5*time.Second, bo.next())
}

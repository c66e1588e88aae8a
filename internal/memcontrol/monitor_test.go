package memcontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorSamplesOnStart(t *testing.T) {
	m := NewMonitor(50 * time.Millisecond)
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return !m.Stats().SampledAt.IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestIsHealthyDefaultsTrueBeforeDegradedThreshold(t *testing.T) {
	m := NewMonitor(time.Minute)
	m.mu.Lock()
	m.stats = Stats{SystemUsedPercent: 40}
	m.mu.Unlock()
	assert.True(t, m.IsHealthy())
}

func TestIsHealthyFalseAboveDegradedThreshold(t *testing.T) {
	m := NewMonitor(time.Minute)
	m.mu.Lock()
	m.stats = Stats{SystemUsedPercent: 99}
	m.mu.Unlock()
	assert.False(t, m.IsHealthy())
}

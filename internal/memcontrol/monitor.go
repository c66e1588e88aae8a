// Package memcontrol samples this process's CPU/RSS and system-wide memory
// usage on an interval, feeding both the exported prometheus gauges and the
// health endpoint's degraded-mode signal.
package memcontrol

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/hms-homelab/hms-detection/internal/logging"
	"github.com/hms-homelab/hms-detection/internal/metrics"
)

// Stats is the latest sample taken by Monitor.
type Stats struct {
	CPUPercent        float64
	RSSBytes          uint64
	SystemUsedPercent float64
	SampledAt         time.Time
}

// Monitor periodically samples process/system memory and CPU usage.
type Monitor struct {
	interval time.Duration
	proc     *process.Process

	mu    sync.RWMutex
	stats Stats

	stop chan struct{}
	done chan struct{}
}

// NewMonitor builds a Monitor for the current process. interval defaults to
// 15s when zero or negative.
func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	m := &Monitor{interval: interval, stop: make(chan struct{}), done: make(chan struct{})}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		m.proc = p
	} else if logging.Log != nil {
		logging.Log.Warnw("memcontrol: process handle unavailable", "error", err)
	}
	return m
}

// Start launches the sampling loop in the background.
func (m *Monitor) Start() {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop ends the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

// Stats returns the most recent sample.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// IsHealthy reports whether system memory usage is below a degraded
// threshold, for the health endpoint.
func (m *Monitor) IsHealthy() bool {
	const degradedPercent = 95.0
	return m.Stats().SystemUsedPercent < degradedPercent
}

func (m *Monitor) sample() {
	var s Stats
	s.SampledAt = time.Now()

	if m.proc != nil {
		if cpuPct, err := m.proc.CPUPercent(); err == nil {
			s.CPUPercent = cpuPct
		}
		if info, err := m.proc.MemoryInfo(); err == nil && info != nil {
			s.RSSBytes = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.SystemUsedPercent = vm.UsedPercent
	}

	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()

	metrics.ProcessCPUPercent.Set(s.CPUPercent)
	metrics.ProcessRSSBytes.Set(float64(s.RSSBytes))
	metrics.SystemMemoryUsedPercent.Set(s.SystemUsedPercent)
}

package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
)

// Config holds the monitor thresholds.
type Config struct {
	// MemoryLimitBytes is the soft limit; 0 reads GOMEMLIMIT.
	MemoryLimitBytes int64

	// HighWaterMark is the share of the limit at which ShouldThrottle
	// reports true (0.0-1.0).
	HighWaterMark float64

	// CriticalWaterMark is the share at which bulk work pauses (0.0-1.0).
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and pauses bulk thumbnail work while it stays
// above the critical mark.
type Monitor struct {
	config   Config
	limit    int64
	stopOnce sync.Once
	stopChan chan struct{}

	mu        sync.RWMutex
	current   uint64
	isPaused  bool
	pauseChan chan struct{}

	readAlloc func() uint64
}

// NewMonitor creates a monitor. Without a limit from config or GOMEMLIMIT
// the monitor never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %s", FormatBytes(limit))
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		stopChan:  make(chan struct{}),
		pauseChan: make(chan struct{}),
		readAlloc: func() uint64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return stats.Alloc
		},
	}
}

// Start begins sampling. It does nothing without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop ends sampling and releases every Wait.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.checkMemory()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) checkMemory() {
	alloc := m.readAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit <= 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.isPaused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing thumbnail work", usage*100)
		m.isPaused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.isPaused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming thumbnail work", usage*100)
		m.isPaused = false
		metrics.MemoryPaused.Set(0)
		close(m.pauseChan)
		m.pauseChan = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns ctx.Err() if ctx ends
// first and nil once work may proceed or the monitor is stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.isPaused {
		m.mu.RUnlock()
		return nil
	}
	pauseChan := m.pauseChan
	m.mu.RUnlock()

	select {
	case <-pauseChan:
		return nil
	case <-m.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldThrottle reports whether usage is above the high water mark.
func (m *Monitor) ShouldThrottle() bool {
	if m.limit == 0 {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) >= float64(m.limit)*m.config.HighWaterMark
}

// IsPaused reports whether bulk work is paused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// GetStats returns the last sample, the limit and their ratio.
func (m *Monitor) GetStats() (current, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current = math.MaxInt64
	if m.current <= math.MaxInt64 {
		current = int64(m.current)
	}
	if m.limit > 0 {
		usage = float64(m.current) / float64(m.limit)
	}
	return current, m.limit, usage
}

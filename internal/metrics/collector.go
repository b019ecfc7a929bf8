package metrics

import (
	"time"

	"archive-viewer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	// LibraryItems counts top-level library items by provider kind label.
	LibraryItems   map[string]int
	SessionFiles   int
	SessionFolders int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	total := 0
	for _, kind := range providerKinds {
		n := stats.LibraryItems[kind]
		LibraryItemsTotal.WithLabelValues(kind).Set(float64(n))
		total += n
	}
	SessionFiles.Set(float64(stats.SessionFiles))
	SessionFolders.Set(float64(stats.SessionFolders))

	logging.Debug("Metrics collected: library items=%d, session files=%d, session folders=%d",
		total, stats.SessionFiles, stats.SessionFolders)
}

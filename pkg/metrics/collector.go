package metrics

import (
	"time"

	"github.com/cuemby/nexus/pkg/types"
)

// StatsSource is the minimal view the collector needs from the catalog. It
// is defined here, not imported from pkg/catalog, so this package never
// depends on the engine packages it instruments.
type StatsSource interface {
	Stats() types.CatalogStats
	LabelName(types.LabelID) (string, bool)
	RecordStoreSize() int64
	PropertyStoreSize() int64
}

// Collector polls a StatsSource on an interval and republishes its counts
// as prometheus gauges.
type Collector struct {
	source StatsSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	stats := c.source.Stats()

	NodesTotal.Set(float64(stats.NodeCount))
	RelsTotal.Set(float64(stats.RelCount))
	RecordStoreBytes.Set(float64(c.source.RecordStoreSize()))
	PropertyStoreBytes.Set(float64(c.source.PropertyStoreSize()))

	for labelID, count := range stats.LabelCounts {
		name, ok := c.source.LabelName(labelID)
		if !ok {
			continue
		}
		LabelCardinality.WithLabelValues(name).Set(float64(count))
	}
}

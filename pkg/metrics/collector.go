package metrics

import (
	"github.com/goliatone/go-callcache/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotFunc returns the current stats per target.
type SnapshotFunc func() map[string]cache.Stats

// Collector exports call statistics as Prometheus metrics.
// Values are read from the source on every scrape.
type Collector struct {
	source SnapshotFunc

	calls     *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	totalTime *prometheus.Desc
	hitRatio  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector whose metric names start with namespace.
// constLabels are attached to every metric, for example a scope id.
func NewCollector(namespace string, source SnapshotFunc, constLabels prometheus.Labels) *Collector {
	ns := metricName(namespace)
	labels := []string{"target"}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, "", name), help, labels, constLabels)
	}

	return &Collector{
		source:    source,
		calls:     desc("calls_total", "Intercepted calls per target."),
		hits:      desc("hits_total", "Calls served from the cache."),
		misses:    desc("misses_total", "Calls that executed the target."),
		totalTime: desc("miss_seconds_total", "Time spent executing the target on misses."),
		hitRatio:  desc("hit_ratio", "Hits divided by calls."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.calls
	ch <- c.hits
	ch <- c.misses
	ch <- c.totalTime
	ch <- c.hitRatio
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for target, stats := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(stats.Calls), target)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits), target)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses), target)
		ch <- prometheus.MustNewConstMetric(c.totalTime, prometheus.CounterValue, stats.TotalTime.Seconds(), target)
		ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, stats.HitRatio(), target)
	}
}

package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool statistics to Prometheus.
type PoolStatsCollector struct {
	stats   func() *pgxpool.Stat
	service string

	acquired   *prometheus.Desc
	idle       *prometheus.Desc
	total      *prometheus.Desc
	max        *prometheus.Desc
	acquires   *prometheus.Desc
	waitSecs   *prometheus.Desc
	emptyWaits *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for pool labelled with service.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, labels, nil)
	}
	return &PoolStatsCollector{
		stats:      pool.Stat,
		service:    service,
		acquired:   desc("db_pool_acquired_connections", "Number of currently acquired connections"),
		idle:       desc("db_pool_idle_connections", "Number of currently idle connections"),
		total:      desc("db_pool_total_connections", "Total number of connections in the pool"),
		max:        desc("db_pool_max_connections", "Maximum number of connections allowed"),
		acquires:   desc("db_pool_acquire_count_total", "Cumulative count of successful acquires"),
		waitSecs:   desc("db_pool_acquire_duration_seconds_total", "Total time spent waiting to acquire a connection"),
		emptyWaits: desc("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.acquired, c.idle, c.total, c.max, c.acquires, c.waitSecs, c.emptyWaits} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, c.service)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, c.service)
	}
	gauge(c.acquired, float64(s.AcquiredConns()))
	gauge(c.idle, float64(s.IdleConns()))
	gauge(c.total, float64(s.TotalConns()))
	gauge(c.max, float64(s.MaxConns()))
	counter(c.acquires, float64(s.AcquireCount()))
	counter(c.waitSecs, s.AcquireDuration().Seconds())
	counter(c.emptyWaits, float64(s.EmptyAcquireCount()))
}

package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded by the publish and consume counters.
const (
	resultOK          = "ok"
	resultError       = "error"
	resultFailed      = "failed"
	resultDuplicate   = "duplicate"
	resultUndecodable = "undecodable"
)

var (
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "kafka",
		Name:      "published_total",
		Help:      "Events published by topic and result.",
	}, []string{"topic", "result"})

	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "kafka",
		Name:      "publish_duration_seconds",
		Help:      "Time spent writing one event to the brokers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})

	consumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "kafka",
		Name:      "consumed_total",
		Help:      "Messages consumed by topic, group and result.",
	}, []string{"topic", "group", "result"})
)

package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	queryFailures      *prometheus.CounterVec
	cacheResults       *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "changes",
			Name:      "transitions_total",
			Help:      "Transition attempts by destination status and outcome.",
		}, []string{"to", "outcome"}),
		transitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "changes",
			Name:      "transition_duration_seconds",
			Help:      "Time spent applying a transition, including the transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}, []string{"outcome"}),
		queryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "changes",
			Name:      "status_query_failures_total",
			Help:      "Dashboard and report reads that degraded to an unavailable view.",
		}, []string{"view"}),
		cacheResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "changes",
			Name:      "status_cache_total",
			Help:      "Status snapshot cache lookups by result.",
		}, []string{"view", "result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

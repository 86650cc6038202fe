package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for relay traffic, registered with the default registry.
var (
	forwardRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebridge_forward_requests_total",
		Help: "Total number of forward relays, by upstream status code.",
	}, []string{"code"})

	forwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgebridge_forward_duration_seconds",
		Help:    "Duration of forward relay upstream calls.",
		Buckets: prometheus.DefBuckets,
	})

	hubDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgebridge_hub_deliveries_total",
		Help: "Total number of deliveries to hubs, by result.",
	}, []string{"result"})

	hubEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgebridge_hub_evictions_total",
		Help: "Total number of times a hub address reached the eviction threshold.",
	})
)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "epickup_dispatch", Name: "matches_total", Help: "Terminal match outcomes by reason"},
		[]string{"outcome"},
	)
	ProposalsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "epickup_dispatch", Name: "proposals_total", Help: "Assignment proposals sent to drivers"})
	MatchLatency   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "epickup_dispatch", Name: "match_latency_seconds", Help: "End-to-end match attempt latency"})
	DriversOnline  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "epickup_dispatch", Name: "drivers_online", Help: "Drivers with a recent location update"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "epickup_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "epickup_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

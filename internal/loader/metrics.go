package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeDiscarded = "discarded"
)

var (
	viewSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_view_sessions",
		Help: "Number of live review page view sessions",
	})

	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_fetch_total",
			Help: "Review fetches by outcome (success, failure, discarded)",
		},
		[]string{"outcome"},
	)

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_fetch_duration_seconds",
		Help:    "Duration of review fetches, including discarded ones",
		Buckets: prometheus.DefBuckets,
	})
)

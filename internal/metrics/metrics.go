package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlperf_query_duration_seconds",
			Help:    "Execute-and-fetch time of the spend ranking query",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"path"}, // fast|slow
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlperf_requests_total",
			Help: "Requests served by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // ok|connection_error|query_error|plan_error
	)

	ReportFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlperf_report_failures_total",
			Help: "Run events that a report sink failed to accept",
		},
		[]string{"sink"}, // kafka|clickhouse
	)
)

var once sync.Once

// MustRegister registers the collectors once; both servers may call it in one process.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			QueryDuration,
			RequestsTotal,
			ReportFailures,
		)
	})
}

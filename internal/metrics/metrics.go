package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the server's Prometheus instruments behind a private
// registry, so tests can build isolated collectors without global state.
type Collector struct {
	reg *prometheus.Registry

	RidesSubmitted   prometheus.Counter
	RidesFailed      prometheus.Counter
	SegmentsAccepted prometheus.Counter
	SegmentsRejected *prometheus.CounterVec // reason label

	ETAQueries  prometheus.Counter
	ETANotFound prometheus.Counter

	IdempotentReplays prometheus.Counter
	RateLimited       prometheus.Counter

	IngestDuration prometheus.Histogram
	ETADuration    prometheus.Histogram
}

// NewCollector builds and registers all instruments.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RidesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_rides_submitted_total",
			Help: "Total ride submissions accepted for processing.",
		}),
		RidesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_rides_failed_total",
			Help: "Total ride submissions that failed as a whole.",
		}),
		SegmentsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_segments_accepted_total",
			Help: "Total segment observations admitted into the statistics.",
		}),
		SegmentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_segments_rejected_total",
			Help: "Total segment observations rejected, by reason.",
		}, []string{"reason"}),
		ETAQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_eta_queries_total",
			Help: "Total ETA queries served.",
		}),
		ETANotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_eta_not_found_total",
			Help: "Total ETA queries for unknown segments or empty stats.",
		}),
		IdempotentReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_idempotent_replays_total",
			Help: "Total submissions answered from the idempotency cache.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_rate_limited_total",
			Help: "Total requests refused by the rate limiter.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_ingest_duration_seconds",
			Help:    "Duration of ride submission processing.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		ETADuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_eta_duration_seconds",
			Help:    "Duration of ETA query processing.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.RidesSubmitted, c.RidesFailed,
		c.SegmentsAccepted, c.SegmentsRejected,
		c.ETAQueries, c.ETANotFound,
		c.IdempotentReplays, c.RateLimited,
		c.IngestDuration, c.ETADuration,
	)

	return c
}

// Handler exposes the registry for mounting at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

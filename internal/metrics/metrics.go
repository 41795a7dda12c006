package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutgoingLatency tracks the latency of each HTTP attempt made to the transit API.
	OutgoingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transittracker_outgoing_request_duration_seconds",
			Help:    "Latency of outgoing HTTP requests to the transit API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"url", "method", "status"},
	)

	// RetryAttempts counts retried attempts, labeled by the reason for the retry.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transittracker_request_retries_total",
			Help: "Number of retried transit API attempts (reason = connect, read or status)",
		},
		[]string{"reason"},
	)

	// RetriesExhausted counts requests that gave up after the retry budget ran out.
	RetriesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transittracker_request_retries_exhausted_total",
			Help: "Number of transit API requests that exhausted their retry budget",
		},
	)
)

var (
	// RecordsExtracted counts records produced by the response extractor.
	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transittracker_records_extracted_total",
			Help: "Records extracted from transit API responses (kind = stop, route or visit)",
		},
		[]string{"kind"},
	)

	// ExtractionFailures counts responses that were not well-formed XML.
	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transittracker_extraction_failures_total",
			Help: "Transit API responses that could not be parsed",
		},
		[]string{"document"},
	)
)

var (
	// BoardLookups counts lookups served by the web board.
	BoardLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transittracker_board_lookups_total",
			Help: "Lookups served by the web board (kind = search or schedule, outcome = ok or error)",
		},
		[]string{"kind", "outcome"},
	)
)

var (
	// ProviderStatus is 1 while the last board lookup reached the provider, 0 after an upstream failure.
	ProviderStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transittracker_provider_status",
			Help: "Status of the transit data provider (0 = not working, 1 = working)",
		},
		[]string{"provider"},
	)

	BundleEarliestExpiration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transittracker_gtfs_bundle_days_until_earliest_expiration",
		Help: "Number of days until the earliest service calendar of the GTFS bundle ends",
	})

	BundleLatestExpiration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transittracker_gtfs_bundle_days_until_latest_expiration",
		Help: "Number of days until the latest service calendar of the GTFS bundle ends",
	})
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the ingest path. The accepted/store/publish split
// mirrors the three request outcomes so the partial-failure rate is directly
// observable.
var (
	OrdersAcceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_accepted_total",
			Help: "Orders durably recorded and announced",
		},
	)

	StoreFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_store_failures_total",
			Help: "Ingest requests rejected because the store insert failed",
		},
	)

	PublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_publish_failures_total",
			Help: "Orders recorded but not announced (partial failures)",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_ingest_duration_seconds",
			Help:    "End-to-end duration of order ingestion",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the default registry.
func Register() {
	prometheus.MustRegister(OrdersAcceptedTotal)
	prometheus.MustRegister(StoreFailuresTotal)
	prometheus.MustRegister(PublishFailuresTotal)
	prometheus.MustRegister(IngestDuration)
}

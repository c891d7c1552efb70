package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubgraphRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pohx_subgraph_requests_total",
			Help: "Total number of subgraph page requests",
		},
		[]string{"chain", "query", "status"}, // status: success|error
	)

	SchemaFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pohx_subgraph_schema_fallbacks_total",
			Help: "Queries answered with a reduced-field document after a missing field error",
		},
		[]string{"key", "field"}, // key: <endpoint>|<query>
	)

	CreditsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pohx_credits_cache_total",
			Help: "Credit usage cache lookups",
		},
		[]string{"result"}, // result: hit|miss|stale|error|stale_served
	)

	CreditsScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pohx_credits_scan_duration_seconds",
			Help:    "Duration of a full credit usage log scan",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	CreditsTxLookupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pohx_credits_tx_lookup_failures_total",
			Help: "Transaction lookups that failed and were treated as non-qualifying",
		},
	)

	CreditsLastScan = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pohx_credits_last_scan_timestamp",
			Help: "Unix timestamp of the last successful credit usage scan",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SubgraphRequests)
		prometheus.MustRegister(SchemaFallbacks)
		prometheus.MustRegister(CreditsCache)
		prometheus.MustRegister(CreditsScanDuration)
		prometheus.MustRegister(CreditsTxLookupFailures)
		prometheus.MustRegister(CreditsLastScan)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSubgraphRequest records one page request against a subgraph.
func RecordSubgraphRequest(chain, query string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SubgraphRequests.WithLabelValues(chain, query, status).Inc()
}

// RecordCreditsScan records a completed scan.
func RecordCreditsScan(started time.Time) {
	CreditsScanDuration.Observe(time.Since(started).Seconds())
	CreditsLastScan.SetToCurrentTime()
}

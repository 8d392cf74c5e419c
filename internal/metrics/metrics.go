package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yerevanair_files_parsed_total",
			Help: "Measurement files parsed, by the strategy that succeeded",
		},
		[]string{"strategy"},
	)

	FileParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yerevanair_file_parse_failures_total",
			Help: "Measurement files that no parse strategy could read",
		},
	)

	RowsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yerevanair_rows_loaded_total",
			Help: "Measurement rows loaded across all files",
		},
	)

	RowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yerevanair_rows_rejected_total",
			Help: "Rows dropped by the quality filter",
		},
		[]string{"reason"},
	)

	ScrapeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yerevanair_scrape_requests_total",
			Help: "Live feed download attempts",
		},
		[]string{"status"},
	)

	ScrapeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yerevanair_scrape_cache_hits_total",
			Help: "Live reading requests served from the TTL cache",
		},
	)

	ScrapeLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yerevanair_scrape_latency_seconds",
			Help:    "Live feed download latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_cycles_total",
		Help: "Total number of completed collection cycles.",
	})
	cyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_cycles_skipped_total",
		Help: "Cycles skipped because a previous cycle was still running or the store was not ready.",
	})
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_cycles_failed_total",
		Help: "Cycles aborted by a directory fetch or store failure.",
	})
	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_fetch_failures_total",
		Help: "Per-locomotive detail fetches that failed and were excluded from their cycle.",
	})
	parseRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_parse_rejects_total",
		Help: "Detail payloads rejected by the parser (invalid position or undecodable).",
	})
	observationsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_observations_stored_total",
		Help: "Observations successfully upserted into the store.",
	})
	observationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locotrack_collector_observations_failed_total",
		Help: "Observations that failed to upsert.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "locotrack_collector_cycle_duration_seconds",
		Help:    "Wall-clock duration of one full collection cycle.",
		Buckets: prometheus.DefBuckets,
	})
)

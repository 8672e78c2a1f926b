package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsJudged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ngjudge_events_judged_total",
		Help: "Total number of chat events judged, labelled by verdict.",
	}, []string{"verdict"})

	PatternMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngjudge_pattern_matches_total",
		Help: "Total number of events whose text matched an NG pattern.",
	})

	ChannelBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngjudge_channel_blocks_total",
		Help: "Total number of events posted from a blocklisted channel.",
	})

	NormalizeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngjudge_normalize_failures_total",
		Help: "Total number of texts that fell back to raw form after a normalization failure.",
	})

	ClassifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ngjudge_classify_failures_total",
		Help: "Total number of texts whose language fell back to unknown after a classifier failure.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ngjudge_run_duration_seconds",
		Help:    "Wall time of a judgement run over one session.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	CatalogPatterns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ngjudge_catalog_patterns",
		Help: "Number of NG patterns loaded into the active catalog.",
	})
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loaderRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sonicfeed_loader_runs_total",
		Help: "Loader passes by the origin of the rendered posts",
	}, []string{"origin"})

	sourceFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sonicfeed_source_fetch_failures_total",
		Help: "Fetches of the external source that fell back to the store",
	})

	loaderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sonicfeed_loader_duration_seconds",
		Help:    "Time spent in one loader pass",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})

	renderedPosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sonicfeed_rendered_posts",
		Help: "Number of posts in the last render",
	})
)

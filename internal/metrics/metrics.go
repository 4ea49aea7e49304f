package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Submissions     prometheus.Counter
	RateLimited     prometheus.Counter
	DedupHits       prometheus.Counter
	JobsFinished    *prometheus.CounterVec
	SegmentsFetched prometheus.Counter
	BytesFetched    prometheus.Counter
	JobDuration     prometheus.Histogram
	ActiveJobs      prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "stitch_relay_submissions_total",
			Help: "Total number of accepted submissions",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "stitch_relay_rate_limited_total",
			Help: "Total number of submissions rejected by the debounce gate",
		}),
		DedupHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "stitch_relay_dedup_hits_total",
			Help: "Total number of submissions answered from a fresh artifact",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stitch_relay_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		}, []string{"status"}),
		SegmentsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "stitch_relay_segments_fetched_total",
			Help: "Total number of segments downloaded",
		}),
		BytesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "stitch_relay_bytes_fetched_total",
			Help: "Total number of segment bytes downloaded",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stitch_relay_job_duration_seconds",
			Help:    "Time spent processing a job from dequeue to terminal status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stitch_relay_active_jobs",
			Help: "Number of jobs currently being processed",
		}),
	}
}

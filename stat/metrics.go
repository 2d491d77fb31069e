package stat

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ArtAndreev/timed-computing-service/task"
)

var (
	registerOnce sync.Once

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "timedcomp",
			Name:      "requests_total",
			Help:      "Dispatched requests by outcome.",
		},
		[]string{"outcome"},
	)
	rejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "timedcomp",
			Name:      "rejected_total",
			Help:      "Work items the pool did not accept before the deadline.",
		},
	)
	abandoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "timedcomp",
			Name:      "abandoned_total",
			Help:      "Work items that finished after their caller had timed out.",
		},
	)
	malformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "timedcomp",
			Name:      "malformed_lines_total",
			Help:      "Request lines dropped by the decoder.",
		},
	)
	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "timedcomp",
			Name:      "open_connections",
			Help:      "Currently open client connections.",
		},
	)
	workDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "timedcomp",
			Name:      "work_duration_seconds",
			Help:      "Wall-clock duration of finished work items.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requests, rejected, abandoned, malformed, connections, workDuration}
}

// RegisterMetrics adds the collectors to the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

func RecordOutcome(o task.Outcome) {
	requests.WithLabelValues(o.String()).Inc()
}

func RecordRejected() {
	rejected.Inc()
}

func RecordAbandoned() {
	abandoned.Inc()
}

func RecordMalformed(n int) {
	if n > 0 {
		malformed.Add(float64(n))
	}
}

func ConnOpened() {
	connections.Inc()
}

func ConnClosed() {
	connections.Dec()
}

func ObserveWork(d time.Duration) {
	workDuration.Observe(d.Seconds())
}

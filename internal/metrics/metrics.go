package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for optimizer sweeps.
type Metrics struct {
	objects       *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the instance registered with the global Prometheus registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration conflict other than an identical collector already present.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	objects := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "image_optimizer",
			Name:      "objects_total",
			Help:      "Objects handled by the pipeline, by outcome and error kind.",
		},
		[]string{"outcome", "kind"},
	)
	sweeps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "image_optimizer",
			Name:      "sweeps_total",
			Help:      "Completed activations by status.",
		},
		[]string{"status"},
	)
	sweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "image_optimizer",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one activation.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
	)

	for _, collector := range []prometheus.Collector{objects, sweeps, sweepDuration} {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch existing := already.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				if collector == objects {
					objects = existing
				} else {
					sweeps = existing
				}
			case prometheus.Histogram:
				sweepDuration = existing
			}
		}
	}

	return &Metrics{objects: objects, sweeps: sweeps, sweepDuration: sweepDuration}
}

func (m *Metrics) ObserveObject(outcome, kind string) {
	if m == nil {
		return
	}
	m.objects.WithLabelValues(outcome, kind).Inc()
}

func (m *Metrics) ObserveSweep(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(status).Inc()
	m.sweepDuration.Observe(took.Seconds())
}

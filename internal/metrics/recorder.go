package metrics

import (
	"github.com/mickyco94/minuteur/internal/executor"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports executor measurements as Prometheus metrics
type Recorder struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder creates a recorder registered with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteur_operation_executions_total",
				Help: "Total number of operation executions",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteur_operation_duration_seconds",
				Help:    "Elapsed time of operation executions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"operation", "outcome"},
		),
	}

	r.registry.MustRegister(r.executions)
	r.registry.MustRegister(r.duration)

	return r
}

// Record implements executor.Recorder
func (r *Recorder) Record(m executor.Measurement) {
	outcome := m.Outcome()

	r.executions.WithLabelValues(m.Name, outcome).Inc()
	r.duration.WithLabelValues(m.Name, outcome).Observe(m.Elapsed.Seconds())
}

// Registry exposes the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics to path in the text exposition
// format understood by the node exporter textfile collector.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

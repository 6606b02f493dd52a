// Package metrics instruments collection rounds with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Recorder owns a private registry so several instances can coexist in
// one process. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	rowsWritten *prometheus.CounterVec
	collections *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmon_rows_written_total",
				Help: "Total number of rows written to the store",
			},
			[]string{"category"},
		),
		collections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmon_collections_total",
				Help: "Total number of category collections",
			},
			[]string{"category", "result"}, // success, error or skipped
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysmon_collect_duration_seconds",
				Help:    "Time taken to sample and store one category",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"category"},
		),
	}

	r.registry.MustRegister(
		r.rowsWritten,
		r.collections,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Observe records the outcome of one category collection
func (r *Recorder) Observe(category, result string, rows int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.collections.WithLabelValues(category, result).Inc()
	r.duration.WithLabelValues(category).Observe(elapsed.Seconds())
	if rows > 0 {
		r.rowsWritten.WithLabelValues(category).Add(float64(rows))
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

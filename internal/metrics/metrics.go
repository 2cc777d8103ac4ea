package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load and report outcome labels.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusAwaiting = "awaiting"
)

// Metrics holds the collectors for one registry. A nil *Metrics is a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	// DatasetLoads counts dataset resolutions.
	// Labels: source (catalog, upload), status (ok, error, awaiting)
	DatasetLoads *prometheus.CounterVec
	// ReportsGenerated counts report builds.
	// Labels: status (ok, error)
	ReportsGenerated *prometheus.CounterVec
	// ReportDuration measures report generation latency.
	ReportDuration prometheus.Histogram
	// SampleRows tracks the row count of produced samples.
	SampleRows prometheus.Histogram
}

// New registers the collectors on a fresh registry, including Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		DatasetLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiloom",
			Name:      "dataset_loads_total",
			Help:      "Total dataset loads by source and outcome",
		}, []string{"source", "status"}),
		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiloom",
			Name:      "reports_generated_total",
			Help:      "Total profiling reports generated by outcome",
		}, []string{"status"}),
		ReportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "profiloom",
			Name:      "report_duration_seconds",
			Help:      "Profiling report generation latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SampleRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "profiloom",
			Name:      "sample_rows",
			Help:      "Rows in each produced sample",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		}),
	}
}

// ObserveLoad records a dataset load outcome.
func (m *Metrics) ObserveLoad(source, status string) {
	if m == nil {
		return
	}
	m.DatasetLoads.WithLabelValues(source, status).Inc()
}

// ObserveReport records a report outcome and its duration.
func (m *Metrics) ObserveReport(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(status).Inc()
	m.ReportDuration.Observe(seconds)
}

// ObserveSample records the size of a sample.
func (m *Metrics) ObserveSample(rows int) {
	if m == nil {
		return
	}
	m.SampleRows.Observe(float64(rows))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

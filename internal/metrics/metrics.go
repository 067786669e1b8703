// Package metrics exposes Prometheus counters and histograms for report generation and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Afrawles/trackreport/internal/report"
)

const namespace = "trackreport"

type Metrics struct {
	registry *prometheus.Registry

	ReportsGenerated *prometheus.CounterVec
	ReportDuration   *prometheus.HistogramVec
	Exports          *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ScheduledRuns    *prometheus.CounterVec
}

// New registers every collector on a private registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ReportsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_generated_total",
				Help:      "Report generation attempts by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		ReportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_duration_seconds",
				Help:      "Time spent fetching and aggregating a report",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"type"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Rendered report files by format",
			},
			[]string{"format"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ScheduledRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_exports_total",
				Help:      "Scheduled export runs by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ReportGenerated implements report.Observer.
func (m *Metrics) ReportGenerated(t report.Type, outcome string, elapsed time.Duration) {
	m.ReportsGenerated.WithLabelValues(string(t), outcome).Inc()
	if outcome == report.OutcomeOK {
		m.ReportDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ExportRendered(f report.Format) {
	m.Exports.WithLabelValues(string(f)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ScheduledRun(outcome string) {
	m.ScheduledRuns.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ report.Observer = (*Metrics)(nil)

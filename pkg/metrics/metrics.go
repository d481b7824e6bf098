// Package metrics exposes Prometheus collectors for the import pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger_import"

// Outcome labels for FilesTotal.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	FilesTotal       *prometheus.CounterVec
	RowsTotal        prometheus.Counter
	RowErrorsTotal   prometheus.Counter
	DuplicatesTotal  *prometheus.CounterVec
	SuggestionsTotal *prometheus.CounterVec
	PatternsFound    prometheus.Gauge
	StageDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors, plus Go and process collectors, on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegisterer(reg)
}

// NewWithRegisterer registers the pipeline collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Statement files analyzed, by format and outcome.",
		}, []string{"format", "outcome"}),
		RowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Data rows turned into import candidates.",
		}),
		RowErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_errors_total",
			Help:      "Row-level problems reported while building candidates.",
		}),
		DuplicatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Candidates flagged as duplicates of ledger records, by confidence.",
		}, []string{"confidence"}),
		SuggestionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_suggestions_total",
			Help:      "Category suggestions made for candidates, by source.",
		}, []string{"source"}),
		PatternsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "payee_patterns",
			Help:      "Payee patterns found by the last pattern scan.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.FilesTotal,
		m.RowsTotal,
		m.RowErrorsTotal,
		m.DuplicatesTotal,
		m.SuggestionsTotal,
		m.PatternsFound,
		m.StageDuration,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFile(format, outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(format, outcome).Inc()
}

func (m *Metrics) ObserveRows(rows, rowErrors int) {
	if m == nil {
		return
	}
	m.RowsTotal.Add(float64(rows))
	m.RowErrorsTotal.Add(float64(rowErrors))
}

func (m *Metrics) ObserveDuplicate(confidence string) {
	if m == nil {
		return
	}
	m.DuplicatesTotal.WithLabelValues(confidence).Inc()
}

func (m *Metrics) ObserveSuggestion(source string) {
	if m == nil {
		return
	}
	m.SuggestionsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) SetPatterns(n int) {
	if m == nil {
		return
	}
	m.PatternsFound.Set(float64(n))
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

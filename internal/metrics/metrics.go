// Package metrics exposes analysis counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clausescan"

// OCR fallback causes
const (
	CauseExtractionError = "extraction_error"
	CauseLowText         = "low_text"
	CauseImage           = "image"
)

// Recorder receives pipeline events
type Recorder interface {
	ObserveDocument(docType, outcome string, elapsed time.Duration)
	ObserveFinding(clause, reason string)
	ObserveOCRFallback(cause string)
	ObserveHighlightFailure(docType string)
}

// Collector records pipeline and server metrics in its own registry
type Collector struct {
	registry *prometheus.Registry

	documents          *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	findings           *prometheus.CounterVec
	ocrFallbacks       *prometheus.CounterVec
	highlightFailures  *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

// NewCollector creates a collector with Go and process metrics registered
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents analyzed, by type and outcome.",
		}, []string{"type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis time per document.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Clause findings, by clause and reason.",
		}, []string{"clause", "reason"}),
		ocrFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_fallbacks_total",
			Help:      "Documents routed to OCR, by cause.",
		}, []string{"cause"}),
		highlightFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "highlight_failures_total",
			Help:      "Binary highlighting failures, by document type.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.documents,
		c.duration,
		c.findings,
		c.ocrFallbacks,
		c.highlightFailures,
		c.httpRequests,
		c.httpRequestSeconds,
	)

	return c
}

func (c *Collector) ObserveDocument(docType, outcome string, elapsed time.Duration) {
	c.documents.WithLabelValues(docType, outcome).Inc()
	c.duration.WithLabelValues(docType).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveFinding(clause, reason string) {
	c.findings.WithLabelValues(clause, reason).Inc()
}

func (c *Collector) ObserveOCRFallback(cause string) {
	c.ocrFallbacks.WithLabelValues(cause).Inc()
}

func (c *Collector) ObserveHighlightFailure(docType string) {
	c.highlightFailures.WithLabelValues(docType).Inc()
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type nopRecorder struct{}

func (nopRecorder) ObserveDocument(string, string, time.Duration) {}
func (nopRecorder) ObserveFinding(string, string)                 {}
func (nopRecorder) ObserveOCRFallback(string)                     {}
func (nopRecorder) ObserveHighlightFailure(string)                {}

// NopRecorder discards all events
func NopRecorder() Recorder { return nopRecorder{} }

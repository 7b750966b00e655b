// Package metrics exposes Prometheus collectors for the engine and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/probgen/internal/problemgen"
)

// Metrics owns a private registry so several instances can coexist in
// tests.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	published          *prometheus.CounterVec
	grades             *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probgen_generations_total",
				Help: "Generation runs by final stage; Complete means success",
			},
			[]string{"stage"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probgen_generation_duration_seconds",
				Help:    "Duration of single generation runs",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"stage"},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probgen_published_questions_total",
				Help: "Questions written by publish batches",
			},
			[]string{"mode"},
		),
		grades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probgen_grades_total",
				Help: "Graded submissions by result: correct, incorrect or error",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.generations,
		m.generationDuration,
		m.published,
		m.grades,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveGeneration implements problemgen.Observer.
func (m *Metrics) ObserveGeneration(_ string, stage problemgen.Stage, elapsed time.Duration) {
	m.generations.WithLabelValues(string(stage)).Inc()
	m.generationDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// ObservePublish counts questions written in mode.
func (m *Metrics) ObservePublish(mode problemgen.PublishMode, n int) {
	m.published.WithLabelValues(string(mode)).Add(float64(n))
}

// ObserveGrade counts one grading outcome.
func (m *Metrics) ObserveGrade(correct bool, err error) {
	result := "incorrect"
	switch {
	case err != nil:
		result = "error"
	case correct:
		result = "correct"
	}
	m.grades.WithLabelValues(result).Inc()
}

// Middleware records request counts and latencies per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinHandler adapts Handler for a gin route.
func (m *Metrics) GinHandler() gin.HandlerFunc {
	h := m.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IncrementItems increments the work item counter with a result label.
// Example: metrics.IncrementItems("success")
func (m *Metrics) IncrementItems(result string) {
	m.itemsTotal.WithLabelValues(result).Inc()
}

// RecordStageDuration records the duration (in seconds) of a pipeline stage.
// Example: defer metrics.RecordStageDuration(time.Now(), "embedding")
func (m *Metrics) RecordStageDuration(start time.Time, stage string) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveQueueDepth sets the queue depth gauge for the named queue.
func (m *Metrics) ObserveQueueDepth(queue string, depth float64) {
	m.queueDepth.WithLabelValues(queue).Set(depth)
}

// CreateCounter creates a new CounterVec metric and registers it.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := createCounterVec(name, help, labels)
	m.Registry.MustRegister(counter)
	return counter
}

// CreateHistogram creates a new HistogramVec metric and registers it.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := createHistogramVec(name, help, labels, buckets)
	m.Registry.MustRegister(hist)
	return hist
}

// CreateGauge creates a new GaugeVec metric and registers it.
func (m *Metrics) CreateGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := createGaugeVec(name, help, labels)
	m.Registry.MustRegister(gauge)
	return gauge
}

// createCounterVec defines a new CounterVec with standard options.
func createCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// createHistogramVec defines a new HistogramVec with configurable buckets.
func createHistogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
}

// createGaugeVec defines a new GaugeVec for resource monitoring.
func createGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

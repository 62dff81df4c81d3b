package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates the Prometheus registry and the HTTP server
// responsible for exposing pipeline metrics.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the Prometheus registry where all metrics are registered.
	// Each service maintains its own isolated registry to prevent metric
	// name collisions.
	Registry *prometheus.Registry

	// Core built-in pipeline metrics
	itemsTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	queueDepth    *prometheus.GaugeVec
}

// NewMetrics initializes and returns a new Metrics instance. It sets up a
// dedicated Prometheus registry, registers default system collectors, wraps
// all metrics with a constant `service` label, and creates an HTTP server
// exposing the /metrics endpoint.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{
//	    Address:     ":9090",
//	    ServiceName: "ingest-worker",
//	})
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	// A new isolated registry per service avoids metric collisions when
	// multiple services run in the same process.
	registry := prometheus.NewRegistry()

	// All metrics emitted by this service automatically include the label
	// service="<cfg.ServiceName>".
	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	m := &Metrics{
		Registry: registry,
	}

	m.itemsTotal = createCounterVec("work_items_total", "Total number of processed work items", []string{"result"})
	m.stageDuration = createHistogramVec("stage_duration_seconds", "Duration of pipeline stages in seconds", []string{"stage"}, prometheus.DefBuckets)
	m.queueDepth = createGaugeVec("queue_depth", "Approximate number of messages waiting in a queue", []string{"queue"})

	wrappedRegistry.MustRegister(
		m.itemsTotal,
		m.stageDuration,
		m.queueDepth,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	server := &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	m.Server = server
	return m
}

// Package metrics exposes Prometheus collectors for remote service calls.
//
// The same Registry shape is used on both ends: the services client records the
// calls it makes and the dev server records the calls it answers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeInvalid        = "invalid"
)

// Registry holds the collectors for one process.
type Registry struct {
	registry *prometheus.Registry

	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	UploadBytes   prometheus.Counter
	SessionsTotal prometheus.Counter
}

// NewRegistry creates collectors under namespace and registers them, with the Go
// runtime and process collectors, on a private registry.
func NewRegistry(namespace string) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Service calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Service call latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes sent through file uploads",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Session ids issued or adopted",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CallsTotal,
		r.CallDuration,
		r.UploadBytes,
		r.SessionsTotal,
	)
	return r
}

// RecordCall counts one call and observes its latency.
func (r *Registry) RecordCall(operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.CallsTotal.WithLabelValues(operation, outcome).Inc()
	r.CallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *Registry) AddUploadBytes(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.UploadBytes.Add(float64(n))
}

func (r *Registry) IncSessions() {
	if r == nil {
		return
	}
	r.SessionsTotal.Inc()
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

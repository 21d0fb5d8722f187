// Package metrics exports Prometheus collectors for request outcomes and
// synchronization lifecycle events.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-resync/pkg/activity"
	"github.com/goliatone/go-resync/pkg/transport"
)

// TransportMetrics records every request a transport completes. It
// implements transport.Observer.
type TransportMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewTransportMetrics registers request counters and latency histograms
// with reg. A nil reg leaves the collectors unregistered.
func NewTransportMetrics(reg prometheus.Registerer, namespace string) (*TransportMetrics, error) {
	m := &TransportMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Requests by method, path, outcome kind and status code.",
		}, []string{"method", "path", "kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveRequest implements transport.Observer.
func (m *TransportMetrics) ObserveRequest(_ context.Context, obs transport.Observation) {
	status := "none"
	if obs.Status > 0 {
		status = strconv.Itoa(obs.Status)
	}
	m.requests.WithLabelValues(obs.Method, obs.Path, string(obs.Kind), status).Inc()
	m.duration.WithLabelValues(obs.Method, obs.Path).Observe(obs.Duration.Seconds())
}

// Requests returns the request counter, mainly for tests.
func (m *TransportMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// ActivityMetrics counts lifecycle events per resource and verb. It
// implements activity.ActivityHook so it can sit beside other hooks.
type ActivityMetrics struct {
	events *prometheus.CounterVec
}

// NewActivityMetrics registers the lifecycle event counter with reg.
func NewActivityMetrics(reg prometheus.Registerer, namespace string) (*ActivityMetrics, error) {
	m := &ActivityMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_total",
			Help:      "Synchronization lifecycle events by resource and verb.",
		}, []string{"resource", "verb"}),
	}
	if reg != nil {
		if err := reg.Register(m.events); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Notify implements activity.ActivityHook.
func (m *ActivityMetrics) Notify(_ context.Context, event activity.Event) error {
	resource, _ := event.Metadata["resource"].(string)
	m.events.WithLabelValues(resource, event.Verb).Inc()
	return nil
}

// Events returns the lifecycle counter, mainly for tests.
func (m *ActivityMetrics) Events() *prometheus.CounterVec {
	return m.events
}

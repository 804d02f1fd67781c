// Package metrics exports event bus activity as Prometheus metrics.
//
// A Collector owns its registry. Pass it to the bus as an observer and serve
// the registry with a Server:
//
//	collector := metrics.NewCollector()
//	bus := event.NewBus("server", event.WithObserver(collector))
//	srv := metrics.NewServer(":9100", collector.Registry())
//	go srv.Start(ctx)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sledgemc/sledge/internal/event"
)

// Failure kinds reported on sledge_handler_failures_total.
const (
	KindError = "error"
	KindPanic = "panic"
)

// Collector is an event.Observer backed by Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	EventsPosted    *prometheus.CounterVec
	HandlersInvoked *prometheus.CounterVec
	HandlersSkipped *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	Listeners       prometheus.Gauge
}

var _ event.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry. The registry also
// carries the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newCollector(reg)
}

func newCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		EventsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sledge_events_posted_total",
			Help: "Total number of posted events that had listeners",
		}, []string{"event"}),
		HandlersInvoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sledge_handlers_invoked_total",
			Help: "Total number of listener invocations",
		}, []string{"event"}),
		HandlersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sledge_handlers_skipped_total",
			Help: "Total number of listeners skipped because the event was cancelled",
		}, []string{"event"}),
		HandlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sledge_handler_failures_total",
			Help: "Total number of listeners that returned an error or panicked",
		}, []string{"event", "kind"}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sledge_listeners",
			Help: "Current number of registered listeners",
		}),
	}
	reg.MustRegister(
		c.EventsPosted,
		c.HandlersInvoked,
		c.HandlersSkipped,
		c.HandlerFailures,
		c.Listeners,
	)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// EventPosted implements event.Observer.
func (c *Collector) EventPosted(name string, _ int) {
	c.EventsPosted.WithLabelValues(name).Inc()
}

// HandlerInvoked implements event.Observer.
func (c *Collector) HandlerInvoked(name string) {
	c.HandlersInvoked.WithLabelValues(name).Inc()
}

// HandlerSkipped implements event.Observer.
func (c *Collector) HandlerSkipped(name string) {
	c.HandlersSkipped.WithLabelValues(name).Inc()
}

// HandlerFailed implements event.Observer.
func (c *Collector) HandlerFailed(name string, panicked bool) {
	kind := KindError
	if panicked {
		kind = KindPanic
	}
	c.HandlerFailures.WithLabelValues(name, kind).Inc()
}

// ListenersChanged implements event.Observer.
func (c *Collector) ListenersChanged(count int) {
	c.Listeners.Set(float64(count))
}

// Package prometheus exposes engine counters as a Prometheus
// collector. Callers mount Handler themselves; nothing is registered
// in the global default registry.
package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authkit"

// Source is the engine-side read surface the exporter scrapes.
type Source interface {
	MetricsSnapshot() map[string]uint64
	AuditDropped() uint64
}

// Exporter adapts a Source to prometheus.Collector. Counter names are
// rendered as authkit_<name>_total.
type Exporter struct {
	source Source

	mu    sync.Mutex
	descs map[string]*prometheus.Desc

	droppedDesc *prometheus.Desc
}

func NewExporter(source Source) *Exporter {
	return &Exporter{
		source: source,
		descs:  make(map[string]*prometheus.Desc),
		droppedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "audit_dropped_total"),
			"Audit events discarded due to dispatcher backpressure.",
			nil, nil,
		),
	}
}

// Describe intentionally sends nothing: the counter set is read from
// snapshots at collect time, making this an unchecked collector.
func (e *Exporter) Describe(chan<- *prometheus.Desc) {}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e == nil || e.source == nil {
		return
	}

	for name, value := range e.source.MetricsSnapshot() {
		ch <- prometheus.MustNewConstMetric(e.desc(name), prometheus.CounterValue, float64(value))
	}
	ch <- prometheus.MustNewConstMetric(e.droppedDesc, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

func (e *Exporter) desc(name string) *prometheus.Desc {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d, ok := e.descs[name]; ok {
		return d
	}
	d := prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", name+"_total"),
		"Engine counter "+name+".",
		nil, nil,
	)
	e.descs[name] = d
	return d
}

// Handler returns an http.Handler serving this exporter from its own
// registry.
func (e *Exporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

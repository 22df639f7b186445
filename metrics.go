package authkit

import "github.com/taskhive/authkit/internal/metrics"

// MetricsSnapshot returns a point-in-time copy of every engine
// counter, keyed by stable export name. Exporters under
// metrics/export/ read this surface.
func (e *Engine) MetricsSnapshot() map[string]uint64 {
	if e == nil || e.metrics == nil {
		return map[string]uint64{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because
// the dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id metrics.ID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

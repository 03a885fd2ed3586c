// Package telemetry registers the engine's Prometheus metrics and adapts
// them into cycle.Hooks, grounded in the prometheus/client_golang
// dependency carried over from the example pack's node software.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/instagibbs/anticycle/internal/cycle"
)

// Metrics bundles the counters and gauges the engine exposes on /metrics.
type Metrics struct {
	cyclesDetected   prometheus.Counter
	resubmitsTotal   *prometheus.CounterVec
	epochWipesTotal  prometheus.Counter
	admissionRefused prometheus.Counter
}

// NewMetrics registers every metric against the default registerer and
// returns the bundle. Safe to call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		cyclesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "anticycle",
			Name:      "cycles_detected_total",
			Help:      "Number of times a UTXO was observed cycling Top->Bottom.",
		}),
		resubmitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anticycle",
			Name:      "resubmits_total",
			Help:      "Number of defensive rebroadcast attempts, partitioned by outcome.",
		}, []string{"ok"}),
		epochWipesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "anticycle",
			Name:      "epoch_wipes_total",
			Help:      "Number of full cache wipes at a new block tip.",
		}),
		admissionRefused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "anticycle",
			Name:      "admission_refused_total",
			Help:      "Number of protected-cache admissions refused by the disjointness check (I5).",
		}),
	}
}

// Hooks adapts the metric bundle into cycle.Hooks.
func (m *Metrics) Hooks() cycle.Hooks {
	return cycle.Hooks{
		OnCycleDetected: func(cycle.UTXO, uint32) {
			m.cyclesDetected.Inc()
		},
		OnResubmit: func(_ cycle.UTXO, _ string, ok bool) {
			m.resubmitsTotal.WithLabelValues(boolLabel(ok)).Inc()
		},
		OnEpochWipe: func(string) {
			m.epochWipesTotal.Inc()
		},
		OnAdmissionRefuse: func(cycle.UTXO, string) {
			m.admissionRefused.Inc()
		},
	}
}

func boolLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}

// Package metrics defines the Prometheus metrics exported by the chat widget.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes.
const (
	OutcomeReplied       = "replied"
	OutcomeFailed        = "failed"
	OutcomeRejectedBusy  = "rejected_busy"
	OutcomeRejectedEmpty = "rejected_empty"
)

// Metrics groups the collectors used by the dispatch path.
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	ReplyShapeTotal  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	Busy             prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatwidget",
				Name:      "dispatch_total",
				Help:      "Dispatch attempts by outcome",
			},
			[]string{"outcome"},
		),
		ReplyShapeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatwidget",
				Name:      "reply_shape_total",
				Help:      "Webhook replies by detected response shape",
			},
			[]string{"shape"},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "chatwidget",
				Name:      "dispatch_duration_seconds",
				Help:      "Webhook round trip duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		Busy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatwidget",
				Name:      "busy",
				Help:      "1 while a webhook call is outstanding",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.DispatchTotal, m.ReplyShapeTotal, m.DispatchDuration, m.Busy)
	}
	return m
}

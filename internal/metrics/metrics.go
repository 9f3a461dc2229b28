package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signal_kz"

// Delivery outcomes
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Metrics holds the Prometheus collectors of the bot
type Metrics struct {
	Registry *prometheus.Registry

	Notifications     *prometheus.CounterVec
	ReportTransitions *prometheus.CounterVec
	ReportsSubmitted  prometheus.Counter
	ActiveSessions    prometheus.GaugeFunc
}

// New registers the collectors on a fresh registry. sessions reports the
// current number of stored sessions; it may be nil.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification delivery attempts by audience and result",
			},
			[]string{"audience", "result"},
		),
		ReportTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_transitions_total",
				Help:      "Committed report status transitions by target status",
			},
			[]string{"to"},
		),
		ReportsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_submitted_total",
				Help:      "Reports created from confirmed submissions",
			},
		),
	}

	if sessions != nil {
		m.ActiveSessions = factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Sessions currently held in memory",
			},
			func() float64 { return float64(sessions()) },
		)
	}
	return m
}

// RecordDelivery counts one delivery attempt
func (m *Metrics) RecordDelivery(audience string, delivered bool) {
	result := ResultDelivered
	if !delivered {
		result = ResultFailed
	}
	m.Notifications.WithLabelValues(audience, result).Inc()
}

// RecordTransition counts one committed status change
func (m *Metrics) RecordTransition(to string) {
	m.ReportTransitions.WithLabelValues(to).Inc()
}

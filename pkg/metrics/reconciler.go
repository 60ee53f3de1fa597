package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcilerMetrics records webhook reconciliation outcomes so operators can
// tell reconciliation gaps and swallowed fulfillment failures apart from
// ordinary success in telemetry.
type ReconcilerMetrics struct {
	duration           *prometheus.HistogramVec
	processed          *prometheus.CounterVec
	ignored            *prometheus.CounterVec
	reconciliationGaps prometheus.Counter
	fulfillmentErrors  prometheus.Counter
}

// NewReconcilerMetrics registers the reconciler metrics on the provided registerer.
func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	if reg == nil {
		return &ReconcilerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_reconcile_duration_seconds",
		Help:    "Duration of webhook reconciliations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_processed",
		Help: "Notifications that resulted in a state transition, by gateway status.",
	}, []string{"gateway_status"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_ignored",
		Help: "Notifications acknowledged without acting, by reason.",
	}, []string{"reason"})
	reconciliationGaps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciliation_gaps",
		Help: "Intents created at the gateway whose local record failed to persist.",
	})
	fulfillmentErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_trigger_failures",
		Help: "Shipment trigger failures swallowed at the saga boundary.",
	})
	reg.MustRegister(duration, processed, ignored, reconciliationGaps, fulfillmentErrors)
	return &ReconcilerMetrics{
		duration:           duration,
		processed:          processed,
		ignored:            ignored,
		reconciliationGaps: reconciliationGaps,
		fulfillmentErrors:  fulfillmentErrors,
	}
}

// ObserveDuration records the duration of one reconciliation attempt.
func (m *ReconcilerMetrics) ObserveDuration(result string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncProcessed counts a completed transition for the given gateway status.
func (m *ReconcilerMetrics) IncProcessed(gatewayStatus string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(gatewayStatus)).Inc()
}

// IncIgnored counts an acknowledged-but-ignored notification.
func (m *ReconcilerMetrics) IncIgnored(reason string) {
	if m == nil || m.ignored == nil {
		return
	}
	m.ignored.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncReconciliationGap counts a best-effort intent persistence failure.
func (m *ReconcilerMetrics) IncReconciliationGap() {
	if m == nil || m.reconciliationGaps == nil {
		return
	}
	m.reconciliationGaps.Inc()
}

// IncFulfillmentError counts a swallowed fulfillment trigger failure.
func (m *ReconcilerMetrics) IncFulfillmentError() {
	if m == nil || m.fulfillmentErrors == nil {
		return
	}
	m.fulfillmentErrors.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

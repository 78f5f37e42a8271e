package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports reconciler and intent-creator telemetry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	deliveries      *prometheus.CounterVec
	reconcileTime   *prometheus.HistogramVec
	intents         *prometheus.CounterVec
	gatewayAttempts prometheus.Counter
}

// NewMetrics registers the payments collectors on reg. Collectors that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries by reconciliation outcome.",
		}, []string{"outcome"}),
		reconcileTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payments",
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent reconciling one delivery, including the gateway refetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "intents_total",
			Help:      "Checkout intents by result.",
		}, []string{"result"}),
		gatewayAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "gateway_create_attempts_total",
			Help:      "Gateway create calls, including retries.",
		}),
	}

	var err error
	if m.deliveries, err = register(reg, m.deliveries); err != nil {
		return nil, err
	}
	if m.reconcileTime, err = register(reg, m.reconcileTime); err != nil {
		return nil, err
	}
	if m.intents, err = register(reg, m.intents); err != nil {
		return nil, err
	}
	if m.gatewayAttempts, err = register(reg, m.gatewayAttempts); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("payments: register metric: %w", err)
	}
	return c, nil
}

func (m *Metrics) observeDelivery(outcome Outcome, took time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(outcome)).Inc()
	m.reconcileTime.WithLabelValues(string(outcome)).Observe(took.Seconds())
}

func (m *Metrics) observeIntent(result string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(result).Inc()
}

func (m *Metrics) observeGatewayAttempt() {
	if m == nil {
		return
	}
	m.gatewayAttempts.Inc()
}

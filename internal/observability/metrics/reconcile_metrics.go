package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	ServiceName string
	Environment string
}

type ReconcileMetrics struct {
	runDuration          *prometheus.HistogramVec
	claimsProcessed      *prometheus.CounterVec
	paymentsConfirmed    prometheus.Counter
	constraintViolations prometheus.Counter
	pendingBacklog       prometheus.Gauge
}

var (
	reconcileMetricsOnce sync.Once
	reconcileMetrics     *ReconcileMetrics
)

func Reconcile() *ReconcileMetrics {
	return ReconcileWithConfig(Config{})
}

func ReconcileWithConfig(cfg Config) *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileMetrics = newReconcileMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcileMetrics
}

func ResetReconcileMetricsForTest() {
	reconcileMetricsOnce = sync.Once{}
	reconcileMetrics = nil
}

func newReconcileMetrics(registerer prometheus.Registerer, cfg Config) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "chainpay"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chainpay_reconcile_run_duration_seconds",
			Help: "Duration of one reconciliation run over all events.",
			Buckets: []float64{
				1,
				5,
				15,
				60,
				300,  // 5m
				900,  // 15m
				3600, // 1h
			},
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	claimsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "chainpay_reconcile_claims_processed_total",
			Help:        "Total claims examined, by verification result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // confirmed | rejected | deferred | unavailable | skipped | error
	)

	paymentsConfirmed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "chainpay_reconcile_payments_confirmed_total",
			Help:        "Total order payments transitioned to confirmed.",
			ConstLabels: constLabels,
		},
	)

	constraintViolations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "chainpay_reconcile_constraint_violations_total",
			Help:        "Claim-store integrity failures surfaced during reconciliation. Any nonzero value needs investigation.",
			ConstLabels: constLabels,
		},
	)

	pendingBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "chainpay_reconcile_pending_payments",
			Help:        "Unconfirmed payments seen by the most recent run.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		runDuration,
		claimsProcessed,
		paymentsConfirmed,
		constraintViolations,
		pendingBacklog,
	)

	return &ReconcileMetrics{
		runDuration:          runDuration,
		claimsProcessed:      claimsProcessed,
		paymentsConfirmed:    paymentsConfirmed,
		constraintViolations: constraintViolations,
		pendingBacklog:       pendingBacklog,
	}
}

func (m *ReconcileMetrics) ObserveRunDuration(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *ReconcileMetrics) IncClaimProcessed(result string) {
	if m == nil {
		return
	}
	m.claimsProcessed.WithLabelValues(result).Inc()
}

func (m *ReconcileMetrics) IncPaymentConfirmed() {
	if m == nil {
		return
	}
	m.paymentsConfirmed.Inc()
}

func (m *ReconcileMetrics) IncConstraintViolation() {
	if m == nil {
		return
	}
	m.constraintViolations.Inc()
}

func (m *ReconcileMetrics) SetPendingBacklog(value int) {
	if m == nil {
		return
	}
	m.pendingBacklog.Set(float64(value))
}

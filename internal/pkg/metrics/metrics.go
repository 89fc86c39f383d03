package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the calculation engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Calculations by kind (single, batch_item, recalculation) and outcome (success, error, validate_only)
	Calculations *prometheus.CounterVec

	// Cache lookups by result (hit, miss, error)
	CacheLookups *prometheus.CounterVec

	// Cache entries evicted by reason (invalidation, sweep)
	CacheEvictions *prometheus.CounterVec

	// Full batch latency
	BatchDuration prometheus.Histogram

	// Remote bridge retries by action
	RemoteRetries *prometheus.CounterVec

	// Tax import rows by status
	TaxImportRows *prometheus.CounterVec

	// Rule set evaluations that failed and were ignored
	RuleEvaluationFailures prometheus.Counter

	// Events that could not be published, by type
	PublishFailures *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_calculations_total",
			Help: "Social insurance calculations by kind and outcome",
		}, []string{"kind", "outcome"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_cache_lookups_total",
			Help: "Result cache lookups by result",
		}, []string{"result"}),

		CacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_cache_evictions_total",
			Help: "Result cache entries evicted by reason",
		}, []string{"reason"}),

		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "payroll_batch_duration_seconds",
			Help:    "Duration of batch social insurance calculations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		RemoteRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_remote_retries_total",
			Help: "Retries of the remote calculation bridge by action",
		}, []string{"action"}),

		TaxImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_tax_import_rows_total",
			Help: "Imported personal income tax rows by status",
		}, []string{"status"}),

		RuleEvaluationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "payroll_rule_evaluation_failures_total",
			Help: "Rule set evaluations that failed and were treated as no rules applied",
		}),

		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payroll_event_publish_failures_total",
			Help: "Domain events that failed to publish by type",
		}, []string{"type"}),
	}
}

func (m *Metrics) IncCalculation(kind, outcome string) {
	if m != nil {
		m.Calculations.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AddCacheEvictions(reason string, n int) {
	if m != nil && n > 0 {
		m.CacheEvictions.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) ObserveBatchDuration(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncRemoteRetry(action string) {
	if m != nil {
		m.RemoteRetries.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncTaxImportRow(status string) {
	if m != nil {
		m.TaxImportRows.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncRuleEvaluationFailure() {
	if m != nil {
		m.RuleEvaluationFailures.Inc()
	}
}

func (m *Metrics) IncPublishFailure(eventType string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(eventType).Inc()
	}
}

// RegisterDroppedEvents exposes the event hub's count of deliveries skipped
// because a subscriber was full.
func RegisterDroppedEvents(reg prometheus.Registerer, dropped func() int64) prometheus.CounterFunc {
	return promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
		Name: "payroll_eventbus_dropped_total",
		Help: "Event deliveries skipped because a subscriber buffer was full",
	}, func() float64 { return float64(dropped()) })
}

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "maint_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	reportCreateTotal   *prometheus.CounterVec
	reportCreateLatency *prometheus.HistogramVec

	versionStateTotal *prometheus.CounterVec

	costingTotal   *prometheus.CounterVec
	costingLatency *prometheus.HistogramVec

	purchaseOrderGenerateTotal   *prometheus.CounterVec
	purchaseOrderGenerateLatency *prometheus.HistogramVec

	staleReferences *prometheus.CounterVec
)

// Init registers the engine metrics on reg. Calls after the first are no-ops; the
// Observe helpers do nothing until Init ran.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reportCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_create_total",
				Help: "Total report creations (schema freeze) by result",
			},
			[]string{"result"},
		)
		reportCreateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_create_latency_seconds",
				Help:    "Report creation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		versionStateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "template_version_state_total",
				Help: "Template version state changes by target state and result",
			},
			[]string{"state", "result"},
		)

		costingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "costing_runs_total",
				Help: "Total costing engine runs by result",
			},
			[]string{"result"},
		)
		costingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "costing_latency_seconds",
				Help:    "Costing engine latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		purchaseOrderGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "purchase_order_generate_total",
				Help: "Total purchase order generations by result",
			},
			[]string{"result"},
		)
		purchaseOrderGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "purchase_order_generate_latency_seconds",
				Help:    "Purchase order generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		staleReferences = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stale_consumable_references_total",
				Help: "Consumable references pointing at missing catalog rows, by kind",
			},
			[]string{"kind"},
		)

		reg.MustRegister(
			reportCreateTotal,
			reportCreateLatency,
			versionStateTotal,
			costingTotal,
			costingLatency,
			purchaseOrderGenerateTotal,
			purchaseOrderGenerateLatency,
			staleReferences,
		)
	})
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveReportCreate records report creation latency and result.
func ObserveReportCreate(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if reportCreateTotal != nil {
		reportCreateTotal.WithLabelValues(result).Inc()
	}
	if reportCreateLatency != nil {
		reportCreateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncVersionState counts a template version state change.
func IncVersionState(state, result string) {
	if state == "" {
		state = "unknown"
	}
	if versionStateTotal != nil {
		versionStateTotal.WithLabelValues(state, result).Inc()
	}
}

// ObserveCosting records costing latency and result.
func ObserveCosting(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if costingTotal != nil {
		costingTotal.WithLabelValues(result).Inc()
	}
	if costingLatency != nil {
		costingLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePurchaseOrderGenerate records generation latency and result.
func ObservePurchaseOrderGenerate(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if purchaseOrderGenerateTotal != nil {
		purchaseOrderGenerateTotal.WithLabelValues(result).Inc()
	}
	if purchaseOrderGenerateLatency != nil {
		purchaseOrderGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddStaleReferences counts references resolved to a missing catalog row.
func AddStaleReferences(kind string, count int) {
	if count <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	if staleReferences != nil {
		staleReferences.WithLabelValues(kind).Add(float64(count))
	}
}

package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/livesub/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// a PrometheusCollector that is never exercised leaves the registry untouched.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Multiplexer metrics
	subsOpened      prometheus.Counter
	subsClosed      prometheus.Counter
	subsActive      prometheus.Gauge
	listenersActive prometheus.Gauge
	fanoutUpdates   *prometheus.CounterVec
	fanoutListeners prometheus.Histogram

	// Pagination metrics
	pageRequests *prometheus.CounterVec
	pageSplits   prometheus.Counter
	pageItems    prometheus.Histogram

	// Transport metrics
	mutations       *prometheus.CounterVec
	mutationLatency prometheus.Histogram
	transportErrors *prometheus.CounterVec

	// Backend metrics
	evaluations       *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "livesub" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "livesub"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.subsOpened = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "subscriptions_opened_total",
			Help:      "Total backend subscriptions opened.",
		})
		p.subsClosed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "subscriptions_closed_total",
			Help:      "Total backend subscriptions released.",
		})
		p.subsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "subscriptions_active",
			Help:      "Current number of live backend subscriptions.",
		})
		p.listenersActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "listeners_active",
			Help:      "Current number of registered listeners across all identities.",
		})
		p.fanoutUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "updates_total",
			Help:      "Total updates fanned out by kind (data, error).",
		}, []string{"kind"})
		p.fanoutListeners = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "multiplexer",
			Name:      "fanout_listeners",
			Help:      "Number of listeners reached by one update.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1 .. 128
		})

		p.pageRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pagination",
			Name:      "page_requests_total",
			Help:      "Total page subscriptions by reason (initial, load_more, split).",
		}, []string{"reason"})
		p.pageSplits = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pagination",
			Name:      "page_splits_total",
			Help:      "Total split directives handled.",
		})
		p.pageItems = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "pagination",
			Name:      "page_items",
			Help:      "Number of items in resolved pages.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		})

		p.mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "transport",
			Name:      "mutations_total",
			Help:      "Total mutations by outcome (success, failure).",
		}, []string{"success"})
		p.mutationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "transport",
			Name:      "mutation_duration_seconds",
			Help:      "Mutation round-trip latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})
		p.transportErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "transport",
			Name:      "errors_total",
			Help:      "Total transport failures by operation.",
		}, []string{"operation"})

		p.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "backend",
			Name:      "query_evaluations_total",
			Help:      "Total query evaluations by whether a changed result was pushed.",
		}, []string{"pushed"})
		p.evaluationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "backend",
			Name:      "query_evaluation_seconds",
			Help:      "Query evaluation latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		})

		p.reg.MustRegister(
			p.subsOpened, p.subsClosed, p.subsActive, p.listenersActive,
			p.fanoutUpdates, p.fanoutListeners,
			p.pageRequests, p.pageSplits, p.pageItems,
			p.mutations, p.mutationLatency, p.transportErrors,
			p.evaluations, p.evaluationLatency,
		)
	})
}

// MultiplexerMetrics implementation

// RecordSubscriptionOpened increments the opened counter.
func (p *PrometheusCollector) RecordSubscriptionOpened() {
	p.ensureRegistered()
	p.subsOpened.Inc()
}

// RecordSubscriptionClosed increments the closed counter.
func (p *PrometheusCollector) RecordSubscriptionClosed() {
	p.ensureRegistered()
	p.subsClosed.Inc()
}

// SetActiveSubscriptions sets the active subscription gauge.
func (p *PrometheusCollector) SetActiveSubscriptions(count int) {
	p.ensureRegistered()
	p.subsActive.Set(float64(count))
}

// SetActiveListeners sets the active listener gauge.
func (p *PrometheusCollector) SetActiveListeners(count int) {
	p.ensureRegistered()
	p.listenersActive.Set(float64(count))
}

// RecordFanout records one fanned-out update.
func (p *PrometheusCollector) RecordFanout(listeners int, isError bool) {
	p.ensureRegistered()
	kind := "data"
	if isError {
		kind = "error"
	}
	p.fanoutUpdates.WithLabelValues(kind).Inc()
	p.fanoutListeners.Observe(float64(listeners))
}

// PaginationMetrics implementation

// RecordPageRequest increments page requests for reason.
func (p *PrometheusCollector) RecordPageRequest(reason string) {
	p.ensureRegistered()
	p.pageRequests.WithLabelValues(reason).Inc()
}

// RecordPageSplit increments the split counter.
func (p *PrometheusCollector) RecordPageSplit() {
	p.ensureRegistered()
	p.pageSplits.Inc()
}

// RecordPageItems observes a resolved page size.
func (p *PrometheusCollector) RecordPageItems(count int) {
	p.ensureRegistered()
	p.pageItems.Observe(float64(count))
}

// TransportMetrics implementation

// RecordMutation records mutation outcome and latency.
func (p *PrometheusCollector) RecordMutation(duration float64, success bool) {
	p.ensureRegistered()
	p.mutations.WithLabelValues(strconv.FormatBool(success)).Inc()
	p.mutationLatency.Observe(duration)
}

// RecordTransportError increments transport errors for operation.
func (p *PrometheusCollector) RecordTransportError(operation string) {
	p.ensureRegistered()
	p.transportErrors.WithLabelValues(operation).Inc()
}

// BackendMetrics implementation

// RecordQueryEvaluation records an evaluation outcome and latency.
func (p *PrometheusCollector) RecordQueryEvaluation(duration float64, pushed bool) {
	p.ensureRegistered()
	p.evaluations.WithLabelValues(strconv.FormatBool(pushed)).Inc()
	p.evaluationLatency.Observe(duration)
}

package metrics

import "github.com/arloliu/livesub/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	mux := livesub.NewMultiplexer(client, livesub.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// OrNop returns m, or a NopMetrics when m is nil.
func OrNop(m types.MetricsCollector) types.MetricsCollector {
	if m == nil {
		return NewNop()
	}

	return m
}

// MultiplexerMetrics implementation

// RecordSubscriptionOpened discards the subscription opened counter.
func (n *NopMetrics) RecordSubscriptionOpened() {
	// No-op
}

// RecordSubscriptionClosed discards the subscription closed counter.
func (n *NopMetrics) RecordSubscriptionClosed() {
	// No-op
}

// SetActiveSubscriptions discards the active subscription gauge.
func (n *NopMetrics) SetActiveSubscriptions(_ /* count */ int) {
	// No-op
}

// SetActiveListeners discards the active listener gauge.
func (n *NopMetrics) SetActiveListeners(_ /* count */ int) {
	// No-op
}

// RecordFanout discards the fan-out metric.
func (n *NopMetrics) RecordFanout(_ /* listeners */ int, _ /* isError */ bool) {
	// No-op
}

// PaginationMetrics implementation

// RecordPageRequest discards the page request counter.
func (n *NopMetrics) RecordPageRequest(_ /* reason */ string) {
	// No-op
}

// RecordPageSplit discards the page split counter.
func (n *NopMetrics) RecordPageSplit() {
	// No-op
}

// RecordPageItems discards the page size metric.
func (n *NopMetrics) RecordPageItems(_ /* count */ int) {
	// No-op
}

// TransportMetrics implementation

// RecordMutation discards the mutation metric.
func (n *NopMetrics) RecordMutation(_ /* duration */ float64, _ /* success */ bool) {
	// No-op
}

// RecordTransportError discards the transport error counter.
func (n *NopMetrics) RecordTransportError(_ /* operation */ string) {
	// No-op
}

// BackendMetrics implementation

// RecordQueryEvaluation discards the query evaluation metric.
func (n *NopMetrics) RecordQueryEvaluation(_ /* duration */ float64, _ /* pushed */ bool) {
	// No-op
}

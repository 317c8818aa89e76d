package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called from transport delivery goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	MultiplexerMetrics
	PaginationMetrics
	TransportMetrics
	BackendMetrics
}

// MultiplexerMetrics defines metrics for subscription multiplexing.
type MultiplexerMetrics interface {
	// RecordSubscriptionOpened records a new backend subscription.
	RecordSubscriptionOpened()

	// RecordSubscriptionClosed records a released backend subscription.
	RecordSubscriptionClosed()

	// SetActiveSubscriptions sets the number of live backend subscriptions (gauge metric).
	SetActiveSubscriptions(count int)

	// SetActiveListeners sets the number of registered listeners across all identities (gauge metric).
	SetActiveListeners(count int)

	// RecordFanout records one delivered update.
	//
	// Parameters:
	//   - listeners: Number of listeners the update was delivered to
	//   - isError: true when the update carried an error
	RecordFanout(listeners int, isError bool)
}

// PaginationMetrics defines metrics for paginated sessions.
type PaginationMetrics interface {
	// RecordPageRequest records a page subscription.
	//
	// Parameters:
	//   - reason: Request reason ("initial", "load_more", "split")
	RecordPageRequest(reason string)

	// RecordPageSplit records a split directive handled by a session.
	RecordPageSplit()

	// RecordPageItems records the size of a resolved page.
	RecordPageItems(count int)
}

// TransportMetrics defines metrics for backend transports.
type TransportMetrics interface {
	// RecordMutation records a finished mutation.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - success: true if the backend accepted the mutation
	RecordMutation(duration float64, success bool)

	// RecordTransportError records a transport-level failure.
	//
	// Parameters:
	//   - operation: Operation type ("subscribe", "unsubscribe", "mutate", "decode")
	RecordTransportError(operation string)
}

// BackendMetrics defines metrics for the reference backend.
type BackendMetrics interface {
	// RecordQueryEvaluation records one query evaluation.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - pushed: true if the result changed and was pushed to the subscriber
	RecordQueryEvaluation(duration float64, pushed bool)
}

package livesub

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/livesub/internal/logging"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package, which
// avoids import cycles while still offering livesub.Result, livesub.Logger and
// friends to users.
type (
	Args              = types.Args
	Identity          = types.Identity
	Result            = types.Result
	Listener          = types.Listener
	Unsubscribe       = types.Unsubscribe
	Ref               = types.Ref
	Cursor            = types.Cursor
	PaginationOptions = types.PaginationOptions
	PaginationResult  = types.PaginationResult
	MutationOptions   = types.MutationOptions
	OptimisticUpdate  = types.OptimisticUpdate
	FunctionError     = types.FunctionError
	QueryStatus       = types.QueryStatus
	PaginationStatus  = types.PaginationStatus
	Hooks             = types.Hooks
)

// Re-export interfaces from the types package for convenience.
type (
	FunctionReference = types.FunctionReference
	LiveQueryClient   = types.LiveQueryClient
	Tracker           = types.Tracker
	Handle            = types.Handle
	LocalStore        = types.LocalStore
	ReactiveRuntime   = types.ReactiveRuntime
	MetricsCollector  = types.MetricsCollector
	Logger            = types.Logger
)

// NewListener wraps fn as a Listener. See types.NewListener.
func NewListener(fn func(Result)) *Listener { return types.NewListener(fn) }

// QueryRef returns a reference to the named query.
func QueryRef(name string) Ref { return types.QueryRef(name) }

// MutationRef returns a reference to the named mutation.
func MutationRef(name string) Ref { return types.MutationRef(name) }

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger selects slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	return logging.NewSlog(l)
}

// NewPrometheusMetrics returns a Prometheus-backed MetricsCollector.
//
// Parameters:
//   - reg: Registerer (prometheus.DefaultRegisterer when nil)
//   - namespace: Metric namespace ("livesub" when empty)
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

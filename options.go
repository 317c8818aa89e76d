package livesub

import "github.com/nats-io/nats.go"

// Option configures a Multiplexer or a Client with optional dependencies.
type Option func(*options)

// options holds optional configuration shared by NewMultiplexer and Dial.
type options struct {
	hooks       *Hooks
	metrics     MetricsCollector
	logger      Logger
	natsOptions []nats.Option
}

// WithHooks sets lifecycle event hooks. Unset callbacks default to no-ops.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewMultiplexer and Dial
//
// Example:
//
//	hooks := &livesub.Hooks{
//	    OnSubscriptionOpened: func(id livesub.Identity) {
//	        log.Printf("subscribed %s", id)
//	    },
//	}
//	mux, _ := livesub.NewMultiplexer(client, livesub.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewMultiplexer and Dial
//
// Example:
//
//	collector := livesub.NewPrometheusMetrics(prometheus.DefaultRegisterer, "")
//	mux, _ := livesub.NewMultiplexer(client, livesub.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewMultiplexer and Dial
//
// Example:
//
//	log := livesub.NewSlogLogger(slog.Default())
//	mux, _ := livesub.NewMultiplexer(client, livesub.WithLogger(log))
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNATSOptions appends options to the NATS connection opened by Dial.
// NewMultiplexer ignores them.
//
// Example:
//
//	client, _ := livesub.Dial(&cfg, livesub.WithNATSOptions(nats.UserCredentials("app.creds")))
func WithNATSOptions(opts ...nats.Option) Option {
	return func(o *options) {
		o.natsOptions = append(o.natsOptions, opts...)
	}
}

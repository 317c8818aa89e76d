package natsbridge

import (
	"time"

	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

const (
	// DefaultSubjectPrefix is the subject prefix used when none is configured.
	DefaultSubjectPrefix = "livesub"

	// DefaultMutationTimeout bounds a mutation round trip whose context has no deadline.
	DefaultMutationTimeout = 10 * time.Second

	// DefaultHeartbeatInterval is the client heartbeat interval. The server
	// expires clients after three missed heartbeats.
	DefaultHeartbeatInterval = 2 * time.Second
)

// Option configures a Client or a Server.
type Option func(*options)

type options struct {
	prefix          string
	mutationTimeout time.Duration
	heartbeat       time.Duration
	logger          types.Logger
	metrics         types.MetricsCollector
}

// WithSubjectPrefix sets the protocol subject prefix. Client and Server must agree.
func WithSubjectPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithMutationTimeout bounds mutation round trips whose context has no deadline.
// On the Server it bounds the execution of a mutation.
func WithMutationTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.mutationTimeout = d
		}
	}
}

// WithHeartbeat sets the client heartbeat interval. On the Server it is the
// expected interval: clients silent for three intervals lose their
// subscriptions. Zero disables heartbeats (client) and expiry (server).
func WithHeartbeat(interval time.Duration) Option {
	return func(o *options) {
		o.heartbeat = max(interval, 0)
	}
}

// WithLogger sets the logger.
func WithLogger(l types.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		prefix:          DefaultSubjectPrefix,
		mutationTimeout: DefaultMutationTimeout,
		heartbeat:       DefaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.OrNop(o.logger)
	o.metrics = metrics.OrNop(o.metrics)

	return o
}

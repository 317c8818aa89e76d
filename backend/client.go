package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/internal/optimistic"
	"github.com/arloliu/livesub/types"
)

// Client exposes a Server as a types.LiveQueryClient without a network hop.
//
// Results are delivered synchronously on the goroutine that caused them: the
// subscriber for the first result, the mutating goroutine for later ones.
// A listener must therefore not call Mutate synchronously.
type Client struct {
	server  *Server
	layer   *optimistic.Layer
	logger  types.Logger
	metrics types.MetricsCollector
}

var _ types.LiveQueryClient = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(l types.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.OrNop(l)
	}
}

// WithClientMetrics sets the client metrics collector.
func WithClientMetrics(m types.MetricsCollector) ClientOption {
	return func(c *Client) {
		c.metrics = metrics.OrNop(m)
	}
}

// NewClient creates an in-process client for server.
func NewClient(server *Server, opts ...ClientOption) *Client {
	c := &Client{server: server, logger: logger.NewNop(), metrics: metrics.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.layer = optimistic.New(c.logger)

	return c
}

// Subscribe implements types.LiveQueryClient.
func (c *Client) Subscribe(
	query types.FunctionReference,
	args types.Args,
	onData func(json.RawMessage),
	onError func(error),
) (types.Handle, error) {
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}
	wire, err := NormalizeArgs(args)
	if err != nil {
		return nil, err
	}

	entry, err := c.layer.Register(query, args, func(r types.Result) {
		if r.Err != nil {
			onError(r.Err)
			return
		}
		onData(r.Data)
	})
	if err != nil {
		return nil, err
	}

	cancel, err := c.server.Subscribe(context.Background(), query.FunctionName(), wire, func(raw json.RawMessage, err error) {
		if err != nil {
			entry.ServerError(err)
			return
		}
		entry.Server(raw)
	})
	if err != nil {
		entry.Close()
		c.metrics.RecordTransportError("subscribe")

		return nil, err
	}

	var once sync.Once

	return types.HandleFunc(func() error {
		once.Do(func() {
			cancel()
			entry.Close()
		})

		return nil
	}), nil
}

// Mutate implements types.LiveQueryClient.
func (c *Client) Mutate(
	ctx context.Context,
	mutation types.FunctionReference,
	args types.Args,
	opts *types.MutationOptions,
) (json.RawMessage, error) {
	if err := types.ValidateReference(mutation, types.KindMutation); err != nil {
		return nil, err
	}
	wire, err := NormalizeArgs(args)
	if err != nil {
		return nil, err
	}

	var pending uint64
	if opts != nil && opts.OptimisticUpdate != nil {
		pending = c.layer.Apply(opts.OptimisticUpdate, args)
	}

	start := time.Now()
	raw, err := c.server.Mutate(ctx, mutation.FunctionName(), wire)
	c.metrics.RecordMutation(time.Since(start).Seconds(), err == nil)

	if pending != 0 {
		if err != nil {
			c.layer.Rollback(pending)
		} else {
			c.layer.Settle(pending)
		}
	}
	if err != nil {
		c.logger.Debug("mutation failed", "mutation", mutation.FunctionName(), "error", err)
		return nil, err
	}

	return raw, nil
}

// NormalizeArgs returns args as they arrive after a JSON round trip: numbers
// become float64 and structs become maps. Functions see the same values in
// process as over the wire.
func NormalizeArgs(args types.Args) (types.Args, error) {
	canonical, err := identity.Canonical(args)
	if err != nil {
		return nil, err
	}

	var out types.Args
	if err := json.Unmarshal(canonical, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidArgs, err)
	}
	if out == nil {
		out = types.Args{}
	}

	return out, nil
}

package livesub

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/livesub/internal/natsutil"
	"github.com/arloliu/livesub/natsbridge"
)

// Client is a connected live-query client: a NATS connection, the natsbridge
// transport on top of it and a Multiplexer sharing its subscriptions.
type Client struct {
	cfg       Config
	nc        *nats.Conn
	transport *natsbridge.Client
	mux       *Multiplexer
	logger    Logger

	closeOnce sync.Once
}

// Dial connects to the server configured in cfg.
//
// The server URL is cfg.Transport.URL or, when that is empty, the URLEnv
// environment variable.
//
// Parameters:
//   - cfg: Configuration; nil uses DefaultConfig
//   - opts: Logger, metrics, hooks and extra NATS options
//
// Returns:
//   - *Client: Connected client; release it with Close
//   - error: ErrURLRequired, a config validation error or a connection error
//
// Example:
//
//	cfg := livesub.DefaultConfig()
//	cfg.Transport.URL = "nats://127.0.0.1:4222"
//	client, err := livesub.Dial(&cfg, livesub.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func Dial(cfg *Config, opts ...Option) (*Client, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		SetDefaults(&c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	url := c.Transport.URL
	if url == "" {
		url = os.Getenv(URLEnv)
	}
	if url == "" {
		return nil, ErrURLRequired
	}

	o := applyOptions(opts)
	c.ValidateWithWarnings(o.logger)

	natsOpts := []nats.Option{
		nats.Name("livesub"),
		nats.Timeout(c.Transport.ConnectTimeout),
		nats.MaxReconnects(c.Transport.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				o.logger.Warn("disconnected from server", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			o.logger.Info("reconnected to server", "url", nc.ConnectedUrlRedacted())
		}),
	}
	nc, err := nats.Connect(url, append(natsOpts, o.natsOptions...)...)
	if err != nil {
		return nil, natsutil.WrapTransport("connect", err)
	}

	transport, err := natsbridge.NewClient(nc,
		natsbridge.WithSubjectPrefix(c.Transport.SubjectPrefix),
		natsbridge.WithMutationTimeout(c.Transport.MutationTimeout),
		natsbridge.WithHeartbeat(c.Transport.HeartbeatInterval),
		natsbridge.WithLogger(o.logger),
		natsbridge.WithMetrics(o.metrics),
	)
	if err != nil {
		nc.Close()
		return nil, err
	}

	mux, err := NewMultiplexer(transport, opts...)
	if err != nil {
		_ = transport.Close()
		nc.Close()

		return nil, err
	}

	o.logger.Info("connected", "url", nc.ConnectedUrlRedacted(), "subjectPrefix", c.Transport.SubjectPrefix)

	return &Client{cfg: c, nc: nc, transport: transport, mux: mux, logger: o.logger}, nil
}

// Multiplexer returns the client's multiplexer. Pass it as the Tracker of
// pagination sessions and reactive bindings.
func (c *Client) Multiplexer() *Multiplexer {
	return c.mux
}

// Transport returns the underlying LiveQueryClient, for mutation bindings.
func (c *Client) Transport() LiveQueryClient {
	return c.transport
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Mutate performs a mutation. See types.LiveQueryClient.
func (c *Client) Mutate(ctx context.Context, mutation FunctionReference, args Args, opts *MutationOptions) (json.RawMessage, error) {
	return c.transport.Mutate(ctx, mutation, args, opts)
}

// Close releases every subscription and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = errors.Join(c.mux.Close(), c.transport.Close())
		c.nc.Close()
		c.logger.Info("client closed")
	})

	return err
}

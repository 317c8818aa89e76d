package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/livesub/backend"
	"github.com/arloliu/livesub/internal/heartbeat"
	"github.com/arloliu/livesub/internal/natsutil"
	"github.com/arloliu/livesub/internal/optimistic"
	"github.com/arloliu/livesub/types"
)

// Client is a types.LiveQueryClient speaking the natsbridge protocol.
//
// Results of all subscriptions arrive on one inbox subscription, so the
// callbacks of one subscription are never invoked concurrently.
type Client struct {
	nc       *nats.Conn
	subjects subjects
	opts     *options
	layer    *optimistic.Layer

	inboxPrefix string
	inbox       *nats.Subscription
	heartbeat   *heartbeat.Publisher // nil when disabled
	subs        *xsync.Map[string, *remoteSub]

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ types.LiveQueryClient = (*Client)(nil)

// remoteSub is one live subscription of the client.
type remoteSub struct {
	req   subscribeRequest
	entry *optimistic.Entry

	mu      sync.Mutex
	lastSeq uint64
}

// NewClient creates a client on nc.
//
// The client installs a reconnect handler on nc that re-sends every live
// subscribe request; a handler configured before is still called first.
//
// Parameters:
//   - nc: NATS connection, owned by the caller
//   - opts: Subject prefix, mutation timeout, logger and metrics
//
// Returns:
//   - *Client: Client ready for use
//   - error: Inbox subscription error
func NewClient(nc *nats.Conn, opts ...Option) (*Client, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}

	o := applyOptions(opts)
	c := &Client{
		nc:          nc,
		subjects:    newSubjects(o.prefix),
		opts:        o,
		layer:       optimistic.New(o.logger),
		inboxPrefix: nc.NewInbox(),
		subs:        xsync.NewMap[string, *remoteSub](),
		done:        make(chan struct{}),
	}

	inbox, err := nc.Subscribe(c.inboxPrefix+".*", c.handleUpdate)
	if err != nil {
		return nil, natsutil.WrapTransport("subscribe inbox", err)
	}
	c.inbox = inbox

	if o.heartbeat > 0 {
		payload, err := json.Marshal(heartbeatMessage{Client: c.inboxPrefix})
		if err != nil {
			_ = inbox.Unsubscribe()
			return nil, err
		}
		c.heartbeat = heartbeat.New(nc, c.subjects.heartbeat, payload, o.heartbeat)
		c.heartbeat.SetLogger(o.logger)
		c.heartbeat.SetMetrics(o.metrics)
		if err := c.heartbeat.Start(); err != nil {
			_ = inbox.Unsubscribe()
			return nil, natsutil.WrapTransport("heartbeat", err)
		}
	}

	prev := nc.Opts.ReconnectedCB
	nc.SetReconnectHandler(func(conn *nats.Conn) {
		if prev != nil {
			prev(conn)
		}
		c.resubscribeAll()
	})

	return c, nil
}

// Subscribe implements types.LiveQueryClient.
func (c *Client) Subscribe(
	query types.FunctionReference,
	args types.Args,
	onData func(json.RawMessage),
	onError func(error),
) (types.Handle, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}
	wire, err := backend.NormalizeArgs(args)
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

	id := ulid.Make().String()
	rs := &remoteSub{
		req: subscribeRequest{
			ID:       id,
			Function: query.FunctionName(),
			Args:     wire,
			Inbox:    c.inboxPrefix + "." + id,
		},
		entry: entry,
	}
	c.subs.Store(id, rs)

	if err := c.publishJSON(c.subjects.subscribe, rs.req); err != nil {
		c.subs.Delete(id)
		entry.Close()
		c.opts.metrics.RecordTransportError("subscribe")

		return nil, natsutil.WrapTransport("subscribe", err)
	}
	c.opts.logger.Debug("remote subscription requested", "id", id, "function", rs.req.Function)

	var once sync.Once

	return types.HandleFunc(func() error {
		var err error
		once.Do(func() { err = c.unsubscribe(rs) })

		return err
	}), nil
}

// Mutate implements types.LiveQueryClient.
//
// Without a deadline on ctx the round trip is bounded by the mutation timeout.
func (c *Client) Mutate(
	ctx context.Context,
	mutation types.FunctionReference,
	args types.Args,
	opts *types.MutationOptions,
) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	if err := types.ValidateReference(mutation, types.KindMutation); err != nil {
		return nil, err
	}
	wire, err := backend.NormalizeArgs(args)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(mutateRequest{Function: mutation.FunctionName(), Args: wire})
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.mutationTimeout)
		defer cancel()
	}

	var pending uint64
	if opts != nil && opts.OptimisticUpdate != nil {
		pending = c.layer.Apply(opts.OptimisticUpdate, args)
	}

	start := time.Now()
	raw, err := c.roundTrip(ctx, data)
	c.opts.metrics.RecordMutation(time.Since(start).Seconds(), err == nil)

	if pending != 0 {
		if err != nil {
			c.layer.Rollback(pending)
		} else {
			c.layer.Settle(pending)
		}
	}
	if err != nil {
		c.opts.logger.Debug("mutation failed", "mutation", mutation.FunctionName(), "error", err)
		return nil, err
	}

	return raw, nil
}

// Subscriptions returns the number of live subscriptions.
func (c *Client) Subscriptions() int {
	return c.subs.Size()
}

// Close releases every subscription. The NATS connection stays open.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	if c.heartbeat != nil {
		_ = c.heartbeat.Stop()
	}

	c.subs.Range(func(_ string, rs *remoteSub) bool {
		_ = c.unsubscribe(rs)
		return true
	})
	err := c.inbox.Unsubscribe()
	c.wg.Wait()

	return err
}

func (c *Client) roundTrip(ctx context.Context, data []byte) (json.RawMessage, error) {
	msg, err := c.nc.RequestWithContext(ctx, c.subjects.mutate, data)
	if err != nil {
		c.opts.metrics.RecordTransportError("mutate")
		return nil, natsutil.WrapTransport("mutate", err)
	}

	var r reply
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		c.opts.metrics.RecordTransportError("decode")
		return nil, natsutil.WrapTransport("decode mutation reply", errors.Join(types.ErrMalformedResult, err))
	}
	if r.Error != nil {
		return nil, r.Error.err()
	}

	return valueOrNull(r.Value), nil
}

func (c *Client) unsubscribe(rs *remoteSub) error {
	if _, ok := c.subs.LoadAndDelete(rs.req.ID); !ok {
		return nil
	}
	rs.entry.Close()

	err := c.publishJSON(c.subjects.unsubscribe, unsubscribeRequest{ID: rs.req.ID})
	if err != nil {
		// The server drops subscriptions it cannot deliver to once the
		// connection is gone; nothing to retry.
		c.opts.logger.Debug("failed to send unsubscribe", "id", rs.req.ID, "error", err)
		c.opts.metrics.RecordTransportError("unsubscribe")
	}

	return nil
}

func (c *Client) handleUpdate(msg *nats.Msg) {
	id := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	rs, ok := c.subs.Load(id)
	if !ok {
		return
	}

	var u update
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		c.opts.metrics.RecordTransportError("decode")
		rs.entry.ServerError(natsutil.WrapTransport("decode update", errors.Join(types.ErrMalformedResult, err)))

		return
	}

	rs.mu.Lock()
	stale := u.Seq <= rs.lastSeq
	if !stale {
		rs.lastSeq = u.Seq
	}
	rs.mu.Unlock()
	if stale {
		return
	}

	if u.Error != nil {
		rs.entry.ServerError(u.Error.err())
		return
	}
	rs.entry.Server(valueOrNull(u.Value))
}

// resubscribeAll re-sends every live subscribe request. Each request waits for
// the server's acknowledgement and is retried until it arrives, since the
// server's own connection may come back later than ours.
func (c *Client) resubscribeAll() {
	if c.closed.Load() {
		return
	}

	c.subs.Range(func(_ string, rs *remoteSub) bool {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.resubscribe(rs)
		}()

		return true
	})
}

func (c *Client) resubscribe(rs *remoteSub) {
	data, err := json.Marshal(rs.req)
	if err != nil {
		return
	}

	var delay time.Duration
	for attempt := 1; ; attempt++ {
		if _, live := c.subs.Load(rs.req.ID); !live {
			return
		}

		// A restarted server numbers updates from 1 again.
		rs.mu.Lock()
		rs.lastSeq = 0
		rs.mu.Unlock()

		_, err := c.nc.Request(c.subjects.subscribe, data, time.Second)
		if err == nil {
			c.opts.logger.Debug("remote subscription restored", "id", rs.req.ID, "attempts", attempt)
			return
		}
		c.opts.metrics.RecordTransportError("subscribe")

		delay = nextRetryDelay(delay, retryBase, retryMult, retryCap, nil)
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}
	}
}

func (c *Client) publishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.nc.Publish(subject, data)
}

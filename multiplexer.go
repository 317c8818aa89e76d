package livesub

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/internal/hooks"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/internal/metrics"
	"github.com/arloliu/livesub/types"
)

// Multiplexer shares one backend subscription between every listener tracking
// the same (query, args) identity.
//
// The first Track of an identity opens a backend subscription; further Tracks
// only add listeners. Every update is fanned out synchronously, on the
// transport's delivery goroutine, to the listeners registered when it arrives.
// Removing the last listener closes the backend subscription.
//
// Multiplexer is safe for concurrent use. Listeners are called without any
// internal lock held, so they may Track and Untrack re-entrantly.
type Multiplexer struct {
	client  types.LiveQueryClient
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *types.Hooks

	mu        sync.Mutex
	records   map[types.Identity]*record
	listeners int
	closed    bool
}

// record is the subscription state of one identity.
type record struct {
	id        types.Identity
	listeners []*types.Listener
	handle    types.Handle

	// pending is set while the backend Subscribe is in flight. A pending record
	// stays in the map after its last listener left, so a re-entrant Track
	// joins it instead of opening a second subscription.
	pending bool

	// removed is set, under Multiplexer.mu, when the record leaves the map.
	removed bool
}

var _ types.Tracker = (*Multiplexer)(nil)

// Stats is a point-in-time view of the multiplexer.
type Stats struct {
	// Subscriptions is the number of identities with a backend subscription.
	Subscriptions int

	// Listeners is the number of registered listeners across all identities.
	Listeners int
}

// NewMultiplexer creates a multiplexer on top of client.
//
// Parameters:
//   - client: Backend transport (required)
//   - opts: Optional logger, metrics collector and hooks
//
// Returns:
//   - *Multiplexer: Ready to use
//   - error: ErrClientRequired when client is nil
//
// Example:
//
//	mux, err := livesub.NewMultiplexer(client, livesub.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer mux.Close()
//
//	l := livesub.NewListener(func(r livesub.Result) { render(r) })
//	unsubscribe, err := mux.Track(livesub.QueryRef("tasks:getAll"), nil, l)
func NewMultiplexer(client types.LiveQueryClient, opts ...Option) (*Multiplexer, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	o := applyOptions(opts)

	return &Multiplexer{
		client:  client,
		logger:  o.logger,
		metrics: o.metrics,
		hooks:   o.hooks,
		records: make(map[types.Identity]*record),
	}, nil
}

// Track registers listener for the live result of (query, args).
//
// Caller mistakes are reported before any backend interaction: an invalid or
// non-query reference, a listener without callback, or arguments that cannot be
// canonically encoded. A failed backend Subscribe is returned to this caller and
// delivered as an error Result to listeners that joined while it was in flight.
//
// Parameters:
//   - query: Query reference
//   - args: Query arguments; nil is the same as empty
//   - listener: Receives every Result; compared by pointer
//
// Returns:
//   - types.Unsubscribe: Equivalent to Untrack(query, args, listener); safe to call twice
//   - error: Caller-usage or backend error
func (m *Multiplexer) Track(query types.FunctionReference, args types.Args, listener *types.Listener) (types.Unsubscribe, error) {
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}
	if !listener.Valid() {
		return nil, ErrInvalidListener
	}
	id, err := identity.Of(query, args)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	if rec, ok := m.records[id]; ok {
		added := rec.add(listener)
		if added {
			m.listeners++
		}
		count := len(rec.listeners)
		m.publishGaugesLocked()
		m.mu.Unlock()

		if added {
			m.logger.Debug("listener added", "identity", id, "listeners", count)
		}

		return m.disposer(query, args, listener), nil
	}

	rec := &record{id: id, listeners: []*types.Listener{listener}, pending: true}
	m.records[id] = rec
	m.listeners++
	m.publishGaugesLocked()
	m.mu.Unlock()

	handle, err := m.client.Subscribe(query, maps.Clone(args),
		func(data json.RawMessage) { m.deliver(rec, types.Result{Data: data}) },
		func(err error) { m.deliver(rec, types.Result{Err: err}) },
	)
	if err != nil {
		m.abandon(rec, listener, err)
		return nil, err
	}

	m.mu.Lock()
	rec.handle = handle
	rec.pending = false
	if !rec.removed && len(rec.listeners) == 0 {
		delete(m.records, id)
		rec.removed = true
		m.publishGaugesLocked()
	}
	removed := rec.removed
	m.mu.Unlock()

	m.metrics.RecordSubscriptionOpened()
	m.hooks.OnSubscriptionOpened(id)
	m.logger.Debug("subscription opened", "identity", id, "fingerprint", identity.Short(id))

	if removed {
		// Every listener left while Subscribe was in flight.
		m.closeHandle(id, handle)
	}

	return m.disposer(query, args, listener), nil
}

// Untrack removes listener from (query, args).
//
// When the identity has no listeners left, its backend subscription is closed.
// Untracking a listener or identity that is not tracked is a no-op.
func (m *Multiplexer) Untrack(query types.FunctionReference, args types.Args, listener *types.Listener) {
	if query == nil || listener == nil {
		return
	}
	id, err := identity.Of(query, args)
	if err != nil {
		return
	}

	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok || !rec.remove(listener) {
		m.mu.Unlock()
		return
	}
	m.listeners--

	var handle types.Handle
	remaining := len(rec.listeners)
	last := remaining == 0
	// A pending record is removed by Track once Subscribe returns.
	if last && !rec.pending {
		delete(m.records, id)
		rec.removed = true
		handle = rec.handle
	}
	m.publishGaugesLocked()
	m.mu.Unlock()

	if !last {
		m.logger.Debug("listener removed", "identity", id, "listeners", remaining)
		return
	}
	if handle != nil {
		m.closeHandle(id, handle)
	}
}

// Stats returns the current subscription and listener counts.
func (m *Multiplexer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{Subscriptions: len(m.records), Listeners: m.listeners}
}

// Close releases every backend subscription. Further Tracks fail with ErrClosed.
// Close is idempotent.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	handles := make(map[types.Identity]types.Handle, len(m.records))
	for id, rec := range m.records {
		rec.removed = true
		if rec.handle != nil {
			handles[id] = rec.handle
		}
	}
	clear(m.records)
	m.listeners = 0
	m.publishGaugesLocked()
	m.mu.Unlock()

	for id, handle := range handles {
		m.closeHandle(id, handle)
	}
	m.logger.Info("multiplexer closed", "subscriptions", len(handles))

	return nil
}

// deliver fans r out to the listeners of rec.
func (m *Multiplexer) deliver(rec *record, r types.Result) {
	m.mu.Lock()
	if rec.removed {
		m.mu.Unlock()
		return
	}
	targets := slices.Clone(rec.listeners)
	m.mu.Unlock()

	if r.Err != nil {
		m.logger.Warn("backend error", "identity", rec.id, "error", r.Err)
		m.hooks.OnError(rec.id, r.Err)
	}
	m.metrics.RecordFanout(len(targets), r.Err != nil)

	for _, l := range targets {
		l.Notify(r)
	}
}

// abandon drops rec after its backend Subscribe failed. Listeners other than
// the caller's receive the error as a Result.
func (m *Multiplexer) abandon(rec *record, caller *types.Listener, err error) {
	m.mu.Lock()
	var others []*types.Listener
	if !rec.removed {
		delete(m.records, rec.id)
		rec.removed = true
		m.listeners -= len(rec.listeners)
		for _, l := range rec.listeners {
			if l != caller {
				others = append(others, l)
			}
		}
	}
	m.publishGaugesLocked()
	m.mu.Unlock()

	m.logger.Error("subscribe failed", "identity", rec.id, "error", err)
	m.metrics.RecordTransportError("subscribe")
	m.hooks.OnError(rec.id, err)

	for _, l := range others {
		l.Notify(types.Result{Err: err})
	}
}

func (m *Multiplexer) closeHandle(id types.Identity, handle types.Handle) {
	if err := handle.Close(); err != nil {
		m.logger.Warn("failed to close subscription", "identity", id, "error", err)
	}
	m.metrics.RecordSubscriptionClosed()
	m.hooks.OnSubscriptionClosed(id)
	m.logger.Debug("subscription closed", "identity", id)
}

func (m *Multiplexer) disposer(query types.FunctionReference, args types.Args, listener *types.Listener) types.Unsubscribe {
	var once sync.Once

	return func() {
		once.Do(func() { m.Untrack(query, args, listener) })
	}
}

// publishGaugesLocked must be called with m.mu held.
func (m *Multiplexer) publishGaugesLocked() {
	m.metrics.SetActiveSubscriptions(len(m.records))
	m.metrics.SetActiveListeners(m.listeners)
}

func (r *record) add(l *types.Listener) bool {
	if slices.Contains(r.listeners, l) {
		return false
	}
	r.listeners = append(r.listeners, l)

	return true
}

func (r *record) remove(l *types.Listener) bool {
	i := slices.Index(r.listeners, l)
	if i < 0 {
		return false
	}
	r.listeners = slices.Delete(r.listeners, i, i+1)

	return true
}

// defaults shared by the multiplexer and the client facade.
func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.OrNop(o.logger)
	o.metrics = metrics.OrNop(o.metrics)
	o.hooks = hooks.Complete(o.hooks)

	return o
}

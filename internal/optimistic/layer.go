// Package optimistic overlays optimistic mutation results on a client's live
// query results.
//
// Every live subscription of a client registers an Entry. An optimistic update
// runs against a types.LocalStore view of the entries; the values it sets are
// delivered immediately and stay visible until the mutation settles and the
// server pushed a newer result, or until the mutation fails and they are
// rolled back.
package optimistic

import (
	"bytes"
	"encoding/json"
	"slices"
	"sync"

	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/types"
)

// Layer holds the entries of one client.
type Layer struct {
	logger types.Logger

	mu       sync.Mutex
	entries  map[types.Identity][]*Entry
	mutation uint64
}

// Entry is the overlay state of one live subscription.
type Entry struct {
	layer   *Layer
	id      types.Identity
	deliver func(types.Result)

	// Guarded by layer.mu.
	server    json.RawMessage
	hasServer bool
	version   uint64
	overrides []override
	last      json.RawMessage
	closed    bool
	queue     []types.Result
	draining  bool
}

type override struct {
	mutation  uint64
	value     json.RawMessage
	appliedAt uint64
	settled   bool
}

// New creates an empty Layer.
func New(l types.Logger) *Layer {
	return &Layer{logger: logger.OrNop(l), entries: make(map[types.Identity][]*Entry)}
}

// Register adds an entry for (query, args). deliver receives the visible
// results of the entry; its calls are serial.
//
// Returns:
//   - *Entry: Entry to feed server results into; Close it with the subscription
//   - error: wraps types.ErrInvalidArgs or types.ErrInvalidFunctionReference
func (l *Layer) Register(query types.FunctionReference, args types.Args, deliver func(types.Result)) (*Entry, error) {
	id, err := identity.Of(query, args)
	if err != nil {
		return nil, err
	}

	e := &Entry{layer: l, id: id, deliver: deliver}

	l.mu.Lock()
	l.entries[id] = append(l.entries[id], e)
	l.mu.Unlock()

	return e, nil
}

// Server records a result pushed by the server and delivers the visible value.
// Overrides of settled mutations are dropped.
func (e *Entry) Server(raw json.RawMessage) {
	l := e.layer
	l.mu.Lock()
	if e.closed {
		l.mu.Unlock()
		return
	}
	e.server, e.hasServer = raw, true
	e.version++
	e.overrides = slices.DeleteFunc(e.overrides, func(o override) bool { return o.settled })
	e.enqueueVisibleLocked()
	l.mu.Unlock()

	e.drain()
}

// ServerError delivers a server error. Pending overrides stay in place.
func (e *Entry) ServerError(err error) {
	l := e.layer
	l.mu.Lock()
	if e.closed {
		l.mu.Unlock()
		return
	}
	e.queue = append(e.queue, types.Result{Err: err})
	e.last = nil
	l.mu.Unlock()

	e.drain()
}

// Close removes the entry. Later server results are ignored.
func (e *Entry) Close() {
	l := e.layer
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.queue = nil
	l.entries[e.id] = slices.DeleteFunc(l.entries[e.id], func(x *Entry) bool { return x == e })
	if len(l.entries[e.id]) == 0 {
		delete(l.entries, e.id)
	}
}

// Apply runs update against the current entries and delivers every value it
// set. It returns the mutation id to Settle or Rollback.
func (l *Layer) Apply(update types.OptimisticUpdate, args types.Args) uint64 {
	l.mu.Lock()
	l.mutation++
	v := &view{layer: l, mutation: l.mutation, touched: make(map[*Entry]struct{})}
	l.mu.Unlock()

	if update != nil {
		update(v, args)
	}

	l.mu.Lock()
	touched := make([]*Entry, 0, len(v.touched))
	for e := range v.touched {
		e.enqueueVisibleLocked()
		touched = append(touched, e)
	}
	l.mu.Unlock()

	for _, e := range touched {
		e.drain()
	}
	l.logger.Debug("optimistic update applied", "mutation", v.mutation, "queries", len(touched))

	return v.mutation
}

// Settle marks the overrides of a successful mutation. Entries that already
// received a newer server result drop them now; the others on their next result.
func (l *Layer) Settle(mutation uint64) {
	l.release(mutation, func(e *Entry, o *override) bool {
		if e.version > o.appliedAt {
			return true
		}
		o.settled = true

		return false
	})
}

// Rollback drops the overrides of a failed mutation.
func (l *Layer) Rollback(mutation uint64) {
	l.release(mutation, func(*Entry, *override) bool { return true })
	l.logger.Debug("optimistic update rolled back", "mutation", mutation)
}

func (l *Layer) release(mutation uint64, drop func(*Entry, *override) bool) {
	l.mu.Lock()
	var changed []*Entry
	for _, list := range l.entries {
		for _, e := range list {
			kept := e.overrides[:0]
			dropped := false
			for _, o := range e.overrides {
				if o.mutation == mutation && drop(e, &o) {
					dropped = true
					continue
				}
				kept = append(kept, o)
			}
			e.overrides = kept
			if dropped {
				e.enqueueVisibleLocked()
				changed = append(changed, e)
			}
		}
	}
	l.mu.Unlock()

	for _, e := range changed {
		e.drain()
	}
}

// enqueueVisibleLocked queues the visible value unless it equals the last
// delivered one.
func (e *Entry) enqueueVisibleLocked() {
	value, ok := e.visibleLocked()
	if !ok {
		return
	}
	if e.last != nil && bytes.Equal(value, e.last) {
		return
	}
	e.last = value
	e.queue = append(e.queue, types.Result{Data: value})
}

func (e *Entry) visibleLocked() (json.RawMessage, bool) {
	if n := len(e.overrides); n > 0 {
		return e.overrides[n-1].value, true
	}

	return e.server, e.hasServer
}

// drain delivers queued results unless another goroutine is already doing so.
func (e *Entry) drain() {
	l := e.layer
	l.mu.Lock()
	if e.draining {
		l.mu.Unlock()
		return
	}
	e.draining = true

	for len(e.queue) > 0 && !e.closed {
		r := e.queue[0]
		e.queue = e.queue[1:]
		l.mu.Unlock()
		e.deliver(r)
		l.mu.Lock()
	}

	e.draining = false
	l.mu.Unlock()
}

// view is the types.LocalStore handed to one optimistic update.
type view struct {
	layer    *Layer
	mutation uint64
	touched  map[*Entry]struct{}
}

// GetQuery implements types.LocalStore.
func (v *view) GetQuery(query types.FunctionReference, args types.Args) (json.RawMessage, bool) {
	id, err := identity.Of(query, args)
	if err != nil {
		return nil, false
	}

	v.layer.mu.Lock()
	defer v.layer.mu.Unlock()

	for _, e := range v.layer.entries[id] {
		if value, ok := e.visibleLocked(); ok {
			return value, true
		}
	}

	return nil, false
}

// SetQuery implements types.LocalStore. Queries without a live subscription
// are ignored.
func (v *view) SetQuery(query types.FunctionReference, args types.Args, value json.RawMessage) {
	id, err := identity.Of(query, args)
	if err != nil {
		v.layer.logger.Warn("optimistic update with invalid arguments", "query", query.FunctionName(), "error", err)
		return
	}

	v.layer.mu.Lock()
	defer v.layer.mu.Unlock()

	for _, e := range v.layer.entries[id] {
		idx := slices.IndexFunc(e.overrides, func(o override) bool { return o.mutation == v.mutation })
		if idx >= 0 {
			e.overrides[idx].value = value
		} else {
			e.overrides = append(e.overrides, override{mutation: v.mutation, value: value, appliedAt: e.version})
		}
		v.touched[e] = struct{}{}
	}
}

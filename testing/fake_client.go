package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arloliu/livesub/identity"
	"github.com/arloliu/livesub/types"
)

// FakeClient is a scriptable types.LiveQueryClient.
//
// It records every Subscribe and Close call and lets tests push results to
// live subscriptions synchronously, the way a transport delivery goroutine
// would. FakeClient is safe for concurrent use.
type FakeClient struct {
	mu             sync.Mutex
	subs           []*FakeSubscription
	subscribeCalls int
	closeCalls     int
	mutations      []FakeMutation
	subscribeErr   error
	mutateFn       func(ctx context.Context, mutation types.FunctionReference, args types.Args) (json.RawMessage, error)
	onSubscribe    func(sub *FakeSubscription)
}

var _ types.LiveQueryClient = (*FakeClient)(nil)

// FakeMutation records one Mutate call.
type FakeMutation struct {
	Function string
	Args     types.Args
	Options  *types.MutationOptions
}

// NewFakeClient creates an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// FakeSubscription is one backend subscription opened through a FakeClient.
type FakeSubscription struct {
	ID    types.Identity
	Query types.FunctionReference
	Args  types.Args

	client  *FakeClient
	onData  func(json.RawMessage)
	onError func(error)

	mu      sync.Mutex
	closed  bool
	closes  int
	deliver sync.Mutex
}

// Subscribe implements types.LiveQueryClient.
func (c *FakeClient) Subscribe(
	query types.FunctionReference,
	args types.Args,
	onData func(json.RawMessage),
	onError func(error),
) (types.Handle, error) {
	id, err := identity.Of(query, args)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.subscribeCalls++
	if c.subscribeErr != nil {
		err := c.subscribeErr
		c.mu.Unlock()

		return nil, err
	}
	sub := &FakeSubscription{
		ID:      id,
		Query:   query,
		Args:    args,
		client:  c,
		onData:  onData,
		onError: onError,
	}
	c.subs = append(c.subs, sub)
	hook := c.onSubscribe
	c.mu.Unlock()

	if hook != nil {
		hook(sub)
	}

	return sub, nil
}

// Mutate implements types.LiveQueryClient.
//
// The optimistic update, if any, is not applied; FakeClient keeps no local store.
func (c *FakeClient) Mutate(
	ctx context.Context,
	mutation types.FunctionReference,
	args types.Args,
	opts *types.MutationOptions,
) (json.RawMessage, error) {
	c.mu.Lock()
	c.mutations = append(c.mutations, FakeMutation{Function: mutation.FunctionName(), Args: args, Options: opts})
	fn := c.mutateFn
	c.mu.Unlock()

	if fn == nil {
		return json.RawMessage("null"), nil
	}

	return fn(ctx, mutation, args)
}

// SetSubscribeError makes every following Subscribe call fail with err.
func (c *FakeClient) SetSubscribeError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// SetMutateFunc sets the handler of Mutate calls.
func (c *FakeClient) SetMutateFunc(fn func(ctx context.Context, mutation types.FunctionReference, args types.Args) (json.RawMessage, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutateFn = fn
}

// OnSubscribe registers fn to run synchronously inside every following
// Subscribe call, after the subscription was registered. Pushing from fn
// simulates a transport that delivers before Subscribe returns.
func (c *FakeClient) OnSubscribe(fn func(sub *FakeSubscription)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubscribe = fn
}

// SubscribeCalls returns the number of Subscribe calls so far.
func (c *FakeClient) SubscribeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.subscribeCalls
}

// CloseCalls returns the number of Close calls on all handles, including
// repeated closes of the same handle.
func (c *FakeClient) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeCalls
}

// Mutations returns the recorded Mutate calls.
func (c *FakeClient) Mutations() []FakeMutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]FakeMutation, len(c.mutations))
	copy(out, c.mutations)

	return out
}

// Subscriptions returns every subscription ever opened, in order.
func (c *FakeClient) Subscriptions() []*FakeSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*FakeSubscription, len(c.subs))
	copy(out, c.subs)

	return out
}

// Live returns the open subscriptions of the named function, in subscribe order.
// An empty name matches every function.
func (c *FakeClient) Live(function string) []*FakeSubscription {
	var out []*FakeSubscription
	for _, sub := range c.Subscriptions() {
		if sub.Closed() {
			continue
		}
		if function == "" || sub.Query.FunctionName() == function {
			out = append(out, sub)
		}
	}

	return out
}

// LiveCount returns the number of open subscriptions.
func (c *FakeClient) LiveCount() int {
	return len(c.Live(""))
}

// Lookup returns the open subscription for (query, args), or nil.
func (c *FakeClient) Lookup(query types.FunctionReference, args types.Args) *FakeSubscription {
	id, err := identity.Of(query, args)
	if err != nil {
		return nil
	}
	for _, sub := range c.Live(query.FunctionName()) {
		if sub.ID == id {
			return sub
		}
	}

	return nil
}

// Push encodes value as JSON and delivers it to the open subscription for
// (query, args). It reports whether such a subscription existed.
func (c *FakeClient) Push(query types.FunctionReference, args types.Args, value any) bool {
	sub := c.Lookup(query, args)
	if sub == nil {
		return false
	}
	sub.Push(value)

	return true
}

// PushError delivers err to the open subscription for (query, args).
func (c *FakeClient) PushError(query types.FunctionReference, args types.Args, err error) bool {
	sub := c.Lookup(query, args)
	if sub == nil {
		return false
	}
	sub.PushError(err)

	return true
}

// Close implements types.Handle. Only the first call stops delivery; every
// call is counted.
func (s *FakeSubscription) Close() error {
	s.mu.Lock()
	s.closes++
	s.closed = true
	s.mu.Unlock()

	s.client.mu.Lock()
	s.client.closeCalls++
	s.client.mu.Unlock()

	return nil
}

// Closed reports whether Close was called.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// CloseCount returns how many times Close was called on this handle.
func (s *FakeSubscription) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}

// Push encodes value as JSON and delivers it. Pushes to a closed subscription
// are dropped. Deliveries of one subscription are serialized.
func (s *FakeSubscription) Push(value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("livesubtest: cannot encode pushed value: %v", err))
	}
	s.PushRaw(raw)
}

// PushRaw delivers raw as-is.
func (s *FakeSubscription) PushRaw(raw json.RawMessage) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if s.Closed() || s.onData == nil {
		return
	}
	s.onData(raw)
}

// PushError delivers err. Pushes to a closed subscription are dropped.
func (s *FakeSubscription) PushError(err error) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if s.Closed() || s.onError == nil {
		return
	}
	s.onError(err)
}

// PaginationOptions decodes the pagination options of the subscription's
// arguments. ok is false when the arguments carry none.
func (s *FakeSubscription) PaginationOptions() (opts types.PaginationOptions, ok bool) {
	raw, present := s.Args[types.PaginationArgKey]
	if !present {
		return opts, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return opts, false
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, false
	}

	return opts, true
}

// PushPage delivers a pagination result.
func (s *FakeSubscription) PushPage(result types.PaginationResult) {
	s.Push(result)
}

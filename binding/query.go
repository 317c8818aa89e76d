package binding

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arloliu/livesub/reactive"
	"github.com/arloliu/livesub/types"
)

// Query is a live query bound to a reactive runtime.
//
// Exactly one of Loading, Success and Error describes the current result;
// Idle is reported while the params are the skip sentinel. Each delivered
// result is decoded into a fresh T, so consumers never share values with each
// other or with the transport.
type Query[T any] struct {
	rt      types.ReactiveRuntime
	tracker types.Tracker
	query   types.FunctionReference
	sig     types.Signal

	mu     sync.Mutex
	status types.QueryStatus
	data   T
	err    error
	gen    uint64

	stops     []func()
	closeOnce sync.Once
}

// NewQuery binds query to the runtime.
//
// params is evaluated inside an effect: every signal it reads is a dependency.
// A nil params function means no arguments.
//
// Parameters:
//   - rt: Host reactive runtime
//   - tracker: Subscription multiplexer
//   - query: Query reference
//   - params: Argument source, re-evaluated reactively
//
// Returns:
//   - *Query[T]: Binding; call Close to release its subscription
//   - error: ErrRuntimeRequired, ErrTrackerRequired or ErrInvalidFunctionReference
func NewQuery[T any](
	rt types.ReactiveRuntime,
	tracker types.Tracker,
	query types.FunctionReference,
	params func() Params,
) (*Query[T], error) {
	if rt == nil {
		return nil, types.ErrRuntimeRequired
	}
	if tracker == nil {
		return nil, types.ErrTrackerRequired
	}
	if err := types.ValidateReference(query, types.KindQuery); err != nil {
		return nil, err
	}

	q := &Query[T]{
		rt:      rt,
		tracker: tracker,
		query:   query,
		sig:     rt.NewSignal(),
	}

	current := reactive.NewCellFunc(rt, request{skip: true}, request.same)

	// The first effect tracks the caller's reactive inputs; the second only
	// re-runs when the resolved request changes.
	q.stops = append(q.stops, rt.Effect(func(types.EffectScope) {
		current.Set(resolve(query, params))
	}))
	q.stops = append(q.stops, rt.Effect(func(scope types.EffectScope) {
		q.subscribe(scope, current.Get())
	}))

	return q, nil
}

func (q *Query[T]) subscribe(scope types.EffectScope, req request) {
	if req.skip {
		q.set(types.StatusIdle, *new(T), nil)
		return
	}
	if req.err != nil {
		q.set(types.StatusError, *new(T), req.err)
		return
	}

	q.mu.Lock()
	q.gen++
	gen := q.gen
	q.mu.Unlock()

	q.set(types.StatusLoading, *new(T), nil)

	listener := types.NewListener(func(r types.Result) { q.deliver(gen, r) })

	var unsubscribe types.Unsubscribe
	var err error
	q.rt.Untracked(func() {
		unsubscribe, err = q.tracker.Track(q.query, req.args, listener)
	})
	if err != nil {
		q.set(types.StatusError, *new(T), err)
		return
	}

	scope.OnCleanup(func() {
		q.mu.Lock()
		if q.gen == gen {
			q.gen++
		}
		q.mu.Unlock()
		unsubscribe()
	})
}

func (q *Query[T]) deliver(gen uint64, r types.Result) {
	q.mu.Lock()
	stale := q.gen != gen
	q.mu.Unlock()
	if stale {
		return
	}

	if r.Err != nil {
		q.setIf(gen, types.StatusError, *new(T), r.Err)
		return
	}

	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		q.setIf(gen, types.StatusError, *new(T), fmt.Errorf("%w: %w", types.ErrMalformedResult, err))
		return
	}
	q.setIf(gen, types.StatusSuccess, v, nil)
}

func (q *Query[T]) set(status types.QueryStatus, data T, err error) {
	q.mu.Lock()
	q.status, q.data, q.err = status, data, err
	q.mu.Unlock()

	q.sig.Write()
}

// setIf stores a result unless the subscription that produced it was replaced.
func (q *Query[T]) setIf(gen uint64, status types.QueryStatus, data T, err error) {
	q.mu.Lock()
	if q.gen != gen {
		q.mu.Unlock()
		return
	}
	q.status, q.data, q.err = status, data, err
	q.mu.Unlock()

	q.sig.Write()
}

// Status returns the current status.
func (q *Query[T]) Status() types.QueryStatus {
	q.sig.Read()

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.status
}

// Data returns the latest result. It is the zero value unless Status is StatusSuccess.
func (q *Query[T]) Data() T {
	q.sig.Read()

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.data
}

// Err returns the latest error. It is nil unless Status is StatusError.
func (q *Query[T]) Err() error {
	q.sig.Read()

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.err
}

// Loading reports whether a subscription exists that has not delivered yet.
func (q *Query[T]) Loading() bool {
	return q.Status() == types.StatusLoading
}

// Close releases the subscription and stops the binding's effects. It is idempotent.
func (q *Query[T]) Close() {
	q.closeOnce.Do(func() {
		for i := len(q.stops) - 1; i >= 0; i-- {
			q.stops[i]()
		}
	})
}

package types

import (
	"context"
	"encoding/json"
)

// Result is a single update delivered to a listener.
//
// Exactly one of Data and Err is meaningful: when Err is nil, Data holds the
// JSON-encoded query result (which may itself be the JSON literal null).
type Result struct {
	Data json.RawMessage
	Err  error
}

// Listener receives results for a tracked query.
//
// Listeners are compared by pointer: registering the same *Listener twice for
// one identity is a no-op, and untracking removes exactly that pointer.
type Listener struct {
	fn func(Result)
}

// NewListener wraps fn as a Listener.
//
// Parameters:
//   - fn: Callback invoked synchronously for every delivered Result
//
// Returns:
//   - *Listener: A listener with its own identity
func NewListener(fn func(Result)) *Listener {
	return &Listener{fn: fn}
}

// Notify delivers r to the listener. Nil listeners and nil callbacks are ignored.
func (l *Listener) Notify(r Result) {
	if l == nil || l.fn == nil {
		return
	}
	l.fn(r)
}

// Valid reports whether the listener carries a callback.
func (l *Listener) Valid() bool {
	return l != nil && l.fn != nil
}

// Unsubscribe releases a tracked listener. Calling it more than once is safe.
type Unsubscribe func()

// Handle is a live backend subscription.
type Handle interface {
	// Close releases backend resources. Implementations must be idempotent.
	Close() error
}

// HandleFunc adapts a function to Handle. The function is called at most once.
type HandleFunc func() error

// Close implements Handle.
func (f HandleFunc) Close() error { return f() }

// LiveQueryClient is the backend transport consumed by the multiplexer.
//
// Implementations own connection management, serialization and retry policy.
type LiveQueryClient interface {
	// Subscribe opens a live subscription for (query, args).
	//
	// onData is invoked with the encoded result on every change and onError on
	// failure. Invocations for one subscription must be serial. The returned
	// handle stops delivery when closed.
	Subscribe(query FunctionReference, args Args, onData func(json.RawMessage), onError func(error)) (Handle, error)

	// Mutate performs a one-shot remote write and returns its encoded result.
	//
	// opts may be nil.
	Mutate(ctx context.Context, mutation FunctionReference, args Args, opts *MutationOptions) (json.RawMessage, error)
}

// Tracker is the tracking primitive exposed by the multiplexer.
//
// The pagination engine and the reactive bindings depend on this interface
// rather than on the concrete multiplexer.
type Tracker interface {
	// Track registers listener for the live result of (query, args).
	Track(query FunctionReference, args Args, listener *Listener) (Unsubscribe, error)

	// Untrack removes listener from (query, args). It is idempotent.
	Untrack(query FunctionReference, args Args, listener *Listener)
}

// LocalStore is the view of locally cached query results handed to optimistic updates.
type LocalStore interface {
	// GetQuery returns the current local result for (query, args), if subscribed.
	GetQuery(query FunctionReference, args Args) (json.RawMessage, bool)

	// SetQuery overrides the local result for (query, args) until the server
	// confirms or rejects the mutation.
	SetQuery(query FunctionReference, args Args, value json.RawMessage)
}

// OptimisticUpdate applies the expected effect of a mutation to local state.
type OptimisticUpdate func(store LocalStore, args Args)

// MutationOptions carries optional mutation behavior.
type MutationOptions struct {
	// OptimisticUpdate, when set, is applied before the mutation is sent.
	OptimisticUpdate OptimisticUpdate
}
